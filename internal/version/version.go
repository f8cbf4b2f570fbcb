/*
Package version discovers, increments and rewrites the product version
embedded in the installer and assembly metadata files.
*/
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrVersionNotFound is returned when a file has no version declaration line.
	ErrVersionNotFound = errors.New("failed to find current version")

	// ErrVersionMismatch is returned when a companion file disagrees with the canonical file.
	ErrVersionMismatch = errors.New("version mismatch")
)

// Version is a major.minor.patch triple
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse parses a dotted "X.Y.Z" version string
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}

	var segs [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		// Reject forms such as "01" or "+1" that would not round-trip through String.
		if err != nil || n < 0 || strconv.Itoa(n) != part {
			return Version{}, fmt.Errorf("invalid version %q: segment %q is not a non-negative integer", s, part)
		}
		segs[i] = n
	}

	return Version{Major: segs[0], Minor: segs[1], Patch: segs[2]}, nil
}

// String returns the dotted form
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// BumpPatch returns the next patch version
func (v Version) BumpPatch() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

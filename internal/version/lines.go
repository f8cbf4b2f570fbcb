package version

import (
	"fmt"
	"regexp"
	"strings"
)

const utf8BOM = "\uFEFF"

// Target describes a file carrying a version declaration.
type Target struct {
	// Path of the file
	Path string

	// Pattern matches the declaration line; the first capture group is the version.
	Pattern *regexp.Regexp

	// Format is the literal form of the declaration, with %s for the version.
	// Rewrite replaces Format(old) with Format(new) on the declaration line.
	Format string
}

// Predefined declaration shapes.
var (
	// ProductPattern matches a WiX <Product ... Version="X.Y.Z"> line.
	ProductPattern = regexp.MustCompile(`^\s*<Product.*Version="([^"]*)"`)

	// AssemblyPattern matches a C# [assembly: AssemblyVersion("X.Y.Z")] line.
	AssemblyPattern = regexp.MustCompile(`^\[assembly: AssemblyVersion\("([^"]*)"\)\]`)
)

const (
	ProductFormat  = `Version="%s"`
	AssemblyFormat = `AssemblyVersion("%s")`
)

// ProductTarget returns a target for a WiX product file.
func ProductTarget(path string) Target {
	return Target{Path: path, Pattern: ProductPattern, Format: ProductFormat}
}

// AssemblyTarget returns a target for a C# AssemblyInfo file.
func AssemblyTarget(path string) Target {
	return Target{Path: path, Pattern: AssemblyPattern, Format: AssemblyFormat}
}

// literal renders the declaration for a version string
func (t Target) literal(v string) string {
	return fmt.Sprintf(t.Format, v)
}

// match returns the captured version of a declaration line
func (t Target) match(line string) (string, bool) {
	m := t.Pattern.FindStringSubmatch(strings.TrimPrefix(line, utf8BOM))
	if m == nil || len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// FindVersion returns the version captured from the first declaration line.
func FindVersion(lines []string, t Target) (string, error) {
	for _, line := range lines {
		if v, ok := t.match(line); ok {
			return v, nil
		}
	}
	return "", ErrVersionNotFound
}

// ReplaceFirst returns a copy of lines where the first line satisfying match
// has been passed through transform. The bool reports whether a line matched.
func ReplaceFirst(lines []string, match func(string) bool, transform func(string) string) ([]string, bool) {
	out := make([]string, len(lines))
	copy(out, lines)

	for i, line := range out {
		if match(line) {
			out[i] = transform(line)
			return out, true
		}
	}
	return out, false
}

// Rewrite replaces the old version with the new one on the first declaration line.
// All other lines, including later declaration lines, are left untouched.
func Rewrite(lines []string, t Target, oldVersion, newVersion string) ([]string, bool) {
	from, to := t.literal(oldVersion), t.literal(newVersion)
	return ReplaceFirst(lines,
		func(line string) bool {
			_, ok := t.match(line)
			return ok
		},
		func(line string) string {
			return strings.Replace(line, from, to, 1)
		},
	)
}

// SplitLines splits content into lines that keep their terminators,
// so that joining them reproduces the input byte for byte.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) string {
	return strings.Join(lines, "")
}

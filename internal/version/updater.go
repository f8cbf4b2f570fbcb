package version

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Plan is the outcome of version discovery.
type Plan struct {
	Previous Version
	Next     Version
}

// Declaration is the version a single file declares.
type Declaration struct {
	Path    string
	Version string
}

// Updater keeps the canonical file and its companions on the same version.
type Updater struct {
	canonical  Target
	companions []Target
}

// NewUpdater creates an updater. The canonical target is the source of truth
// and is rewritten after every companion.
func NewUpdater(canonical Target, companions ...Target) *Updater {
	return &Updater{
		canonical:  canonical,
		companions: companions,
	}
}

// Targets returns every target in write order
func (u *Updater) Targets() []Target {
	targets := make([]Target, 0, len(u.companions)+1)
	targets = append(targets, u.companions...)
	return append(targets, u.canonical)
}

// Current reads the version declared by the canonical file
func (u *Updater) Current() (Version, error) {
	lines, err := readLines(u.canonical.Path)
	if err != nil {
		return Version{}, err
	}

	raw, err := FindVersion(lines, u.canonical)
	if err != nil {
		return Version{}, fmt.Errorf("%s: %w", u.canonical.Path, err)
	}

	v, err := Parse(raw)
	if err != nil {
		return Version{}, fmt.Errorf("%s: %w", u.canonical.Path, err)
	}
	return v, nil
}

// Declarations reads the declared version of every target in write order.
// A file without a declaration is an error.
func (u *Updater) Declarations() ([]Declaration, error) {
	targets := u.Targets()
	decls := make([]Declaration, 0, len(targets))
	for _, t := range targets {
		lines, err := readLines(t.Path)
		if err != nil {
			return nil, err
		}
		found, err := FindVersion(lines, t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Path, err)
		}
		decls = append(decls, Declaration{Path: t.Path, Version: found})
	}
	return decls, nil
}

// Plan reads the current version from the canonical file and computes the next one.
// It also checks that every companion declares the same version, so a failed
// plan never leaves files half-updated.
func (u *Updater) Plan() (Plan, error) {
	current, err := u.Current()
	if err != nil {
		return Plan{}, err
	}
	raw := current.String()

	for _, t := range u.companions {
		lines, err := readLines(t.Path)
		if err != nil {
			return Plan{}, err
		}
		found, err := FindVersion(lines, t)
		if err != nil {
			return Plan{}, fmt.Errorf("%s: %w", t.Path, err)
		}
		if found != raw {
			return Plan{}, fmt.Errorf("%w: %s declares %s, %s declares %s",
				ErrVersionMismatch, t.Path, found, u.canonical.Path, raw)
		}
	}

	return Plan{Previous: current, Next: current.BumpPatch()}, nil
}

// Apply writes the planned version into every target, companions first.
// There is no rollback: files rewritten before a failure stay rewritten.
func (u *Updater) Apply(plan Plan) error {
	oldVersion, newVersion := plan.Previous.String(), plan.Next.String()

	for _, t := range u.Targets() {
		log.Info("Updating file", "path", t.Path)
		if err := rewriteFile(t, oldVersion, newVersion); err != nil {
			return err
		}
	}
	return nil
}

// Bump plans and applies the next patch version.
func (u *Updater) Bump() (Plan, error) {
	plan, err := u.Plan()
	if err != nil {
		return Plan{}, err
	}

	log.Info("Previous version", "version", plan.Previous)
	log.Info("New version", "version", plan.Next)

	if err := u.Apply(plan); err != nil {
		return plan, err
	}
	return plan, nil
}

func rewriteFile(t Target, oldVersion, newVersion string) error {
	lines, err := readLines(t.Path)
	if err != nil {
		return err
	}

	updated, ok := Rewrite(lines, t, oldVersion, newVersion)
	if !ok {
		return fmt.Errorf("%s: %w", t.Path, ErrVersionNotFound)
	}

	return writeLines(t.Path, updated)
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return SplitLines(string(data)), nil
}

// writeLines replaces path through a temporary file in the same directory,
// keeping the original permissions.
func writeLines(path string, lines []string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bcrelease-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(JoinLines(lines)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

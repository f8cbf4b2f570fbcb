// Package checksum writes a digest file next to the built installer.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bloodstar/bcrelease/internal/config"
	"github.com/bloodstar/bcrelease/internal/tmpl"
)

// Algorithm represents a checksum algorithm.
type Algorithm string

const (
	AlgorithmMD5    Algorithm = "md5"
	AlgorithmSHA1   Algorithm = "sha1"
	AlgorithmSHA256 Algorithm = "sha256"
	AlgorithmSHA512 Algorithm = "sha512"
)

// Generator generates the checksum file for the artifact.
type Generator struct {
	config      config.Checksum
	artifact    string
	templateCtx *tmpl.Context
}

// NewGenerator creates a new checksum generator.
func NewGenerator(cfg config.Checksum, artifact string, templateCtx *tmpl.Context) *Generator {
	return &Generator{
		config:      cfg,
		artifact:    artifact,
		templateCtx: templateCtx,
	}
}

// Run computes the artifact digest and writes "<sum>  <name>" to the
// checksum file. It returns the path of the written file, or "" when disabled.
func (g *Generator) Run() (string, error) {
	if !g.config.Enabled {
		log.Debug("Skipping checksum generation")
		return "", nil
	}

	algorithm := Algorithm(g.config.Algorithm)
	if algorithm == "" {
		algorithm = AlgorithmSHA256
	}

	sum, err := CalculateForFile(g.artifact, algorithm)
	if err != nil {
		return "", fmt.Errorf("failed to calculate checksum for %s: %w", g.artifact, err)
	}

	name := filepath.Base(g.artifact)
	checksumFile := g.config.NameTemplate
	if checksumFile == "" {
		checksumFile = name + "." + string(algorithm)
	}

	if g.templateCtx != nil {
		expanded, err := g.templateCtx.With(map[string]interface{}{
			"ArtifactName": name,
			"Algorithm":    string(algorithm),
		}).Apply(checksumFile)
		if err != nil {
			log.Warn("Failed to apply template to checksum filename, using as-is", "template", checksumFile, "error", err)
		} else {
			checksumFile = expanded
		}
	}

	checksumPath := filepath.Join(filepath.Dir(g.artifact), checksumFile)
	if err := os.WriteFile(checksumPath, []byte(fmt.Sprintf("%s  %s\n", sum, name)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write checksum file: %w", err)
	}

	log.Info("Checksum generated", "file", checksumPath, "algorithm", algorithm, "checksum", sum)
	return checksumPath, nil
}

// CalculateForFile calculates the checksum of a single file.
func CalculateForFile(path string, algorithm Algorithm) (string, error) {
	var h hash.Hash
	switch algorithm {
	case AlgorithmMD5:
		h = md5.New()
	case AlgorithmSHA1:
		h = sha1.New()
	case AlgorithmSHA256:
		h = sha256.New()
	case AlgorithmSHA512:
		h = sha512.New()
	default:
		return "", fmt.Errorf("unsupported algorithm: %s", algorithm)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

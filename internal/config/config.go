/*
Package config provides configuration loading and validation for bcrelease.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"text/template"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Host key policies for the upload connection
const (
	HostKeyInsecure   = "insecure"
	HostKeyKnownHosts = "known_hosts"
)

// Version file kinds
const (
	KindProduct  = "product"
	KindAssembly = "assembly"
)

// Config represents the complete bcrelease configuration
type Config struct {
	// ProjectName is the name of the project
	ProjectName string `yaml:"project_name,omitempty"`

	// Dir is the project root; relative paths are resolved against it
	Dir string `yaml:"dir,omitempty"`

	// Environment variables (list of KEY=VALUE strings) for hooks and the build tool
	Env []string `yaml:"env,omitempty"`

	// Custom template variables
	Variables map[string]interface{} `yaml:"variables,omitempty"`

	// Include other configuration files
	Includes []string `yaml:"includes,omitempty"`

	// Before hooks run at the start of the release
	Before Hooks `yaml:"before,omitempty"`

	// After hooks run once the artifact is uploaded
	After Hooks `yaml:"after,omitempty"`

	// Version files configuration
	Version VersionConfig `yaml:"version,omitempty"`

	// Build tool configuration
	Build Build `yaml:"build,omitempty"`

	// Checksum configuration
	Checksum Checksum `yaml:"checksum,omitempty"`

	// Upload configuration
	Upload Upload `yaml:"upload,omitempty"`
}

// Hooks represents before/after hooks
type Hooks struct {
	// Commands to run
	Commands []string `yaml:"commands,omitempty"`

	// Hooks with more options
	Hooks []Hook `yaml:"hooks,omitempty"`
}

// Hook represents a single hook command
type Hook struct {
	// Command to run
	Cmd string `yaml:"cmd"`

	// Directory to run the command in
	Dir string `yaml:"dir,omitempty"`

	// Environment variables
	Env map[string]string `yaml:"env,omitempty"`

	// Output handling
	Output string `yaml:"output,omitempty"`

	// If condition
	If string `yaml:"if,omitempty"`

	// FailFast stops on error
	FailFast bool `yaml:"fail_fast,omitempty"`

	// Shell runs command in shell
	Shell bool `yaml:"shell,omitempty"`
}

// VersionConfig lists the files that carry the product version
type VersionConfig struct {
	// Canonical is the file the current version is read from
	Canonical VersionFile `yaml:"canonical,omitempty"`

	// Companions are kept in sync with the canonical file
	Companions []VersionFile `yaml:"companions,omitempty"`
}

// VersionFile is a file with a version declaration
type VersionFile struct {
	Path string `yaml:"path"`
	Kind string `yaml:"kind,omitempty"`
}

// UnmarshalYAML allows VersionFile to be specified as either a string or object
func (f *VersionFile) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		f.Path = value.Value
		return nil
	}

	type rawVersionFile VersionFile
	return value.Decode((*rawVersionFile)(f))
}

// Build represents the external build tool invocation
type Build struct {
	// Tool is the build executable
	Tool string `yaml:"tool,omitempty"`

	// Project is the project file passed to the tool
	Project string `yaml:"project,omitempty"`

	// Args follow the project file
	Args []string `yaml:"args,omitempty"`

	// Dir is the working directory
	Dir string `yaml:"dir,omitempty"`

	// Env for the build environment
	Env []string `yaml:"env,omitempty"`

	// Skip build
	Skip bool `yaml:"skip,omitempty"`
}

// Checksum represents checksum configuration
type Checksum struct {
	Enabled      bool   `yaml:"enabled,omitempty"`
	Algorithm    string `yaml:"algorithm,omitempty"`
	NameTemplate string `yaml:"name_template,omitempty"`
}

// Upload represents the artifact upload
type Upload struct {
	// Artifact is the local file to upload
	Artifact string `yaml:"artifact,omitempty"`

	// RemotePath is the destination on the server
	RemotePath string `yaml:"remote_path,omitempty"`

	// Credentials is the JSON file holding host, port, user and passwd
	Credentials string `yaml:"credentials,omitempty"`

	// HostKey selects how the server identity is checked
	HostKey string `yaml:"host_key,omitempty"`

	// KnownHosts is the known_hosts file used by the known_hosts policy
	KnownHosts string `yaml:"known_hosts,omitempty"`

	// Timeout for establishing the connection
	Timeout string `yaml:"timeout,omitempty"`

	// Skip upload
	Skip bool `yaml:"skip,omitempty"`
}

// Default returns the configuration matching the Bloodstar Clocktica layout
func Default() *Config {
	return &Config{
		ProjectName: "BloodstarClocktica",
		Dir:         ".",
		Version: VersionConfig{
			Canonical: VersionFile{Path: "Installer/Product.wxs", Kind: KindProduct},
			Companions: []VersionFile{
				{Path: "BloodstarClockticaLib/Properties/AssemblyInfo.cs", Kind: KindAssembly},
				{Path: "BloodstarClockticaWpf/Properties/AssemblyInfo.cs", Kind: KindAssembly},
			},
		},
		Build: Build{
			Tool:    `C:\Program Files (x86)\Microsoft Visual Studio\2019\Community\MSBuild\Current\Bin\MSBuild.exe`,
			Project: "Installer/Installer.wixproj",
			Args:    []string{"/p:Configuration=Release"},
		},
		Checksum: Checksum{
			Algorithm:    "sha256",
			NameTemplate: "{{ .ArtifactName }}.{{ .Algorithm }}",
		},
		Upload: Upload{
			Artifact:    "Installer/bin/Release/BloodstarClockticaInstaller.msi",
			RemotePath:  "BloodstarClockticaInstaller.msi",
			Credentials: "ftpinfo.json",
			HostKey:     HostKeyInsecure,
			KnownHosts:  "~/.ssh/known_hosts",
			Timeout:     "30s",
		},
	}
}

// Load loads configuration from a file and fills unset fields from Default
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Process includes
	baseDir := filepath.Dir(path)
	for _, include := range cfg.Includes {
		includePath := include
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, include)
		}

		// Support glob patterns
		matches, err := filepath.Glob(includePath)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %s: %w", include, err)
		}

		for _, match := range matches {
			includeCfg, err := load(match)
			if err != nil {
				return nil, fmt.Errorf("failed to load include %s: %w", match, err)
			}

			if err := mergo.Merge(&cfg, includeCfg, mergo.WithAppendSlice); err != nil {
				return nil, fmt.Errorf("failed to merge include %s: %w", match, err)
			}
		}
	}

	return &cfg, nil
}

// applyDefaults fills zero fields from Default
func (c *Config) applyDefaults() error {
	if err := mergo.Merge(c, Default()); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}

	if c.Version.Canonical.Kind == "" {
		c.Version.Canonical.Kind = KindProduct
	}
	for i := range c.Version.Companions {
		if c.Version.Companions[i].Kind == "" {
			c.Version.Companions[i].Kind = KindAssembly
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Version.Canonical.Path == "" {
		return fmt.Errorf("version.canonical is required")
	}

	files := append([]VersionFile{c.Version.Canonical}, c.Version.Companions...)
	seen := make(map[string]bool)
	for _, f := range files {
		if f.Path == "" {
			return fmt.Errorf("version file path is required")
		}
		if f.Kind != KindProduct && f.Kind != KindAssembly {
			return fmt.Errorf("unknown version file kind %q for %s", f.Kind, f.Path)
		}
		if seen[f.Path] {
			return fmt.Errorf("duplicate version file: %s", f.Path)
		}
		seen[f.Path] = true
	}

	if !c.Build.Skip && c.Build.Tool == "" {
		return fmt.Errorf("build.tool is required")
	}

	switch c.Checksum.Algorithm {
	case "md5", "sha1", "sha256", "sha512":
	default:
		return fmt.Errorf("unsupported checksum algorithm: %s", c.Checksum.Algorithm)
	}

	if !c.Upload.Skip {
		if c.Upload.Artifact == "" || c.Upload.RemotePath == "" {
			return fmt.Errorf("upload.artifact and upload.remote_path are required")
		}
		if c.Upload.Credentials == "" {
			return fmt.Errorf("upload.credentials is required")
		}
	}

	switch c.Upload.HostKey {
	case HostKeyInsecure, HostKeyKnownHosts:
	default:
		return fmt.Errorf("unknown host_key policy %q (want %s or %s)", c.Upload.HostKey, HostKeyInsecure, HostKeyKnownHosts)
	}

	return c.validateTemplates()
}

// validateTemplates validates all template strings in the configuration
func (c *Config) validateTemplates() error {
	templateRe := regexp.MustCompile(`\{\{.*?\}\}`)

	// Helper to validate a template string
	validateTemplate := func(name, tmpl string) error {
		if !templateRe.MatchString(tmpl) {
			return nil
		}
		_, err := template.New(name).Parse(tmpl)
		if err != nil {
			return fmt.Errorf("invalid template in %s: %w", name, err)
		}
		return nil
	}

	for i, arg := range c.Build.Args {
		if err := validateTemplate(fmt.Sprintf("build.args[%d]", i), arg); err != nil {
			return err
		}
	}

	if err := validateTemplate("upload.remote_path", c.Upload.RemotePath); err != nil {
		return err
	}

	return validateTemplate("checksum.name_template", c.Checksum.NameTemplate)
}

// Path resolves a configured path against the project root
func (c *Config) Path(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// DefaultTemplate returns the default configuration template
func DefaultTemplate() string {
	return `# bcrelease configuration file

project_name: BloodstarClocktica

# Version files. The canonical file is the source of truth;
# companions must declare the same version.
version:
  canonical:
    path: Installer/Product.wxs
    kind: product
  companions:
    - BloodstarClockticaLib/Properties/AssemblyInfo.cs
    - BloodstarClockticaWpf/Properties/AssemblyInfo.cs

# Installer build
build:
  tool: 'C:\Program Files (x86)\Microsoft Visual Studio\2019\Community\MSBuild\Current\Bin\MSBuild.exe'
  project: Installer/Installer.wixproj
  args:
    - /p:Configuration=Release

# Optional checksum written next to the artifact
checksum:
  enabled: false
  algorithm: sha256

# Upload over SFTP
upload:
  artifact: Installer/bin/Release/BloodstarClockticaInstaller.msi
  remote_path: BloodstarClockticaInstaller.msi
  credentials: ftpinfo.json
  # insecure accepts any server key; known_hosts checks ~/.ssh/known_hosts
  host_key: insecure
  timeout: 30s
`
}

/*
Package bcrelease automates releases of the Bloodstar Clocktica installer.

A release runs three stages in order:
  - Bump the patch version in the WiX product definition and in every
    AssemblyInfo.cs companion
  - Build the installer with MSBuild
  - Upload the MSI to the distribution server over SFTP

# Configuration

bcrelease works without a configuration file. An optional .bcrelease.yaml
overrides the built-in paths and supports:
  - Template variables using Go's text/template syntax
  - Include statements for reusing configuration
  - Before and after hooks

Server credentials are read from ftpinfo.json.

# Usage

	bcrelease release              # Bump, build and upload
	bcrelease release --dry-run    # Show what would happen
	bcrelease bump                 # Bump the patch version only
	bcrelease build                # Build the current version
	bcrelease upload               # Upload the current installer
	bcrelease check                # Validate config and project files
*/
package bcrelease

// Version is the current version of bcrelease
const Version = "1.0.0"

// BuildDate is set at build time
var BuildDate string

// GitCommit is set at build time
var GitCommit string

/*
Package pipeline provides the release pipeline orchestration for bcrelease.
*/
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bloodstar/bcrelease/internal/builder"
	"github.com/bloodstar/bcrelease/internal/checksum"
	"github.com/bloodstar/bcrelease/internal/config"
	"github.com/bloodstar/bcrelease/internal/hook"
	"github.com/bloodstar/bcrelease/internal/publish"
	"github.com/bloodstar/bcrelease/internal/tmpl"
	"github.com/bloodstar/bcrelease/internal/version"
)

// ReleaseOptions contains options for the release pipeline
type ReleaseOptions struct {
	ConfigFile string
	Dir        string
	DryRun     bool
	SkipBuild  bool
	SkipUpload bool
	Progress   bool
}

// buildRunner runs the build stage
type buildRunner interface {
	Run(ctx context.Context) error
}

// Pipeline orchestrates the release process
type Pipeline struct {
	config      *config.Config
	options     ReleaseOptions
	templateCtx *tmpl.Context
	updater     *version.Updater
	hooks       *hook.Runner
	plan        *version.Plan
	startTime   time.Time

	newBuilder   func() (buildRunner, error)
	newPublisher func() (publish.Publisher, error)
}

// New creates a new release pipeline
func New(ctx context.Context, opts ReleaseOptions) (*Pipeline, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	if opts.Dir != "" {
		cfg.Dir = opts.Dir
	}
	if opts.SkipBuild {
		cfg.Build.Skip = true
	}
	if opts.SkipUpload {
		cfg.Upload.Skip = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	templateCtx := tmpl.New(cfg)

	p := &Pipeline{
		config:      cfg,
		options:     opts,
		templateCtx: templateCtx,
		updater:     newUpdater(cfg),
		hooks:       hook.NewRunner(templateCtx, cfg.Dir, cfg.Env),
		startTime:   time.Now(),
	}
	p.newBuilder = p.defaultBuilder
	p.newPublisher = p.defaultPublisher

	return p, nil
}

// Config returns the loaded configuration
func (p *Pipeline) Config() *config.Config {
	return p.config
}

// Run executes the full release pipeline: bump, build, upload.
// The first failing stage stops the run.
func (p *Pipeline) Run(ctx context.Context) error {
	log.Info("Starting release pipeline", "project", p.config.ProjectName)

	if _, err := p.Plan(); err != nil {
		return err
	}

	if !p.options.DryRun {
		if err := p.hooks.RunPhase(ctx, p.config.Before, "before"); err != nil {
			return err
		}
	}

	if err := p.Bump(ctx); err != nil {
		return err
	}

	if err := p.Build(ctx); err != nil {
		return err
	}

	if err := p.Upload(ctx); err != nil {
		return err
	}

	if p.options.DryRun {
		log.Info("Dry run complete, no files were changed")
		return nil
	}

	if err := p.hooks.RunPhase(ctx, p.config.After, "after"); err != nil {
		return err
	}

	elapsed := time.Since(p.startTime)
	log.Info("Release completed successfully", "version", p.plan.Next, "duration", elapsed.Round(time.Second))

	return nil
}

// Plan discovers the current version and computes the next one without writing anything
func (p *Pipeline) Plan() (version.Plan, error) {
	if p.plan != nil {
		return *p.plan, nil
	}

	plan, err := p.updater.Plan()
	if err != nil {
		return version.Plan{}, fmt.Errorf("failed to determine version: %w", err)
	}

	p.plan = &plan
	p.templateCtx.SetVersion(plan)
	return plan, nil
}

// Declarations reports the version each version file declares
func (p *Pipeline) Declarations() ([]version.Declaration, error) {
	return p.updater.Declarations()
}

// Bump writes the next patch version into every version file
func (p *Pipeline) Bump(_ context.Context) error {
	plan, err := p.Plan()
	if err != nil {
		return err
	}

	log.Info("Previous version", "version", plan.Previous)
	log.Info("New version", "version", plan.Next)

	if p.options.DryRun {
		for _, t := range p.updater.Targets() {
			log.Info("Would update file", "path", t.Path)
		}
		return nil
	}

	if err := p.updater.Apply(plan); err != nil {
		return fmt.Errorf("failed to update version: %w", err)
	}
	return nil
}

// Build runs the build tool. A nonzero exit is returned as *builder.ExitError.
func (p *Pipeline) Build(ctx context.Context) error {
	if p.config.Build.Skip {
		log.Info("Skipping build")
		return nil
	}

	if err := p.ensureVersion(); err != nil {
		return err
	}

	b, err := p.newBuilder()
	if err != nil {
		return err
	}

	if p.options.DryRun {
		if inv, ok := b.(*builder.Invoker); ok {
			tool, args := inv.Command()
			log.Info("Would run build", "tool", tool, "args", args)
		}
		return nil
	}

	if err := b.Run(ctx); err != nil {
		return err
	}

	return p.checksum()
}

// Upload sends the artifact to the server
func (p *Pipeline) Upload(ctx context.Context) error {
	if p.config.Upload.Skip {
		log.Info("Skipping upload")
		return nil
	}

	if err := p.ensureVersion(); err != nil {
		return err
	}

	if p.options.DryRun {
		remote, err := p.templateCtx.Apply(p.config.Upload.RemotePath)
		if err != nil {
			return err
		}
		log.Info("Would upload", "artifact", p.config.Path(p.config.Upload.Artifact), "remote", remote)
		return nil
	}

	pub, err := p.newPublisher()
	if err != nil {
		return err
	}

	if err := pub.Publish(ctx); err != nil {
		return err
	}

	log.Info("Done")
	return nil
}

// ensureVersion exposes the current version to templates when the
// pipeline runs a single stage without bumping
func (p *Pipeline) ensureVersion() error {
	if p.plan != nil {
		return nil
	}

	current, err := p.updater.Current()
	if err != nil {
		return fmt.Errorf("failed to determine version: %w", err)
	}
	p.templateCtx.SetVersion(version.Plan{Previous: current, Next: current})
	return nil
}

func (p *Pipeline) checksum() error {
	artifact := p.config.Path(p.config.Upload.Artifact)
	_, err := checksum.NewGenerator(p.config.Checksum, artifact, p.templateCtx).Run()
	return err
}

func (p *Pipeline) defaultBuilder() (buildRunner, error) {
	return builder.New(p.config, p.templateCtx)
}

func (p *Pipeline) defaultPublisher() (publish.Publisher, error) {
	upload := p.config.Upload

	creds, err := config.LoadCredentials(p.config.Path(upload.Credentials))
	if err != nil {
		return nil, err
	}

	remotePath, err := p.templateCtx.Apply(upload.RemotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand remote path: %w", err)
	}

	timeout, err := parseTimeout(upload.Timeout)
	if err != nil {
		return nil, err
	}

	hostKey, err := publish.HostKeyCallback(upload.HostKey, upload.KnownHosts)
	if err != nil {
		return nil, err
	}

	dialer := publish.NewSSHDialer(hostKey, timeout)
	return publish.NewSFTPPublisher(dialer, creds, p.config.Path(upload.Artifact), remotePath).
		WithProgress(p.options.Progress), nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid upload timeout %q: %w", s, err)
	}
	return d, nil
}

func newUpdater(cfg *config.Config) *version.Updater {
	companions := make([]version.Target, 0, len(cfg.Version.Companions))
	for _, f := range cfg.Version.Companions {
		companions = append(companions, target(cfg, f))
	}
	return version.NewUpdater(target(cfg, cfg.Version.Canonical), companions...)
}

func target(cfg *config.Config, f config.VersionFile) version.Target {
	if f.Kind == config.KindAssembly {
		return version.AssemblyTarget(cfg.Path(f.Path))
	}
	return version.ProductTarget(cfg.Path(f.Path))
}

// loadConfig loads the configuration file, or the built-in defaults when
// none was given and none exists in the project directory
func loadConfig(opts ReleaseOptions) (*config.Config, error) {
	cfgPath := opts.ConfigFile
	if cfgPath == "" {
		cfgPath = findConfigFile(opts.Dir)
	}

	if cfgPath == "" {
		log.Debug("No config file found, using defaults")
		return config.Default(), nil
	}

	log.Debug("Loading config", "path", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// findConfigFile looks for a configuration file in dir
func findConfigFile(dir string) string {
	candidates := []string{
		".bcrelease.yaml",
		".bcrelease.yml",
		"bcrelease.yaml",
		"bcrelease.yml",
	}

	for _, c := range candidates {
		path := filepath.Join(dir, c)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

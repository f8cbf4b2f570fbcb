/*
Package publish provides publishing functionality for bcrelease.
*/
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/bloodstar/bcrelease/internal/config"
)

// Publisher interface for publishing targets
type Publisher interface {
	Publish(ctx context.Context) error
}

// Session is an open file-transfer session
type Session interface {
	// Put copies src to remotePath in a single blocking call
	Put(src io.Reader, remotePath string) (int64, error)

	// Close releases the session and its connection
	Close() error
}

// Dialer opens sessions
type Dialer interface {
	Dial(ctx context.Context, creds config.Credentials) (Session, error)
}

// SFTPPublisher uploads one artifact to one remote path
type SFTPPublisher struct {
	dialer     Dialer
	creds      config.Credentials
	artifact   string
	remotePath string
	progress   bool
}

// NewSFTPPublisher creates a new SFTP publisher
func NewSFTPPublisher(dialer Dialer, creds config.Credentials, artifact, remotePath string) *SFTPPublisher {
	return &SFTPPublisher{
		dialer:     dialer,
		creds:      creds,
		artifact:   artifact,
		remotePath: remotePath,
	}
}

// WithProgress enables a progress bar on stderr
func (p *SFTPPublisher) WithProgress(enabled bool) *SFTPPublisher {
	p.progress = enabled
	return p
}

// Publish uploads the artifact. The session is closed on every path,
// and a close failure is reported alongside any transfer error.
func (p *SFTPPublisher) Publish(ctx context.Context) (err error) {
	f, err := os.Open(p.artifact)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat artifact: %w", err)
	}

	log.Info("Uploading to server", "artifact", p.artifact, "remote", p.remotePath, "server", p.creds.String())

	sess, err := p.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", p.creds.Address(), err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close session: %w", cerr))
		}
	}()

	var src io.Reader = f
	if p.progress {
		bar := newProgressBar(info.Size(), "uploading")
		defer bar.Finish()
		src = io.TeeReader(f, bar)
	}

	n, err := sess.Put(src, p.remotePath)
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", p.artifact, p.remotePath, err)
	}

	log.Info("Uploaded artifact", "bytes", n, "remote", p.remotePath)
	return nil
}

// dial opens the session, with a spinner while connecting when progress is on
func (p *SFTPPublisher) dial(ctx context.Context) (Session, error) {
	if !p.progress {
		return p.dialer.Dial(ctx, p.creds)
	}

	s := newSpinner("connecting to " + p.creds.Address())
	s.Start()
	defer s.Stop()
	return p.dialer.Dial(ctx, p.creds)
}

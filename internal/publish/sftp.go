package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/bloodstar/bcrelease/internal/config"
)

// SSHDialer opens SFTP sessions over SSH with password authentication
type SSHDialer struct {
	hostKey ssh.HostKeyCallback
	timeout time.Duration
}

// NewSSHDialer creates a dialer that checks server identity with hostKey
func NewSSHDialer(hostKey ssh.HostKeyCallback, timeout time.Duration) *SSHDialer {
	return &SSHDialer{
		hostKey: hostKey,
		timeout: timeout,
	}
}

// HostKeyCallback returns the callback for a host key policy.
//
// The insecure policy accepts whatever key the server presents, so the
// server identity is never verified. It exists to match how the release
// server has always been reached; prefer known_hosts.
func HostKeyCallback(policy, knownHostsFile string) (ssh.HostKeyCallback, error) {
	switch policy {
	case config.HostKeyInsecure, "":
		log.Warn("Host key verification is disabled", "policy", config.HostKeyInsecure)
		return ssh.InsecureIgnoreHostKey(), nil
	case config.HostKeyKnownHosts:
		path, err := expandHome(knownHostsFile)
		if err != nil {
			return nil, err
		}
		cb, err := knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", path, err)
		}
		return cb, nil
	default:
		return nil, fmt.Errorf("unknown host key policy: %s", policy)
	}
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// clientConfig builds the SSH client configuration for the credentials
func (d *SSHDialer) clientConfig(creds config.Credentials) *ssh.ClientConfig {
	password := creds.Password
	return &ssh.ClientConfig{
		User: creds.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			// Some servers only offer keyboard-interactive; answer every prompt with the password.
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: d.hostKey,
		Timeout:         d.timeout,
	}
}

// Dial connects, authenticates and starts the SFTP subsystem
func (d *SSHDialer) Dial(ctx context.Context, creds config.Credentials) (Session, error) {
	addr := creds.Address()
	log.Debug("Dialing SSH server", "addr", addr, "user", creds.User)

	nd := net.Dialer{Timeout: d.timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if d.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, d.clientConfig(creds))
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(c, chans, reqs)

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start sftp subsystem: %w", err)
	}

	return &sftpSession{ssh: client, sftp: sftpClient}, nil
}

// sftpSession owns the SFTP client and the SSH connection under it
type sftpSession struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

// Put writes src to remotePath, truncating any existing file
func (s *sftpSession) Put(src io.Reader, remotePath string) (int64, error) {
	f, err := s.sftp.Create(remotePath)
	if err != nil {
		return 0, err
	}

	n, err := f.ReadFrom(src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Close closes the SFTP client, then the SSH connection
func (s *sftpSession) Close() error {
	return errors.Join(s.sftp.Close(), s.ssh.Close())
}

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"site-deployer/config"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPUploader mirrors the site over SFTP.
type SFTPUploader struct{}

func (u *SFTPUploader) Upload(ctx context.Context, tc config.TransferConfig) (*Report, error) {
	sshConfig, err := createSSHConfig(tc)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: tc.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", tc.Address())
	if err != nil {
		return nil, fmt.Errorf("SSH connection to %s failed: %w", tc.Address(), err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, tc.Address(), sshConfig)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("SSH handshake with %s failed: %w", tc.Address(), err)
	}
	conn := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SFTP client creation failed: %w", err)
	}
	slog.Info("SFTP connection established", "host", tc.Address(), "user", tc.User)

	rfs := &sftpFS{client: client, conn: conn}
	defer func() {
		if err := rfs.Close(); err != nil {
			slog.Debug("SFTP close failed", "host", tc.Host, "error", err)
		}
	}()

	return mirror(ctx, rfs, tc)
}

// createSSHConfig creates the SSH client configuration with password authentication
func createSSHConfig(tc config.TransferConfig) (*ssh.ClientConfig, error) {
	cfg := &ssh.ClientConfig{
		User: tc.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(tc.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         tc.Timeout,
	}

	if tc.KnownHosts == "" {
		slog.Warn("No known_hosts file configured, host key is not verified", "host", tc.Host)
		return cfg, nil
	}

	hostKeyCallback, err := knownhosts.New(tc.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("error reading known_hosts %s: %w", tc.KnownHosts, err)
	}
	cfg.HostKeyCallback = hostKeyCallback

	return cfg, nil
}

type sftpFS struct {
	client *sftp.Client
	conn   *ssh.Client
}

func (s *sftpFS) List(root string) ([]string, error) {
	var files []string

	walker := s.client.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			if walker.Path() == root && os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		if walker.Stat().IsDir() {
			continue
		}
		if rel := relativeTo(root, walker.Path()); rel != "" {
			files = append(files, rel)
		}
	}

	return files, nil
}

func (s *sftpFS) MkdirAll(dir string) error {
	return s.client.MkdirAll(dir)
}

func (s *sftpFS) Put(remotePath string, r io.Reader, _ int64) error {
	dst, err := s.client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("error creating remote file: %w", err)
	}
	return writeAndClose(dst, r)
}

type remoteFile interface {
	io.ReaderFrom
	io.Closer
}

// writeAndClose copies r into dst. A failed close means the server did not commit the file.
func writeAndClose(dst remoteFile, r io.Reader) error {
	if _, err := dst.ReadFrom(r); err != nil {
		dst.Close()
		return fmt.Errorf("error writing remote file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("error closing remote file: %w", err)
	}
	return nil
}

func (s *sftpFS) Remove(remotePath string) error {
	err := s.client.Remove(remotePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *sftpFS) Close() error {
	clientErr := s.client.Close()
	connErr := s.conn.Close()
	if clientErr != nil {
		return clientErr
	}
	return connErr
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"path"
	"strings"

	"site-deployer/config"

	"github.com/jlaffaye/ftp"
)

// FTPUploader mirrors the site over plain FTP.
type FTPUploader struct{}

func (u *FTPUploader) Upload(ctx context.Context, tc config.TransferConfig) (*Report, error) {
	conn, err := connectAndLoginFTP(ctx, tc)
	if err != nil {
		return nil, err
	}
	rfs := &ftpFS{conn: conn}
	defer func() {
		if err := rfs.Close(); err != nil {
			slog.Debug("FTP quit failed", "host", tc.Host, "error", err)
		}
	}()

	return mirror(ctx, rfs, tc)
}

// connectAndLoginFTP establishes the FTP connection and logs in
func connectAndLoginFTP(ctx context.Context, tc config.TransferConfig) (*ftp.ServerConn, error) {
	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(tc.Timeout),
	}
	if tc.ForcePasv {
		// PASV instead of EPSV
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}

	client, err := ftp.Dial(tc.Address(), opts...)
	if err != nil {
		return nil, fmt.Errorf("FTP connection to %s failed: %w", tc.Address(), err)
	}

	if err := client.Login(tc.User, tc.Password); err != nil {
		client.Quit()
		return nil, fmt.Errorf("FTP login as %s failed: %w", tc.User, err)
	}

	slog.Info("FTP connection established", "host", tc.Address(), "user", tc.User, "pasv", tc.ForcePasv)
	return client, nil
}

// ftpConn is the subset of *ftp.ServerConn used by ftpFS
type ftpConn interface {
	List(path string) ([]*ftp.Entry, error)
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Delete(path string) error
	Quit() error
}

type ftpFS struct {
	conn ftpConn
}

// List walks root recursively. A 550 reply for root itself means there is nothing to delete yet.
func (f *ftpFS) List(root string) ([]string, error) {
	root = path.Clean(root)

	entries, err := f.conn.List(root)
	if err != nil {
		if isFTPNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error listing %s: %w", root, err)
	}

	var files []string
	if err := f.collect(root, root, entries, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// collect adds the files of dir to files and descends into its folders
func (f *ftpFS) collect(root, dir string, entries []*ftp.Entry, files *[]string) error {
	for _, entry := range entries {
		if entry == nil || entry.Name == "." || entry.Name == ".." {
			continue
		}
		p := path.Join(dir, entry.Name)

		switch entry.Type {
		case ftp.EntryTypeFile:
			if rel := relativeTo(root, p); rel != "" {
				*files = append(*files, rel)
			}
		case ftp.EntryTypeFolder:
			children, err := f.conn.List(p)
			if err != nil {
				return fmt.Errorf("error listing %s: %w", p, err)
			}
			if err := f.collect(root, p, children, files); err != nil {
				return err
			}
		default:
			slog.Debug("Skipping remote link", "path", p)
		}
	}
	return nil
}

// MkdirAll creates dir step by step. Errors are ignored, the directory may already exist.
func (f *ftpFS) MkdirAll(dir string) error {
	current := "/"
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		current = path.Join(current, part)
		if err := f.conn.MakeDir(current); err != nil {
			slog.Debug("Directory may already exist", "directory", current)
		}
	}
	return nil
}

func (f *ftpFS) Put(remotePath string, r io.Reader, _ int64) error {
	return f.conn.Stor(remotePath, r)
}

func (f *ftpFS) Remove(remotePath string) error {
	err := f.conn.Delete(remotePath)
	if err != nil && isFTPNotFound(err) {
		return nil
	}
	return err
}

func (f *ftpFS) Close() error {
	return f.conn.Quit()
}

// isFTPNotFound reports whether err is a 550 reply (file unavailable)
func isFTPNotFound(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code == ftp.StatusFileUnavailable
	}
	return false
}

// relativeTo returns p relative to root, slash separated, or "" if p is root itself
func relativeTo(root, p string) string {
	root = path.Clean(root)
	p = path.Clean(p)
	if p == root {
		return ""
	}
	if root == "/" {
		return strings.TrimPrefix(p, "/")
	}
	return strings.TrimPrefix(p, root+"/")
}

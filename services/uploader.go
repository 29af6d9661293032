package services

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"site-deployer/config"

	"github.com/bmatcuk/doublestar/v4"
)

// Uploader mirrors the local root of a TransferConfig to its remote target.
type Uploader interface {
	Upload(ctx context.Context, tc config.TransferConfig) (*Report, error)
}

// Report summarizes one upload run.
type Report struct {
	Uploaded int
	Deleted  int
	Bytes    int64
	Duration time.Duration
}

// NewUploader returns the uploader for the protocol of tc.
func NewUploader(tc config.TransferConfig, s3Clients *S3ClientManager) (Uploader, error) {
	switch tc.Protocol {
	case config.ProtocolFTP, "":
		return &FTPUploader{}, nil
	case config.ProtocolSFTP:
		return &SFTPUploader{}, nil
	case config.ProtocolS3:
		if s3Clients == nil {
			return nil, fmt.Errorf("s3ClientManager not initialized")
		}
		return &S3Uploader{clients: s3Clients}, nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", tc.Protocol)
	}
}

// remoteFS is the minimal set of remote operations the mirror needs.
// Paths are slash separated and absolute within the remote side.
type remoteFS interface {
	// List returns all files below root, relative to root. A missing root yields no files.
	List(root string) ([]string, error)
	MkdirAll(dir string) error
	Put(remotePath string, r io.Reader, size int64) error
	Remove(remotePath string) error
	Close() error
}

type localFile struct {
	relPath string // slash separated
	absPath string
	size    int64
}

// collectLocalFiles walks localRoot and returns the files matched by include and not by exclude.
func collectLocalFiles(localRoot string, include, exclude []string) ([]localFile, error) {
	info, err := os.Stat(localRoot)
	if err != nil {
		return nil, fmt.Errorf("local root %s not readable: %w", localRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local root %s is not a directory", localRoot)
	}

	var files []localFile
	err = filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		ok, err := matchAny(include, rel)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		excluded, err := matchAny(exclude, rel)
		if err != nil {
			return err
		}
		if excluded {
			slog.Debug("Excluded from upload", "file", rel)
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, localFile{relPath: rel, absPath: p, size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning local root: %w", err)
	}

	return files, nil
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// mirror uploads every selected local file and, if requested, deletes
// remote files that no longer exist locally. The first error aborts the run.
// The returned report is never nil and carries the progress up to the error.
func mirror(ctx context.Context, rfs remoteFS, tc config.TransferConfig) (*Report, error) {
	start := time.Now()
	report := &Report{}
	defer func() { report.Duration = time.Since(start) }()

	files, err := collectLocalFiles(tc.LocalRoot, tc.Include, tc.Exclude)
	if err != nil {
		return report, err
	}
	slog.Info("Local files collected", "root", tc.LocalRoot, "files", len(files))

	remoteRoot := path.Clean("/" + tc.RemoteRoot)
	if err := rfs.MkdirAll(remoteRoot); err != nil {
		return report, fmt.Errorf("error creating remote root %s: %w", remoteRoot, err)
	}

	if tc.DeleteRemote {
		if err := deleteStale(ctx, rfs, remoteRoot, files, report); err != nil {
			return report, err
		}
	}

	created := map[string]bool{remoteRoot: true}
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		target := path.Join(remoteRoot, f.relPath)
		dir := path.Dir(target)
		if !created[dir] {
			if err := rfs.MkdirAll(dir); err != nil {
				return report, fmt.Errorf("error creating remote directory %s: %w", dir, err)
			}
			created[dir] = true
		}

		if err := putFile(rfs, f, target); err != nil {
			return report, err
		}
		report.Uploaded++
		report.Bytes += f.size
		slog.Info("Uploaded", "file", f.relPath, "progress", fmt.Sprintf("%d/%d", i+1, len(files)), "bytes", f.size)
	}

	slog.Info("Upload finished",
		"uploaded", report.Uploaded,
		"deleted", report.Deleted,
		"bytes", report.Bytes,
		"duration", time.Since(start))
	return report, nil
}

func putFile(rfs remoteFS, f localFile, target string) error {
	src, err := os.Open(f.absPath)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", f.relPath, err)
	}
	defer src.Close()

	if err := rfs.Put(target, src, f.size); err != nil {
		return fmt.Errorf("error uploading %s: %w", f.relPath, err)
	}
	return nil
}

// deleteStale removes remote files below remoteRoot that are not part of the local file set
func deleteStale(ctx context.Context, rfs remoteFS, remoteRoot string, files []localFile, report *Report) error {
	remoteFiles, err := rfs.List(remoteRoot)
	if err != nil {
		return fmt.Errorf("error listing remote root %s: %w", remoteRoot, err)
	}

	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f.relPath] = true
	}

	for _, rel := range remoteFiles {
		if keep[rel] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		target := path.Join(remoteRoot, rel)
		if err := rfs.Remove(target); err != nil {
			return fmt.Errorf("error deleting remote file %s: %w", target, err)
		}
		report.Deleted++
		slog.Debug("Deleted stale remote file", "file", target)
	}

	return nil
}

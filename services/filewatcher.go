package services

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches the local root recursively and calls onChange once
// the tree has been quiet for the debounce period.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	rootDir  string
	debounce time.Duration
	onChange func()
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewFileWatcher(rootDir string, debounce time.Duration, onChange func()) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		rootDir:  rootDir,
		debounce: debounce,
		onChange: onChange,
		stopChan: make(chan struct{}),
	}, nil
}

// Start blocks until Stop is called. onChange runs on this goroutine, so deploys never overlap.
func (fw *FileWatcher) Start() error {
	defer func() {
		if err := fw.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", "error", err)
		}
	}()

	if err := fw.addRecursiveWatcher(fw.rootDir); err != nil {
		return err
	}
	slog.Info("File watcher started", "directory", fw.rootDir, "debounce", fw.debounce)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-fw.stopChan:
			if timer != nil {
				timer.Stop()
			}
			slog.Info("File watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if !fw.handleEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(fw.debounce)
			} else {
				timer.Reset(fw.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", "error", err)

		case <-fire:
			fire = nil
			slog.Info("Changes settled, redeploying", "directory", fw.rootDir)
			fw.onChange()
		}
	}
}

func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() { close(fw.stopChan) })
}

func (fw *FileWatcher) addRecursiveWatcher(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fw.watcher.Add(path)
		}
		return nil
	})
}

// handleEvent registers new directories and reports whether the event should trigger a redeploy
func (fw *FileWatcher) handleEvent(event fsnotify.Event) bool {
	slog.Debug("File system event", "event", event.Name, "op", event.Op)

	if isTemporaryFile(event.Name) {
		return false
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.addRecursiveWatcher(event.Name); err != nil {
				slog.Error("Error adding watcher for new directory", "directory", event.Name, "error", err)
			}
		}
		return true
	case event.Has(fsnotify.Write), event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return true
	default:
		// CHMOD alone does not change the deployed content
		return false
	}
}

// temporarySuffixes are written by editors next to the file being edited
var temporarySuffixes = []string{"~", ".swp", ".swx", ".tmp"}

// isTemporaryFile reports editor swap, backup and lock files.
// Other dotfiles such as .htaccess are part of the site.
func isTemporaryFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".#") || strings.HasPrefix(name, "~") {
		return true
	}
	for _, suffix := range temporarySuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

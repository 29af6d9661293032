package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"site-deployer/config"
)

type State string

const (
	StateIdle      State = "idle"
	StateDeploying State = "deploying"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is a snapshot of the deployer for health reporting.
type Status struct {
	State       State     `json:"state"`
	Environment string    `json:"environment,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Uploaded    int       `json:"uploaded"`
	Deleted     int       `json:"deleted"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
}

// Deployer resolves an environment, uploads the site and reports the outcome through a Notifier.
type Deployer struct {
	cfg         *config.DeployConfig
	notifier    Notifier
	s3Clients   *S3ClientManager
	newUploader func(config.TransferConfig, *S3ClientManager) (Uploader, error)

	mu     sync.RWMutex
	status Status
}

func NewDeployer(cfg *config.DeployConfig, notifier Notifier) *Deployer {
	return &Deployer{
		cfg:         cfg,
		notifier:    notifier,
		s3Clients:   NewS3ClientManager(),
		newUploader: NewUploader,
		status:      Status{State: StateIdle},
	}
}

// Deploy runs one deployment of the named environment and blocks until the upload has finished.
// Unknown environments and transfer errors are both reported as a failure banner and returned.
func (d *Deployer) Deploy(ctx context.Context, envName string) (*Report, error) {
	d.begin(envName)
	d.notifier.Notify("Deploying", ColorYellow)

	profile, err := d.cfg.Environments.Resolve(envName)
	if err != nil {
		slog.Error("Cannot resolve environment", "env", envName, "error", err)
		d.notifier.Notify(fmt.Sprintf("Deploy %s failed", displayName(envName)), ColorRed)
		d.finish(nil, err)
		return nil, err
	}

	d.notifier.Notify("Deploying "+profile.Label, ColorYellow)

	tc := d.cfg.BuildTransferConfig(profile)
	slog.Info("Starting deploy",
		"env", envName,
		"protocol", tc.Protocol,
		"host", tc.Address(),
		"local_root", tc.LocalRoot,
		"remote_root", tc.RemoteRoot,
		"delete_remote", tc.DeleteRemote)

	report, err := d.upload(ctx, tc)
	if err != nil {
		slog.Error("Deploy failed", "env", envName, "label", profile.Label, "error", err)
		d.notifier.Notify(fmt.Sprintf("Deploy %s failed", profile.Label), ColorRed)
		d.finish(report, err)
		return report, err
	}

	d.notifier.Notify(fmt.Sprintf("Deploy %s Success", profile.Label), ColorGreen)
	d.finish(report, nil)
	return report, nil
}

func (d *Deployer) upload(ctx context.Context, tc config.TransferConfig) (*Report, error) {
	uploader, err := d.newUploader(tc, d.s3Clients)
	if err != nil {
		return nil, err
	}
	return uploader.Upload(ctx, tc)
}

func (d *Deployer) begin(envName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = Status{
		State:       StateDeploying,
		Environment: envName,
		StartedAt:   time.Now(),
	}
}

func (d *Deployer) finish(report *Report, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.status.FinishedAt = time.Now()
	if report != nil {
		d.status.Uploaded = report.Uploaded
		d.status.Deleted = report.Deleted
	}
	if err != nil {
		d.status.State = StateFailed
		d.status.LastError = err.Error()
		return
	}
	d.status.State = StateSucceeded
}

// Status returns the state of the current or last deployment.
func (d *Deployer) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Watch deploys envName once and again after every settled change below the
// local root, until ctx is cancelled. Transfer failures keep the watch running.
func (d *Deployer) Watch(ctx context.Context, envName string) error {
	if _, err := d.Deploy(ctx, envName); err != nil {
		if errors.Is(err, config.ErrUnknownEnvironment) || errors.Is(err, config.ErrIncompleteProfile) {
			return err
		}
		slog.Warn("Initial deploy failed, waiting for changes", "env", envName, "error", err)
	}

	debounce := time.Duration(d.cfg.Watch.Debounce) * time.Millisecond
	fw, err := NewFileWatcher(d.cfg.LocalRoot, debounce, func() {
		if ctx.Err() != nil {
			return
		}
		// Failures are already logged and notified
		_, _ = d.Deploy(ctx, envName)
	})
	if err != nil {
		return fmt.Errorf("error creating file watcher: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			fw.Stop()
		case <-done:
		}
	}()

	if err := fw.Start(); err != nil {
		return fmt.Errorf("error watching %s: %w", d.cfg.LocalRoot, err)
	}
	return nil
}

// Close releases cached clients.
func (d *Deployer) Close() {
	if d.s3Clients != nil {
		d.s3Clients.Close()
	}
}

func displayName(envName string) string {
	if envName == "" {
		return "<unset>"
	}
	return envName
}

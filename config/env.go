package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultLocalDir   = "public"
	defaultRemoteRoot = "/home"
	defaultTimeout    = 30  // seconds
	defaultDebounce   = 500 // milliseconds
)

// DefaultInclude matches all files, recursively.
var DefaultInclude = []string{"*", "**/*"}

type DeployConfig struct {
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Env          string       `yaml:"env"`
	LocalRoot    string       `yaml:"local-root"`
	RemoteRoot   string       `yaml:"remote-root"`
	Include      []string     `yaml:"include"`
	Exclude      []string     `yaml:"exclude"`
	DeleteRemote *bool        `yaml:"delete-remote"`
	ForcePasv    *bool        `yaml:"force-pasv"`
	Timeout      int          `yaml:"timeout"` // Dial timeout in seconds
	Environments Environments `yaml:"environments"`
	Watch        struct {
		Enabled    bool   `yaml:"enabled"`
		Debounce   int    `yaml:"debounce"` // Quiet period in milliseconds before a redeploy
		HealthPort string `yaml:"health-port"`
	} `yaml:"watch"`
}

// LoadFromEnvironment loads the configuration from environment variables
func (c *DeployConfig) LoadFromEnvironment() error {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}

	// DEPLOY_ENV takes precedence over the node-style NODE_ENV
	if env := os.Getenv("DEPLOY_ENV"); env != "" {
		c.Env = env
	} else if env := os.Getenv("NODE_ENV"); env != "" {
		c.Env = env
	}

	if localRoot := os.Getenv("DEPLOY_LOCAL_ROOT"); localRoot != "" {
		c.LocalRoot = localRoot
	}
	if remoteRoot := os.Getenv("DEPLOY_REMOTE_ROOT"); remoteRoot != "" {
		c.RemoteRoot = remoteRoot
	}
	if timeout := os.Getenv("DEPLOY_TIMEOUT"); timeout != "" {
		if val, err := strconv.Atoi(timeout); err == nil && val > 0 {
			c.Timeout = val
		}
	}

	// Environment profiles - JSON/YAML structure
	if raw := os.Getenv("DEPLOY_ENVIRONMENTS"); raw != "" {
		var envs Environments
		if err := json.Unmarshal([]byte(raw), &envs); err != nil {
			if yamlErr := yaml.Unmarshal([]byte(raw), &envs); yamlErr != nil {
				return fmt.Errorf("DEPLOY_ENVIRONMENTS is neither valid JSON nor YAML: %w", err)
			}
		}
		c.mergeEnvironments(envs)
	}

	// Environment profiles - flat structure, overrides single fields
	c.loadProfilesFromEnv()

	c.Environments.ExpandSecrets()

	return nil
}

// loadProfilesFromEnv loads profiles from DEPLOY_<NAME>_<FIELD> variables.
// Only names that define a HOST are picked up; other fields patch existing profiles as well.
func (c *DeployConfig) loadProfilesFromEnv() {
	names := make(map[string]bool)

	for _, env := range os.Environ() {
		key, _, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, "DEPLOY_") {
			continue
		}
		for _, field := range profileFields {
			if strings.HasSuffix(key, "_"+field) {
				name := strings.TrimSuffix(strings.TrimPrefix(key, "DEPLOY_"), "_"+field)
				if name != "" {
					names[name] = true
				}
				break
			}
		}
	}

	for name := range names {
		key := strings.ToLower(name)
		profile, exists := c.Environments[key]
		if !exists && os.Getenv("DEPLOY_"+name+"_HOST") == "" {
			continue
		}
		c.loadProfileProperties(&profile, name)
		if c.Environments == nil {
			c.Environments = make(Environments)
		}
		c.Environments[key] = profile
	}
}

var profileFields = []string{"HOST", "USER", "PASSWORD", "LABEL", "PROTOCOL", "PORT", "BUCKET", "REGION", "SSL", "KNOWN_HOSTS"}

// loadProfileProperties loads all properties for a profile based on its name
func (c *DeployConfig) loadProfileProperties(profile *EnvironmentProfile, name string) {
	prefix := "DEPLOY_" + name + "_"

	if value := os.Getenv(prefix + "HOST"); value != "" {
		profile.Host = value
	}
	if value := os.Getenv(prefix + "USER"); value != "" {
		profile.User = value
	}
	if value := os.Getenv(prefix + "PASSWORD"); value != "" {
		profile.Password = value
	}
	if value := os.Getenv(prefix + "LABEL"); value != "" {
		profile.Label = value
	}
	if value := os.Getenv(prefix + "PROTOCOL"); value != "" {
		profile.Protocol = strings.ToLower(value)
	}
	if value := os.Getenv(prefix + "PORT"); value != "" {
		if port, err := strconv.Atoi(value); err == nil {
			profile.Port = port
		}
	}

	// S3
	if value := os.Getenv(prefix + "BUCKET"); value != "" {
		profile.Bucket = value
	}
	if value := os.Getenv(prefix + "REGION"); value != "" {
		profile.Region = value
	}
	if value := os.Getenv(prefix + "SSL"); value != "" {
		ssl := strings.ToLower(value) == "true"
		profile.SSL = &ssl
	}

	// SFTP
	if value := os.Getenv(prefix + "KNOWN_HOSTS"); value != "" {
		profile.KnownHosts = value
	}
}

func (c *DeployConfig) mergeEnvironments(envs Environments) {
	if len(envs) == 0 {
		return
	}
	if c.Environments == nil {
		c.Environments = make(Environments)
	}
	for name, profile := range envs {
		c.Environments[name] = profile
	}
}

// SetDefaults fills unset values. baseDir is the directory the local root is relative to.
func (c *DeployConfig) SetDefaults(baseDir string) {
	if c.Log.Level == "" {
		c.Log.Level = "INFO"
	}
	if c.LocalRoot == "" {
		c.LocalRoot = filepath.Join(baseDir, defaultLocalDir)
	}
	if c.RemoteRoot == "" {
		c.RemoteRoot = defaultRemoteRoot
	}
	if len(c.Include) == 0 {
		c.Include = append([]string(nil), DefaultInclude...)
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = defaultDebounce
	}
}

// Validate checks the configuration for completeness.
// The selected environment is checked later, when the profile is resolved.
func (c *DeployConfig) Validate() error {
	if c.LocalRoot == "" {
		return fmt.Errorf("local root is not set: %w", os.ErrInvalid)
	}
	if c.RemoteRoot == "" {
		return fmt.Errorf("remote root is not set: %w", os.ErrInvalid)
	}
	if len(c.Environments) == 0 {
		return fmt.Errorf("no environments configured: %w", os.ErrInvalid)
	}

	for name, profile := range c.Environments {
		switch profile.GetProtocol() {
		case ProtocolFTP, ProtocolSFTP, ProtocolS3:
		default:
			return fmt.Errorf("environment %q: unsupported protocol %q (allowed: ftp, sftp, s3)", name, profile.Protocol)
		}
	}

	return nil
}

// GetLogLevel returns the configured log level.
func (c *DeployConfig) GetLogLevel() string {
	level := strings.ToUpper(c.Log.Level)
	switch level {
	case "DEBUG", "INFO", "WARN", "ERROR":
		return level
	default:
		return "INFO"
	}
}

// GetDeleteRemote reports whether remote files missing locally are removed. Defaults to true.
func (c *DeployConfig) GetDeleteRemote() bool {
	if c.DeleteRemote == nil {
		return true
	}
	return *c.DeleteRemote
}

// GetForcePasv reports whether plain PASV mode is forced for FTP. Defaults to true.
func (c *DeployConfig) GetForcePasv() bool {
	if c.ForcePasv == nil {
		return true
	}
	return *c.ForcePasv
}

package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var (
	// ErrUnknownEnvironment is returned when no profile is configured for the requested environment name.
	ErrUnknownEnvironment = errors.New("unknown environment")
	// ErrIncompleteProfile is returned when a profile lacks host, user or password.
	ErrIncompleteProfile = errors.New("incomplete environment profile")
)

// Supported transfer protocols
const (
	ProtocolFTP  = "ftp"
	ProtocolSFTP = "sftp"
	ProtocolS3   = "s3"
)

// EnvironmentProfile describes one deployable target.
type EnvironmentProfile struct {
	Host     string `yaml:"host" json:"host"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Label    string `yaml:"label" json:"label"`

	Protocol string `yaml:"protocol,omitempty" json:"protocol,omitempty"` // ftp (default), sftp or s3
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`         // 0 = protocol default

	// S3-specific
	Bucket string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Region string `yaml:"region,omitempty" json:"region,omitempty"`
	SSL    *bool  `yaml:"ssl,omitempty" json:"ssl,omitempty"`

	// SFTP-specific
	KnownHosts string `yaml:"known-hosts,omitempty" json:"known-hosts,omitempty"`
}

// Environments maps an environment name (e.g. "test", "production") to its profile.
type Environments map[string]EnvironmentProfile

// Resolve returns the profile configured for name.
func (e Environments) Resolve(name string) (EnvironmentProfile, error) {
	profile, ok := e[name]
	if !ok {
		if name == "" {
			return EnvironmentProfile{}, fmt.Errorf("%w: no environment selected (known: %s)", ErrUnknownEnvironment, e.namesList())
		}
		return EnvironmentProfile{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownEnvironment, name, e.namesList())
	}

	var missing []string
	if profile.Host == "" {
		missing = append(missing, "host")
	}
	if profile.User == "" {
		missing = append(missing, "user")
	}
	if profile.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return EnvironmentProfile{}, fmt.Errorf("%w: %q is missing %s", ErrIncompleteProfile, name, strings.Join(missing, ", "))
	}

	if profile.Label == "" {
		profile.Label = name
	}
	return profile, nil
}

// Names returns the configured environment names in sorted order.
func (e Environments) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e Environments) namesList() string {
	if len(e) == 0 {
		return "none"
	}
	return strings.Join(e.Names(), ", ")
}

// ExpandSecrets replaces ${VAR} references in passwords with values from the process environment.
func (e Environments) ExpandSecrets() {
	for name, profile := range e {
		if strings.Contains(profile.Password, "$") {
			profile.Password = os.ExpandEnv(profile.Password)
			e[name] = profile
		}
	}
}

// GetProtocol returns the configured protocol, defaulting to FTP.
func (p EnvironmentProfile) GetProtocol() string {
	if p.Protocol == "" {
		return ProtocolFTP
	}
	return strings.ToLower(p.Protocol)
}

// GetPort returns the explicit port or the protocol default.
func (p EnvironmentProfile) GetPort() int {
	if p.Port != 0 {
		return p.Port
	}
	switch p.GetProtocol() {
	case ProtocolSFTP:
		return 22
	case ProtocolS3:
		return 0
	default:
		return 21
	}
}

// S3Config is the client configuration for an S3 compatible endpoint.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access-key"`
	SecretKey string `yaml:"secret-key"`
	SSL       bool   `yaml:"ssl"`
	Region    string `yaml:"region"`
}

package config

import (
	"net"
	"strconv"
	"time"
)

// TransferConfig is the fully resolved parameter set for one upload run.
type TransferConfig struct {
	Protocol string
	Host     string
	Port     int
	User     string
	Password string

	LocalRoot    string
	RemoteRoot   string
	Include      []string
	Exclude      []string
	DeleteRemote bool
	ForcePasv    bool
	Timeout      time.Duration

	// S3
	Bucket string
	Region string
	SSL    bool

	// SFTP
	KnownHosts string
}

// BuildTransferConfig derives the transfer configuration for profile.
// It does not touch the filesystem or the environment.
func (c *DeployConfig) BuildTransferConfig(profile EnvironmentProfile) TransferConfig {
	ssl := true
	if profile.SSL != nil {
		ssl = *profile.SSL
	}

	return TransferConfig{
		Protocol:     profile.GetProtocol(),
		Host:         profile.Host,
		Port:         profile.GetPort(),
		User:         profile.User,
		Password:     profile.Password,
		LocalRoot:    c.LocalRoot,
		RemoteRoot:   c.RemoteRoot,
		Include:      append([]string(nil), c.Include...),
		Exclude:      append([]string(nil), c.Exclude...),
		DeleteRemote: c.GetDeleteRemote(),
		ForcePasv:    c.GetForcePasv(),
		Timeout:      time.Duration(c.Timeout) * time.Second,
		Bucket:       profile.Bucket,
		Region:       profile.Region,
		SSL:          ssl,
		KnownHosts:   profile.KnownHosts,
	}
}

// Address returns host:port, or the bare host when no port applies.
func (tc TransferConfig) Address() string {
	if tc.Port == 0 {
		return tc.Host
	}
	return net.JoinHostPort(tc.Host, strconv.Itoa(tc.Port))
}

// GetS3Config extracts the S3 client configuration. User and password act as access and secret key.
func (tc TransferConfig) GetS3Config() S3Config {
	return S3Config{
		Endpoint:  tc.Address(),
		AccessKey: tc.User,
		SecretKey: tc.Password,
		SSL:       tc.SSL,
		Region:    tc.Region,
	}
}

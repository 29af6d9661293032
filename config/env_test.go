package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func boolPtr(b bool) *bool {
	return &b
}

// clearDeployEnv makes sure no variables from the surrounding environment leak into a test
func clearDeployEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LOG_LEVEL", "DEPLOY_ENV", "NODE_ENV", "DEPLOY_LOCAL_ROOT", "DEPLOY_REMOTE_ROOT", "DEPLOY_TIMEOUT", "DEPLOY_ENVIRONMENTS"} {
		t.Setenv(key, "")
	}
}

func TestDeployConfig_SetDefaults(t *testing.T) {
	tests := []struct {
		name              string
		config            DeployConfig
		expectedLevel     string
		expectedLocalRoot string
		expectedRemote    string
	}{
		{
			name:              "empty config sets defaults",
			config:            DeployConfig{},
			expectedLevel:     "INFO",
			expectedLocalRoot: filepath.Join("/srv/blog", "public"),
			expectedRemote:    "/home",
		},
		{
			name: "existing values are preserved",
			config: DeployConfig{
				Log: struct {
					Level string `yaml:"level"`
				}{Level: "DEBUG"},
				LocalRoot:  "/custom/public",
				RemoteRoot: "/var/www",
			},
			expectedLevel:     "DEBUG",
			expectedLocalRoot: "/custom/public",
			expectedRemote:    "/var/www",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.SetDefaults("/srv/blog")
			if tt.config.Log.Level != tt.expectedLevel {
				t.Errorf("Log.Level = %v, want %v", tt.config.Log.Level, tt.expectedLevel)
			}
			if tt.config.LocalRoot != tt.expectedLocalRoot {
				t.Errorf("LocalRoot = %v, want %v", tt.config.LocalRoot, tt.expectedLocalRoot)
			}
			if tt.config.RemoteRoot != tt.expectedRemote {
				t.Errorf("RemoteRoot = %v, want %v", tt.config.RemoteRoot, tt.expectedRemote)
			}
			if len(tt.config.Include) != 2 {
				t.Errorf("Include = %v, want default patterns", tt.config.Include)
			}
			if tt.config.Timeout != 30 {
				t.Errorf("Timeout = %d, want 30", tt.config.Timeout)
			}
			if tt.config.Watch.Debounce != 500 {
				t.Errorf("Watch.Debounce = %d, want 500", tt.config.Watch.Debounce)
			}
		})
	}
}

func TestDeployConfig_SetDefaults_DoesNotShareInclude(t *testing.T) {
	cfg := DeployConfig{}
	cfg.SetDefaults(".")
	cfg.Include[0] = "changed"

	if DefaultInclude[0] != "*" {
		t.Error("SetDefaults must copy DefaultInclude")
	}
}

func TestDeployConfig_GetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		expected string
	}{
		{"debug level", "debug", "DEBUG"},
		{"INFO level", "INFO", "INFO"},
		{"warn level", "warn", "WARN"},
		{"ERROR level", "ERROR", "ERROR"},
		{"invalid level", "invalid", "INFO"},
		{"empty level", "", "INFO"},
		{"mixed case", "Debug", "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DeployConfig{}
			cfg.Log.Level = tt.logLevel
			if result := cfg.GetLogLevel(); result != tt.expected {
				t.Errorf("GetLogLevel() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDeployConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		config    DeployConfig
		wantError bool
	}{
		{
			name: "valid config",
			config: DeployConfig{
				LocalRoot:    "/srv/public",
				RemoteRoot:   "/home",
				Environments: testEnvironments(),
			},
			wantError: false,
		},
		{
			name: "empty local root",
			config: DeployConfig{
				RemoteRoot:   "/home",
				Environments: testEnvironments(),
			},
			wantError: true,
		},
		{
			name: "empty remote root",
			config: DeployConfig{
				LocalRoot:    "/srv/public",
				Environments: testEnvironments(),
			},
			wantError: true,
		},
		{
			name: "no environments",
			config: DeployConfig{
				LocalRoot:  "/srv/public",
				RemoteRoot: "/home",
			},
			wantError: true,
		},
		{
			name: "unsupported protocol",
			config: DeployConfig{
				LocalRoot:  "/srv/public",
				RemoteRoot: "/home",
				Environments: Environments{
					"test": {Host: testHost, User: testUser, Password: testPassword, Protocol: "scp"},
				},
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestDeployConfig_Validate_MissingFieldsWrapErrInvalid(t *testing.T) {
	cfg := DeployConfig{}
	if err := cfg.Validate(); !errors.Is(err, os.ErrInvalid) {
		t.Errorf("Validate() error = %v, want os.ErrInvalid", err)
	}
}

func TestDeployConfig_LoadFromEnvironment(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("NODE_ENV", "test")
	t.Setenv("DEPLOY_LOCAL_ROOT", "/env/public")
	t.Setenv("DEPLOY_REMOTE_ROOT", "/env/remote")
	t.Setenv("DEPLOY_TIMEOUT", "5")

	cfg := DeployConfig{}
	if err := cfg.LoadFromEnvironment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "DEBUG" {
		t.Errorf("Log.Level = %q, want DEBUG", cfg.Log.Level)
	}
	if cfg.Env != "test" {
		t.Errorf("Env = %q, want test", cfg.Env)
	}
	if cfg.LocalRoot != "/env/public" || cfg.RemoteRoot != "/env/remote" {
		t.Errorf("roots = %q / %q", cfg.LocalRoot, cfg.RemoteRoot)
	}
	if cfg.Timeout != 5 {
		t.Errorf("Timeout = %d, want 5", cfg.Timeout)
	}
}

func TestDeployConfig_LoadFromEnvironment_DeployEnvWins(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("NODE_ENV", "test")
	t.Setenv("DEPLOY_ENV", "production")

	cfg := DeployConfig{Env: "from-file"}
	if err := cfg.LoadFromEnvironment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "production" {
		t.Errorf("Env = %q, want production", cfg.Env)
	}
}

func TestDeployConfig_LoadFromEnvironment_InvalidTimeoutIgnored(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("DEPLOY_TIMEOUT", "soon")

	cfg := DeployConfig{Timeout: 30}
	if err := cfg.LoadFromEnvironment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeout != 30 {
		t.Errorf("Timeout = %d, want 30", cfg.Timeout)
	}
}

func TestDeployConfig_LoadFromEnvironment_FlatProfiles(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("DEPLOY_TEST_HOST", testHost)
	t.Setenv("DEPLOY_TEST_USER", testUser)
	t.Setenv("DEPLOY_TEST_PASSWORD", testPassword)
	t.Setenv("DEPLOY_TEST_LABEL", "test")
	t.Setenv("DEPLOY_MY_SITE_HOST", "sftp.example.com")
	t.Setenv("DEPLOY_MY_SITE_PROTOCOL", "SFTP")
	t.Setenv("DEPLOY_MY_SITE_PORT", "2222")
	t.Setenv("DEPLOY_MY_SITE_KNOWN_HOSTS", "/etc/ssh/known_hosts")
	t.Setenv("DEPLOY_ORPHAN_USER", "nobody")

	cfg := DeployConfig{}
	if err := cfg.LoadFromEnvironment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	test, ok := cfg.Environments["test"]
	if !ok {
		t.Fatal("environment test not loaded")
	}
	if test.Host != testHost || test.User != testUser || test.Password != testPassword || test.Label != "test" {
		t.Errorf("test profile = %+v", test)
	}

	site, ok := cfg.Environments["my_site"]
	if !ok {
		t.Fatal("environment my_site not loaded")
	}
	if site.Protocol != ProtocolSFTP || site.Port != 2222 || site.KnownHosts != "/etc/ssh/known_hosts" {
		t.Errorf("my_site profile = %+v", site)
	}

	if _, ok := cfg.Environments["orphan"]; ok {
		t.Error("profile without HOST must not be created")
	}
}

func TestDeployConfig_LoadFromEnvironment_FlatProfilePatchesExisting(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("DEPLOY_PRODUCTION_PASSWORD", "rotated")

	cfg := DeployConfig{Environments: testEnvironments()}
	if err := cfg.LoadFromEnvironment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prod := cfg.Environments["production"]
	if prod.Password != "rotated" {
		t.Errorf("Password = %q, want rotated", prod.Password)
	}
	if prod.Host != testProdHost || prod.Label != "prod" {
		t.Errorf("other fields changed: %+v", prod)
	}
}

func TestDeployConfig_LoadFromEnvironment_S3Profile(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("DEPLOY_CDN_HOST", "s3.amazonaws.com")
	t.Setenv("DEPLOY_CDN_USER", "access")
	t.Setenv("DEPLOY_CDN_PASSWORD", "secret")
	t.Setenv("DEPLOY_CDN_PROTOCOL", "s3")
	t.Setenv("DEPLOY_CDN_BUCKET", testBucketName)
	t.Setenv("DEPLOY_CDN_REGION", "eu-central-1")
	t.Setenv("DEPLOY_CDN_SSL", "false")

	cfg := DeployConfig{}
	if err := cfg.LoadFromEnvironment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cdn := cfg.Environments["cdn"]
	if cdn.Bucket != testBucketName || cdn.Region != "eu-central-1" {
		t.Errorf("cdn profile = %+v", cdn)
	}
	if cdn.SSL == nil || *cdn.SSL {
		t.Errorf("SSL = %v, want false", cdn.SSL)
	}
}

func TestDeployConfig_LoadFromEnvironment_JSONEnvironments(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("DEPLOY_ENVIRONMENTS", `{"test":{"host":"114.132.41.66","user":"ys","password":"pw","label":"test"}}`)

	cfg := DeployConfig{}
	if err := cfg.LoadFromEnvironment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile, err := cfg.Environments.Resolve("test")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if profile.Host != testHost || profile.Password != "pw" {
		t.Errorf("profile = %+v", profile)
	}
}

func TestDeployConfig_LoadFromEnvironment_YAMLEnvironments(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("DEPLOY_ENVIRONMENTS", "production:\n  host: 43.142.154.244\n  user: ys\n  password: pw\n  label: prod\n")

	cfg := DeployConfig{Environments: testEnvironments()}
	if err := cfg.LoadFromEnvironment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environments["production"].Password != "pw" {
		t.Errorf("production password = %q, want pw", cfg.Environments["production"].Password)
	}
	if _, ok := cfg.Environments["test"]; !ok {
		t.Error("existing environments must be kept")
	}
}

func TestDeployConfig_LoadFromEnvironment_InvalidEnvironments(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("DEPLOY_ENVIRONMENTS", "[unclosed")

	cfg := DeployConfig{}
	if err := cfg.LoadFromEnvironment(); err == nil {
		t.Error("expected error for invalid DEPLOY_ENVIRONMENTS")
	}
}

func TestDeployConfig_LoadFromEnvironment_ExpandsSecrets(t *testing.T) {
	clearDeployEnv(t)
	t.Setenv("FTP_TEST_PASSWORD", "expanded")

	cfg := DeployConfig{Environments: Environments{
		"test": {Host: testHost, User: testUser, Password: "${FTP_TEST_PASSWORD}"},
	}}
	if err := cfg.LoadFromEnvironment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environments["test"].Password != "expanded" {
		t.Errorf("Password = %q, want expanded", cfg.Environments["test"].Password)
	}
}

func TestDeployConfig_Flags(t *testing.T) {
	cfg := DeployConfig{}
	if !cfg.GetDeleteRemote() || !cfg.GetForcePasv() {
		t.Error("delete-remote and force-pasv should default to true")
	}

	cfg.DeleteRemote = boolPtr(false)
	cfg.ForcePasv = boolPtr(false)
	if cfg.GetDeleteRemote() || cfg.GetForcePasv() {
		t.Error("explicit false should be respected")
	}
}

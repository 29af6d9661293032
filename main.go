package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"site-deployer/config"
	"site-deployer/services"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// loadDeployYaml loads the given file, or deploy.yaml / deploy.yml from the working directory.
// It returns the directory of the loaded file, which relative paths in it refer to.
func loadDeployYaml(explicit string) (*config.DeployConfig, string, error) {
	configFile := explicit
	if configFile == "" {
		yamlExists := fileExists("deploy.yaml")
		ymlExists := fileExists("deploy.yml")

		if yamlExists && ymlExists {
			return nil, "", fmt.Errorf("conflict: both deploy.yaml and deploy.yml exist, please keep only one of them")
		}

		if yamlExists {
			configFile = "deploy.yaml"
		} else if ymlExists {
			configFile = "deploy.yml"
		} else {
			return nil, "", fmt.Errorf("no configuration file found (deploy.yaml or deploy.yml)")
		}
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, "", fmt.Errorf("error reading %s: %w", configFile, err)
	}

	var cfg config.DeployConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, "", fmt.Errorf("error parsing %s: %w", configFile, err)
	}

	absPath, err := filepath.Abs(configFile)
	if err != nil {
		return nil, "", fmt.Errorf("error resolving %s: %w", configFile, err)
	}
	baseDir := filepath.Dir(absPath)

	if cfg.LocalRoot != "" && !filepath.IsAbs(cfg.LocalRoot) {
		cfg.LocalRoot = filepath.Join(baseDir, cfg.LocalRoot)
	}

	return &cfg, baseDir, nil
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

func setupLogger(cfg *config.DeployConfig) {
	levelStr := cfg.GetLogLevel()
	var lvl slog.Level
	switch levelStr {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
}

func main() {
	os.Exit(run())
}

func run() int {
	// 1. Command line arguments
	cliCfg := config.ParseCLI()

	if err := cliCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid command line arguments: %v\n", err)
		return 1
	}

	// 2. Configuration order:
	// - deploy.yaml / deploy.yml (or --config)
	// - .env
	// - environment variables
	// - CLI parameters (override everything else)
	cfg, baseDir, err := loadDeployYaml(cliCfg.ConfigFile)
	if err != nil {
		if cliCfg.ConfigFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file could not be loaded: %v\n", err)
			return 1
		}
		fmt.Println("Configuration file could not be loaded:", err)
		cfg = &config.DeployConfig{}
		baseDir, _ = os.Getwd()
	}

	// .env is optional
	_ = godotenv.Load()

	cfg.SetDefaults(baseDir)

	if err := cfg.LoadFromEnvironment(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading environment variables: %v\n", err)
		return 1
	}

	if err := cliCfg.ApplyToCfg(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying command line arguments: %v\n", err)
		return 1
	}

	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deployer := services.NewDeployer(cfg, services.NewBannerNotifier(os.Stdout))
	defer deployer.Close()

	if cfg.Watch.Enabled {
		if cfg.Watch.HealthPort != "" {
			healthMonitor := services.NewHealthMonitor(deployer, cfg.Watch.HealthPort)
			healthMonitor.Start()
			defer healthMonitor.Stop()
		}

		if err := deployer.Watch(ctx, cfg.Env); err != nil {
			slog.Error("Watch mode stopped", "error", err)
			return 1
		}
		return 0
	}

	if _, err := deployer.Deploy(ctx, cfg.Env); err != nil {
		return 1
	}
	return 0
}

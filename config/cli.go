package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CLIConfig holds command line argument configuration
type CLIConfig struct {
	ConfigFile string
	Env        string
	LogLevel   string
	LocalRoot  string
	RemoteRoot string
	Watch      bool
	HealthPort string
	ShowHelp   bool
}

// ParseCLI parses command line arguments and returns a CLIConfig
func ParseCLI() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to the deploy configuration file (default: deploy.yaml or deploy.yml)")
	flag.StringVar(&cfg.Env, "env", "", "Environment to deploy (e.g. test, production)")
	flag.StringVar(&cfg.LogLevel, "log-level", "", "Set log level (DEBUG, INFO, WARN, ERROR)")
	flag.StringVar(&cfg.LocalRoot, "local-root", "", "Local directory to upload")
	flag.StringVar(&cfg.RemoteRoot, "remote-root", "", "Remote target directory")
	flag.BoolVar(&cfg.Watch, "watch", false, "Redeploy whenever the local directory changes")
	flag.StringVar(&cfg.HealthPort, "health-port", "", "Serve health endpoints on this port in watch mode")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help message")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help message")

	flag.Usage = printUsage

	// Check for help flags before parsing
	for _, arg := range os.Args[1:] {
		if arg == "-h" || arg == "--help" {
			cfg.ShowHelp = true
			printUsage()
			os.Exit(0)
		}
	}

	flag.Parse()

	return cfg
}

// ApplyToCfg applies CLI configuration to DeployConfig
func (cli *CLIConfig) ApplyToCfg(cfg *DeployConfig) error {
	if cli.Env != "" {
		cfg.Env = cli.Env
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.LocalRoot != "" {
		cfg.LocalRoot = cli.LocalRoot
	}
	if cli.RemoteRoot != "" {
		cfg.RemoteRoot = cli.RemoteRoot
	}
	if cli.Watch {
		cfg.Watch.Enabled = true
	}
	if cli.HealthPort != "" {
		cfg.Watch.HealthPort = cli.HealthPort
	}

	return nil
}

// printUsage prints the usage information
func printUsage() {
	_, err := fmt.Fprintf(os.Stderr, `Site Deployer - mirrors a built static site to a remote server

USAGE:
    %s [OPTIONS]

OPTIONS:
    --config FILE          Deploy configuration file
                           Default: deploy.yaml or deploy.yml
    --env NAME             Environment to deploy (e.g. test, production)
    --log-level LEVEL      Set log level (DEBUG, INFO, WARN, ERROR)
                           Default: INFO
    --local-root DIR       Local directory to upload
                           Default: public, next to the configuration file
    --remote-root DIR      Remote target directory
                           Default: /home
    --watch                Redeploy whenever the local directory changes
    --health-port PORT     Serve /health, /health/live and /health/ready (watch mode only)
    -h, --help             Show this help message

EXAMPLES:
    # Deploy the test environment
    %s --env test

    # Deploy production with a custom configuration file
    %s --config ./deploy/prod.yaml --env production

    # Keep test in sync while developing
    %s --env test --watch --health-port 8081

CONFIGURATION PRIORITY:
    1. Command line arguments (highest)
    2. Environment variables
    3. .env file
    4. deploy.yaml/deploy.yml file
    5. Default values (lowest)

ENVIRONMENT VARIABLES:
    DEPLOY_ENV / NODE_ENV     Same as --env (DEPLOY_ENV wins)
    LOG_LEVEL                 Same as --log-level
    DEPLOY_LOCAL_ROOT         Same as --local-root
    DEPLOY_REMOTE_ROOT        Same as --remote-root
    DEPLOY_TIMEOUT            Dial timeout in seconds
    DEPLOY_<NAME>_HOST        Host of environment <NAME>
    DEPLOY_<NAME>_USER        User of environment <NAME>
    DEPLOY_<NAME>_PASSWORD    Password of environment <NAME>
    DEPLOY_<NAME>_LABEL       Short label shown in banners
    DEPLOY_<NAME>_PROTOCOL    ftp (default), sftp or s3
    DEPLOY_ENVIRONMENTS       All environments as JSON or YAML map

`, os.Args[0], os.Args[0], os.Args[0], os.Args[0])
	if err != nil {
		return
	}
}

// Validate validates CLI configuration
func (cli *CLIConfig) Validate() error {
	if cli.LogLevel != "" {
		level := strings.ToUpper(cli.LogLevel)
		if level != "DEBUG" && level != "INFO" && level != "WARN" && level != "ERROR" {
			return fmt.Errorf("invalid log level: %s (allowed: DEBUG, INFO, WARN, ERROR)", cli.LogLevel)
		}
	}

	if cli.HealthPort != "" {
		port, err := strconv.Atoi(cli.HealthPort)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid health port: %s", cli.HealthPort)
		}
	}

	return nil
}

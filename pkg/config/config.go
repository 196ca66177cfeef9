// Package config provides configuration loading and management for GoPGVault
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToolsConfig names the external binaries driven by the orchestrators.
type ToolsConfig struct {
	PGDump    string `yaml:"pgDump"`
	PGRestore string `yaml:"pgRestore"`
	PSQL      string `yaml:"psql"`
}

// S3Config defines optional offsite-copy settings for dump artifacts.
type S3Config struct {
	Enabled      bool   `yaml:"enabled"`
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"accessKey"`
	SecretKey    string `yaml:"secretKey"`
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// AppConfig is the root configuration object for the application
type AppConfig struct {
	Debug bool `yaml:"debug"`

	// BaseDir holds the registry file, session file and dumps directory.
	BaseDir       string `yaml:"baseDir"`
	DumpDirectory string `yaml:"dumpDirectory"`

	Tools ToolsConfig `yaml:"tools"`
	S3    S3Config    `yaml:"s3"`
}

// CFG is the global configuration instance
var CFG AppConfig

// LoadConfiguration loads configuration from an optional YAML file and then
// applies environment variable overrides.
func LoadConfiguration() {
	configFile := getEnvOrDefault("GOPGVAULT_CONFIG", "")
	if configFile != "" {
		if err := loadFromFile(configFile); err != nil {
			log.Printf("Warning: failed to load config file %s: %v", configFile, err)
		}
	}

	loadFromEnvironment()
	setDefaults()

	if CFG.Debug {
		log.Printf("Configuration loaded: baseDir=%s dumps=%s", CFG.BaseDir, CFG.DumpDirectory)
	}
}

// loadFromFile reads the YAML configuration file into CFG
func loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &CFG); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnvironment applies environment variable overrides
func loadFromEnvironment() {
	CFG.Debug = parseEnvBool("DEBUG", CFG.Debug)

	if baseDir := getEnvOrDefault("GOPGVAULT_HOME", ""); baseDir != "" {
		CFG.BaseDir = baseDir
	}
	if dumpDir := getEnvOrDefault("GOPGVAULT_DUMP_DIR", ""); dumpDir != "" {
		CFG.DumpDirectory = dumpDir
	}

	// S3 settings
	CFG.S3.Enabled = parseEnvBool("S3_ENABLED", CFG.S3.Enabled)
	CFG.S3.Bucket = getEnvOrDefault("S3_BUCKET", CFG.S3.Bucket)
	CFG.S3.Region = getEnvOrDefault("S3_REGION", CFG.S3.Region)
	CFG.S3.Endpoint = getEnvOrDefault("S3_ENDPOINT", CFG.S3.Endpoint)
	CFG.S3.AccessKey = getEnvOrDefault("S3_ACCESS_KEY", CFG.S3.AccessKey)
	CFG.S3.SecretKey = getEnvOrDefault("S3_SECRET_KEY", CFG.S3.SecretKey)
	CFG.S3.Prefix = getEnvOrDefault("S3_PREFIX", CFG.S3.Prefix)
	CFG.S3.UsePathStyle = parseEnvBool("S3_USE_PATH_STYLE", CFG.S3.UsePathStyle)
}

// setDefaults ensures all config fields have reasonable default values
func setDefaults() {
	if CFG.BaseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			// Fall back to the working directory when HOME is unset.
			home = "."
		}
		CFG.BaseDir = filepath.Join(home, ".gopgvault")
	}

	if CFG.DumpDirectory == "" {
		CFG.DumpDirectory = filepath.Join(CFG.BaseDir, "dumps")
	}

	if CFG.Tools.PGDump == "" {
		CFG.Tools.PGDump = "pg_dump"
	}
	if CFG.Tools.PGRestore == "" {
		CFG.Tools.PGRestore = "pg_restore"
	}
	if CFG.Tools.PSQL == "" {
		CFG.Tools.PSQL = "psql"
	}

	if CFG.S3.Enabled && CFG.S3.Region == "" {
		CFG.S3.Region = "us-east-1"
	}
}

// RegistryPath returns the path of the persisted connection registry.
func RegistryPath() string {
	return filepath.Join(CFG.BaseDir, "registry.json")
}

// SessionPath returns the path of the persisted session pointer.
func SessionPath() string {
	return filepath.Join(CFG.BaseDir, "session.json")
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// parseEnvBool parses a boolean environment variable
func parseEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

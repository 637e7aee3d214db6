// Package config provides file-based configuration for the XML structure store.
// Files ending in .yaml or .yml are read as YAML, everything else as XML.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite3"
)

// File resolution orders for queries against duplicate file names.
const (
	ResolveFirst  = "first"
	ResolveLatest = "latest"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"XMLStore" yaml:"-"`

	Server   ServerConfig   `xml:"Server" yaml:"server"`
	Storage  StorageConfig  `xml:"Storage" yaml:"storage"`
	Ingest   IngestConfig   `xml:"Ingest" yaml:"ingest"`
	Query    QueryConfig    `xml:"Query" yaml:"query"`
	Advanced AdvancedConfig `xml:"Advanced" yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port" yaml:"port"`
	BindAddress  string `xml:"BindAddress" yaml:"bindAddress"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds" yaml:"readTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds" yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds" yaml:"idleTimeoutSeconds"`
	// BodyLimit uses echo's size syntax ("10M", "2G"). Empty means unlimited.
	BodyLimit         string `xml:"BodyLimit" yaml:"bodyLimit"`
	EnableCompression bool   `xml:"EnableCompression" yaml:"enableCompression"`
	CompressionLevel  int    `xml:"CompressionLevel" yaml:"compressionLevel"`
}

// StorageConfig contains database settings
type StorageConfig struct {
	DataDirectory string `xml:"DataDirectory" yaml:"dataDirectory"`
	Driver        string `xml:"Driver" yaml:"driver"`
	// DatabaseFile is relative to DataDirectory unless absolute.
	DatabaseFile string `xml:"DatabaseFile" yaml:"databaseFile"`
	MaxOpenConns int    `xml:"MaxOpenConns" yaml:"maxOpenConns"`
}

// IngestConfig controls how uploaded documents are written
type IngestConfig struct {
	// Atomic writes a whole document in one transaction. When false the file
	// row and every element commit independently, so a malformed document
	// leaves the rows written before the failure.
	Atomic    bool `xml:"Atomic" yaml:"atomic"`
	BatchSize int  `xml:"AttributeBatchSize" yaml:"attributeBatchSize"`
}

// QueryConfig controls lookups
type QueryConfig struct {
	FileResolution string `xml:"FileResolution" yaml:"fileResolution"`
	MaxListLimit   int    `xml:"MaxListLimit" yaml:"maxListLimit"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel" yaml:"logLevel"`
	HumanLogs            bool   `xml:"HumanReadableLogs" yaml:"humanReadableLogs"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging" yaml:"enableRequestLogging"`
	DuckDBThreads        int    `xml:"DuckDBThreads" yaml:"duckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit" yaml:"duckDBMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:              8089,
			BindAddress:       "0.0.0.0",
			ReadTimeout:       30,
			WriteTimeout:      30,
			IdleTimeout:       120,
			BodyLimit:         "",
			EnableCompression: true,
			CompressionLevel:  5,
		},
		Storage: StorageConfig{
			DataDirectory: "./data",
			Driver:        DriverDuckDB,
			DatabaseFile:  "xmlstore.duckdb",
			MaxOpenConns:  4,
		},
		Ingest: IngestConfig{
			Atomic:    true,
			BatchSize: 500,
		},
		Query: QueryConfig{
			FileResolution: ResolveFirst,
			MaxListLimit:   200,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			HumanLogs:            false,
			EnableRequestLogging: true,
			DuckDBThreads:        4,
			DuckDBMemoryLimit:    "1GB",
		},
	}
}

// LoadConfig loads configuration from file, creating a default one if missing.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, config.Validate()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields absent from the file keep their defaults.
	config := DefaultConfig()
	if isYAML(configPath) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = xml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration in the format implied by the file extension.
func (c *AppConfig) Save(configPath string) error {
	var content []byte
	if isYAML(configPath) {
		output, err := yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		content = append([]byte("# XML Structure Store configuration\n# This file is auto-generated on first run\n\n"), output...)
	} else {
		output, err := xml.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		header := []byte(xml.Header + "\n<!-- XML Structure Store configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
		content = append(header, output...)
	}

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks enumerated settings.
func (c *AppConfig) Validate() error {
	switch c.Storage.Driver {
	case DriverDuckDB, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Storage.Driver)
	}
	switch c.Query.FileResolution {
	case ResolveFirst, ResolveLatest:
	default:
		return fmt.Errorf("unsupported file resolution %q", c.Query.FileResolution)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("attribute batch size must be positive, got %d", c.Ingest.BatchSize)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	if driver := os.Getenv("XMLSTORE_DB_DRIVER"); driver != "" {
		c.Storage.Driver = strings.ToLower(driver)
	}

	if level := os.Getenv("XMLSTORE_LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetDatabasePath returns the database file location
func (c *AppConfig) GetDatabasePath() string {
	if filepath.IsAbs(c.Storage.DatabaseFile) {
		return c.Storage.DatabaseFile
	}
	return filepath.Join(c.GetDataDir(), c.Storage.DatabaseFile)
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates the data directory
func (c *AppConfig) EnsureDirectories() error {
	dir := c.GetDataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

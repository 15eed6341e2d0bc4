/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/midiwire/pkg/packet"
)

// Config represents the midiwire configuration
type Config struct {
	DataDir   string    `yaml:"data_dir"`
	Port      int       `yaml:"port"`
	Bind      string    `yaml:"bind"`
	Layout    Layout    `yaml:"layout"`
	Transport Transport `yaml:"transport"`
	Security  Security  `yaml:"security"`
	Logging   Logging   `yaml:"logging"`
}

// Layout selects the packet list encoding. Both fields accept "native".
type Layout struct {
	Alignment string `yaml:"alignment"`  // native, 1 or 4
	ByteOrder string `yaml:"byte_order"` // native, little or big
}

// Transport contains router configuration
type Transport struct {
	EnforceMaxSize bool `yaml:"enforce_max_size"`
	QueueSize      int  `yaml:"queue_size"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Layout: Layout{
			Alignment: "native",
			ByteOrder: "native",
		},
		Transport: Transport{
			EnforceMaxSize: true,
			QueueSize:      64,
		},
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// PacketLayout resolves the configured layout.
func (c *Config) PacketLayout() (packet.Layout, error) {
	return ParseLayout(c.Layout.Alignment, c.Layout.ByteOrder)
}

// ParseLayout turns alignment and byte order names into a packet.Layout. Empty
// values mean native.
func ParseLayout(alignment, byteOrder string) (packet.Layout, error) {
	layout := packet.NativeLayout()

	switch strings.ToLower(alignment) {
	case "", "native":
	case "1":
		layout.Align = packet.Align1
	case "4":
		layout.Align = packet.Align4
	default:
		return packet.Layout{}, fmt.Errorf("%w: unknown alignment %q", packet.ErrInvalidLayout, alignment)
	}

	switch strings.ToLower(byteOrder) {
	case "", "native":
	case "little", "le":
		layout.Order = binary.LittleEndian
	case "big", "be":
		layout.Order = binary.BigEndian
	default:
		return packet.Layout{}, fmt.Errorf("%w: unknown byte order %q", packet.ErrInvalidLayout, byteOrder)
	}

	return layout, nil
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if _, err := config.PacketLayout(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./midiwire.yaml"
	}

	// ~/.config/midiwire/config.yaml
	return filepath.Join(homeDir, ".config", "midiwire", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

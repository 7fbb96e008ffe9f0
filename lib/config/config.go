// Copyright 2026 The Keyweave Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keyweave/keyweave/lib/hal"
)

// Config is the complete runtime configuration. It is read once at
// assembly and never modified afterwards.
type Config struct {
	// Transport identifies the device to the host.
	Transport TransportConfig `yaml:"transport"`

	// Persistence locates the keymap records in flash.
	Persistence PersistenceConfig `yaml:"persistence"`

	// Status wires the lock indicators.
	Status StatusConfig `yaml:"status"`

	// ConfigChannel identifies the keyboard to remote configurators.
	ConfigChannel ConfigChannelConfig `yaml:"config_channel"`

	// Matrix sets scan timing.
	Matrix MatrixConfig `yaml:"matrix"`
}

// TransportConfig is the USB identity.
type TransportConfig struct {
	VendorID     uint16 `yaml:"vendor_id"`
	ProductID    uint16 `yaml:"product_id"`
	Manufacturer string `yaml:"manufacturer"`
	ProductName  string `yaml:"product_name"`
	SerialNumber string `yaml:"serial_number"`
}

// PersistenceConfig locates the keymap region.
type PersistenceConfig struct {
	// StartAddress is the first byte of the region. Must be sector
	// aligned.
	StartAddress uint32 `yaml:"start_address"`

	// Sectors is the region length in erase sectors. The region is
	// split into two record slots, so it must be even.
	Sectors int `yaml:"sectors"`

	// Compression is applied to records: "none", "lz4", or "zstd".
	Compression string `yaml:"compression"`

	// ClearStorage erases the region at boot, discarding any saved
	// keymap.
	ClearStorage bool `yaml:"clear_storage"`
}

// StatusConfig wires the lock indicators. An indicator without a pin
// is ignored.
type StatusConfig struct {
	CapsLock   Indicator `yaml:"caps_lock"`
	NumLock    Indicator `yaml:"num_lock"`
	ScrollLock Indicator `yaml:"scroll_lock"`
}

// Indicator is one status output.
type Indicator struct {
	Pin       hal.OutputPin `yaml:"-"`
	ActiveLow bool          `yaml:"active_low"`
}

// ConfigChannelConfig identifies the keyboard on the remote
// configuration channel.
type ConfigChannelConfig struct {
	// KeyboardID is the 8-byte identifier configurators match against
	// their definitions.
	KeyboardID HexBytes `yaml:"keyboard_id"`

	// Definition is the keyboard definition served in pages to
	// configurators.
	Definition []byte `yaml:"-"`

	// DefinitionFile, when set in a file, is read into Definition.
	// Relative paths resolve against the config file's directory.
	DefinitionFile string `yaml:"definition_file"`
}

// MatrixConfig sets scan timing.
type MatrixConfig struct {
	// ScanInterval is the time between full matrix scans.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// DebounceScans is how many consecutive scans a key must read the
	// same before the change is accepted.
	DebounceScans int `yaml:"debounce_scans"`
}

// KeyboardIDSize is the length of ConfigChannelConfig.KeyboardID.
const KeyboardIDSize = 8

// Compression names accepted in PersistenceConfig.
const (
	CompressionNone = "none"
	CompressionLZ4  = "lz4"
	CompressionZstd = "zstd"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			VendorID:     0x4B57,
			ProductID:    0x0001,
			Manufacturer: "Keyweave",
			ProductName:  "Keyweave Keyboard",
			SerialNumber: "00000001",
		},
		Persistence: PersistenceConfig{
			StartAddress: 0,
			Sectors:      2,
			Compression:  CompressionLZ4,
		},
		ConfigChannel: ConfigChannelConfig{
			KeyboardID: HexBytes{0, 0, 0, 0, 0, 0, 0, 0},
		},
		Matrix: MatrixConfig{
			ScanInterval:  time.Millisecond,
			DebounceScans: 5,
		},
	}
}

// WithDefaults returns a copy of c with every zero-valued field
// replaced by its default. Booleans and indicator pins are kept as
// given.
func (c Config) WithDefaults() Config {
	defaults := Default()

	if c.Transport.VendorID == 0 {
		c.Transport.VendorID = defaults.Transport.VendorID
	}
	if c.Transport.ProductID == 0 {
		c.Transport.ProductID = defaults.Transport.ProductID
	}
	if c.Transport.Manufacturer == "" {
		c.Transport.Manufacturer = defaults.Transport.Manufacturer
	}
	if c.Transport.ProductName == "" {
		c.Transport.ProductName = defaults.Transport.ProductName
	}
	if c.Transport.SerialNumber == "" {
		c.Transport.SerialNumber = defaults.Transport.SerialNumber
	}

	if c.Persistence.Sectors == 0 {
		c.Persistence.Sectors = defaults.Persistence.Sectors
	}
	if c.Persistence.Compression == "" {
		c.Persistence.Compression = defaults.Persistence.Compression
	}

	if len(c.ConfigChannel.KeyboardID) == 0 {
		c.ConfigChannel.KeyboardID = defaults.ConfigChannel.KeyboardID
	}

	if c.Matrix.ScanInterval == 0 {
		c.Matrix.ScanInterval = defaults.Matrix.ScanInterval
	}
	if c.Matrix.DebounceScans == 0 {
		c.Matrix.DebounceScans = defaults.Matrix.DebounceScans
	}
	return c
}

// Load loads the file named by the KEYWEAVE_CONFIG environment
// variable.
func Load() (*Config, error) {
	path := os.Getenv("KEYWEAVE_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("KEYWEAVE_CONFIG environment variable not set; " +
			"set it to the path of a keyweave.yaml file, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads a YAML configuration file on top of Default(),
// resolves the definition file, and validates the result. Unknown keys
// are errors.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.ConfigChannel.DefinitionFile != "" {
		definitionPath := expandVars(cfg.ConfigChannel.DefinitionFile)
		if !filepath.IsAbs(definitionPath) {
			definitionPath = filepath.Join(filepath.Dir(path), definitionPath)
		}
		definition, err := os.ReadFile(definitionPath)
		if err != nil {
			return nil, fmt.Errorf("reading keyboard definition: %w", err)
		}
		cfg.ConfigChannel.Definition = definition
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	switch c.Persistence.Compression {
	case CompressionNone, CompressionLZ4, CompressionZstd:
	default:
		errs = append(errs, fmt.Errorf("persistence.compression must be one of: %s",
			strings.Join([]string{CompressionNone, CompressionLZ4, CompressionZstd}, ", ")))
	}
	if c.Persistence.Sectors < 2 || c.Persistence.Sectors%2 != 0 {
		errs = append(errs, fmt.Errorf("persistence.sectors must be a positive even number, got %d", c.Persistence.Sectors))
	}

	if len(c.ConfigChannel.KeyboardID) != KeyboardIDSize {
		errs = append(errs, fmt.Errorf("config_channel.keyboard_id must be %d bytes, got %d",
			KeyboardIDSize, len(c.ConfigChannel.KeyboardID)))
	}

	if c.Matrix.ScanInterval <= 0 {
		errs = append(errs, fmt.Errorf("matrix.scan_interval must be positive"))
	}
	if c.Matrix.DebounceScans < 1 {
		errs = append(errs, fmt.Errorf("matrix.debounce_scans must be at least 1"))
	}

	if c.Transport.VendorID == 0 || c.Transport.ProductID == 0 {
		errs = append(errs, fmt.Errorf("transport.vendor_id and transport.product_id are required"))
	}

	return errors.Join(errs...)
}

// HexBytes is a byte string written in YAML as hex, with an optional
// 0x prefix.
type HexBytes []byte

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *HexBytes) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return fmt.Errorf("line %d: invalid hex bytes: %w", node.Line, err)
	}
	*h = decoded
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h HexBytes) MarshalYAML() (any, error) {
	return "0x" + hex.EncodeToString(h), nil
}

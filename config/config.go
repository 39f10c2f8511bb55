package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/sergev/thomfdc/bios"
	"github.com/sergev/thomfdc/fdc"
	"github.com/sergev/thomfdc/qdd"
)

//go:embed fdc.toml
var defaultConfigData []byte

// Settings of the selected drive, valid after Initialize
var (
	DriveName string
	Current   Drive
	ClockHz   uint64
	Overrun   fdc.OverrunPolicy
	ReadHead  bool
	Checksum  qdd.Checksum
	Bios      BiosConfig
	Images    []string
	ImageMap  map[string]string // image name -> filename mapping

	loaded *Config
)

// Config represents the entire TOML configuration structure
type Config struct {
	Default  string     `toml:"default"`
	ClockHz  uint64     `toml:"clock_hz"`
	Overrun  string     `toml:"overrun"`
	ReadHead *bool      `toml:"read_head"`
	Bios     BiosConfig `toml:"bios"`
	QDD      QDDConfig  `toml:"qdd"`
	Drive    []Drive    `toml:"drive"`
	Image    []Image    `toml:"image"`
}

// Drive is one drive profile
type Drive struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Cyls  int    `toml:"cyls"`
	Heads int    `toml:"heads"`
	RPM   int    `toml:"rpm"`
	KBps  int    `toml:"kbps"`

	Images []string `toml:"images"`
}

// Image represents a built-in image configuration
type Image struct {
	Name string `toml:"name"`
	File string `toml:"file"`
}

// BiosConfig tunes the firmware loops
type BiosConfig struct {
	PollTicks   uint64 `toml:"poll_ticks"`
	Revolutions uint64 `toml:"revolutions"`
}

// QDDConfig selects the quick-disk layout
type QDDConfig struct {
	Checksum string `toml:"checksum"`
}

// Drive types
const (
	TypeFloppy = "floppy"
	TypeQDD    = "qdd"
)

// configPath determines the config file path based on the operating system
func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "fdc")
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".fdc"), nil
}

// Initialize loads and validates the configuration file.
// If the config file doesn't exist, it creates it from the embedded default.
func Initialize() error {
	configPath, err := configPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
		}
		if err := os.WriteFile(configPath, defaultConfigData, 0644); err != nil {
			return fmt.Errorf("failed to create default config file at %s: %w", configPath, err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config at %s: %w", configPath, err)
	}
	conf, err := Parse(data)
	if err != nil {
		return fmt.Errorf("config %s: %w", configPath, err)
	}
	return Apply(conf)
}

// Default returns the embedded default configuration.
func Default() *Config {
	conf, err := Parse(defaultConfigData)
	if err != nil {
		panic(err)
	}
	return conf
}

// Parse decodes and validates a TOML configuration.
func Parse(data []byte) (*Config, error) {
	var conf Config
	if _, err := toml.Decode(string(data), &conf); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (conf *Config) validate() error {
	if conf.Default == "" {
		return errors.New("`default` key is missing or empty in config")
	}
	if conf.ClockHz == 0 {
		conf.ClockHz = fdc.DefaultClockHz
	}
	if conf.Overrun == "" {
		conf.Overrun = fdc.OverrunAbort.String()
	}
	if _, err := fdc.ParseOverrunPolicy(conf.Overrun); err != nil {
		return fmt.Errorf("`overrun`: %w", err)
	}
	if conf.QDD.Checksum == "" {
		conf.QDD.Checksum = qdd.CRC16.String()
	}
	if _, err := qdd.ParseChecksum(conf.QDD.Checksum); err != nil {
		return fmt.Errorf("`qdd.checksum`: %w", err)
	}

	images := make(map[string]bool)
	for _, img := range conf.Image {
		if img.Name == "" || img.File == "" {
			return fmt.Errorf("image %q needs both `name` and `file`", img.Name)
		}
		images[img.Name] = true
	}

	seen := make(map[string]bool)
	for i := range conf.Drive {
		d := &conf.Drive[i]
		if d.Name == "" {
			return fmt.Errorf("drive #%d has no `name`", i+1)
		}
		if seen[d.Name] {
			return fmt.Errorf("drive %q is defined twice", d.Name)
		}
		seen[d.Name] = true
		if err := d.validate(); err != nil {
			return err
		}
		for _, name := range d.Images {
			if !images[name] {
				return fmt.Errorf("image %q listed under drive %q not found in image array", name, d.Name)
			}
		}
	}
	if _, err := conf.Find(conf.Default); err != nil {
		return fmt.Errorf("`default`: %w", err)
	}
	return nil
}

func (d *Drive) validate() error {
	switch d.Type {
	case "", TypeFloppy:
		d.Type = TypeFloppy
	case TypeQDD:
		return nil
	default:
		return fmt.Errorf("drive %q has unknown type: %q", d.Name, d.Type)
	}
	if d.Cyls <= 0 {
		return fmt.Errorf("drive %q has invalid cyls: %d (must be positive)", d.Name, d.Cyls)
	}
	if d.Heads != 1 && d.Heads != 2 {
		return fmt.Errorf("drive %q has invalid heads: %d (must be 1 or 2)", d.Name, d.Heads)
	}
	if d.RPM <= 0 {
		return fmt.Errorf("drive %q has invalid rpm: %d (must be positive)", d.Name, d.RPM)
	}
	if d.KBps <= 0 {
		return fmt.Errorf("drive %q has invalid kbps: %d (must be positive)", d.Name, d.KBps)
	}
	return nil
}

// Find returns the drive profile with the given name.
func (conf *Config) Find(name string) (*Drive, error) {
	for i := range conf.Drive {
		if conf.Drive[i].Name == name {
			return &conf.Drive[i], nil
		}
	}
	return nil, fmt.Errorf("drive %q not found in drive array", name)
}

// Apply stores a validated configuration in the package variables.
func Apply(conf *Config) error {
	d, err := conf.Find(conf.Default)
	if err != nil {
		return err
	}
	DriveName = d.Name
	Current = *d
	ClockHz = conf.ClockHz
	Overrun, _ = fdc.ParseOverrunPolicy(conf.Overrun)
	ReadHead = conf.ReadHead == nil || *conf.ReadHead
	Checksum, _ = qdd.ParseChecksum(conf.QDD.Checksum)
	Bios = conf.Bios
	Images = append([]string(nil), d.Images...)
	ImageMap = make(map[string]string)
	for _, img := range conf.Image {
		ImageMap[img.Name] = img.File
	}
	loaded = conf
	return nil
}

// Select switches to another drive profile of the applied configuration.
func Select(name string) error {
	if name == "" {
		return nil
	}
	if loaded == nil {
		return errors.New("configuration is not loaded")
	}
	if _, err := loaded.Find(name); err != nil {
		return err
	}
	loaded.Default = name
	return Apply(loaded)
}

// GetImageFilename returns the filename for a given image name.
// Returns an error if the image name is not found in the configuration.
func GetImageFilename(imageName string) (string, error) {
	filename, ok := ImageMap[imageName]
	if !ok {
		return "", fmt.Errorf("image %q not found in configuration", imageName)
	}
	return filename, nil
}

// ControllerOptions returns the controller settings.
func ControllerOptions() fdc.Options {
	opts := fdc.DefaultOptions()
	opts.ClockHz = ClockHz
	opts.Overrun = Overrun
	opts.ReadHead = ReadHead
	return opts
}

// QDDOptions returns the quick-disk drive settings.
func QDDOptions() qdd.Options {
	return qdd.Options{ClockHz: ClockHz, Checksum: Checksum}
}

// BiosOptions returns the firmware settings for the current drive.
func BiosOptions() bios.Options {
	opts := bios.DefaultOptions()
	if Bios.PollTicks != 0 {
		opts.PollTicks = Bios.PollTicks
	}
	if Bios.Revolutions != 0 {
		opts.Revolutions = Bios.Revolutions
	}
	if Current.RPM > 0 {
		opts.Revolution = ClockHz * 60 / uint64(Current.RPM)
	}
	opts.MaxCyls = Current.Cyls + 5
	return opts
}

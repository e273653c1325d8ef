package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the mp3mat daemon.
//
// Every field has a built-in default, so the file is optional and only needs
// the values that differ for a given board. The daemon never writes it.
type Config struct {
	// MPD connection and music root
	MPD MPDFileConfig `yaml:"mpd"`

	// Pin map
	Hardware HardwareFileConfig `yaml:"hardware"`

	// Selector band thresholds
	Selector SelectorFileConfig `yaml:"selector"`

	// Loop timing
	Timing TimingConfig `yaml:"timing"`

	// Playback limits
	Playback PlaybackConfig `yaml:"playback"`

	// Volume behavior
	Volume VolumeConfig `yaml:"volume"`

	// Low-power sleep
	Power PowerConfig `yaml:"power"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type MPDFileConfig struct {
	Network  string `yaml:"network"`
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	Root     string `yaml:"root"` // directory in MPD's database holding the slot directories
	Retries  int    `yaml:"retries"`
}

type HardwareFileConfig struct {
	DirectorySelector AnalogInputConfig `yaml:"directory_selector"`
	VolumeSelector    AnalogInputConfig `yaml:"volume_selector"`
	NextSwitch        SwitchConfig      `yaml:"next_switch"`
	PreviousSwitch    SwitchConfig      `yaml:"previous_switch"`

	// SwitchActiveLow: switches short to ground (inputs pulled up).
	SwitchActiveLow bool `yaml:"switch_active_low"`

	SPIChipSelect int `yaml:"spi_chip_select"`
	SPISpeedHz    int `yaml:"spi_speed_hz"`
}

// AnalogInputConfig is a selector ladder: the ADC channel it is sampled on and
// the GPIO line wired to it for wake detection.
type AnalogInputConfig struct {
	ADCChannel int `yaml:"adc_channel"`
	WakeGPIO   int `yaml:"wake_gpio"`
}

type SwitchConfig struct {
	GPIO int `yaml:"gpio"`
}

type SelectorFileConfig struct {
	Bands []Band `yaml:"bands"` // position 1 first (highest raw range)
}

type TimingConfig struct {
	UpdateHz          int `yaml:"update_hz"`
	ButtonDelayMS     int `yaml:"button_delay_ms"`
	SleepDelayMS      int `yaml:"sleep_delay_ms"`
	PreviousRestartMS int `yaml:"previous_restart_ms"`
}

type PlaybackConfig struct {
	MaxFiles int `yaml:"max_files"`
}

type VolumeConfig struct {
	InitialTarget int `yaml:"initial_target"` // 0..60
}

type PowerConfig struct {
	SleepMode      string `yaml:"sleep_mode"` // auto|mem|standby|freeze|none
	GPIOChip       string `yaml:"gpio_chip"` // character device holding the BCM lines
	PowerStatePath string `yaml:"power_state_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// WakeConfig is the resolved configuration for the wake controller.
type WakeConfig struct {
	Mode           string
	GPIOChip       string
	PowerStatePath string
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	bands := make([]Band, len(defaultBands))
	copy(bands, defaultBands[:])

	return Config{
		MPD: MPDFileConfig{
			Network: defaultMPDNetwork,
			Address: defaultMPDAddress,
			Retries: defaultMPDRetries,
		},
		Hardware: HardwareFileConfig{
			DirectorySelector: AnalogInputConfig{ADCChannel: defaultDirectoryADCChannel, WakeGPIO: defaultDirectoryWakeGPIO},
			VolumeSelector:    AnalogInputConfig{ADCChannel: defaultVolumeADCChannel, WakeGPIO: defaultVolumeWakeGPIO},
			NextSwitch:        SwitchConfig{GPIO: defaultNextGPIO},
			PreviousSwitch:    SwitchConfig{GPIO: defaultPreviousGPIO},
			SwitchActiveLow:   true,
			SPIChipSelect:     defaultSPIChipSelect,
			SPISpeedHz:        defaultSPISpeedHz,
		},
		Selector: SelectorFileConfig{
			Bands: bands,
		},
		Timing: TimingConfig{
			UpdateHz:          defaultUpdateHz,
			ButtonDelayMS:     defaultButtonDelayMS,
			SleepDelayMS:      defaultSleepDelayMS,
			PreviousRestartMS: defaultPreviousRestartMS,
		},
		Playback: PlaybackConfig{
			MaxFiles: defaultMaxFiles,
		},
		Volume: VolumeConfig{
			InitialTarget: defaultInitialVolume,
		},
		Power: PowerConfig{
			SleepMode:      SleepModeAuto,
			GPIOChip:       defaultGPIOChip,
			PowerStatePath: defaultPowerStatePath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
//
// Notes:
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
//   - Only one YAML document is allowed.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds command-line overrides applied on top of the file.
// Each field is only applied when non-nil.
type FlagOverrides struct {
	MPDAddress *string
	MPDRoot    *string

	ButtonDelayMS *int
	SleepDelayMS  *int
	UpdateHz      *int

	SleepMode *string
	LogLevel  *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.MPDAddress != nil {
		cfg.MPD.Address = *o.MPDAddress
	}
	if o.MPDRoot != nil {
		cfg.MPD.Root = *o.MPDRoot
	}
	if o.ButtonDelayMS != nil {
		cfg.Timing.ButtonDelayMS = *o.ButtonDelayMS
	}
	if o.SleepDelayMS != nil {
		cfg.Timing.SleepDelayMS = *o.SleepDelayMS
	}
	if o.UpdateHz != nil {
		cfg.Timing.UpdateHz = *o.UpdateHz
	}
	if o.SleepMode != nil {
		cfg.Power.SleepMode = *o.SleepMode
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	// MPD
	if c.MPD.Network != "tcp" && c.MPD.Network != "unix" {
		return errors.New(`mpd.network must be "tcp" or "unix"`)
	}
	if c.MPD.Address == "" {
		return errors.New("mpd.address must not be empty")
	}
	if c.MPD.Retries <= 0 {
		return errors.New("mpd.retries must be > 0")
	}

	// Hardware
	for name, ch := range map[string]int{
		"hardware.directory_selector.adc_channel": c.Hardware.DirectorySelector.ADCChannel,
		"hardware.volume_selector.adc_channel":    c.Hardware.VolumeSelector.ADCChannel,
	} {
		if ch < 0 || ch >= mcp3008Channels {
			return fmt.Errorf("%s must be between 0 and %d", name, mcp3008Channels-1)
		}
	}
	if c.Hardware.DirectorySelector.ADCChannel == c.Hardware.VolumeSelector.ADCChannel {
		return errors.New("directory and volume selectors must use different adc channels")
	}
	seen := make(map[int]bool)
	for _, p := range c.wakePins() {
		if p < 0 || p > 27 {
			return fmt.Errorf("gpio %d out of range 0..27", p)
		}
		if seen[p] {
			return fmt.Errorf("gpio %d assigned twice", p)
		}
		seen[p] = true
	}
	if c.Hardware.SPIChipSelect != 0 && c.Hardware.SPIChipSelect != 1 {
		return errors.New("hardware.spi_chip_select must be 0 or 1")
	}
	if c.Hardware.SPISpeedHz <= 0 {
		return errors.New("hardware.spi_speed_hz must be > 0")
	}

	// Selector
	if len(c.Selector.Bands) != selectorPositions {
		return fmt.Errorf("selector.bands must have exactly %d entries", selectorPositions)
	}
	if _, err := NewSelectorDecoder(c.bands()); err != nil {
		return fmt.Errorf("selector.bands: %w", err)
	}

	// Timing
	if c.Timing.UpdateHz <= 0 || c.Timing.UpdateHz > 1000 {
		return errors.New("timing.update_hz must be between 1 and 1000")
	}
	if c.Timing.ButtonDelayMS < 0 {
		return errors.New("timing.button_delay_ms must be >= 0")
	}
	if c.Timing.SleepDelayMS <= 0 {
		return errors.New("timing.sleep_delay_ms must be > 0")
	}
	if c.Timing.PreviousRestartMS < 0 {
		return errors.New("timing.previous_restart_ms must be >= 0")
	}

	// Playback / volume
	if c.Playback.MaxFiles <= 0 {
		return errors.New("playback.max_files must be > 0")
	}
	if c.Volume.InitialTarget < 0 || c.Volume.InitialTarget > maxVolume {
		return fmt.Errorf("volume.initial_target must be between 0 and %d", maxVolume)
	}

	// Power
	switch c.Power.SleepMode {
	case SleepModeAuto, SleepModeMem, SleepModeStandby, SleepModeFreeze, SleepModeNone:
	default:
		return fmt.Errorf("power.sleep_mode must be one of auto, mem, standby, freeze, none (got %q)", c.Power.SleepMode)
	}
	if c.Power.GPIOChip == "" {
		return errors.New("power.gpio_chip must not be empty")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func (c *Config) bands() [selectorPositions]Band {
	var out [selectorPositions]Band
	copy(out[:], c.Selector.Bands)
	return out
}

func (c *Config) switchLevel() Level {
	if c.Hardware.SwitchActiveLow {
		return Low
	}
	return High
}

// wakePins lists every polled input: both selector wake lines and both switches.
func (c *Config) wakePins() []int {
	return []int{
		c.Hardware.DirectorySelector.WakeGPIO,
		c.Hardware.VolumeSelector.WakeGPIO,
		c.Hardware.NextSwitch.GPIO,
		c.Hardware.PreviousSwitch.GPIO,
	}
}

// ToDecoder builds the selector decoder. Call after Validate.
func (c *Config) ToDecoder() (SelectorDecoder, error) {
	return NewSelectorDecoder(c.bands())
}

// ToDaemonConfig converts the file config into the orchestrator's parameters.
func (c *Config) ToDaemonConfig() DaemonConfig {
	return DaemonConfig{
		Root:             c.MPD.Root,
		DirectoryChannel: c.Hardware.DirectorySelector.ADCChannel,
		VolumeChannel:    c.Hardware.VolumeSelector.ADCChannel,
		NextPin:          c.Hardware.NextSwitch.GPIO,
		PreviousPin:      c.Hardware.PreviousSwitch.GPIO,
		SwitchLevel:      c.switchLevel(),
		WakePins:         c.wakePins(),
		ButtonDelay:      time.Duration(c.Timing.ButtonDelayMS) * time.Millisecond,
		SleepDelay:       time.Duration(c.Timing.SleepDelayMS) * time.Millisecond,
		PreviousRestart:  time.Duration(c.Timing.PreviousRestartMS) * time.Millisecond,
		MaxFiles:         c.Playback.MaxFiles,
		InitialVolume:    c.Volume.InitialTarget,
		UpdateHz:         c.Timing.UpdateHz,
	}
}

// ToHardwareConfig converts the pin map for the GPIO/SPI sampler.
func (c *Config) ToHardwareConfig() HardwareConfig {
	return HardwareConfig{
		DigitalPins:   []int{c.Hardware.NextSwitch.GPIO, c.Hardware.PreviousSwitch.GPIO},
		PullUp:        c.Hardware.SwitchActiveLow,
		SPIChipSelect: uint8(c.Hardware.SPIChipSelect),
		SPISpeedHz:    c.Hardware.SPISpeedHz,
	}
}

// ToWakeConfig converts the power section for the wake controller.
func (c *Config) ToWakeConfig() WakeConfig {
	return WakeConfig{
		Mode:           c.Power.SleepMode,
		GPIOChip:       c.Power.GPIOChip,
		PowerStatePath: c.Power.PowerStatePath,
	}
}

// ToMPDConfig converts the MPD section.
func (c *Config) ToMPDConfig() MPDConfig {
	return MPDConfig{
		Network:  c.MPD.Network,
		Address:  c.MPD.Address,
		Password: c.MPD.Password,
		Retries:  c.MPD.Retries,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}

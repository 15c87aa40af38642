package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/dyluth/trialrun/internal/timespec"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for the session configuration.
const DefaultPath = "trialrun.yml"

// Config represents the top-level trialrun.yml configuration
type Config struct {
	Version     string         `yaml:"version"`
	Participant string         `yaml:"participant,omitempty"`
	Seed        uint64         `yaml:"seed,omitempty"`         // 0 = derive from the clock
	DevelopMode *bool          `yaml:"develop_mode,omitempty"` // Windowed, verbose rendering (default: true)
	OutputDir   string         `yaml:"output_dir,omitempty"`
	QuitKey     string         `yaml:"quit_key,omitempty"`
	Screen      *ScreenConfig  `yaml:"screen,omitempty"`
	Monitor     *MonitorConfig `yaml:"monitor,omitempty"`
	IHTT        *IHTTConfig    `yaml:"ihtt,omitempty"`
	DMTS        *DMTSConfig    `yaml:"dmts,omitempty"`
}

// ScreenConfig describes the display used to position stimuli
type ScreenConfig struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// MonitorConfig enables the Redis trial mirror. Empty RedisAddr disables it.
type MonitorConfig struct {
	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisDB   int    `yaml:"redis_db,omitempty"`
}

// IHTTConfig holds the interhemispheric transmission time paradigm settings
type IHTTConfig struct {
	BlocksPerType  int    `yaml:"blocks_per_type,omitempty"`  // Copies of each LC/LI/RC/RI block (default: 5)
	TrialsPerBlock int    `yaml:"trials_per_block,omitempty"` // Default: 10
	ConstrainSides bool   `yaml:"constrain_sides,omitempty"`  // Forbid 3 consecutive blocks in one visual field
	Fixation       string `yaml:"fixation,omitempty"`         // Fixation duration range (default: 1s..3s)
	ResponseWindow string `yaml:"response_window,omitempty"`  // Default: 500ms
	InterTrial     string `yaml:"inter_trial,omitempty"`      // Blank after each trial (default: 3s)
	CircleRadius   int    `yaml:"circle_radius,omitempty"`    // Pixels (default: 50)
	ResponseKey    string `yaml:"response_key,omitempty"`     // Default: b

	FixationMin        time.Duration `yaml:"-"`
	FixationMax        time.Duration `yaml:"-"`
	ResponseTimeout    time.Duration `yaml:"-"`
	InterTrialInterval time.Duration `yaml:"-"`
}

// DMTSConfig holds the delayed match-to-sample paradigm settings
type DMTSConfig struct {
	Blocks         int    `yaml:"blocks,omitempty"`          // Default: 8
	SampleDuration string `yaml:"sample_duration,omitempty"` // Default: 3s
	DelayUnit      string `yaml:"delay_unit,omitempty"`      // Duration of one delay unit (default: 1s)
	PostResponse   string `yaml:"post_response,omitempty"`   // Blank after the choice (default: 2s)
	ResponseWindow string `yaml:"response_window,omitempty"` // 0 = wait indefinitely (default)
	LeftKey        string `yaml:"left_key,omitempty"`        // Default: z
	RightKey       string `yaml:"right_key,omitempty"`       // Default: m

	Sample          time.Duration `yaml:"-"`
	Unit            time.Duration `yaml:"-"`
	Post            time.Duration `yaml:"-"`
	ResponseTimeout time.Duration `yaml:"-"`
}

var keyPattern = regexp.MustCompile(`^[a-z0-9]$`)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: "1.0"}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// IsDevelop reports whether develop mode is on.
func (c *Config) IsDevelop() bool {
	return c.DevelopMode == nil || *c.DevelopMode
}

// Validate performs strict validation on the configuration and applies defaults
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.OutputDir == "" {
		c.OutputDir = "data"
	}

	if c.QuitKey == "" {
		c.QuitKey = "q"
	}
	if !keyPattern.MatchString(c.QuitKey) {
		return fmt.Errorf("invalid quit_key: %q (must be a single lowercase letter or digit)", c.QuitKey)
	}

	if c.Screen == nil {
		c.Screen = &ScreenConfig{}
	}
	if err := c.Screen.Validate(); err != nil {
		return err
	}

	if c.Monitor == nil {
		c.Monitor = &MonitorConfig{}
	}
	if c.Monitor.RedisDB < 0 {
		return fmt.Errorf("monitor.redis_db must be >= 0, got %d", c.Monitor.RedisDB)
	}

	if c.IHTT == nil {
		c.IHTT = &IHTTConfig{}
	}
	if err := c.IHTT.Validate(c.QuitKey); err != nil {
		return fmt.Errorf("ihtt: %w", err)
	}

	if c.DMTS == nil {
		c.DMTS = &DMTSConfig{}
	}
	if err := c.DMTS.Validate(c.QuitKey); err != nil {
		return fmt.Errorf("dmts: %w", err)
	}

	return nil
}

// Validate applies screen defaults
func (s *ScreenConfig) Validate() error {
	if s.Width == 0 {
		s.Width = 1024
	}
	if s.Height == 0 {
		s.Height = 768
	}
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("screen size must be positive, got %dx%d", s.Width, s.Height)
	}
	return nil
}

// Validate applies IHTT defaults and parses the duration fields
func (c *IHTTConfig) Validate(quitKey string) error {
	if c.BlocksPerType == 0 {
		c.BlocksPerType = 5
	}
	if c.BlocksPerType < 1 {
		return fmt.Errorf("blocks_per_type must be >= 1, got %d", c.BlocksPerType)
	}

	if c.TrialsPerBlock == 0 {
		c.TrialsPerBlock = 10
	}
	if c.TrialsPerBlock < 1 {
		return fmt.Errorf("trials_per_block must be >= 1, got %d", c.TrialsPerBlock)
	}

	if c.CircleRadius == 0 {
		c.CircleRadius = 50
	}
	if c.CircleRadius < 1 {
		return fmt.Errorf("circle_radius must be >= 1, got %d", c.CircleRadius)
	}

	if c.ResponseKey == "" {
		c.ResponseKey = "b"
	}
	if err := validateKey("response_key", c.ResponseKey, quitKey); err != nil {
		return err
	}

	var err error
	if c.Fixation == "" {
		c.Fixation = "1s..3s"
	}
	if c.FixationMin, c.FixationMax, err = timespec.ParseRange(c.Fixation); err != nil {
		return fmt.Errorf("fixation: %w", err)
	}

	if c.ResponseWindow == "" {
		c.ResponseWindow = "500ms"
	}
	if c.ResponseTimeout, err = timespec.Parse(c.ResponseWindow); err != nil {
		return fmt.Errorf("response_window: %w", err)
	}
	if c.ResponseTimeout == 0 {
		return fmt.Errorf("response_window must be > 0")
	}

	if c.InterTrial == "" {
		c.InterTrial = "3s"
	}
	if c.InterTrialInterval, err = timespec.Parse(c.InterTrial); err != nil {
		return fmt.Errorf("inter_trial: %w", err)
	}

	return nil
}

// Validate applies DMTS defaults and parses the duration fields
func (c *DMTSConfig) Validate(quitKey string) error {
	if c.Blocks == 0 {
		c.Blocks = 8
	}
	if c.Blocks < 1 {
		return fmt.Errorf("blocks must be >= 1, got %d", c.Blocks)
	}

	if c.LeftKey == "" {
		c.LeftKey = "z"
	}
	if c.RightKey == "" {
		c.RightKey = "m"
	}
	if err := validateKey("left_key", c.LeftKey, quitKey); err != nil {
		return err
	}
	if err := validateKey("right_key", c.RightKey, quitKey); err != nil {
		return err
	}
	if c.LeftKey == c.RightKey {
		return fmt.Errorf("left_key and right_key must differ (both %q)", c.LeftKey)
	}

	var err error
	if c.SampleDuration == "" {
		c.SampleDuration = "3s"
	}
	if c.Sample, err = timespec.Parse(c.SampleDuration); err != nil {
		return fmt.Errorf("sample_duration: %w", err)
	}

	if c.DelayUnit == "" {
		c.DelayUnit = "1s"
	}
	if c.Unit, err = timespec.Parse(c.DelayUnit); err != nil {
		return fmt.Errorf("delay_unit: %w", err)
	}

	if c.PostResponse == "" {
		c.PostResponse = "2s"
	}
	if c.Post, err = timespec.Parse(c.PostResponse); err != nil {
		return fmt.Errorf("post_response: %w", err)
	}

	if c.ResponseWindow == "" {
		c.ResponseWindow = "0"
	}
	if c.ResponseTimeout, err = timespec.Parse(c.ResponseWindow); err != nil {
		return fmt.Errorf("response_window: %w", err)
	}

	return nil
}

func validateKey(field, key, quitKey string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid %s: %q (must be a single lowercase letter or digit)", field, key)
	}
	if key == quitKey {
		return fmt.Errorf("%s %q collides with the quit key", field, key)
	}
	return nil
}

// Load reads and validates trialrun.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
// The boolean reports whether the file was found.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	return nil, false, err
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"trainload/internal/analysis"
)

// EnvPrefix prefixes environment overrides, e.g. TRAINLOAD_STRAVA_CLIENT_ID
const EnvPrefix = "TRAINLOAD"

// Config represents the application configuration
type Config struct {
	Strava        StravaConfig       `json:"strava" mapstructure:"strava"`
	Athlete       AthleteConfig      `json:"athlete" mapstructure:"athlete"`
	Display       DisplayConfig      `json:"display" mapstructure:"display"`
	Server        ServerConfig       `json:"server" mapstructure:"server"`
	Log           LogConfig          `json:"log" mapstructure:"log"`
	Cache         CacheConfig        `json:"cache" mapstructure:"cache"`
	DurationRates map[string]float64 `json:"duration_rates,omitempty" mapstructure:"duration_rates"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
}

// AthleteConfig holds the athlete's thresholds. Zero means unknown.
type AthleteConfig struct {
	RestingHR     float64 `json:"resting_hr" mapstructure:"resting_hr"`
	MaxHR         float64 `json:"max_hr" mapstructure:"max_hr"`
	ThresholdHR   float64 `json:"threshold_hr" mapstructure:"threshold_hr"`
	FTP           float64 `json:"ftp" mapstructure:"ftp"`                       // watts
	ThresholdPace float64 `json:"threshold_pace" mapstructure:"threshold_pace"` // min/km
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `json:"distance_unit" mapstructure:"distance_unit"`
	PaceUnit     string `json:"pace_unit" mapstructure:"pace_unit"`
	WindowDays   int    `json:"window_days" mapstructure:"window_days"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Address string `json:"address" mapstructure:"address"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file" mapstructure:"file"` // empty: ~/.trainload/trainload.log
	JSON  bool   `json:"json" mapstructure:"json"`
}

// CacheConfig holds the timeline cache settings
type CacheConfig struct {
	SizeMB int `json:"size_mb" mapstructure:"size_mb"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration. Athlete thresholds stay
// zero so the scorer falls back to its own defaults.
func DefaultConfig() Config {
	return Config{
		Display: DisplayConfig{
			DistanceUnit: "km",
			PaceUnit:     "min/km",
			WindowDays:   90,
		},
		Server: ServerConfig{
			Address: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
		Cache: CacheConfig{
			SizeMB: 8,
		},
	}
}

// Load reads the configuration from ~/.trainload/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from path. Missing values fall back to
// DefaultConfig and TRAINLOAD_* environment variables override the file.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrNoConfig
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("strava.client_id", d.Strava.ClientID)
	v.SetDefault("strava.client_secret", d.Strava.ClientSecret)
	v.SetDefault("athlete.resting_hr", d.Athlete.RestingHR)
	v.SetDefault("athlete.max_hr", d.Athlete.MaxHR)
	v.SetDefault("athlete.threshold_hr", d.Athlete.ThresholdHR)
	v.SetDefault("athlete.ftp", d.Athlete.FTP)
	v.SetDefault("athlete.threshold_pace", d.Athlete.ThresholdPace)
	v.SetDefault("display.distance_unit", d.Display.DistanceUnit)
	v.SetDefault("display.pace_unit", d.Display.PaceUnit)
	v.SetDefault("display.window_days", d.Display.WindowDays)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("cache.size_mb", d.Cache.SizeMB)
}

// Save writes the configuration to ~/.trainload/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}
	example.Athlete = AthleteConfig{
		RestingHR:     50,
		MaxHR:         185,
		ThresholdHR:   165,
		FTP:           250,
		ThresholdPace: 5.5,
	}
	example.DurationRates = analysis.DefaultDurationRates()

	return SaveTo(path, &example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return c.ValidateSettings()
}

// ValidateSettings checks everything except the Strava credentials, which
// offline commands (import, recovery, serve) don't need
func (c *Config) ValidateSettings() error {
	// Validate display units
	if c.Display.DistanceUnit != "" && c.Display.DistanceUnit != "km" && c.Display.DistanceUnit != "mi" {
		return fmt.Errorf("display.distance_unit must be \"km\" or \"mi\", got %q", c.Display.DistanceUnit)
	}
	if c.Display.PaceUnit != "" && c.Display.PaceUnit != "min/km" && c.Display.PaceUnit != "min/mi" {
		return fmt.Errorf("display.pace_unit must be \"min/km\" or \"min/mi\", got %q", c.Display.PaceUnit)
	}
	if c.Display.WindowDays != 0 && (c.Display.WindowDays < 7 || c.Display.WindowDays > 730) {
		return fmt.Errorf("display.window_days must be between 7 and 730, got %d", c.Display.WindowDays)
	}

	// Validate threshold_hr < max_hr when both are set
	if c.Athlete.ThresholdHR > 0 && c.Athlete.MaxHR > 0 && c.Athlete.ThresholdHR >= c.Athlete.MaxHR {
		return fmt.Errorf("athlete.threshold_hr (%v) must be less than athlete.max_hr (%v)", c.Athlete.ThresholdHR, c.Athlete.MaxHR)
	}
	if c.Athlete.FTP < 0 || c.Athlete.FTP > 600 {
		return fmt.Errorf("athlete.ftp must be between 0 and 600 watts, got %v", c.Athlete.FTP)
	}
	if c.Athlete.ThresholdPace != 0 && (c.Athlete.ThresholdPace < 2 || c.Athlete.ThresholdPace > 15) {
		return fmt.Errorf("athlete.threshold_pace must be between 2 and 15 min/km, got %v", c.Athlete.ThresholdPace)
	}

	for key, rate := range c.DurationRates {
		if rate < 0 {
			return fmt.Errorf("duration_rates.%s must not be negative, got %v", key, rate)
		}
	}

	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if c.Cache.SizeMB < 0 {
		return fmt.Errorf("cache.size_mb must not be negative, got %d", c.Cache.SizeMB)
	}

	return nil
}

// Thresholds converts the athlete settings for the scorer; zero values stay unset
func (a AthleteConfig) Thresholds() analysis.AthleteThresholds {
	return analysis.AthleteThresholds{
		MaxHR:                 positive(a.MaxHR),
		RestingHR:             positive(a.RestingHR),
		LTHR:                  positive(a.ThresholdHR),
		FTP:                   positive(a.FTP),
		ThresholdPaceMinPerKm: positive(a.ThresholdPace),
	}
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".trainload"), nil
}

package models

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	Region     string `mapstructure:"region"`
	BucketName string `mapstructure:"bucket_name"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type Config struct {
	Seed      int       `mapstructure:"seed"`
	StartDate time.Time `mapstructure:"start_date"`
	DayStart  string    `mapstructure:"day_start"` // HH:MM, when the hub opens

	SpeedMPH      float64 `mapstructure:"speed_mph"`
	TruckCapacity int     `mapstructure:"truck_capacity"`
	TruckCount    int     `mapstructure:"truck_count"`
	DriverCount   int     `mapstructure:"driver_count"`
	TwoOptLimit   int     `mapstructure:"two_opt_limit"`
	StoreBuckets  int     `mapstructure:"store_buckets"`

	PackagesFile      string `mapstructure:"packages_file"`
	DistancesFile     string `mapstructure:"distances_file"`
	SyntheticPackages int    `mapstructure:"synthetic_packages"`

	OutputPath        string `mapstructure:"output_path"`
	OutputFolder      string `mapstructure:"output_folder"`
	OutputFormat      string `mapstructure:"output_format"`
	OutputDestination string `mapstructure:"output_destination"`

	KafkaEnabled     bool   `mapstructure:"kafka_enabled"`
	KafkaBrokerList  string `mapstructure:"kafka_broker_list"`
	SessionTimeoutMs int    `mapstructure:"session_timeout_ms"`

	CloudStorage CloudStorageConfig `mapstructure:"cloud_storage"`

	PostgresEnabled bool           `mapstructure:"postgres_enabled"`
	Database        DatabaseConfig `mapstructure:"database"`
}

// LoadConfig initializes and reads the configuration using Viper
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Default config location
		viper.AddConfigPath("examples")
		viper.SetConfigName("config")
		viper.SetConfigType("json")
	}

	viper.AutomaticEnv() // Read in environment variables that match

	viper.SetDefault("start_date", time.Now().Format(time.RFC3339))
	viper.SetDefault("day_start", "08:00")
	viper.SetDefault("speed_mph", DefaultSpeedMPH)
	viper.SetDefault("truck_capacity", DefaultTruckCapacity)
	viper.SetDefault("truck_count", DefaultTruckCount)
	viper.SetDefault("driver_count", DefaultDriverCount)
	viper.SetDefault("two_opt_limit", DefaultTwoOptLimit)
	viper.SetDefault("store_buckets", DefaultStoreBuckets)
	viper.SetDefault("output_destination", "local")
	viper.SetDefault("output_format", "console")

	if cfgFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		// No config file is fine; flags and env vars cover everything.
		_ = viper.ReadInConfig()
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		)
	})
	if err := viper.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (cfg *Config) Validate() error {
	if cfg.SpeedMPH <= 0 {
		return fmt.Errorf("speed_mph must be positive, got %v", cfg.SpeedMPH)
	}
	if cfg.TruckCapacity < 1 {
		return fmt.Errorf("truck_capacity must be at least 1, got %d", cfg.TruckCapacity)
	}
	if cfg.TruckCount < 1 {
		return fmt.Errorf("truck_count must be at least 1, got %d", cfg.TruckCount)
	}
	if cfg.DriverCount < 1 || cfg.DriverCount > cfg.TruckCount {
		cfg.DriverCount = cfg.TruckCount
	}
	if _, err := cfg.DayStartTime(); err != nil {
		return err
	}
	return nil
}

// DayStartTime combines the configured start date with the day_start clock time.
func (cfg *Config) DayStartTime() (time.Time, error) {
	t, err := time.Parse("15:04", cfg.DayStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day_start %q: %w", cfg.DayStart, err)
	}
	d := cfg.StartDate
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, d.Location()), nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        App        `mapstructure:"app"`
	Logging    Logging    `mapstructure:"logging"`
	Input      Input      `mapstructure:"input"`
	Output     Output     `mapstructure:"output"`
	Linguistic Linguistic `mapstructure:"linguistic"`
	Pipeline   Pipeline   `mapstructure:"pipeline"`
	Store      Store      `mapstructure:"store"`
	Metrics    Metrics    `mapstructure:"metrics"`
}

// App holds general application configuration
type App struct {
	Debug   bool   `mapstructure:"debug"`
	DataDir string `mapstructure:"data_dir" validate:"required"`
}

// Logging holds logger configuration
type Logging struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// Input holds the paths of the tabular inputs
type Input struct {
	Articles    string   `mapstructure:"articles"`
	Features    string   `mapstructure:"features"` // Defaults to the articles file
	Links       string   `mapstructure:"links"`
	DateLayouts []string `mapstructure:"date_layouts"`
}

// Output holds output configuration
type Output struct {
	Directory string `mapstructure:"directory" validate:"required"`
	Report    bool   `mapstructure:"report"`
}

// Linguistic holds outlier scorer configuration. The contamination rate is
// not configurable.
type Linguistic struct {
	Scorer     string `mapstructure:"scorer" validate:"oneof=isolation_forest centroid_distance"`
	Trees      int    `mapstructure:"trees" validate:"min=1"`
	SampleSize int    `mapstructure:"sample_size" validate:"min=2"`
	Seed       int64  `mapstructure:"seed"`
}

// Pipeline holds orchestration settings
type Pipeline struct {
	Workers int `mapstructure:"workers" validate:"min=1,max=3"`
}

// Store holds run archive configuration
type Store struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Metrics holds run metrics export configuration
type Metrics struct {
	Textfile string `mapstructure:"textfile"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".newsrisk")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.SetEnvPrefix("NEWSRISK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	postProcessConfig(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".newsrisk")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Keys without a useful default still need one so that
	// NEWSRISK_* variables reach them through AutomaticEnv.
	viper.SetDefault("input.articles", "")
	viper.SetDefault("input.features", "")
	viper.SetDefault("input.links", "")
	viper.SetDefault("input.date_layouts", []string{})

	viper.SetDefault("output.directory", "output")
	viper.SetDefault("output.report", true)

	viper.SetDefault("linguistic.scorer", "isolation_forest")
	viper.SetDefault("linguistic.trees", 200)
	viper.SetDefault("linguistic.sample_size", 256)
	viper.SetDefault("linguistic.seed", 42)

	viper.SetDefault("pipeline.workers", 3)

	viper.SetDefault("store.enabled", true)
	viper.SetDefault("store.path", "")

	viper.SetDefault("metrics.textfile", "")
}

// bindEnvironmentVariables maps conventional variable names onto config keys
func bindEnvironmentVariables() {
	bindEnvKeys("app.debug", []string{
		"NEWSRISK_DEBUG",
		"DEBUG",
	})

	bindEnvKeys("logging.level", []string{
		"NEWSRISK_LOG_LEVEL",
		"LOG_LEVEL",
	})

	bindEnvKeys("app.data_dir", []string{
		"NEWSRISK_DATA_DIR",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig expands paths and fills derived defaults
func postProcessConfig(config *Config) {
	config.App.DataDir = expandPath(config.App.DataDir)
	config.Output.Directory = expandPath(config.Output.Directory)
	config.Input.Articles = expandPath(config.Input.Articles)
	config.Input.Features = expandPath(config.Input.Features)
	config.Input.Links = expandPath(config.Input.Links)
	config.Metrics.Textfile = expandPath(config.Metrics.Textfile)

	if config.Input.Features == "" {
		config.Input.Features = config.Input.Articles
	}
	if config.Store.Path == "" {
		config.Store.Path = filepath.Join(config.App.DataDir, "runs.db")
	} else {
		config.Store.Path = expandPath(config.Store.Path)
	}
	if config.App.Debug {
		config.Logging.Level = "debug"
	}
	config.Logging.Level = strings.ToLower(config.Logging.Level)
	config.Logging.Format = strings.ToLower(config.Logging.Format)
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateConfig checks struct tags and cross-field rules and reports every
// problem at once
func validateConfig(config *Config) error {
	var problems []string

	if err := validate.Struct(config); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return fmt.Errorf("error validating config: %w", err)
		}
		for _, fe := range fieldErrors {
			problems = append(problems, describe(fe))
		}
	}

	if config.Store.Enabled && config.Store.Path == "" {
		problems = append(problems, "store.path is required when the run archive is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// describe turns a validator field error into a config-key message
func describe(fe validator.FieldError) string {
	key := configKey(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", key, fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s, got %v", key, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

// configKey maps a struct namespace such as Config.Linguistic.SampleSize to
// its config key, linguistic.sample_size.
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Convenience getters for commonly used configuration values
func GetLogging() Logging       { return Get().Logging }
func GetInput() Input           { return Get().Input }
func GetOutput() Output         { return Get().Output }
func GetLinguistic() Linguistic { return Get().Linguistic }
func GetPipeline() Pipeline     { return Get().Pipeline }
func GetStore() Store           { return Get().Store }
func GetMetrics() Metrics       { return Get().Metrics }

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}

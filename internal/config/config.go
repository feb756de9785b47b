package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/common"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/qlearning"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/selfplay"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/serving"
)

// Config holds all configuration for the trainer
type Config struct {
	Training TrainingConfig `mapstructure:"training"`
	Model    ModelConfig    `mapstructure:"model"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Engine   EngineConfig   `mapstructure:"engine"`
	SelfPlay SelfPlayConfig `mapstructure:"selfplay"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// TrainingConfig holds the epoch loop settings
type TrainingConfig struct {
	MaxEpochs    int               `mapstructure:"max_epochs"`
	MaxSessions  int               `mapstructure:"max_sessions"`
	LearningRate float64           `mapstructure:"learning_rate"`
	DiscountRate float64           `mapstructure:"discount_rate"`
	Exploration  ExplorationConfig `mapstructure:"exploration"`
	OutputDir    string            `mapstructure:"output_dir"`
	Cleanup      bool              `mapstructure:"cleanup"`
}

// ExplorationConfig holds the exploration schedule
type ExplorationConfig struct {
	Initial float64 `mapstructure:"initial"`
	Decay   float64 `mapstructure:"decay"`
}

// ModelConfig holds the approximator settings
type ModelConfig struct {
	Checkpoint   string  `mapstructure:"checkpoint"`
	BoardSize    int     `mapstructure:"board_size"`
	HiddenLayers []int   `mapstructure:"hidden_layers"`
	InitStdDev   float64 `mapstructure:"init_std_dev"`
}

// StatsConfig holds the statistics output settings
type StatsConfig struct {
	File string `mapstructure:"file"`
}

// EngineConfig holds the external game engine invocation
type EngineConfig struct {
	Command        string   `mapstructure:"command"`
	Script         string   `mapstructure:"script"`
	ConfigDir      string   `mapstructure:"config_dir"`
	Player1Type    string   `mapstructure:"player1_type"`
	Player2Type    string   `mapstructure:"player2_type"`
	Player1Profile string   `mapstructure:"player1_profile"`
	Player2Profile string   `mapstructure:"player2_profile"`
	TrueRandomRate float64  `mapstructure:"true_random_rate"`
	SuppressOutput bool     `mapstructure:"suppress_output"`
	ExtraArgs      []string `mapstructure:"extra_args"`
}

// SelfPlayConfig holds session scheduling settings
type SelfPlayConfig struct {
	Parallelism int `mapstructure:"parallelism"`
}

// ServerConfig holds the model serving process settings
type ServerConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	HealthAttempts int           `mapstructure:"health_attempts"`
	HealthBackoff  time.Duration `mapstructure:"health_backoff"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	network := qlearning.DefaultNetworkConfig()
	learner := qlearning.DefaultLearnerConfig()
	engine := selfplay.DefaultEngineConfig()
	server := serving.DefaultConfig()

	// Training defaults
	v.SetDefault("training.max_epochs", 500)
	v.SetDefault("training.max_sessions", 100)
	v.SetDefault("training.learning_rate", learner.LearningRate)
	v.SetDefault("training.discount_rate", learner.DiscountRate)
	v.SetDefault("training.exploration.initial", 1.0)
	v.SetDefault("training.exploration.decay", 0.99)
	v.SetDefault("training.output_dir", "./data/training")
	v.SetDefault("training.cleanup", true)

	// Model defaults
	v.SetDefault("model.checkpoint", "./data/model/t3-simple1.json")
	v.SetDefault("model.board_size", network.BoardSize)
	v.SetDefault("model.hidden_layers", network.HiddenLayers)
	v.SetDefault("model.init_std_dev", network.InitStdDev)

	v.SetDefault("stats.file", "./data/model/t3-stats.json")

	// Engine defaults
	v.SetDefault("engine.command", engine.Command)
	v.SetDefault("engine.script", engine.Script)
	v.SetDefault("engine.config_dir", engine.ConfigDir)
	v.SetDefault("engine.player1_type", engine.Player1Type)
	v.SetDefault("engine.player2_type", engine.Player2Type)
	v.SetDefault("engine.player1_profile", engine.Player1Profile)
	v.SetDefault("engine.player2_profile", engine.Player2Profile)
	v.SetDefault("engine.true_random_rate", engine.TrueRandomRate)
	v.SetDefault("engine.suppress_output", engine.SuppressOutput)
	v.SetDefault("engine.extra_args", []string{})

	v.SetDefault("selfplay.parallelism", 1)

	// Serving process defaults
	v.SetDefault("server.url", server.BaseURL)
	v.SetDefault("server.timeout", server.Timeout)
	v.SetDefault("server.health_attempts", server.HealthAttempts)
	v.SetDefault("server.health_backoff", server.HealthBackoff)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// flagKeys maps command line flags to config keys
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"max-epochs":   "training.max_epochs",
	"max-sessions": "training.max_sessions",
	"server-url":   "server.url",
	"output-dir":   "training.output_dir",
	"parallelism":  "selfplay.parallelism",
}

// RegisterFlags adds the trainer's override flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.Int("max-epochs", 0, "Number of training epochs")
	fs.Int("max-sessions", 0, "Self-play sessions per epoch")
	fs.String("server-url", "", "Base URL of the model serving process")
	fs.String("output-dir", "", "Directory the engine writes session logs to")
	fs.Int("parallelism", 0, "Concurrent self-play sessions")
}

// New creates a viper instance with defaults and environment overrides
func New() *viper.Viper {
	v := viper.New()

	// Set defaults before loading any config
	setViperDefaults(v)

	v.SetEnvPrefix("T3RL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. Values are resolved from flags, then
// environment variables, then the config file, then defaults. fs may be nil.
func Load(v *viper.Viper, configPath string, fs *pflag.FlagSet) (*Config, error) {
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/t3-trainer")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file in the default locations; use defaults
	}

	return decode(v)
}

// MergeEnvironmentConfig overlays config.<env>.yaml from the loaded config's directory
func MergeEnvironmentConfig(v *viper.Viper, dir, env string) (*Config, error) {
	if env == "" {
		return decode(v)
	}

	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		return decode(v)
	}

	base := v.ConfigFileUsed()
	v.SetConfigFile(envFile)
	err := v.MergeInConfig()
	if base != "" {
		// Keep watching the main config file
		v.SetConfigFile(base)
	}
	if err != nil {
		return nil, fmt.Errorf("error merging environment config %s: %w", envFile, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// WatchLogLevel calls onChange with the new log level whenever the config
// file changes. Training parameters are never reloaded.
func WatchLogLevel(v *viper.Viper, onChange func(level string)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Has(fsnotify.Write) || e.Has(fsnotify.Create) {
			onChange(v.GetString("log.level"))
		}
	})
	v.WatchConfig()
}

// Validate validates the configuration values
func Validate(c *Config) error {
	if c.Training.MaxEpochs <= 0 {
		return fmt.Errorf("training.max_epochs must be positive")
	}
	if c.Training.MaxSessions <= 0 {
		return fmt.Errorf("training.max_sessions must be positive")
	}
	if c.Training.LearningRate <= 0 {
		return fmt.Errorf("training.learning_rate must be positive")
	}
	if !common.IsProbability(c.Training.DiscountRate) {
		return fmt.Errorf("training.discount_rate must be between 0 and 1")
	}
	if !common.IsProbability(c.Training.Exploration.Initial) {
		return fmt.Errorf("training.exploration.initial must be between 0 and 1")
	}
	if c.Training.Exploration.Decay <= 0 || c.Training.Exploration.Decay > 1 {
		return fmt.Errorf("training.exploration.decay must be in (0, 1]")
	}
	if c.Training.OutputDir == "" {
		return fmt.Errorf("training.output_dir must be set")
	}

	if c.Model.Checkpoint == "" {
		return fmt.Errorf("model.checkpoint must be set")
	}
	if c.Model.BoardSize <= 0 {
		return fmt.Errorf("model.board_size must be positive")
	}
	for i, n := range c.Model.HiddenLayers {
		if n <= 0 {
			return fmt.Errorf("model.hidden_layers[%d] must be positive", i)
		}
	}
	if c.Stats.File == "" {
		return fmt.Errorf("stats.file must be set")
	}

	if c.Engine.Command == "" {
		return fmt.Errorf("engine.command must be set")
	}
	if !common.IsProbability(c.Engine.TrueRandomRate) {
		return fmt.Errorf("engine.true_random_rate must be between 0 and 1")
	}
	if c.SelfPlay.Parallelism <= 0 {
		return fmt.Errorf("selfplay.parallelism must be positive")
	}

	if c.Server.URL == "" {
		return fmt.Errorf("server.url must be set")
	}
	if c.Server.HealthAttempts <= 0 {
		return fmt.Errorf("server.health_attempts must be positive")
	}
	if c.Server.HealthBackoff < 0 {
		return fmt.Errorf("server.health_backoff must be non-negative")
	}

	return nil
}

// Network returns the approximator architecture
func (c *Config) Network() qlearning.NetworkConfig {
	return qlearning.NetworkConfig{
		BoardSize:    c.Model.BoardSize,
		HiddenLayers: c.Model.HiddenLayers,
		InitStdDev:   c.Model.InitStdDev,
	}
}

// Learner returns the Q-learning hyperparameters
func (c *Config) Learner() qlearning.LearnerConfig {
	return qlearning.LearnerConfig{
		LearningRate: c.Training.LearningRate,
		DiscountRate: c.Training.DiscountRate,
	}
}

// EngineInvocation returns the engine command settings
func (c *Config) EngineInvocation() selfplay.EngineConfig {
	return selfplay.EngineConfig{
		Command:        c.Engine.Command,
		Script:         c.Engine.Script,
		ConfigDir:      c.Engine.ConfigDir,
		Player1Type:    c.Engine.Player1Type,
		Player2Type:    c.Engine.Player2Type,
		Player1Profile: c.Engine.Player1Profile,
		Player2Profile: c.Engine.Player2Profile,
		TrueRandomRate: c.Engine.TrueRandomRate,
		SuppressOutput: c.Engine.SuppressOutput,
		ExtraArgs:      c.Engine.ExtraArgs,
	}
}

// Serving returns the serving client settings
func (c *Config) Serving() serving.Config {
	return serving.Config{
		BaseURL:        c.Server.URL,
		Timeout:        c.Server.Timeout,
		HealthAttempts: c.Server.HealthAttempts,
		HealthBackoff:  c.Server.HealthBackoff,
	}
}

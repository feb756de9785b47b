package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/config"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/experience"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/qlearning"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/selfplay"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/serving"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/stats"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/training"
	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"
)

func main() {
	fs := pflag.NewFlagSet("trainer", pflag.ExitOnError)
	config.RegisterFlags(fs)
	fs.Parse(os.Args[1:])
	configPath, _ := fs.GetString("config")

	v := config.New()
	cfg, err := config.Load(v, configPath, fs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Overlay config.<env>.yaml next to the main config file
	if env := os.Getenv("APP_ENV"); env != "" && v.ConfigFileUsed() != "" {
		cfg, err = config.MergeEnvironmentConfig(v, filepath.Dir(v.ConfigFileUsed()), env)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to merge environment config")
		}
	}

	setupLogging(cfg.Log.Level, cfg.Log.Format)
	if v.ConfigFileUsed() != "" {
		config.WatchLogLevel(v, func(level string) {
			zerolog.SetGlobalLevel(parseLevel(level))
			log.Info().Str("level", level).Msg("Log level changed")
		})
	}

	runID := uuid.New().String()
	logger := log.Logger.With().Str("run_id", runID).Logger()

	logger.Info().
		Int("max_epochs", cfg.Training.MaxEpochs).
		Int("max_sessions", cfg.Training.MaxSessions).
		Float64("learning_rate", cfg.Training.LearningRate).
		Float64("discount_rate", cfg.Training.DiscountRate).
		Str("checkpoint", cfg.Model.Checkpoint).
		Str("server_url", cfg.Server.URL).
		Msg("Starting trainer")

	policy, resumed, err := qlearning.LoadOrNew(cfg.Model.Checkpoint, cfg.Network())
	if err != nil {
		logger.Fatal().Err(err).Str("checkpoint", cfg.Model.Checkpoint).Msg("Failed to load model")
	}
	if resumed {
		logger.Info().Str("checkpoint", cfg.Model.Checkpoint).Msg("Resuming from checkpoint")
	} else {
		logger.Info().Ints("hidden_layers", cfg.Model.HiddenLayers).Msg("Initialized new model")
	}

	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := serving.NewClient(cfg.Serving(), logger)
	if err := server.WaitUntilAlive(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Model server did not come up")
	}

	learner := qlearning.NewLearner(policy, cfg.Learner(), logger)
	player := selfplay.NewRunner(cfg.EngineInvocation(), cfg.Training.OutputDir, cfg.SelfPlay.Parallelism, logger)
	builder := experience.NewBuilder(trajectory.FileSource{Dir: cfg.Training.OutputDir}, logger)
	history := stats.NewHistory(runID, cfg.Training.MaxEpochs, cfg.Training.MaxSessions)

	driver := training.NewDriver(training.Config{
		MaxEpochs:          cfg.Training.MaxEpochs,
		MaxSessions:        cfg.Training.MaxSessions,
		InitialExploration: cfg.Training.Exploration.Initial,
		ExplorationDecay:   cfg.Training.Exploration.Decay,
		OutputDir:          cfg.Training.OutputDir,
		Cleanup:            cfg.Training.Cleanup,
		CheckpointPath:     cfg.Model.Checkpoint,
		StatsPath:          cfg.Stats.File,
	}, learner, player, builder, server, history, logger)

	if err := driver.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Training failed")
	}

	logger.Info().Str("stats", cfg.Stats.File).Msg("Training finished")
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func setupLogging(level, format string) {
	zerolog.SetGlobalLevel(parseLevel(level))

	if os.Getenv("APP_ENV") == "production" || format == "json" {
		// JSON output for production
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
}

package selfplay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/mitchelldurbincs/T3ReinforcementLearning/internal/trajectory"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEngineFailed is returned when a self-play session process exits unsuccessfully
	ErrEngineFailed = errors.New("game engine failed")
)

// EngineConfig describes how to invoke the external game engine
type EngineConfig struct {
	Command        string
	Script         string
	ConfigDir      string
	Player1Type    string
	Player2Type    string
	Player1Profile string
	Player2Profile string
	TrueRandomRate float64
	SuppressOutput bool
	ExtraArgs      []string
}

// DefaultEngineConfig returns the engine setup used for training: the RL
// agent in seat 1 against a random player.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Command:        "node",
		Script:         "../game/build/tic-tac-toe.console.js",
		ConfigDir:      "../game/config",
		Player1Type:    "RLWebAgentPlayer",
		Player2Type:    "RandomPlayer",
		Player1Profile: "rl-agent-1",
		TrueRandomRate: 0.5,
		SuppressOutput: true,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Args returns the engine command line for one session
func (c EngineConfig) Args(outDir, session string, explorationRate float64) []string {
	var args []string
	if c.Script != "" {
		args = append(args, c.Script)
	}
	args = append(args,
		"--player1Type", c.Player1Type,
		"--player2Type", c.Player2Type,
	)
	if c.Player1Profile != "" {
		args = append(args, "--player1Profile", c.Player1Profile)
	}
	if c.Player2Profile != "" {
		args = append(args, "--player2Profile", c.Player2Profile)
	}
	args = append(args, "--trueRandomRate", formatFloat(c.TrueRandomRate))
	if c.SuppressOutput {
		args = append(args, "--suppressOutput")
	}
	if c.ConfigDir != "" {
		args = append(args, "--configDir", c.ConfigDir)
	}
	args = append(args,
		"--outdir", outDir,
		"--sessionName", session,
		"--explorationRate", formatFloat(explorationRate),
	)
	return append(args, c.ExtraArgs...)
}

// CommandFunc builds the process for a session
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Runner launches the self-play sessions of an epoch
type Runner struct {
	engine      EngineConfig
	outDir      string
	parallelism int
	command     CommandFunc
	logger      zerolog.Logger
}

// NewRunner creates a runner writing session logs into outDir. At most
// parallelism sessions run at once.
func NewRunner(engine EngineConfig, outDir string, parallelism int, logger zerolog.Logger) *Runner {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Runner{
		engine:      engine,
		outDir:      outDir,
		parallelism: parallelism,
		command:     exec.CommandContext,
		logger:      logger.With().Str("component", "selfplay_runner").Logger(),
	}
}

// WithCommand replaces how session processes are created
func (r *Runner) WithCommand(fn CommandFunc) *Runner {
	r.command = fn
	return r
}

// Play runs sessions 0..sessions-1 of the epoch and returns once every
// session finished. The first failing session fails the epoch.
func (r *Runner) Play(ctx context.Context, epoch, sessions int, explorationRate float64) error {
	if err := os.MkdirAll(r.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i := 0; i < sessions; i++ {
		session := trajectory.SessionName(epoch, i)
		g.Go(func() error {
			return r.runSession(ctx, session, explorationRate)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info().
		Int("epoch", epoch).
		Int("sessions", sessions).
		Float64("exploration_rate", explorationRate).
		Dur("duration", time.Since(start)).
		Msg("Self-play complete")
	return nil
}

func (r *Runner) runSession(ctx context.Context, session string, explorationRate float64) error {
	logger := r.logger.With().Str("session", session).Logger()

	cmd := r.command(ctx, r.engine.Command, r.engine.Args(r.outDir, session, explorationRate)...)
	cmd.Stdout = logger
	cmd.Stderr = logger

	logger.Debug().Strs("args", cmd.Args).Msg("Starting session")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: session %s: %v", ErrEngineFailed, session, err)
	}
	return nil
}

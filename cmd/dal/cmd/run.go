package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/internal/runtime"
	"github.com/msto63/dal/internal/store"
)

var (
	runCaller  string
	runMode    string
	runTimeout time.Duration
	runEvents  bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Execute a DAL program",
	Long: `Compiles a program, runs its top-level statements and then calls main.

@secure calls authenticate against --caller (or engine.caller from the
config file). --mode overrides the advanced security mode.

Examples:
  dal run vault.dal
  dal run --caller 0x742d35Cc6634C0532925a3b844Bc454e4438f44e vault.dal
  dal run --mode strict --events trading.dal`,
	Args: cobra.ExactArgs(1),
	RunE: runProgram,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runCaller, "caller", "", "caller identity for @secure calls")
	runCmd.Flags().StringVar(&runMode, "mode", "", "advanced security mode: monitor, advisory or strict")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "abort the run after this duration (0 = no limit)")
	runCmd.Flags().BoolVar(&runEvents, "events", false, "print emitted events after the run")
}

func runProgram(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runTimeout)
		defer cancel()
	}

	s, err := newSession(ctx, cfg, logger, sessionOptions{
		caller: runCaller,
		mode:   runMode,
		output: cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	defer s.Close()

	path := args[0]
	program, err := s.compiler.CompileFile(path)
	if err != nil {
		return err
	}

	run := &store.RunRecord{
		ID:        uuid.New().String(),
		File:      path,
		Caller:    s.caller,
		Status:    store.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if s.store != nil {
		if err := s.store.CreateRun(ctx, run); err != nil {
			logger.WarnWithErr("Failed to record run", err, mdwlog.Fields{"file": path})
		}
	}

	execErr := s.engine.Execute(ctx, program)
	if waitErr := s.agents.WaitAll(ctx); waitErr != nil && execErr == nil {
		logger.WarnWithErr("Agents did not finish cleanly", waitErr)
	}

	store.Finish(run, runtime.Null, execErr)
	if s.store != nil {
		if err := s.store.FinishRun(context.Background(), run); err != nil {
			logger.WarnWithErr("Failed to record run outcome", err, mdwlog.Fields{"run": run.ID})
		}
	}
	logger.Info("Run finished", mdwlog.Fields{
		"run":         run.ID,
		"status":      run.Status,
		"duration_ms": run.Duration,
	})

	if runEvents {
		for _, ev := range s.engine.Events() {
			fmt.Fprintf(cmd.OutOrStdout(), "event %s %v\n", ev.Name, ev.Data)
		}
	}
	return execErr
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"cpsnap/internal/logging"
	"cpsnap/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var overrides snapshotOverrides
	var classpathFlag string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch [roots...]",
		Short: "Poll a classpath and report every change",
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := collectRoots(args, classpathFlag)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			snapshotter, _, err := ctx.snapshotter(overrides)
			if err != nil {
				return err
			}

			lockPath := cfg.WatchLockPath()
			lock := flock.New(lockPath)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire watch lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another cpsnap watch is already running (lock %s)", lockPath)
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release watch lock",
						logging.String(logging.FieldEventType, "watch_unlock_failed"),
						logging.Error(err),
						logging.String(logging.FieldErrorHint, "remove "+lockPath+" if no watcher is running"),
						logging.String(logging.FieldImpact, "the next watch may refuse to start"))
				}
			}()

			if interval <= 0 {
				interval = time.Duration(cfg.Watch.IntervalSeconds) * time.Second
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			w, err := watch.ForRoots(snapshotter, roots.Files(), watch.Options{
				Interval: interval,
				Logger:   logger,
				OnChange: func(_ context.Context, change watch.Change) error {
					line := renderStatusLine(change.DetectedAt.Local().Format(time.TimeOnly), statusWarn,
						change.Difference.String(), colorize)
					_, err := fmt.Fprintln(out, line)
					return err
				},
			})
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(ctx.runContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			stats := w.Stats()
			fmt.Fprintf(out, "Stopped after %d checks, %d changes, %d errors\n",
				stats.Checks, stats.ChangesDetected, stats.Errors)
			return nil
		},
	}

	overrides.register(cmd)
	cmd.Flags().StringVar(&classpathFlag, "classpath", "", "Classpath list joined with the OS path list separator")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval (defaults to watch.interval_seconds)")
	return cmd
}

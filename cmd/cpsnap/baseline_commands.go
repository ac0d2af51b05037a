package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cpsnap/internal/baseline"
	"cpsnap/internal/classpath"
	"cpsnap/internal/logging"
	"cpsnap/internal/snapshot"
)

// errClassPathChanged makes check exit with status 2 after it has printed
// its report.
var errClassPathChanged = errors.New("classpath changed since baseline was recorded")

// absoluteRoots resolves relative entries against the working directory so a
// later check finds the same files from anywhere. Order and duplicates are
// kept.
func absoluteRoots(cp classpath.ClassPath) (classpath.ClassPath, error) {
	entries := cp.Files()
	for i, entry := range entries {
		abs, err := filepath.Abs(entry)
		if err != nil {
			return cp, fmt.Errorf("resolve root %s: %w", entry, err)
		}
		entries[i] = abs
	}
	return classpath.Of(entries...), nil
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var overrides snapshotOverrides
	var classpathFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "record <name> [roots...]",
		Short: "Snapshot a classpath and store it as a named baseline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			roots, err := collectRoots(args[1:], classpathFlag)
			if err != nil {
				return err
			}
			if roots, err = absoluteRoots(roots); err != nil {
				return err
			}
			snapshotter, settings, err := ctx.snapshotter(overrides)
			if err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd)
			snap, err := snapshotter.SnapshotClassPath(runCtx, roots)
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *baseline.Store) error {
				rec, err := store.Record(runCtx, name, roots.Files(), baseline.Settings{
					Algorithm: settings.Algorithm,
					OnError:   settings.OnError,
				}, snap)
				if err != nil {
					return err
				}
				if logger, err := ctx.ensureLogger(); err == nil {
					logging.WithContext(runCtx, logger).Info("baseline recorded",
						logging.String(logging.FieldEventType, "baseline_recorded"),
						logging.String("baseline", rec.Name),
						logging.String("run_id", rec.RunID),
						logging.String(logging.FieldDigest, rec.Digest.String()),
						logging.Int("file_count", len(rec.Files)))
				}
				if jsonOutput {
					return writeJSON(cmd, newBaselineView(rec))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded baseline %q: %s (%d files)\n", rec.Name, rec.Digest, len(rec.Files))
				return nil
			})
		},
	}

	overrides.register(cmd)
	cmd.Flags().StringVar(&classpathFlag, "classpath", "", "Classpath list joined with the OS path list separator")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

type checkView struct {
	Baseline string `json:"baseline"`
	Changed  bool   `json:"changed"`
	Recorded string `json:"recorded_digest"`
	Current  string `json:"current_digest"`
	Summary  string `json:"summary"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var onError string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check <name>",
		Short: "Re-snapshot a baseline's roots and report whether they changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.runContext(cmd)
			return ctx.withStore(func(store *baseline.Store) error {
				rec, err := store.Load(runCtx, args[0])
				if err != nil {
					return err
				}
				// The recorded algorithm wins so digests stay comparable. The
				// recorded failure policy applies unless --on-error is given.
				policy := rec.OnError
				if onError != "" {
					policy = onError
				}
				snapshotter, _, err := ctx.snapshotter(snapshotOverrides{algorithm: rec.Algorithm, onError: policy})
				if err != nil {
					return err
				}
				current, err := snapshotter.SnapshotClassPath(runCtx, classpath.Of(rec.Roots...))
				if err != nil {
					return err
				}

				diff := snapshot.Compare(rec.Snapshot(), current)
				view := checkView{
					Baseline: rec.Name,
					Changed:  !diff.Equal(),
					Recorded: rec.Digest.String(),
					Current:  current.Digest().String(),
					Summary:  diff.String(),
				}
				if jsonOutput {
					if err := writeJSON(cmd, view); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					colorize := shouldColorize(out)
					if view.Changed {
						fmt.Fprintln(out, renderStatusLine(rec.Name, statusWarn, "changed", colorize))
					} else {
						fmt.Fprintln(out, renderStatusLine(rec.Name, statusOK, "unchanged", colorize))
					}
					fmt.Fprintf(out, "  Recorded: %s (%s)\n", view.Recorded, rec.RecordedAt.Local().Format(time.DateTime))
					fmt.Fprintf(out, "  Current:  %s\n", view.Current)
					if view.Changed {
						fmt.Fprintf(out, "  %s\n", view.Summary)
					}
				}
				if view.Changed {
					return errClassPathChanged
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&onError, "on-error", "", "Failure policy for unreadable entries (abort, skip); defaults to the recorded policy")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

type baselineView struct {
	Name       string   `json:"name"`
	RunID      string   `json:"run_id"`
	Algorithm  string   `json:"algorithm"`
	OnError    string   `json:"on_error"`
	Digest     string   `json:"digest"`
	Roots      []string `json:"roots"`
	FileCount  int      `json:"file_count"`
	RecordedAt string   `json:"recorded_at"`
}

func newBaselineView(rec *baseline.Record) baselineView {
	return baselineView{
		Name:       rec.Name,
		RunID:      rec.RunID,
		Algorithm:  rec.Algorithm,
		OnError:    rec.OnError,
		Digest:     rec.Digest.String(),
		Roots:      rec.Roots,
		FileCount:  len(rec.Files),
		RecordedAt: rec.RecordedAt.Format(time.RFC3339),
	}
}

func newBaselineCommand(ctx *commandContext) *cobra.Command {
	baselineCmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage recorded baselines",
	}
	baselineCmd.AddCommand(newBaselineListCommand(ctx))
	baselineCmd.AddCommand(newBaselineDeleteCommand(ctx))
	return baselineCmd
}

func newBaselineListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *baseline.Store) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				views := make([]baselineView, 0, len(records))
				for _, rec := range records {
					views = append(views, newBaselineView(rec))
				}
				if jsonOutput {
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No baselines recorded")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{v.Name, v.Algorithm, strconv.Itoa(v.FileCount), shortDigest(v.Digest), v.RecordedAt})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Name", "Algorithm", "Files", "Digest", "Recorded"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

func newBaselineDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a recorded baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *baseline.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted baseline %q\n", args[0])
				return nil
			})
		},
	}
}

func shortDigest(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}

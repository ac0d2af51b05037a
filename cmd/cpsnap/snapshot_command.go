package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"cpsnap/internal/classpath"
	"cpsnap/internal/snapshot"
)

type snapshotView struct {
	Digest    string   `json:"digest"`
	Algorithm string   `json:"algorithm"`
	Roots     []string `json:"roots"`
	FileCount int      `json:"file_count"`
	Files     []string `json:"files"`
}

func newSnapshotView(roots classpath.ClassPath, algorithm string, snap snapshot.Snapshot) snapshotView {
	files := snap.Files()
	if files == nil {
		files = []string{}
	}
	return snapshotView{
		Digest:    snap.Digest().String(),
		Algorithm: algorithm,
		Roots:     roots.Files(),
		FileCount: len(files),
		Files:     files,
	}
}

// collectRoots joins positional roots with a --classpath list, positional
// entries first.
func collectRoots(args []string, classpathFlag string) (classpath.ClassPath, error) {
	cp := classpath.Of(args...).Append(classpath.Parse(classpathFlag).Files()...)
	if cp.IsEmpty() {
		return cp, errNoRoots
	}
	return cp, nil
}

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	var overrides snapshotOverrides
	var classpathFlag string
	var jsonOutput bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "snapshot [roots...]",
		Short: "Fingerprint a classpath and print its digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := collectRoots(args, classpathFlag)
			if err != nil {
				return err
			}
			snapshotter, settings, err := ctx.snapshotter(overrides)
			if err != nil {
				return err
			}
			snap, err := snapshotter.SnapshotClassPath(ctx.runContext(cmd), roots)
			if err != nil {
				return err
			}

			view := newSnapshotView(roots, settings.Algorithm, snap)
			if jsonOutput {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			if quiet {
				fmt.Fprintln(out, view.Digest)
				return nil
			}
			printSnapshotSummary(out, view)
			if len(view.Files) > 0 {
				fmt.Fprintln(out, renderFileTable(view.Files))
			}
			return nil
		},
	}

	overrides.register(cmd)
	cmd.Flags().StringVar(&classpathFlag, "classpath", "", "Classpath list joined with the OS path list separator")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the digest")
	return cmd
}

func printSnapshotSummary(out io.Writer, view snapshotView) {
	fmt.Fprintf(out, "Digest:    %s\n", view.Digest)
	fmt.Fprintf(out, "Algorithm: %s\n", view.Algorithm)
	fmt.Fprintf(out, "Roots:     %d\n", len(view.Roots))
	fmt.Fprintf(out, "Files:     %d\n", view.FileCount)
}

func renderFileTable(files []string) string {
	rows := make([][]string, 0, len(files))
	for i, file := range files {
		rows = append(rows, []string{strconv.Itoa(i + 1), file})
	}
	return renderTable([]string{"#", "Path"}, rows, []columnAlignment{alignRight, alignLeft})
}

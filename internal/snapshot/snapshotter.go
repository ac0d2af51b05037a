package snapshot

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"cpsnap/internal/classpath"
	"cpsnap/internal/config"
	"cpsnap/internal/fsys"
	"cpsnap/internal/hashing"
	"cpsnap/internal/logging"
)

// FailurePolicy decides what happens when an entry cannot be probed,
// canonicalized, listed, or hashed.
type FailurePolicy string

const (
	// Abort abandons the whole snapshot and returns the error.
	Abort FailurePolicy = config.OnErrorAbort
	// Skip leaves the entry out of both the digest and the file list and
	// logs a warning for it.
	Skip FailurePolicy = config.OnErrorSkip
)

// DefaultMaxDepth bounds directory nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 512

// ErrDepthExceeded is returned when a directory lies deeper than MaxDepth
// below its root.
var ErrDepthExceeded = errors.New("classpath directory nesting exceeds max depth")

// ParseFailurePolicy validates a policy name.
func ParseFailurePolicy(name string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case Abort, Skip:
		return p, nil
	case "":
		return Abort, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (expected %s or %s)", name, Abort, Skip)
	}
}

// Options configures a Snapshotter.
type Options struct {
	// FS supplies probing, canonicalization, and listing. Defaults to OSFS.
	FS fsys.FS
	// Hasher hashes regular files. Defaults to SHA-256 over FS.
	Hasher hashing.Hasher
	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger   *slog.Logger
	OnError  FailurePolicy
	MaxDepth int
}

// Snapshotter computes classpath snapshots. It keeps no per-call state and
// is safe for concurrent use.
type Snapshotter struct {
	fs       fsys.FS
	hasher   hashing.Hasher
	logger   *slog.Logger
	onError  FailurePolicy
	maxDepth int
}

// NewSnapshotter applies defaults to opts and returns a Snapshotter.
func NewSnapshotter(opts Options) *Snapshotter {
	if opts.FS == nil {
		opts.FS = fsys.NewOSFS()
	}
	if opts.Hasher == nil {
		opts.Hasher = hashing.NewFileHasher(opts.FS, hashing.SHA256)
	}
	if opts.OnError == "" {
		opts.OnError = Abort
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Snapshotter{
		fs:       opts.FS,
		hasher:   opts.Hasher,
		logger:   logging.NewComponentLogger(opts.Logger, "snapshot"),
		onError:  opts.OnError,
		maxDepth: opts.MaxDepth,
	}
}

// NewFromConfig builds a Snapshotter from the [snapshot] config section.
func NewFromConfig(cfg *config.Config, fs fsys.FS, logger *slog.Logger) (*Snapshotter, error) {
	if cfg == nil {
		return nil, errors.New("snapshot: nil config")
	}
	if fs == nil {
		fs = fsys.NewOSFS()
	}
	hasher, err := hashing.New(fs, cfg.Snapshot.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("snapshot.algorithm: %w", err)
	}
	policy, err := ParseFailurePolicy(cfg.Snapshot.OnError)
	if err != nil {
		return nil, fmt.Errorf("snapshot.on_error: %w", err)
	}
	return NewSnapshotter(Options{
		FS:       fs,
		Hasher:   hasher,
		Logger:   logger,
		OnError:  policy,
		MaxDepth: cfg.Snapshot.MaxDepth,
	}), nil
}

// SnapshotClassPath is Snapshot over the entries of cp.
func (s *Snapshotter) SnapshotClassPath(ctx context.Context, cp classpath.ClassPath) (Snapshot, error) {
	return s.Snapshot(ctx, cp.Files())
}

// Snapshot walks roots in order and returns their fingerprint. Roots that do
// not exist contribute nothing. Any other failure is handled according to
// the configured FailurePolicy; cancellation of ctx always aborts.
func (s *Snapshotter) Snapshot(ctx context.Context, roots []string) (Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	w := &walk{
		Snapshotter: s,
		ctx:         ctx,
		logger:      logging.WithContext(ctx, s.logger),
		visitedDirs: make(map[string]struct{}),
		combined:    sha256.New(),
	}

	for _, root := range roots {
		if err := w.visit(root, 0); err != nil {
			return Snapshot{}, err
		}
	}

	var digest Digest
	w.combined.Sum(digest[:0])
	snap := Snapshot{files: w.files, digest: digest}

	w.logger.Debug("classpath snapshot computed",
		logging.String(logging.FieldDigest, digest.String()),
		logging.Int("root_count", len(roots)),
		logging.Int("file_count", len(w.files)),
		logging.Int("directory_count", len(w.visitedDirs)),
		logging.Int("skipped_count", w.skipped),
		logging.Duration("elapsed", time.Since(started)))
	return snap, nil
}

// walk holds the state of one Snapshot call.
type walk struct {
	*Snapshotter
	ctx         context.Context
	logger      *slog.Logger
	visitedDirs map[string]struct{}
	files       []string
	combined    hash.Hash
	skipped     int
}

func (w *walk) visit(path string, depth int) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}

	canonical, err := w.fs.Canonicalize(path)
	if err != nil {
		if fsys.IsNotExist(err) {
			w.logger.Debug("classpath entry missing", logging.String(logging.FieldPath, path))
			return nil
		}
		return w.fail(path, "canonicalize", err)
	}

	info, err := w.fs.Stat(canonical)
	if err != nil {
		if fsys.IsNotExist(err) {
			return nil
		}
		return w.fail(canonical, "stat", err)
	}

	switch {
	case info.IsDir():
		return w.visitDir(canonical, depth)
	case info.Mode().IsRegular():
		return w.visitFile(canonical)
	default:
		// Devices, sockets, and pipes carry no class content.
		return nil
	}
}

func (w *walk) visitDir(dir string, depth int) error {
	if _, seen := w.visitedDirs[dir]; seen {
		return nil
	}
	if depth > w.maxDepth {
		return fmt.Errorf("%w (%d): %s", ErrDepthExceeded, w.maxDepth, dir)
	}
	w.visitedDirs[dir] = struct{}{}

	entries, err := w.fs.ReadDir(dir)
	if err != nil {
		return w.fail(dir, "list", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	slices.Sort(names)

	for _, name := range names {
		if err := w.visit(filepath.Join(dir, name), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) visitFile(file string) error {
	sum, err := w.hasher.Hash(file)
	if err != nil {
		return w.fail(file, "hash", err)
	}
	w.files = append(w.files, file)
	_, _ = w.combined.Write(sum)
	return nil
}

func (w *walk) fail(path, op string, err error) error {
	if w.onError != Skip {
		return fmt.Errorf("snapshot %s %s: %w", op, path, err)
	}
	w.skipped++
	logging.WarnWithContext(w.logger, "classpath entry skipped", "snapshot_entry_skipped",
		logging.String(logging.FieldPath, path),
		logging.String("op", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions on the entry or set snapshot.on_error = \"abort\""),
		logging.String(logging.FieldImpact, "entry excluded from the classpath digest"))
	return nil
}

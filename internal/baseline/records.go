package baseline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"cpsnap/internal/snapshot"
)

// ErrNotFound is returned when no baseline has the requested name.
var ErrNotFound = errors.New("baseline not found")

// Record is one stored baseline.
type Record struct {
	Name       string
	RunID      string
	Algorithm  string
	OnError    string
	Roots      []string
	Files      []string
	Digest     snapshot.Digest
	RecordedAt time.Time
}

// Snapshot rehydrates the recorded snapshot.
func (r *Record) Snapshot() snapshot.Snapshot {
	return snapshot.Of(r.Files, r.Digest)
}

// Matches reports whether snap is Equal to the recorded snapshot.
func (r *Record) Matches(snap snapshot.Snapshot) bool {
	if r == nil {
		return false
	}
	return r.Snapshot().Equal(snap)
}

const recordColumns = "name, run_id, algorithm, on_error, digest, roots_json, files_json, recorded_at"

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("baseline name is required")
	}
	return name, nil
}

// Settings are the snapshotter options a baseline was recorded with. Check
// reuses them so the re-snapshot is comparable.
type Settings struct {
	Algorithm string
	OnError   string
}

// Record stores snap under name, replacing any previous baseline with that
// name.
func (s *Store) Record(ctx context.Context, name string, roots []string, settings Settings, snap snapshot.Snapshot) (*Record, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	rec := &Record{
		Name:       name,
		RunID:      uuid.NewString(),
		Algorithm:  strings.TrimSpace(settings.Algorithm),
		OnError:    strings.TrimSpace(settings.OnError),
		Roots:      slices.Clone(roots),
		Files:      snap.Files(),
		Digest:     snap.Digest(),
		RecordedAt: time.Now().UTC(),
	}
	if rec.Roots == nil {
		rec.Roots = []string{}
	}
	if rec.Files == nil {
		rec.Files = []string{}
	}

	rootsJSON, err := json.Marshal(rec.Roots)
	if err != nil {
		return nil, fmt.Errorf("marshal roots: %w", err)
	}
	filesJSON, err := json.Marshal(rec.Files)
	if err != nil {
		return nil, fmt.Errorf("marshal files: %w", err)
	}

	_, err = s.execWithRetry(ctx,
		`INSERT INTO baselines (
            name, run_id, algorithm, on_error, digest, roots_json, files_json, file_count, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            run_id = excluded.run_id,
            algorithm = excluded.algorithm,
            on_error = excluded.on_error,
            digest = excluded.digest,
            roots_json = excluded.roots_json,
            files_json = excluded.files_json,
            file_count = excluded.file_count,
            recorded_at = excluded.recorded_at`,
		rec.Name,
		rec.RunID,
		rec.Algorithm,
		rec.OnError,
		rec.Digest.String(),
		string(rootsJSON),
		string(filesJSON),
		len(rec.Files),
		rec.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("record baseline %s: %w", name, err)
	}
	return rec, nil
}

// Load returns the baseline stored under name.
func (s *Store) Load(ctx context.Context, name string) (*Record, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM baselines WHERE name = ?`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load baseline %s: %w", name, err)
	}
	return rec, nil
}

// List returns every baseline ordered by name.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM baselines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan baseline: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baselines: %w", err)
	}
	return records, nil
}

// Delete removes the baseline stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	name, err := validateName(name)
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM baselines WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete baseline %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete baseline %s: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec        Record
		digestHex  string
		rootsJSON  string
		filesJSON  string
		recordedAt string
	)
	if err := row.Scan(&rec.Name, &rec.RunID, &rec.Algorithm, &rec.OnError, &digestHex, &rootsJSON, &filesJSON, &recordedAt); err != nil {
		return nil, err
	}
	digest, err := snapshot.ParseDigest(digestHex)
	if err != nil {
		return nil, err
	}
	rec.Digest = digest
	if err := json.Unmarshal([]byte(rootsJSON), &rec.Roots); err != nil {
		return nil, fmt.Errorf("decode roots: %w", err)
	}
	if err := json.Unmarshal([]byte(filesJSON), &rec.Files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	if rec.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return nil, fmt.Errorf("parse recorded_at: %w", err)
	}
	return &rec, nil
}

package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/l1jgo/pathfinder/internal/pathfind"
	"github.com/l1jgo/pathfinder/internal/world"
)

var ErrSnapshotNotFound = errors.New("replay snapshot not found")

// ReplayRecord is one recorded search: the map as the search saw it, the
// request, and what the search produced.
type ReplayRecord struct {
	ID         int64
	MapID      int16
	Label      string
	Snapshot   world.Snapshot
	Request    pathfind.Request
	Heuristic  string
	Found      bool
	Cost       int
	PathLen    int
	Closed     int
	Duration   time.Duration
	RecordedAt time.Time

	// fingerprint is filled lazily from Snapshot.
	fingerprint   string
	packedAllowed []byte
}

// Fingerprint identifies the record's snapshot.
func (r *ReplayRecord) Fingerprint() string {
	if r.fingerprint == "" {
		r.fingerprint = r.Snapshot.Fingerprint()
	}
	return r.fingerprint
}

// ReplayRepo stores recorded searches. Snapshots are shared by fingerprint.
type ReplayRepo struct {
	db *DB
}

func NewReplayRepo(db *DB) *ReplayRepo {
	return &ReplayRepo{db: db}
}

// Record stores a single search.
func (r *ReplayRepo) Record(ctx context.Context, rec ReplayRecord) error {
	return r.Save(ctx, []ReplayRecord{rec})
}

// Save atomically writes a batch of records in a single transaction.
func (r *ReplayRepo) Save(ctx context.Context, recs []ReplayRecord) error {
	if len(recs) == 0 {
		return nil
	}
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		seen := make(map[string]bool, len(recs))
		for i := range recs {
			rec := &recs[i]
			fp := rec.Fingerprint()
			if !seen[fp] {
				seen[fp] = true
				s := rec.Snapshot
				if _, err := tx.Exec(ctx,
					`INSERT INTO replay_snapshots (fingerprint, width, height, terrain, obstacles, danger)
					 VALUES ($1, $2, $3, $4, $5, $6)
					 ON CONFLICT (fingerprint) DO NOTHING`,
					fp, s.Width, s.Height, s.EncodeTerrain(), s.Obstacles, s.Danger,
				); err != nil {
					return fmt.Errorf("replay snapshot insert: %w", err)
				}
			}

			q := rec.Request
			p := q.Policy
			if _, err := tx.Exec(ctx,
				`INSERT INTO replay_searches (fingerprint, map_id, label,
				        start_x, start_z, dest_min_x, dest_min_z, dest_max_x, dest_max_z, end_mode,
				        mode, move_cardinal, move_diagonal, avoid_weight, max_danger, avoid, allowed,
				        heuristic, found, cost, path_len, closed_cells, duration_us)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
				         $18, $19, $20, $21, $22, $23)`,
				fp, rec.MapID, rec.Label,
				q.Start.X, q.Start.Z, q.Dest.MinX, q.Dest.MinZ, q.Dest.MaxX, q.Dest.MaxZ, int16(q.EndMode),
				int16(p.Mode), p.MoveCardinal, p.MoveDiagonal, p.AvoidWeight, int16(p.MaxDanger), p.Avoid, packMask(p.Allowed),
				rec.Heuristic, rec.Found, rec.Cost, rec.PathLen, rec.Closed, rec.Duration.Microseconds(),
			); err != nil {
				return fmt.Errorf("replay search insert: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay save: %w", err)
	}
	return nil
}

// List loads the newest recorded searches, oldest first. limit <= 0 loads all.
// Snapshots are not loaded; fetch them with LoadSnapshot and Attach them.
func (r *ReplayRepo) List(ctx context.Context, mapID int16, limit int) ([]ReplayRecord, error) {
	sql := `SELECT * FROM (
	          SELECT id, fingerprint, map_id, label,
	                 start_x, start_z, dest_min_x, dest_min_z, dest_max_x, dest_max_z, end_mode,
	                 mode, move_cardinal, move_diagonal, avoid_weight, max_danger, avoid, allowed,
	                 heuristic, found, cost, path_len, closed_cells, duration_us, recorded_at
	          FROM replay_searches
	          WHERE ($1 = 0 OR map_id = $1)
	          ORDER BY id DESC`
	args := []any{mapID}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}
	sql += `) newest ORDER BY id`

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReplayRecord
	for rows.Next() {
		var rec ReplayRecord
		var endMode, mode, danger int16
		var durationUS int64
		q := &rec.Request
		if err := rows.Scan(
			&rec.ID, &rec.fingerprint, &rec.MapID, &rec.Label,
			&q.Start.X, &q.Start.Z, &q.Dest.MinX, &q.Dest.MinZ, &q.Dest.MaxX, &q.Dest.MaxZ, &endMode,
			&mode, &q.Policy.MoveCardinal, &q.Policy.MoveDiagonal, &q.Policy.AvoidWeight, &danger, &q.Policy.Avoid, &rec.packedAllowed,
			&rec.Heuristic, &rec.Found, &rec.Cost, &rec.PathLen, &rec.Closed, &durationUS, &rec.RecordedAt,
		); err != nil {
			return nil, err
		}
		q.EndMode = pathfind.EndMode(endMode)
		q.Policy.Mode = pathfind.Mode(mode)
		q.Policy.MaxDanger = pathfind.Danger(danger)
		rec.Duration = time.Duration(durationUS) * time.Microsecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Attach sets the snapshot of a record loaded by List and restores its
// allowed mask, which is stored packed and needs the map size.
func (r *ReplayRecord) Attach(s world.Snapshot) {
	r.Snapshot = s
	if r.packedAllowed != nil {
		r.Request.Policy.Allowed = unpackMask(r.packedAllowed, s.Width*s.Height)
	}
}

// LoadSnapshot loads a stored snapshot by fingerprint.
func (r *ReplayRepo) LoadSnapshot(ctx context.Context, fingerprint string) (world.Snapshot, error) {
	var (
		s       world.Snapshot
		terrain []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT width, height, terrain, obstacles, danger
		 FROM replay_snapshots WHERE fingerprint = $1`, fingerprint,
	).Scan(&s.Width, &s.Height, &terrain, &s.Obstacles, &s.Danger)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, fmt.Errorf("%w: %s", ErrSnapshotNotFound, fingerprint)
	}
	if err != nil {
		return s, err
	}
	if s.Terrain, err = world.DecodeTerrain(terrain); err != nil {
		return s, fmt.Errorf("snapshot %s: %w", fingerprint, err)
	}
	return s, nil
}

// packMask stores a bool mask one bit per cell, LSB first. Nil stays nil.
func packMask(mask []bool) []byte {
	if mask == nil {
		return nil
	}
	out := make([]byte, (len(mask)+7)/8)
	for i, in := range mask {
		if in {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func unpackMask(packed []byte, cells int) []bool {
	if packed == nil {
		return nil
	}
	out := make([]bool, cells)
	for i := range out {
		if i/8 < len(packed) && packed[i/8]&(1<<(i%8)) != 0 {
			out[i] = true
		}
	}
	return out
}

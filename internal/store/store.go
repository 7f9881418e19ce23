package store

import (
	"context"
	"fmt"

	"github.com/andresmejia3/emotiscan/internal/types"
	"github.com/jackc/pgx/v5"
)

// Store mirrors result records into PostgreSQL.
type Store struct {
	conn  *pgx.Conn
	runID string
}

// New establishes a connection to the database and ensures the schema is initialized.
// runID tags every row appended through this Store.
func New(ctx context.Context, connString, runID string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn, runID: runID}, nil
}

// initSchema creates the results table if it doesn't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS face_results (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			image_name TEXT NOT NULL,
			faces_filtered INT NOT NULL,
			color TEXT,
			likelihood_joy TEXT,
			likelihood_sorrow TEXT,
			likelihood_anger TEXT,
			likelihood_surprise TEXT,
			vertices TEXT,
			confidence DOUBLE PRECISION,
			recorded_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS face_results_image_name_idx ON face_results (image_name);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close() error {
	// Use Background here because the run context might be cancelled already (due to Ctrl+C)
	return s.conn.Close(context.Background())
}

// Append inserts one row per record in a single transaction, so an image's
// rows land together or not at all.
func (s *Store) Append(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		var color, joy, sorrow, anger, surprise, vertices *string
		var confidence *float64
		if f := r.Face; f != nil {
			color = &f.Color
			joy, sorrow, anger, surprise = strPtr(f.Joy.String()), strPtr(f.Sorrow.String()), strPtr(f.Anger.String()), strPtr(f.Surprise.String())
			vertices = strPtr(types.FormatVertices(f.Vertices))
			confidence = &f.Confidence
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO face_results (run_id, image_name, faces_filtered, color,
				likelihood_joy, likelihood_sorrow, likelihood_anger, likelihood_surprise,
				vertices, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, s.runID, r.ImageName, r.FacesFiltered, color, joy, sorrow, anger, surprise, vertices, confidence)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListRecords returns every stored record for an image, oldest first.
func (s *Store) ListRecords(ctx context.Context, imageName string) ([]types.Record, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT image_name, faces_filtered, color,
			likelihood_joy, likelihood_sorrow, likelihood_anger, likelihood_surprise,
			vertices, confidence
		FROM face_results WHERE image_name = $1 ORDER BY id ASC
	`, imageName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		var r types.Record
		var color, joy, sorrow, anger, surprise, vertices *string
		var confidence *float64
		if err := rows.Scan(&r.ImageName, &r.FacesFiltered, &color, &joy, &sorrow, &anger, &surprise, &vertices, &confidence); err != nil {
			return nil, err
		}
		if color != nil {
			f := &types.FaceRecord{Color: *color}
			for _, p := range []struct {
				src *string
				dst *types.Likelihood
			}{{joy, &f.Joy}, {sorrow, &f.Sorrow}, {anger, &f.Anger}, {surprise, &f.Surprise}} {
				if p.src == nil {
					continue
				}
				if *p.dst, err = types.ParseLikelihood(*p.src); err != nil {
					return nil, err
				}
			}
			if vertices != nil {
				if f.Vertices, err = types.ParseVertices(*vertices); err != nil {
					return nil, err
				}
			}
			if confidence != nil {
				f.Confidence = *confidence
			}
			r.Face = f
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRow(ctx, "SELECT COUNT(*) FROM face_results").Scan(&n)
	return n, err
}

// Reset drops the results table to clear the database state.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS face_results CASCADE;`)
	return err
}

func strPtr(s string) *string { return &s }

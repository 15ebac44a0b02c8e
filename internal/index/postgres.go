package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresRepository persists the index in a PostgreSQL table.
type PostgresRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresRepository(db *sql.DB, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger}
}

// OpenPostgres connects to the database at dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the index table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS dicom_files (
			sop_instance_uid TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			sop_class_uid TEXT NOT NULL DEFAULT '',
			series_instance_uid TEXT NOT NULL,
			study_instance_uid TEXT NOT NULL DEFAULT '',
			modality TEXT NOT NULL DEFAULT '',
			patient_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS dicom_files_series_idx ON dicom_files (series_instance_uid)`,
		`CREATE INDEX IF NOT EXISTS dicom_files_path_idx ON dicom_files (path)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Insert(ctx context.Context, path string) error {
	rec, err := recordFromFile(path)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO dicom_files (
			sop_instance_uid, path, sop_class_uid, series_instance_uid,
			study_instance_uid, modality, patient_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sop_instance_uid) DO UPDATE SET
			path = EXCLUDED.path,
			sop_class_uid = EXCLUDED.sop_class_uid,
			series_instance_uid = EXCLUDED.series_instance_uid,
			study_instance_uid = EXCLUDED.study_instance_uid,
			modality = EXCLUDED.modality,
			patient_id = EXCLUDED.patient_id
	`
	if _, err := r.db.ExecContext(ctx, query,
		rec.SOPInstanceUID, rec.Path, rec.SOPClassUID, rec.SeriesInstanceUID,
		rec.StudyInstanceUID, rec.Modality, rec.PatientID,
	); err != nil {
		return fmt.Errorf("failed to insert %s: %w", path, err)
	}

	r.logger.Info("Indexed DICOM file",
		zap.String("path", rec.Path),
		zap.String("sop_instance_uid", rec.SOPInstanceUID),
		zap.String("modality", rec.Modality),
	)
	return nil
}

func (r *PostgresRepository) FileForInstance(ctx context.Context, sopInstanceUID string) (string, error) {
	var path string
	err := r.db.QueryRowContext(ctx,
		`SELECT path FROM dicom_files WHERE sop_instance_uid = $1`,
		sopInstanceUID,
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query instance %s: %w", sopInstanceUID, err)
	}
	return path, nil
}

func (r *PostgresRepository) SeriesForFile(ctx context.Context, path string) (string, error) {
	var seriesUID string
	err := r.db.QueryRowContext(ctx,
		`SELECT series_instance_uid FROM dicom_files WHERE path = $1 LIMIT 1`,
		path,
	).Scan(&seriesUID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query file %s: %w", path, err)
	}
	return seriesUID, nil
}

func (r *PostgresRepository) FilesForSeries(ctx context.Context, seriesInstanceUID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT path FROM dicom_files WHERE series_instance_uid = $1 ORDER BY path`,
		seriesInstanceUID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query series %s: %w", seriesInstanceUID, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read series rows: %w", err)
	}
	return paths, nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/jimaku/internal/models"
)

// SQLiteStorage implements VideoStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		lang TEXT NOT NULL,
		subtitles TEXT NOT NULL DEFAULT '[]',
		video_key TEXT NOT NULL DEFAULT '',
		thumbnail_key TEXT NOT NULL DEFAULT '',
		transcript_key TEXT NOT NULL DEFAULT '',
		transcript_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		transcribed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_videos_created_at ON videos(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const videoColumns = `id, title, lang, subtitles, video_key, thumbnail_key,
	transcript_key, transcript_hash, created_at, transcribed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*models.Video, error) {
	var (
		v             models.Video
		subtitlesJSON string
		transcribedAt sql.NullTime
	)
	if err := row.Scan(&v.ID, &v.Title, &v.Language, &subtitlesJSON, &v.VideoKey, &v.ThumbnailKey,
		&v.TranscriptKey, &v.TranscriptHash, &v.CreatedAt, &transcribedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(subtitlesJSON), &v.Subtitles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subtitles of %s: %w", v.ID, err)
	}
	if v.Subtitles == nil {
		v.Subtitles = []string{}
	}
	if transcribedAt.Valid {
		t := transcribedAt.Time
		v.TranscribedAt = &t
	}
	return &v, nil
}

// CreateVideo inserts a video record.
func (s *SQLiteStorage) CreateVideo(ctx context.Context, v *models.Video) error {
	if v.Subtitles == nil {
		v.Subtitles = []string{}
	}
	subtitlesJSON, err := json.Marshal(v.Subtitles)
	if err != nil {
		return fmt.Errorf("failed to marshal subtitles: %w", err)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO videos (`+videoColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Title, v.Language, string(subtitlesJSON), v.VideoKey, v.ThumbnailKey,
		v.TranscriptKey, v.TranscriptHash, v.CreatedAt.UTC(), nullTime(v.TranscribedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: create video %s: %w", models.ErrIO, v.ID, err)
	}
	return nil
}

// GetVideo returns a video by ID.
func (s *SQLiteStorage) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: video %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get video %s: %w", models.ErrIO, id, err)
	}
	return v, nil
}

// ListVideos returns videos, newest first, with offset and limit.
func (s *SQLiteStorage) ListVideos(ctx context.Context, offset, limit int) ([]*models.Video, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list videos: %w", models.ErrIO, err)
	}
	defer rows.Close()

	videos := []*models.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list videos: %w", models.ErrIO, err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list videos: %w", models.ErrIO, err)
	}
	return videos, nil
}

// DeleteVideo removes a video record.
func (s *SQLiteStorage) DeleteVideo(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete video %s: %w", models.ErrIO, id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: video %s", models.ErrNotFound, id)
	}
	return nil
}

// AddSubtitleLanguage adds lang to the subtitle set of a video.
func (s *SQLiteStorage) AddSubtitleLanguage(ctx context.Context, id, lang string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin subtitle update: %w", models.ErrIO, err)
	}
	defer tx.Rollback()

	var subtitlesJSON string
	err = tx.QueryRowContext(ctx, `SELECT subtitles FROM videos WHERE id = ?`, id).Scan(&subtitlesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: video %s", models.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: read subtitles of %s: %w", models.ErrIO, id, err)
	}

	var subtitles []string
	if err := json.Unmarshal([]byte(subtitlesJSON), &subtitles); err != nil {
		return fmt.Errorf("failed to unmarshal subtitles of %s: %w", id, err)
	}
	for _, s := range subtitles {
		if s == lang {
			return nil
		}
	}
	subtitles = append(subtitles, lang)
	encoded, err := json.Marshal(subtitles)
	if err != nil {
		return fmt.Errorf("failed to marshal subtitles: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE videos SET subtitles = ? WHERE id = ?`, string(encoded), id); err != nil {
		return fmt.Errorf("%w: update subtitles of %s: %w", models.ErrIO, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit subtitles of %s: %w", models.ErrIO, id, err)
	}
	return nil
}

// MarkTranscribed stores the transcript key and hash of a video.
func (s *SQLiteStorage) MarkTranscribed(ctx context.Context, id, transcriptKey, hash string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE videos SET transcript_key = ?, transcript_hash = ?, transcribed_at = ? WHERE id = ?`,
		transcriptKey, hash, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("%w: mark %s transcribed: %w", models.ErrIO, id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: video %s", models.ErrNotFound, id)
	}
	return nil
}

// CountVideos returns the total number of videos.
func (s *SQLiteStorage) CountVideos(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count videos: %w", models.ErrIO, err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

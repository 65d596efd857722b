package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/placematch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS places (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	location    TEXT NOT NULL DEFAULT '',
	lat         REAL NOT NULL,
	lng         REAL NOT NULL,
	rating      REAL,
	tags        TEXT NOT NULL DEFAULT '',
	image_url   TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	author_ref  TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS favorites (
	user_ref   TEXT NOT NULL,
	place_id   TEXT NOT NULL REFERENCES places(id),
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (user_ref, place_id)
);

CREATE INDEX IF NOT EXISTS idx_places_lat_lng ON places(lat, lng);
CREATE INDEX IF NOT EXISTS idx_favorites_user_ref ON favorites(user_ref);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const placeColumns = `id, name, location, lat, lng, rating, tags, image_url, source, description, author_ref, created_at`

// FindInBBox returns places whose coordinates fall inside box, edges included.
func (s *SQLiteStore) FindInBBox(ctx context.Context, box model.BBox) ([]model.PlaceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+placeColumns+` FROM places
		WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?
		ORDER BY created_at, id`,
		box.LatMin, box.LatMax, box.LngMin, box.LngMax,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find in bbox")
	}
	defer rows.Close()

	return scanPlaces(rows)
}

// CreatePlace inserts a new place and returns it with its generated ID.
func (s *SQLiteStore) CreatePlace(ctx context.Context, req model.CreateRequest) (*model.PlaceRecord, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	rec := req.Record()
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO places (`+placeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Location, rec.Lat, rec.Lng, rec.Rating, rec.Tags,
		rec.ImageURL, string(rec.Source), rec.Description, rec.AuthorRef, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert place")
	}
	return &rec, nil
}

// ImportPlaces inserts many places in one transaction.
func (s *SQLiteStore) ImportPlaces(ctx context.Context, reqs []model.CreateRequest) (int64, error) {
	if len(reqs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO places (`+placeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for i, req := range reqs {
		if err := validateCreate(req); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import row %d", i)
		}
		rec := req.Record()
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), rec.Name, rec.Location, rec.Lat, rec.Lng, rec.Rating, rec.Tags,
			rec.ImageURL, string(rec.Source), rec.Description, rec.AuthorRef, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import row %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import: commit")
	}
	return int64(len(reqs)), nil
}

// GetPlace fetches a place by ID.
func (s *SQLiteStore) GetPlace(ctx context.Context, id string) (*model.PlaceRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+placeColumns+` FROM places WHERE id = ?`, id)
	p, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: place %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get place")
	}
	return p, nil
}

// AddFavorite marks a place as a favorite of userRef. Repeating it is a no-op.
func (s *SQLiteStore) AddFavorite(ctx context.Context, userRef, placeID string) error {
	if userRef == "" {
		return eris.New("sqlite: favorite requires a user")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (user_ref, place_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_ref, place_id) DO NOTHING`,
		userRef, placeID, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: add favorite")
	}
	return nil
}

// ListFavorites returns userRef's favorite places, most recent first.
func (s *SQLiteStore) ListFavorites(ctx context.Context, userRef string) ([]model.PlaceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.location, p.lat, p.lng, p.rating, p.tags, p.image_url,
		        p.source, p.description, p.author_ref, p.created_at
		FROM favorites f JOIN places p ON p.id = f.place_id
		WHERE f.user_ref = ?
		ORDER BY f.created_at DESC, p.id`,
		userRef,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list favorites")
	}
	defer rows.Close()

	return scanPlaces(rows)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPlace(row scannable) (*model.PlaceRecord, error) {
	var (
		p      model.PlaceRecord
		rating sql.NullFloat64
		source string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Location, &p.Lat, &p.Lng, &rating, &p.Tags,
		&p.ImageURL, &source, &p.Description, &p.AuthorRef, &p.CreatedAt); err != nil {
		return nil, err
	}
	if rating.Valid {
		p.Rating = &rating.Float64
	}
	p.Source = model.Source(source)
	return &p, nil
}

func scanPlaces(rows *sql.Rows) ([]model.PlaceRecord, error) {
	var places []model.PlaceRecord
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}
		places = append(places, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate places")
	}
	return places, nil
}

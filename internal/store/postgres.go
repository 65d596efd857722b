package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/placematch/internal/db"
	"github.com/sells-group/placematch/internal/model"
)

// PostgresStore implements Store using pgxpool and PostGIS.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS places (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	location    TEXT NOT NULL DEFAULT '',
	lat         DOUBLE PRECISION NOT NULL,
	lng         DOUBLE PRECISION NOT NULL,
	geom        geometry(Point, 4326) NOT NULL,
	rating      DOUBLE PRECISION,
	tags        TEXT NOT NULL DEFAULT '',
	image_url   TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	author_ref  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_places_geom ON places USING GIST (geom);

CREATE TABLE IF NOT EXISTS favorites (
	user_ref   TEXT NOT NULL,
	place_id   TEXT NOT NULL REFERENCES places(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_ref, place_id)
);

CREATE INDEX IF NOT EXISTS idx_favorites_user_ref ON favorites(user_ref);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const pgPlaceColumns = `id, name, location, lat, lng, rating, tags, image_url, source, description, author_ref, created_at`

// FindInBBox returns places whose point intersects the envelope, edges included.
func (s *PostgresStore) FindInBBox(ctx context.Context, box model.BBox) ([]model.PlaceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgPlaceColumns+` FROM places
		 WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		 ORDER BY created_at, id`,
		box.LngMin, box.LatMin, box.LngMax, box.LatMax,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find in bbox")
	}
	defer rows.Close()

	return collectPlaces(rows)
}

func (s *PostgresStore) CreatePlace(ctx context.Context, req model.CreateRequest) (*model.PlaceRecord, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	point, err := EncodePoint(req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}

	rec := req.Record()
	rec.ID = uuid.New().String()

	err = s.pool.QueryRow(ctx,
		`INSERT INTO places (id, name, location, lat, lng, geom, tags, image_url, source, description, author_ref)
		 VALUES ($1, $2, $3, $4, $5, ST_GeomFromEWKB($6), $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		rec.ID, rec.Name, rec.Location, rec.Lat, rec.Lng, point,
		rec.Tags, rec.ImageURL, string(rec.Source), rec.Description, rec.AuthorRef,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert place")
	}
	return &rec, nil
}

var importColumns = []string{
	"id", "name", "location", "lat", "lng", "geom", "tags",
	"image_url", "source", "description", "author_ref", "created_at",
}

// ImportPlaces bulk-loads places with COPY.
func (s *PostgresStore) ImportPlaces(ctx context.Context, reqs []model.CreateRequest) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(reqs))
	for i, req := range reqs {
		if err := validateCreate(req); err != nil {
			return 0, eris.Wrapf(err, "postgres: import row %d", i)
		}
		point, err := EncodePoint(req.Lat, req.Lng)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: import row %d", i)
		}
		rows = append(rows, []any{
			uuid.New().String(), req.Name, req.Location, req.Lat, req.Lng, point, req.Tags,
			req.ImageURL, string(req.Source), req.Description, req.AuthorRef, now,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "places", importColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import places")
	}
	return n, nil
}

func (s *PostgresStore) GetPlace(ctx context.Context, id string) (*model.PlaceRecord, error) {
	p, err := scanPgPlace(s.pool.QueryRow(ctx,
		`SELECT `+pgPlaceColumns+` FROM places WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: place %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get place %s", id)
	}
	return p, nil
}

func (s *PostgresStore) AddFavorite(ctx context.Context, userRef, placeID string) error {
	if userRef == "" {
		return eris.New("postgres: favorite requires a user")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO favorites (user_ref, place_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_ref, place_id) DO NOTHING`,
		userRef, placeID, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: add favorite")
}

func (s *PostgresStore) ListFavorites(ctx context.Context, userRef string) ([]model.PlaceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.id, p.name, p.location, p.lat, p.lng, p.rating, p.tags, p.image_url,
		        p.source, p.description, p.author_ref, p.created_at
		 FROM favorites f JOIN places p ON p.id = f.place_id
		 WHERE f.user_ref = $1
		 ORDER BY f.created_at DESC, p.id`,
		userRef,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list favorites")
	}
	defer rows.Close()

	return collectPlaces(rows)
}

func scanPgPlace(row pgx.Row) (*model.PlaceRecord, error) {
	var (
		p      model.PlaceRecord
		source string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Location, &p.Lat, &p.Lng, &p.Rating, &p.Tags,
		&p.ImageURL, &source, &p.Description, &p.AuthorRef, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Source = model.Source(source)
	return &p, nil
}

func collectPlaces(rows pgx.Rows) ([]model.PlaceRecord, error) {
	var places []model.PlaceRecord
	for rows.Next() {
		p, err := scanPgPlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan place")
		}
		places = append(places, *p)
	}
	return places, eris.Wrap(rows.Err(), "postgres: iterate places")
}

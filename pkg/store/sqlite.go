package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codeberg.org/tslocum/tavla"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game (
	id      TEXT PRIMARY KEY,
	started INTEGER NOT NULL,
	ended   INTEGER NOT NULL,
	white   TEXT NOT NULL,
	black   TEXT NOT NULL,
	winner  INTEGER NOT NULL,
	replay  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS game_ended ON game (ended);
CREATE TABLE IF NOT EXISTS rating (
	player     TEXT PRIMARY KEY,
	rating     REAL NOT NULL,
	deviation  REAL NOT NULL,
	volatility REAL NOT NULL,
	games      INTEGER NOT NULL DEFAULT 0
);
`

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Writes are serialized by SQLite.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{
		db: db,
	}, nil
}

func (s *SQLiteStore) RecordGame(ctx context.Context, g *Game) error {
	prepareGame(g)
	q := `
	INSERT INTO game (id, started, ended, white, black, winner, replay)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`
	_, err := s.db.ExecContext(ctx, q, g.ID.String(), g.Started.Unix(), g.Ended.Unix(), g.White, g.Black, int(g.Winner), string(g.Replay))
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Game(ctx context.Context, id uuid.UUID) (*Game, error) {
	q := `
	SELECT id, started, ended, white, black, winner, replay FROM game WHERE id = ?;
	`
	g, err := scanGame(s.db.QueryRowContext(ctx, q, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ErrNotFound{}
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	return g, nil
}

func (s *SQLiteStore) History(ctx context.Context, player string, limit int) ([]*Game, error) {
	if limit <= 0 {
		limit = -1
	}
	q := `
	SELECT id, started, ended, white, black, winner, replay FROM game
	WHERE LOWER(white) = LOWER(?) OR LOWER(black) = LOWER(?)
	ORDER BY ended DESC LIMIT ?;
	`
	rows, err := s.db.QueryContext(ctx, q, player, player, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []*Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *SQLiteStore) Rating(ctx context.Context, player string) (*Rating, error) {
	q := `
	SELECT player, rating, deviation, volatility, games FROM rating WHERE player = LOWER(?);
	`
	r := &Rating{}
	err := s.db.QueryRowContext(ctx, q, player).Scan(&r.Player, &r.Rating, &r.Deviation, &r.Volatility, &r.Games)
	if errors.Is(err, sql.ErrNoRows) {
		return NewRating(player), nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan rating: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) SetRating(ctx context.Context, r *Rating) error {
	q := `
	INSERT OR REPLACE INTO rating (player, rating, deviation, volatility, games)
	VALUES (LOWER(?), ?, ?, ?, ?);
	`
	_, err := s.db.ExecContext(ctx, q, r.Player, r.Rating, r.Deviation, r.Volatility, r.Games)
	if err != nil {
		return fmt.Errorf("failed to store rating: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Leaderboard(ctx context.Context, limit int) ([]*Rating, error) {
	if limit <= 0 {
		limit = -1
	}
	q := `
	SELECT player, rating, deviation, volatility, games FROM rating
	ORDER BY rating DESC, player ASC LIMIT ?;
	`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*Rating
	for rows.Next() {
		r := &Rating{}
		if err := rows.Scan(&r.Player, &r.Rating, &r.Deviation, &r.Volatility, &r.Games); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// scanner is implemented by *sql.Row, *sql.Rows and pgx.Row.
type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*Game, error) {
	var (
		id             string
		started, ended int64
		winner         int
		replay         string
	)
	g := &Game{}
	if err := row.Scan(&id, &started, &ended, &g.White, &g.Black, &winner, &replay); err != nil {
		return nil, err
	}
	var err error
	g.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid game ID %q: %w", id, err)
	}
	g.Started = unixTime(started)
	g.Ended = unixTime(ended)
	g.Winner = tavla.Color(winner)
	g.Replay = []byte(replay)
	return g, nil
}

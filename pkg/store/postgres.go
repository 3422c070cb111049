package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS game (
	id      text PRIMARY KEY,
	started bigint NOT NULL,
	ended   bigint NOT NULL,
	white   text NOT NULL,
	black   text NOT NULL,
	winner  smallint NOT NULL,
	replay  text NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS game_ended ON game (ended);
CREATE TABLE IF NOT EXISTS rating (
	player     text PRIMARY KEY,
	rating     double precision NOT NULL,
	deviation  double precision NOT NULL,
	volatility double precision NOT NULL,
	games      integer NOT NULL DEFAULT 0
);
`

// connectAttempts is the number of times a connection is attempted before
// giving up.
const connectAttempts = 5

type PostgresStore struct {
	conn *pgx.Conn
	lock sync.Mutex
}

// NewPostgresStore connects to a PostgreSQL database and creates the schema
// when it does not yet exist.
func NewPostgresStore(ctx context.Context, dataSource string) (*PostgresStore, error) {
	var conn *pgx.Conn
	err := retry.Do(
		func() error {
			var err error
			conn, err = pgx.Connect(ctx, dataSource)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(connectAttempts),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			log.Warn().Err(err).Uint("n", n).Msg("failed to connect to database, retrying")
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var username, database string
	err = conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	log.Info().Str("database", database).Str("user", username).Msg("connected to database")

	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{
		conn: conn,
	}, nil
}

func (s *PostgresStore) RecordGame(ctx context.Context, g *Game) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	prepareGame(g)
	q := `
	INSERT INTO game (id, started, ended, white, black, winner, replay)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := s.conn.Exec(ctx, q, g.ID.String(), g.Started.Unix(), g.Ended.Unix(), g.White, g.Black, int16(g.Winner), string(g.Replay))
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

func (s *PostgresStore) Game(ctx context.Context, id uuid.UUID) (*Game, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	q := `
	SELECT id, started, ended, white, black, winner, replay FROM game WHERE id = $1;
	`
	g, err := scanGame(s.conn.QueryRow(ctx, q, id.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{}
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) History(ctx context.Context, player string, limit int) ([]*Game, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	q := `
	SELECT id, started, ended, white, black, winner, replay FROM game
	WHERE LOWER(white) = LOWER($1) OR LOWER(black) = LOWER($1)
	ORDER BY ended DESC LIMIT $2;
	`
	rows, err := s.conn.Query(ctx, q, player, limitArg)
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

func (s *PostgresStore) Rating(ctx context.Context, player string) (*Rating, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	q := `
	SELECT player, rating, deviation, volatility, games FROM rating WHERE player = LOWER($1);
	`
	r := &Rating{}
	err := s.conn.QueryRow(ctx, q, player).Scan(&r.Player, &r.Rating, &r.Deviation, &r.Volatility, &r.Games)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewRating(player), nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan rating: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) SetRating(ctx context.Context, r *Rating) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	q := `
	INSERT INTO rating (player, rating, deviation, volatility, games) VALUES (LOWER($1), $2, $3, $4, $5)
	ON CONFLICT (player) DO UPDATE SET rating = $2, deviation = $3, volatility = $4, games = $5;
	`
	_, err := s.conn.Exec(ctx, q, r.Player, r.Rating, r.Deviation, r.Volatility, r.Games)
	if err != nil {
		return fmt.Errorf("failed to store rating: %w", err)
	}
	return nil
}

func (s *PostgresStore) Leaderboard(ctx context.Context, limit int) ([]*Rating, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	q := `
	SELECT player, rating, deviation, volatility, games FROM rating
	ORDER BY rating DESC, player ASC LIMIT $1;
	`
	rows, err := s.conn.Query(ctx, q, limitArg)
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

func (s *PostgresStore) Close(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.conn.Close(ctx)
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"linked-go/internal/game"
)

const matchColumns = `id, pair_id, puzzle_id, player_a, player_b, board, rack, started_by,
	current_turn, turn_number, scores, vision, status, winner_id, version,
	created_at, updated_at, completed_at`

// SQL is a game.Store backed by postgres, sqlite3 or mysql through sqlx.
// JSON-valued match fields are kept in TEXT columns so every dialect shares
// one schema shape.
type SQL struct {
	db *sqlx.DB
}

func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

type matchRow struct {
	ID          string       `db:"id"`
	PairID      string       `db:"pair_id"`
	PuzzleID    string       `db:"puzzle_id"`
	PlayerA     string       `db:"player_a"`
	PlayerB     string       `db:"player_b"`
	Board       string       `db:"board"`
	Rack        string       `db:"rack"`
	StartedBy   string       `db:"started_by"`
	CurrentTurn string       `db:"current_turn"`
	TurnNumber  int          `db:"turn_number"`
	Scores      string       `db:"scores"`
	Vision      string       `db:"vision"`
	Status      string       `db:"status"`
	WinnerID    string       `db:"winner_id"`
	Version     int          `db:"version"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
	CompletedAt sql.NullTime `db:"completed_at"`
}

func toRow(m *game.Match) (*matchRow, error) {
	if len(m.Players) != 2 {
		return nil, fmt.Errorf("match %s has %d players", m.ID, len(m.Players))
	}
	row := &matchRow{
		ID:          m.ID,
		PairID:      m.PairID,
		PuzzleID:    m.PuzzleID,
		PlayerA:     m.Players[0],
		PlayerB:     m.Players[1],
		StartedBy:   m.StartedBy,
		CurrentTurn: m.CurrentTurnUserID,
		TurnNumber:  m.TurnNumber,
		Status:      string(m.Status),
		WinnerID:    m.WinnerID,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	if m.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: m.CompletedAt.UTC(), Valid: true}
	}

	fields := []struct {
		dst *string
		src any
	}{
		{&row.Board, m.Board},
		{&row.Rack, m.Rack},
		{&row.Scores, m.Scores},
		{&row.Vision, m.Vision},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.src)
		if err != nil {
			return nil, fmt.Errorf("failed to encode match %s: %w", m.ID, err)
		}
		*f.dst = string(data)
	}
	return row, nil
}

func (r *matchRow) toMatch() (*game.Match, error) {
	m := &game.Match{
		ID:                r.ID,
		PairID:            r.PairID,
		PuzzleID:          r.PuzzleID,
		Players:           []string{r.PlayerA, r.PlayerB},
		StartedBy:         r.StartedBy,
		CurrentTurnUserID: r.CurrentTurn,
		TurnNumber:        r.TurnNumber,
		Status:            game.MatchStatus(r.Status),
		WinnerID:          r.WinnerID,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time.UTC()
		m.CompletedAt = &t
	}

	fields := []struct {
		src string
		dst any
	}{
		{r.Board, &m.Board},
		{r.Rack, &m.Rack},
		{r.Scores, &m.Scores},
		{r.Vision, &m.Vision},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("failed to decode match %s: %w", r.ID, err)
		}
	}
	if m.Board == nil {
		m.Board = make(map[int]string)
	}
	if m.Rack == nil {
		m.Rack = []string{}
	}
	return m, nil
}

func (s *SQL) CreatePair(ctx context.Context, pair *game.Pair) error {
	query := s.db.Rebind(`INSERT INTO pairs (id, player_a, player_b, created_at) VALUES (?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, pair.ID, pair.PlayerA, pair.PlayerB, pair.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert pair: %w", err)
	}
	return nil
}

func (s *SQL) GetPair(ctx context.Context, id string) (*game.Pair, error) {
	var pair game.Pair
	query := s.db.Rebind(`SELECT id, player_a, player_b, created_at FROM pairs WHERE id = ?`)
	if err := s.db.GetContext(ctx, &pair, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.ErrPairNotFound
		}
		return nil, fmt.Errorf("failed to get pair: %w", err)
	}
	pair.CreatedAt = pair.CreatedAt.UTC()
	return &pair, nil
}

func (s *SQL) CreateMatch(ctx context.Context, match *game.Match) error {
	row, err := toRow(match)
	if err != nil {
		return err
	}
	query := `INSERT INTO matches (` + matchColumns + `) VALUES (
		:id, :pair_id, :puzzle_id, :player_a, :player_b, :board, :rack, :started_by,
		:current_turn, :turn_number, :scores, :vision, :status, :winner_id, :version,
		:created_at, :updated_at, :completed_at)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (s *SQL) GetMatch(ctx context.Context, id string) (*game.Match, error) {
	var row matchRow
	query := s.db.Rebind(`SELECT ` + matchColumns + ` FROM matches WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return row.toMatch()
}

// UpdateMatch writes every mutable column, guarded by the expected version.
func (s *SQL) UpdateMatch(ctx context.Context, match *game.Match, expectedVersion int) error {
	row, err := toRow(match)
	if err != nil {
		return err
	}
	query := s.db.Rebind(`UPDATE matches SET
		board = ?, rack = ?, current_turn = ?, turn_number = ?, scores = ?, vision = ?,
		status = ?, winner_id = ?, version = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND version = ?`)
	res, err := s.db.ExecContext(ctx, query,
		row.Board, row.Rack, row.CurrentTurn, row.TurnNumber, row.Scores, row.Vision,
		row.Status, row.WinnerID, row.Version, row.UpdatedAt, row.CompletedAt,
		row.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	check := s.db.Rebind(`SELECT COUNT(*) FROM matches WHERE id = ?`)
	if err := s.db.GetContext(ctx, &exists, check, match.ID); err != nil {
		return fmt.Errorf("failed to check match: %w", err)
	}
	if exists == 0 {
		return game.ErrMatchNotFound
	}
	return game.ErrVersionConflict
}

func (s *SQL) ListMatches(ctx context.Context, filter game.MatchFilter) ([]*game.Match, error) {
	var (
		where []string
		args  []any
	)
	if filter.PairID != "" {
		where = append(where, "pair_id = ?")
		args = append(args, filter.PairID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `SELECT ` + matchColumns + ` FROM matches`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		return s.listAll(ctx, query, args, filter.Offset)
	}

	var rows []matchRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return toMatches(rows)
}

// listAll handles an offset without a limit, which mysql and sqlite cannot
// express portably.
func (s *SQL) listAll(ctx context.Context, query string, args []any, offset int) ([]*game.Match, error) {
	var rows []matchRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	if offset >= len(rows) {
		return []*game.Match{}, nil
	}
	return toMatches(rows[offset:])
}

func toMatches(rows []matchRow) ([]*game.Match, error) {
	out := make([]*game.Match, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toMatch()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

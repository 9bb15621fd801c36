package index

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/timvisee/merge-mania/internal/game"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNoSaves is returned when the index holds no saves.
var ErrNoSaves = errors.New("no saves recorded")

// Save is one autosave row.
type Save struct {
	ID      int64
	GameID  string
	Tick    uint64
	Running bool
	Users   int
	SavedAt time.Time
}

// Standing is one user's rank at a save.
type Standing struct {
	UserID uint32
	Rank   int
	Score  uint64
	Money  uint64
	Energy uint64
	Merges uint64
	Drops  uint64
}

// Index is a SQLite record of saves and the leaderboard at each save.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty index path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Index{db: db}, nil
}

func initPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("setting %q: %w", p, err)
		}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (x *Index) Close() error {
	return x.db.Close()
}

// RecordSave stores a save and the leaderboard at that moment. Returns the
// new save id.
func (x *Index) RecordSave(ctx context.Context, s Save, board []game.Standing) (int64, error) {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO saves (game_id, tick, running, users, saved_at) VALUES (?, ?, ?, ?, ?)`,
		s.GameID, int64(s.Tick), s.Running, s.Users, s.SavedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting save: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading save id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO standings (save_id, user_id, rank, score, money, energy, merges, drops)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("preparing standings: %w", err)
	}
	defer stmt.Close()

	for i, st := range board {
		_, err := stmt.ExecContext(ctx, id, int64(st.UserID), i+1,
			int64(st.Score), int64(st.Money), int64(st.Energy),
			int64(st.Stats.Merges), int64(st.Stats.Drops),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting standing of user %d: %w", st.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing save: %w", err)
	}
	return id, nil
}

// LatestSave returns the most recent save.
func (x *Index) LatestSave(ctx context.Context) (Save, error) {
	row := x.db.QueryRowContext(ctx,
		`SELECT id, game_id, tick, running, users, saved_at FROM saves ORDER BY id DESC LIMIT 1`,
	)

	var (
		s       Save
		tick    int64
		savedAt int64
	)
	err := row.Scan(&s.ID, &s.GameID, &tick, &s.Running, &s.Users, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Save{}, ErrNoSaves
	}
	if err != nil {
		return Save{}, fmt.Errorf("reading latest save: %w", err)
	}
	s.Tick = uint64(tick)
	s.SavedAt = time.UnixMilli(savedAt).UTC()
	return s, nil
}

// Standings returns the leaderboard recorded with a save, best rank first.
func (x *Index) Standings(ctx context.Context, saveID int64) ([]Standing, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT user_id, rank, score, money, energy, merges, drops
		 FROM standings WHERE save_id = ? ORDER BY rank`,
		saveID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying standings: %w", err)
	}
	defer rows.Close()

	var out []Standing
	for rows.Next() {
		var st Standing
		var userID, score, money, energy, merges, drops int64
		if err := rows.Scan(&userID, &st.Rank, &score, &money, &energy, &merges, &drops); err != nil {
			return nil, fmt.Errorf("scanning standing: %w", err)
		}
		st.UserID = uint32(userID)
		st.Score = uint64(score)
		st.Money = uint64(money)
		st.Energy = uint64(energy)
		st.Merges = uint64(merges)
		st.Drops = uint64(drops)
		out = append(out, st)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep saves and returns how many were
// removed.
func (x *Index) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := x.db.ExecContext(ctx,
		`DELETE FROM saves WHERE id NOT IN (SELECT id FROM saves ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning saves: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned saves: %w", err)
	}

	_, err = x.db.ExecContext(ctx, `DELETE FROM standings WHERE save_id NOT IN (SELECT id FROM saves)`)
	if err != nil {
		return 0, fmt.Errorf("pruning standings: %w", err)
	}
	return n, nil
}

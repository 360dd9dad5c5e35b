package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jobtrail/internal/config"
	"jobtrail/internal/services"
	"jobtrail/internal/stage"
)

// Store persists users and their tracked applications in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Application is a persisted application row.
type Application struct {
	Company     string
	Position    string
	Stage       stage.Stage
	LastUpdated time.Time
}

// Open creates or connects to the database at cfg.DatabasePath.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database file at path.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// EnsureUser returns the id for account, creating the row on first use.
// Accounts match case-insensitively.
func (s *Store) EnsureUser(ctx context.Context, account string) (int64, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return 0, services.Wrap(services.ErrValidation, "store", "ensure user", "account required", nil)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (account, created_at) VALUES (?, ?) ON CONFLICT(account) DO NOTHING`,
		account, formatTime(time.Now()),
	); err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE account = ?`, account).Scan(&id); err != nil {
		return 0, fmt.Errorf("select user: %w", err)
	}
	return id, nil
}

// SaveApplication inserts or updates the row for the application's
// case-insensitive (company, position) identity.
func (s *Store) SaveApplication(ctx context.Context, userID int64, app Application) error {
	company := strings.TrimSpace(app.Company)
	position := strings.TrimSpace(app.Position)
	if company == "" || position == "" {
		return services.Wrap(services.ErrValidation, "store", "save application", "company and position required", nil)
	}
	if !app.Stage.Valid() {
		return services.Wrap(services.ErrValidation, "store", "save application", "invalid stage "+string(app.Stage), nil)
	}
	lastUpdated := app.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (
            user_id, company, position, company_key, position_key, stage, last_updated, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id, company_key, position_key) DO UPDATE SET
            company = excluded.company,
            position = excluded.position,
            stage = excluded.stage,
            last_updated = excluded.last_updated`,
		userID,
		company,
		position,
		identityKey(company),
		identityKey(position),
		string(app.Stage),
		formatTime(lastUpdated),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save application: %w", err)
	}
	return nil
}

// DeleteApplication removes the row for the identity. It reports whether a
// row existed.
func (s *Store) DeleteApplication(ctx context.Context, userID int64, company, position string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM applications WHERE user_id = ? AND company_key = ? AND position_key = ?`,
		userID, identityKey(company), identityKey(position),
	)
	if err != nil {
		return false, fmt.Errorf("delete application: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete application rows: %w", err)
	}
	return affected > 0, nil
}

// UserApplications returns every application for userID in insertion order.
func (s *Store) UserApplications(ctx context.Context, userID int64) ([]Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company, position, stage, last_updated FROM applications WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		var (
			app         Application
			stageValue  string
			lastUpdated string
		)
		if err := rows.Scan(&app.Company, &app.Position, &stageValue, &lastUpdated); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		parsed, err := stage.Parse(stageValue)
		if err != nil {
			return nil, fmt.Errorf("application %s/%s: %w", app.Company, app.Position, err)
		}
		app.Stage = parsed
		app.LastUpdated = parseTime(lastUpdated)
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return out, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not open")
	}
	return s.db.PingContext(ctx)
}

func identityKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

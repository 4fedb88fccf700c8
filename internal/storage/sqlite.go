// Package storage persists the ingredient catalog, conversation logs, and
// logged meals in SQLite.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/platewise/platewise/internal/dialog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for the ingredient catalog,
// per-session conversation logs, and meals.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "platewise.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	// This also serializes catalog writes across concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Conversation log ---

// AppendMessage saves one message to a session's log. Messages are
// append-only; insertion order is chronological order.
func (s *Store) AppendMessage(m dialog.Message) error {
	meta, err := json.Marshal(m.Meta)
	if err != nil {
		return fmt.Errorf("marshaling message metadata: %w", err)
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.Exec(`
		INSERT INTO messages (id, session_id, role, content, category, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Role, m.Content, m.Category, string(meta),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// RecentMessages returns the most recent limit messages for a session,
// newest first. Use dialog.Chronological to flip the order.
func (s *Store) RecentMessages(sessionID string, limit int) ([]dialog.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, role, content, category, metadata, created_at
		FROM messages WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []dialog.Message
	for rows.Next() {
		var m dialog.Message
		var meta, createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Category, &meta, &createdAt); err != nil {
			return nil, err
		}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &m.Meta); err != nil {
				return nil, fmt.Errorf("parsing metadata for message %s: %w", m.ID, err)
			}
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		m.CreatedAt = t
		results = append(results, m)
	}
	return results, rows.Err()
}

// ClearMessages deletes a session's entire log.
func (s *Store) ClearMessages(sessionID string) error {
	_, err := s.db.Exec("DELETE FROM messages WHERE session_id = ?", sessionID)
	return err
}

// --- Ingredient catalog ---

// IngredientNamesAndIDs returns parallel arrays of all catalog names and ids,
// the shape the fuzzy matcher consumes.
func (s *Store) IngredientNamesAndIDs() ([]string, []int64, error) {
	rows, err := s.db.Query("SELECT id, name FROM ingredients ORDER BY id ASC")
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var names []string
	var ids []int64
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		names = append(names, name)
	}
	return names, ids, rows.Err()
}

// IngredientsByID returns the catalog rows for the given ids, keyed by id.
// Missing ids are simply absent from the result.
func (s *Store) IngredientsByID(ids []int64) (map[int64]Ingredient, error) {
	result := make(map[int64]Ingredient, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat(",?", len(ids)-1)
	query := "SELECT id, name, calories, protein, carbs, fat, unit_weight FROM ingredients WHERE id IN (?" + placeholders + ")"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ing Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Calories, &ing.Protein, &ing.Carbs, &ing.Fat, &ing.UnitWeight); err != nil {
			return nil, err
		}
		result[ing.ID] = ing
	}
	return result, rows.Err()
}

// CatalogTx exposes the catalog operations valid inside one transaction.
// The resolution engine drives the re-check-then-insert sequence through it.
type CatalogTx struct {
	tx *sql.Tx
}

// FindByExactName looks up an ingredient by exact name, case-insensitively.
// This is intentionally not fuzzy: it is the dedupe re-check before insert.
func (c *CatalogTx) FindByExactName(name string) (int64, bool, error) {
	var id int64
	err := c.tx.QueryRow("SELECT id FROM ingredients WHERE lower(name) = lower(?)", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// InsertIngredient inserts a new catalog row and returns its id.
func (c *CatalogTx) InsertIngredient(name string, calories, protein, carbs, fat, unitWeight float64) (int64, error) {
	res, err := c.tx.Exec(`
		INSERT INTO ingredients (name, calories, protein, carbs, fat, unit_weight)
		VALUES (?, ?, ?, ?, ?, ?)`,
		name, calories, protein, carbs, fat, unitWeight,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InCatalogTx runs fn inside a single transaction. If fn returns an error
// the transaction is rolled back in full; otherwise it is committed once.
func (s *Store) InCatalogTx(ctx context.Context, fn func(tx *CatalogTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning catalog transaction: %w", err)
	}

	if err := fn(&CatalogTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog transaction: %w", err)
	}
	return nil
}

// SeedIngredients inserts any of the given ingredients that are not already
// present (matched by exact name, case-insensitive). Returns how many rows
// were inserted. Used by the seed command on first run.
func (s *Store) SeedIngredients(ctx context.Context, ingredients []Ingredient) (int, error) {
	inserted := 0
	err := s.InCatalogTx(ctx, func(tx *CatalogTx) error {
		for _, ing := range ingredients {
			if _, found, err := tx.FindByExactName(ing.Name); err != nil {
				return err
			} else if found {
				continue
			}
			uw := ing.UnitWeight
			if uw == 0 {
				uw = ReferenceMass
			}
			if _, err := tx.InsertIngredient(ing.Name, ing.Calories, ing.Protein, ing.Carbs, ing.Fat, uw); err != nil {
				return fmt.Errorf("seeding %q: %w", ing.Name, err)
			}
			inserted++
		}
		return nil
	})
	return inserted, err
}

// --- Meals ---

// SaveMeal persists one logged meal.
func (s *Store) SaveMeal(m Meal) error {
	items, err := json.Marshal(m.Items)
	if err != nil {
		return fmt.Errorf("marshaling meal items: %w", err)
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.Exec(`
		INSERT INTO meals (id, session_id, name, meal_type, date, items, calories, protein, carbs, fat, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Name, m.MealType, m.Date, string(items),
		m.Calories, m.Protein, m.Carbs, m.Fat,
		createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// MealsForDate returns all meals logged for a YYYY-MM-DD date, oldest first.
func (s *Store) MealsForDate(date string) ([]Meal, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, name, meal_type, date, items, calories, protein, carbs, fat
		FROM meals WHERE date = ? ORDER BY created_at ASC, rowid ASC`, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Meal
	for rows.Next() {
		var m Meal
		var items string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Name, &m.MealType, &m.Date, &items, &m.Calories, &m.Protein, &m.Carbs, &m.Fat); err != nil {
			return nil, err
		}
		if items != "" {
			if err := json.Unmarshal([]byte(items), &m.Items); err != nil {
				return nil, fmt.Errorf("parsing items for meal %s: %w", m.ID, err)
			}
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// FavoriteMeal returns the most frequently logged meal name and its count.
// Returns ErrNotFound when no meals exist.
func (s *Store) FavoriteMeal() (string, int, error) {
	var name string
	var count int
	err := s.db.QueryRow(`
		SELECT name, COUNT(*) AS n FROM meals
		GROUP BY name ORDER BY n DESC, name ASC LIMIT 1`,
	).Scan(&name, &count)
	if err == sql.ErrNoRows {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, err
	}
	return name, count, nil
}

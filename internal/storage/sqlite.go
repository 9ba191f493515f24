// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/trisearch/internal/models"
)

// maxBatchVars bounds the IN-list of one statement; SQLite's default variable limit is 999.
const maxBatchVars = 500

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// SQLiteOption configures NewSQLiteStorage.
type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	readOnly bool
}

// WithReadOnly opens the database with mode=ro and skips schema initialization.
// The database file must already exist.
func WithReadOnly() SQLiteOption {
	return func(o *sqliteOptions) { o.readOnly = true }
}

// uriPathEscaper escapes the characters SQLite's URI parser would treat as
// an escape, query or fragment delimiter inside a file: path.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// sqliteDSN builds a file: URI for dbPath so that '?' and '#' in the path are
// never mistaken for connection parameters.
func sqliteDSN(dbPath string, readOnly bool) string {
	dsn := "file:" + uriPathEscaper.Replace(dbPath)
	if readOnly {
		dsn += "?mode=ro"
	}
	return dsn
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string, opts ...SQLiteOption) (*SQLiteStorage, error) {
	var o sqliteOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.readOnly {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("failed to open read-only database: %w", err)
		}
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(dbPath, o.readOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, unavailable("ping database", err)
	}

	if !o.readOnly {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
		if err := initSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return &SQLiteStorage{db: db}, nil
}

// initSchema creates the tables the lookup queries rely on. Population is done by an external ingestion job.
func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY,
		tag TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS product_tag_map (
		product_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (tag_id) REFERENCES tags(id)
	);

	CREATE INDEX IF NOT EXISTS idx_product_tag_map_tag_id ON product_tag_map(tag_id);

	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		product_name TEXT,
		price REAL,
		description TEXT,
		category TEXT,
		brand TEXT,
		stock_quantity INTEGER,
		release_date TEXT,
		rating REAL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// LookupTagID returns the id of the tag whose text equals tag exactly.
func (s *SQLiteStorage) LookupTagID(ctx context.Context, tag string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM tags WHERE tag = ?`, tag).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, unavailable(fmt.Sprintf("lookup tag %q", tag), err)
	}
	return id, true, nil
}

// FetchTagProducts returns every product association of the tag, duplicates included.
func (s *SQLiteStorage) FetchTagProducts(ctx context.Context, tagID int64) ([]models.TagWeight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, count FROM product_tag_map WHERE tag_id = ?`, tagID,
	)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("fetch products for tag %d", tagID), err)
	}
	defer rows.Close()

	var out []models.TagWeight
	for rows.Next() {
		var tw models.TagWeight
		if err := rows.Scan(&tw.ProductID, &tw.Weight); err != nil {
			return nil, unavailable("scan tag association", err)
		}
		out = append(out, tw)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate tag associations", err)
	}
	return out, nil
}

// LookupTagIDs resolves many tags at once. Tags with no id are absent from the result.
func (s *SQLiteStorage) LookupTagIDs(ctx context.Context, tags []string) (map[string]int64, error) {
	out := make(map[string]int64, len(tags))
	for start := 0; start < len(tags); start += maxBatchVars {
		end := min(start+maxBatchVars, len(tags))
		args := make([]any, 0, end-start)
		for _, t := range tags[start:end] {
			args = append(args, t)
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, tag FROM tags WHERE tag IN (`+placeholders(len(args))+`)`, args...,
		)
		if err != nil {
			return nil, unavailable("lookup tags", err)
		}
		for rows.Next() {
			var id int64
			var tag string
			if err := rows.Scan(&id, &tag); err != nil {
				rows.Close()
				return nil, unavailable("scan tag", err)
			}
			out[tag] = id
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, unavailable("iterate tags", err)
		}
	}
	return out, nil
}

// FetchTagProductsBatch returns the associations of every given tag, keyed by tag id.
func (s *SQLiteStorage) FetchTagProductsBatch(ctx context.Context, tagIDs []int64) (map[int64][]models.TagWeight, error) {
	out := make(map[int64][]models.TagWeight, len(tagIDs))
	for start := 0; start < len(tagIDs); start += maxBatchVars {
		end := min(start+maxBatchVars, len(tagIDs))
		args := make([]any, 0, end-start)
		for _, id := range tagIDs[start:end] {
			args = append(args, id)
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT tag_id, product_id, count FROM product_tag_map WHERE tag_id IN (`+placeholders(len(args))+`)`, args...,
		)
		if err != nil {
			return nil, unavailable("fetch tag associations", err)
		}
		for rows.Next() {
			var tagID int64
			var tw models.TagWeight
			if err := rows.Scan(&tagID, &tw.ProductID, &tw.Weight); err != nil {
				rows.Close()
				return nil, unavailable("scan tag association", err)
			}
			out[tagID] = append(out[tagID], tw)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, unavailable("iterate tag associations", err)
		}
	}
	return out, nil
}

const productColumns = `id, product_name, price, description, category, brand, stock_quantity, release_date, rating`

// GetProduct returns a product by ID.
func (s *SQLiteStorage) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get product %d", id), err)
	}
	return p, nil
}

// GetProducts returns the products that exist among ids, keyed by id.
func (s *SQLiteStorage) GetProducts(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product, len(ids))
	for start := 0; start < len(ids); start += maxBatchVars {
		end := min(start+maxBatchVars, len(ids))
		args := make([]any, 0, end-start)
		for _, id := range ids[start:end] {
			args = append(args, id)
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders(len(args))+`)`, args...,
		)
		if err != nil {
			return nil, unavailable("get products", err)
		}
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				rows.Close()
				return nil, unavailable("scan product", err)
			}
			out[p.ID] = p
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, unavailable("iterate products", err)
		}
	}
	return out, nil
}

// Stats returns row counts of the index tables.
func (s *SQLiteStorage) Stats(ctx context.Context) (*models.IndexStats, error) {
	var st models.IndexStats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM products),
		(SELECT COUNT(*) FROM tags),
		(SELECT COUNT(*) FROM product_tag_map)`,
	).Scan(&st.Products, &st.Tags, &st.Associations)
	if err != nil {
		return nil, unavailable("count index rows", err)
	}
	return &st, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct tolerates NULL columns and release dates stored either as text or as DATE values.
func scanProduct(r rowScanner) (*models.Product, error) {
	var (
		p                           models.Product
		name, desc, category, brand sql.NullString
		price, rating               sql.NullFloat64
		stock                       sql.NullInt64
		release                     any
	)
	if err := r.Scan(&p.ID, &name, &price, &desc, &category, &brand, &stock, &release, &rating); err != nil {
		return nil, err
	}
	p.Name = name.String
	p.Price = price.Float64
	p.Description = desc.String
	p.Category = category.String
	p.Brand = brand.String
	p.StockQuantity = stock.Int64
	p.ReleaseDate = dateString(release)
	p.Rating = rating.Float64
	return &p, nil
}

func dateString(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case time.Time:
		return d.Format(time.DateOnly)
	case []byte:
		return string(d)
	case string:
		return d
	default:
		return fmt.Sprint(d)
	}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

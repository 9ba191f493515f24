package search

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

// seedSQLiteCatalog writes index rows through a separate connection, the way an ingestion job would.
func seedSQLiteCatalog(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	stmts := []string{
		`INSERT INTO tags (id, tag) VALUES (1, 'abc')`,
		`INSERT INTO product_tag_map (product_id, tag_id, count) VALUES (100, 1, 3), (200, 1, 5)`,
		`INSERT INTO products (id, product_name, price, category, brand) VALUES
			(100, 'Alpha', 10, 'Toys', 'Acme'), (200, 'Beta', 20, 'Toys', 'Acme')`,
	}
	for _, q := range stmts {
		_, err := db.Exec(q)
		require.NoError(t, err, q)
	}
}

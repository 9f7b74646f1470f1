//go:build integration

package repotest

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/dukerupert/quartz/internal"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

// OpenPostgres connects to TEST_DATABASE_URL, applies the migrations and
// empties every table. The test is skipped when no database is configured.
func OpenPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	// .env.test is optional; the variable may come from the environment.
	_ = godotenv.Load("../../.env.test", "../../../.env.test")
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := internal.RunMigrations(db, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `TRUNCATE jobs, payments, order_items, orders, cart_items, carts, addresses, product_variants, products CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

// SeedVariant inserts an active product at price with one variant holding
// stock units.
func SeedVariant(t *testing.T, pool *pgxpool.Pool, name, price string, stock int) (productID, variantID pgtype.UUID) {
	t.Helper()
	ctx := context.Background()
	slug := name + "-" + uuid.NewString()[:8]

	err := pool.QueryRow(ctx,
		`INSERT INTO products (name, slug, price) VALUES ($1, $2, $3::numeric) RETURNING id`,
		name, slug, price,
	).Scan(&productID)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	err = pool.QueryRow(ctx,
		`INSERT INTO product_variants (product_id, sku, size, color, stock_quantity)
		 VALUES ($1, $2, '7', 'Gold', $3) RETURNING id`,
		productID, slug+"-SKU", stock,
	).Scan(&variantID)
	if err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return productID, variantID
}

// StockIn reads a variant's stock straight from the table.
func StockIn(t *testing.T, pool *pgxpool.Pool, variantID pgtype.UUID) int {
	t.Helper()
	var stock int
	if err := pool.QueryRow(context.Background(),
		`SELECT stock_quantity FROM product_variants WHERE id = $1`, variantID,
	).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}

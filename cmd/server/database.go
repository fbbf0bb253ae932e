package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atelierhq/atelier-api/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
)

// openDatabase opens and verifies the PostgreSQL connection pool.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

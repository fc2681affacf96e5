package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"teleshop-backend/internal/config"
)

// Connect opens the pgx pool and verifies it with a bounded ping. The ledger
// is useless without its database, so failure here is fatal.
func Connect(cfg *config.Config) *pgxpool.Pool {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
	)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("[Database] connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("[Database] ping %s:%d/%s: %v", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name, err)
	}
	log.Printf("[Database] connected to %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	return pool
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Database for Testing")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("⚠️  WARNING: This will DELETE ALL SHOP DATA!")
	fmt.Println()
	fmt.Println("This will:")
	fmt.Println("  - Delete all sales and the inventory journal")
	fmt.Println("  - Zero all staff inventories and backoffice stock")
	fmt.Println("  - Delete all tracked SIM batches")
	fmt.Println("  - Delete all daily registrations and totals")
	fmt.Println("  - Delete all staff except admins")
	fmt.Println("  - Reset all ID sequences")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)

	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	godotenv.Load()

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "teleshop_db")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		dbUser, dbPassword, dbHost, dbPort, dbName)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	fmt.Println()
	fmt.Println("🔄 Resetting database...")

	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v\n", err)
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"sales",
		"inventory_journal",
		"sim_batches",
		"daily_regs",
		"daily_totals",
	}

	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			log.Fatalf("Failed to truncate %s: %v\n", table, err)
		}
		fmt.Printf("  ✓ Cleared %s\n", table)
	}

	// Counters go back to zero rather than being deleted; the inventory row
	// per staff member is part of provisioning
	if _, err := tx.Exec(ctx,
		`UPDATE inventory SET sim = 0, swap = 0, credit_50 = 0, credit_100 = 0`); err != nil {
		log.Fatalf("Failed to zero inventories: %v\n", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE backoffice_stock SET quantity = 0`); err != nil {
		log.Fatalf("Failed to zero backoffice stock: %v\n", err)
	}
	fmt.Println("  ✓ Zeroed inventory counters")

	if _, err := tx.Exec(ctx, `DELETE FROM inventory WHERE staff_id IN (SELECT id FROM staff WHERE NOT is_admin)`); err != nil {
		log.Fatalf("Failed to delete inventories: %v\n", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM staff WHERE NOT is_admin`); err != nil {
		log.Fatalf("Failed to delete staff: %v\n", err)
	}
	fmt.Println("  ✓ Deleted non-admin staff")

	sequences := []string{
		"sales_id_seq",
		"inventory_journal_id_seq",
		"sim_batches_id_seq",
		"daily_regs_id_seq",
		"daily_totals_id_seq",
	}

	for _, seq := range sequences {
		if _, err := tx.Exec(ctx, fmt.Sprintf("ALTER SEQUENCE %s RESTART WITH 1", seq)); err != nil {
			log.Printf("Warning: Failed to reset sequence %s: %v\n", seq, err)
		}
	}
	fmt.Println("  ✓ Reset ID sequences")

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v\n", err)
	}

	fmt.Println()
	fmt.Println("✅ Database reset successful!")
	fmt.Println("Admin accounts and their zeroed inventories were kept.")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// ==============================================================================
// LEDGER SCHEMA MIGRATION - cmd/migrate/main.go
// ==============================================================================
package main

import (
	"database/sql"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"vledger/pkg/config"
	"vledger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("ledger-migrate")
	cfg := config.Load()

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|version|force VERSION]", nil)
	}
	command := os.Args[1]

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal("Failed to create migration driver", map[string]interface{}{"error": err.Error()})
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		log.Fatal("Failed to create migrate instance", map[string]interface{}{"error": err.Error()})
	}

	switch command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
		}
		log.Info("Migrations applied", nil)

	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatal("Migration rollback failed", map[string]interface{}{"error": err.Error()})
		}
		log.Info("Migrations rolled back", nil)

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Failed to read migration version", map[string]interface{}{"error": err.Error()})
		}
		log.Info("Migration version", map[string]interface{}{"version": version, "dirty": dirty})

	case "force":
		if len(os.Args) < 3 {
			log.Fatal("Usage: migrate force VERSION", nil)
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatal("Invalid version", map[string]interface{}{"value": os.Args[2]})
		}
		if err := m.Force(version); err != nil {
			log.Fatal("Force migration failed", map[string]interface{}{"error": err.Error()})
		}
		log.Info("Forced migration version", map[string]interface{}{"version": version})

	default:
		log.Fatal("Unknown command", map[string]interface{}{"command": command})
	}
}

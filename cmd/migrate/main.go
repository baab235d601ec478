package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"statadvisor/adapters/postgres"
	"statadvisor/domain/catalog"
	"statadvisor/internal/loader"
	"statadvisor/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if len(os.Args) < 2 && os.Getenv("DATABASE_URL") == "" {
		log.Fatal("Usage: migrate [database_url] [catalog_file...]")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	catalogFiles := []string{}
	if len(os.Args) >= 2 {
		databaseURL = os.Args[1]
		catalogFiles = os.Args[2:]
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema migrated to version %s", runner.Version())

	repo := postgres.NewCatalogRepository(db)

	catalogs := []*catalog.Catalog{}
	if len(catalogFiles) == 0 {
		cat, err := loader.Default()
		if err != nil {
			log.Fatalf("Failed to load bundled catalog: %v", err)
		}
		catalogs = append(catalogs, cat)
	}
	for _, path := range catalogFiles {
		cat, err := loader.LoadFile(path)
		if err != nil {
			log.Printf("Skipping %s: %v", filepath.Base(path), err)
			continue
		}
		catalogs = append(catalogs, cat)
	}

	seeded := 0
	for _, cat := range catalogs {
		record, err := repo.Save(ctx, cat)
		if err != nil {
			log.Printf("Failed to seed catalog %s: %v", cat.Name, err)
			continue
		}
		seeded++
		log.Printf("Seeded catalog %s: %d tests, version %s", record.Name, record.TestCount, record.Version)
	}

	log.Printf("Migration complete: %d/%d catalogs seeded", seeded, len(catalogs))
	if seeded < len(catalogs) {
		os.Exit(1)
	}
}

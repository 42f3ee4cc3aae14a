package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"visit-route-service/internal/adapters/cache"
	"visit-route-service/internal/adapters/staging"
	"visit-route-service/internal/platform/db"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

// dbtool prepares the database for the route job. Without arguments it
// creates the cache tables; "-drop <run full name>" removes a run's staging
// schema and "-purge <max age>" deletes cache rows older than max age.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	db, err := db.Open(ctx, databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if len(os.Args) == 3 && os.Args[1] == "-drop" {
		store := staging.NewPostgresStore(db, os.Args[2])
		log.Printf("Dropping staging schema %s...", store.Path())
		if err := store.Drop(ctx); err != nil {
			log.Fatalf("drop failed: %v", err)
		}
		log.Println("Dropped.")
		return
	}

	if len(os.Args) == 3 && os.Args[1] == "-purge" {
		maxAge, err := time.ParseDuration(os.Args[2])
		if err != nil {
			log.Fatalf("invalid max age %q: %v", os.Args[2], err)
		}
		n, err := cache.Purge(ctx, db, maxAge)
		if err != nil {
			log.Fatalf("purge failed: %v", err)
		}
		log.Printf("Purged %d cache rows older than %s.", n, maxAge)
		return
	}

	log.Println("Initializing cache schema...")
	if err := cache.InitSchema(ctx, db); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")
}

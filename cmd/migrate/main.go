// Command migrate applies database migrations and seed data.
//
//	migrate up      apply pending migrations
//	migrate down    roll back the last migration
//	migrate status  list applied migrations
//	migrate seed    apply pending seed files
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"osmadmin.org/internal/migrate"
	"osmadmin.org/internal/store/pg"
)

func main() {
	migrationsDir := flag.String("migrations", "migrations", "directory with .up.sql/.down.sql files")
	seedsDir := flag.String("seeds", "seeds", "directory with seed .sql files")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	dsn := os.Getenv("OSM_PG_DSN")
	if dsn == "" {
		log.Fatal("OSM_PG_DSN is required")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	runner := migrate.NewRunner(store.DB(), *migrationsDir, *seedsDir)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "seed":
		err = runner.Seed(ctx)
	case "status":
		var applied []string
		applied, err = runner.Status(ctx)
		for _, name := range applied {
			fmt.Println(name)
		}
	default:
		log.Fatalf("unknown command %q (want up, down, status or seed)", command)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

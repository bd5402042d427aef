package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SINTT/TODO/internal/db"
	"github.com/SINTT/TODO/internal/logger"

	"github.com/joho/godotenv"
)

// migrate_apply lists the Postgres migrations, or applies them with -apply.
// Every migration is idempotent (CREATE ... IF NOT EXISTS).
func main() {
	_ = godotenv.Load()

	apply := flag.Bool("apply", false, "apply migrations")
	dir := flag.String("dir", filepath.Join("internal", "migrations"), "migrations directory")
	flag.Parse()

	files, err := os.ReadDir(*dir)
	if err != nil {
		logger.Fatal("read migrations dir", "dir", *dir, "error", err)
	}

	if !*apply {
		for _, f := range files {
			if strings.HasSuffix(f.Name(), ".sql") {
				fmt.Println(f.Name())
			}
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.Open(ctx, dsn, 10*time.Second)
	if err != nil {
		logger.Fatal("connect database", "error", err)
	}
	defer pool.Close()

	for _, f := range files {
		name := f.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			logger.Fatal("read migration", "file", name, "error", err)
		}
		if _, err := pool.Exec(ctx, string(b)); err != nil {
			logger.Fatal("apply migration", "file", name, "error", err)
		}
		logger.Info("applied migration", "file", name)
	}
}

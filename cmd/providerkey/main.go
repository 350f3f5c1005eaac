package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/adapter/repo"
)

func main() {
	var (
		nameFlag  string
		valueFlag string
	)
	flag.StringVar(&nameFlag, "name", "", "secret name referenced by provider auth (e.g. REPLICATE_API_TOKEN)")
	flag.StringVar(&valueFlag, "value", "", "secret value (falls back to the environment variable of the same name)")
	flag.Parse()

	name := strings.TrimSpace(nameFlag)
	if name == "" {
		fmt.Fprintln(os.Stderr, "secret name is required via -name")
		os.Exit(1)
	}

	value := strings.TrimSpace(valueFlag)
	if value == "" {
		value = strings.TrimSpace(os.Getenv(name))
	}
	if value == "" {
		fmt.Fprintf(os.Stderr, "secret value is required via -value or the %s environment variable\n", name)
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := repo.NewSecretStore(pool)

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()
	if err := store.Upsert(ctxExec, name, value); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist secret %q: %v\n", name, err)
		os.Exit(1)
	}

	fmt.Printf("secret %q stored successfully\n", name)
}

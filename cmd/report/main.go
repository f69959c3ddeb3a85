package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"pump-sniper/internal/config"
	"pump-sniper/internal/reporting"
	"pump-sniper/internal/storage"
	chstore "pump-sniper/internal/storage/clickhouse"
	"pump-sniper/internal/storage/memory"
	pgstore "pump-sniper/internal/storage/postgres"
)

func main() {
	// Parse flags
	envFile := flag.String("env-file", ".env", "Path to .env file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides POSTGRES_DSN)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides CLICKHOUSE_DSN)")
	fromTime := flag.String("from", "", "Range start (RFC3339), default 24h before --to")
	toTime := flag.String("to", "", "Range end (RFC3339), default now")
	format := flag.String("format", "markdown", "Output format: markdown or csv")
	output := flag.String("output", "", "Output file (default stdout)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.ClickHouseDSN = *clickhouseDSN
	}
	if cfg.PostgresDSN == "" {
		fatalf("Error: --postgres-dsn or POSTGRES_DSN is required")
	}

	start, end, err := parseRange(*fromTime, *toTime, time.Now().UTC())
	if err != nil {
		fatalf("Error parsing range: %v", err)
	}

	journal, cleanup, err := openJournal(ctx, cfg.PostgresDSN, cfg.ClickHouseDSN)
	if err != nil {
		fatalf("Error connecting to databases: %v", err)
	}
	defer cleanup()

	report, err := reporting.NewGenerator(journal, cfg.MinMarketCapUSD).Generate(ctx, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		fatalf("Error generating report: %v", err)
	}

	var rendered string
	switch *format {
	case "markdown", "md":
		rendered = reporting.RenderMarkdown(report)
	case "csv":
		rendered = reporting.RenderCSV(report.Sessions)
	default:
		fatalf("Unknown format: %s", *format)
	}

	if *output == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*output, []byte(rendered), 0o644); err != nil {
		fatalf("Error writing %s: %v", *output, err)
	}
	fmt.Printf("Report written to %s\n", *output)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// parseRange resolves the report range, defaulting to the 24 hours before now.
func parseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	end := now
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		end = t
	}
	start := end.Add(-24 * time.Hour)
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
		start = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to is before --from")
	}
	return start, end, nil
}

// openJournal connects to the journals. Observations are read from
// ClickHouse when a DSN is given and reported as zero otherwise.
func openJournal(ctx context.Context, postgresDSN, clickhouseDSN string) (*storage.Journal, func(), error) {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}

	var observations storage.CurveObservationStore = memory.NewCurveObservationStore()
	cleanup := pool.Close
	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse: %w", err)
		}
		observations = chstore.NewCurveObservationStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return pgstore.NewJournal(pool, observations), cleanup, nil
}

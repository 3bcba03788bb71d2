package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/bookingwidget/libs/config"
	"github.com/md-rashed-zaman/bookingwidget/libs/db"
	"github.com/md-rashed-zaman/bookingwidget/libs/redisx"
	"github.com/md-rashed-zaman/bookingwidget/libs/runtime"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/backend"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/source"
)

// catalog-seed loads business hours, staff, staff hours and services from a JSON file
// into the configured catalog backend and evicts the matching cache entries.
func main() {
	_ = config.LoadDotEnv()

	var (
		file   = flag.String("file", "-", "JSON catalog write or array of writes; - reads stdin")
		dryRun = flag.Bool("dry-run", false, "validate the input without writing")
	)
	flag.Parse()

	in, err := open(*file)
	if err != nil {
		fatal(err.Error())
	}
	defer in.Close()

	writes, err := decodeWrites(in)
	if err != nil {
		fatal(err.Error())
	}
	for _, w := range writes {
		if err := w.Validate(); err != nil {
			fatal(err.Error())
		}
	}
	if *dryRun {
		fmt.Printf("validated %d catalog write(s)\n", len(writes))
		return
	}

	logger := runtime.NewLogger("catalog-seed")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := backend.ConfigFromEnv()
	if err != nil {
		fatal(err.Error())
	}

	var pool *db.Pool
	var dbtx db.DBTX
	if cfg.Kind == backend.KindPostgres {
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			fatal(err.Error())
		}
		pool, err = db.Open(ctx, dbURL)
		if err != nil {
			fatal(err.Error())
		}
		defer pool.Close()
		dbtx = pool
	}

	store, err := backend.OpenCatalog(ctx, cfg, dbtx, outbox.NewRepository(), logger)
	if err != nil {
		fatal(err.Error())
	}
	var writer source.CatalogWriter = store
	if rdb := redisx.NewClient(config.String("REDIS_ADDR", "")); rdb != nil {
		defer rdb.Close()
		writer = source.NewCachedCatalog(store, rdb, 0, logger)
	}

	for _, w := range writes {
		if err := writer.Apply(ctx, w); err != nil {
			fatal(fmt.Sprintf("apply %s: %v", w.BusinessID, err))
		}
		logger.Info("catalog applied",
			"business_id", w.BusinessID,
			"staff", len(w.StaffIDs()),
			"services", len(w.ServiceIDs()),
		)
	}
}

func open(path string) (io.ReadCloser, error) {
	if strings.TrimSpace(path) == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}

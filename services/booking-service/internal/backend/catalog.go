// Package backend selects the catalog store the service and its tools run against.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/md-rashed-zaman/bookingwidget/libs/awsx"
	"github.com/md-rashed-zaman/bookingwidget/libs/config"
	"github.com/md-rashed-zaman/bookingwidget/libs/db"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/docstore"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/source"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/storage"
)

const (
	KindPostgres = "postgres"
	KindDynamoDB = "dynamodb"
)

// Store is a catalog that also accepts writes.
type Store interface {
	source.Catalog
	source.CatalogWriter
}

type Config struct {
	Kind        string
	DynamoTable string
	AWS         awsx.Options
}

// ConfigFromEnv reads CATALOG_BACKEND, DYNAMODB_TABLE, AWS_REGION, AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY and AWS_ENDPOINT_OVERRIDE.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Kind:        strings.ToLower(strings.TrimSpace(config.String("CATALOG_BACKEND", KindPostgres))),
		DynamoTable: strings.TrimSpace(config.String("DYNAMODB_TABLE", "booking-catalog")),
		AWS: awsx.Options{
			Region:           config.String("AWS_REGION", "us-east-1"),
			AccessKeyID:      config.String("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:  config.String("AWS_SECRET_ACCESS_KEY", ""),
			EndpointOverride: config.String("AWS_ENDPOINT_OVERRIDE", ""),
		},
	}
	switch cfg.Kind {
	case KindPostgres:
	case KindDynamoDB:
		if cfg.DynamoTable == "" {
			return Config{}, fmt.Errorf("DYNAMODB_TABLE is required when CATALOG_BACKEND=%s", KindDynamoDB)
		}
	default:
		return Config{}, fmt.Errorf("CATALOG_BACKEND must be %s or %s (got %q)", KindPostgres, KindDynamoDB, cfg.Kind)
	}
	return cfg, nil
}

// OpenCatalog returns the configured catalog store. Only the Postgres store records
// catalog.changed events, since it shares a transaction with the outbox.
func OpenCatalog(ctx context.Context, cfg Config, pool db.DBTX, events *outbox.Repository, logger *slog.Logger) (Store, error) {
	switch cfg.Kind {
	case KindPostgres, "":
		return storage.NewCatalogRepository(pool, events), nil
	case KindDynamoDB:
		awsCfg, err := awsx.LoadConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, fmt.Errorf("backend: load aws config: %w", err)
		}
		store, err := docstore.New(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("backend: unknown catalog backend %q", cfg.Kind)
	}
}

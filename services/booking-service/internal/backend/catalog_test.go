package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/bookingwidget/services/booking-service/internal/storage"
)

func TestConfigFromEnvDefaultsToPostgres(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, KindPostgres, cfg.Kind)
	require.Equal(t, "us-east-1", cfg.AWS.Region)
}

func TestConfigFromEnvDynamo(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", " DynamoDB ")
	t.Setenv("DYNAMODB_TABLE", "catalog-test")
	t.Setenv("AWS_ENDPOINT_OVERRIDE", "http://localhost:8000")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	require.Equal(t, KindDynamoDB, cfg.Kind)
	require.Equal(t, "catalog-test", cfg.DynamoTable)
	require.Equal(t, "http://localhost:8000", cfg.AWS.EndpointOverride)
}

func TestConfigFromEnvRejectsUnknownBackend(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "mongo")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestOpenCatalogPostgres(t *testing.T) {
	store, err := OpenCatalog(context.Background(), Config{Kind: KindPostgres}, nil, outbox.NewRepository(), nil)
	require.NoError(t, err)
	if _, ok := store.(*storage.CatalogRepository); !ok {
		t.Fatalf("expected postgres catalog, got %T", store)
	}
}

func TestOpenCatalogUnknown(t *testing.T) {
	if _, err := OpenCatalog(context.Background(), Config{Kind: "mongo"}, nil, nil, nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

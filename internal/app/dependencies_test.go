package app

import (
	"context"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, log.WithField("test", "memory-storage"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(memory) failed: %v", err)
	}
	if deps.products == nil {
		t.Fatal("products repository should not be nil for memory storage")
	}
	if deps.orders == nil {
		t.Fatal("orders repository should not be nil for memory storage")
	}
	if deps.outboxRepo == nil {
		t.Fatal("outbox repository should not be nil for memory storage")
	}
	if deps.closeFn != nil {
		t.Fatal("memory storage should not require a close func")
	}
}

func TestInitRuntimeDependencies_EmptyDriverDefaultsToMemory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{}, nil)
	if err != nil {
		t.Fatalf("initRuntimeDependencies(empty driver) failed: %v", err)
	}
	if deps.products == nil || deps.orders == nil || deps.outboxRepo == nil {
		t.Fatal("empty driver should fall back to memory repositories")
	}
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, log.WithField("test", "postgres-missing-dsn"))
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "sqlite",
	}, log.WithField("test", "unsupported-driver"))
	if err == nil {
		t.Fatal("expected error for unsupported storage driver")
	}
	if !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitRuntimeDependencies_MemoryRepositoriesAreIndependent(t *testing.T) {
	t.Parallel()

	logger := log.WithField("test", "independent-deps")
	deps1, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverMemory}, logger)
	if err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	deps2, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverMemory}, logger)
	if err != nil {
		t.Fatalf("second init failed: %v", err)
	}

	if deps1.products == deps2.products {
		t.Error("product repositories should be independent instances")
	}
	if deps1.outboxRepo == deps2.outboxRepo {
		t.Error("outbox repositories should be independent instances")
	}
}

func TestCloseStorage_NilSafe(t *testing.T) {
	t.Parallel()

	logger := log.WithField("test", "close-storage")

	closeStorage(nil, logger)
	closeStorage(&runtimeDependencies{}, logger)

	closed := false
	closeStorage(&runtimeDependencies{closeFn: func() error {
		closed = true
		return nil
	}}, logger)
	if !closed {
		t.Fatal("expected close func to be called")
	}
}

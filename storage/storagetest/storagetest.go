// Package storagetest oferece um banco sqlite em memória para testes dos stores.
package storagetest

import (
	"context"
	"testing"

	"delivery-gateway/storage"

	"github.com/jmoiron/sqlx"
)

// NewDB abre um sqlite ":memory:" com as migrações aplicadas e fecha no fim do teste.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := storage.Open(context.Background(), storage.Config{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing test db: %v", err)
		}
	})
	return db
}

package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billed/internal/config"
	"billed/internal/core"
	"billed/internal/store"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:   "sqlite",
		PublicBaseURL: "http://localhost:8080",
		SQLiteDBPath:  "./data/billed.db",
		ReceiptsDir:   "./data/receipts",
		AMQPURL:       "amqp://localhost:5672/",
		AMQPExchange:  "billed",
		AMQPQueue:     "sync_bills",
	}

	got, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, got.Type)
	assert.Equal(t, "./data/receipts", got.ReceiptsDir)
	assert.Equal(t, "http://localhost:8080", got.PublicBaseURL)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "sqlite", config: Config{Type: SQLiteBackend, SQLiteDBPath: "a.db", ReceiptsDir: "r"}},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend, ReceiptsDir: "r"}, wantErr: true},
		{name: "sqlite without receipts", config: Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, wantErr: true},
		{name: "api", config: Config{Type: APIBackend, StoreAPIURL: "http://store"}},
		{name: "api without URL", config: Config{Type: APIBackend}, wantErr: true},
		{name: "unknown", config: Config{Type: "sheets"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"memory", "sqlite", "api"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:          MemoryBackend,
		PublicBaseURL: "http://localhost:8080",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Store)
	assert.NotNil(t, res.Receipts)
	assert.Nil(t, res.Ready)
	assert.NoError(t, res.Close())
}

func TestCreateSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	res, err := NewFactory(nil).CreateBackend(ctx, Config{
		Type:          SQLiteBackend,
		PublicBaseURL: "http://localhost:8080",
		SQLiteDBPath:  filepath.Join(dir, "billed.db"),
		ReceiptsDir:   filepath.Join(dir, "receipts"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })

	require.NotNil(t, res.Ready)
	assert.NoError(t, res.Ready(ctx))

	up, err := res.Store.Bills().Create(ctx, store.CreatePayload{
		File:  core.ReceiptFile{Name: "note.png", ContentType: "image/png", Content: []byte("img")},
		Email: "a@a.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/receipts/"+up.Key, up.FileURL)

	rc, contentType, err := res.Receipts.OpenReceipt(ctx, up.Key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", contentType)
}

func TestCreateAPIBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:        APIBackend,
		StoreAPIURL: "http://store.example.com",
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Store)
	assert.Nil(t, res.Receipts)
	assert.NoError(t, res.Close())
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.Error(t, err)
}

package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pdf-chat/internal/config"
	"pdf-chat/internal/embedding"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.RAG.DBPath = filepath.Join(t.TempDir(), "store")
	return cfg
}

func TestBuild_MissingAPIKeyLeavesNoStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.EmbedLLM.Key = ""
	cfg.InferenceLLM.Key = ""

	_, err := Build(context.Background(), cfg)
	if !errors.Is(err, embedding.ErrMissingAPIKey) {
		t.Fatalf("err = %v, expected ErrMissingAPIKey", err)
	}
	if _, err := os.Stat(cfg.RAG.DBPath); !os.IsNotExist(err) {
		t.Errorf("store directory was created: %v", err)
	}
}

func TestBuild_Chromem(t *testing.T) {
	cfg := testConfig(t)
	cfg.EmbedLLM.Key = "test-key"
	cfg.InferenceLLM.Key = "test-key"

	a, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if n, err := a.Store.Count(context.Background()); err != nil || n != 0 {
		t.Errorf("count = %d, err = %v", n, err)
	}
	if _, err := os.Stat(cfg.RAG.DBPath); err != nil {
		t.Errorf("store directory missing: %v", err)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.RAG.Backend = "redis"
	if _, err := OpenStore(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}

package cmd

import (
	"errors"
	"testing"

	"github.com/koopa0/newsrag/internal/config"
	"github.com/koopa0/newsrag/internal/log"
)

func TestBuildVectorStore_Backends(t *testing.T) {
	t.Setenv("PINECONE_API_KEY", "pc_test_key")
	logger := log.NewNop()

	cases := []struct {
		backend string
		wantErr bool
	}{
		{config.BackendMemory, false},
		{config.BackendChroma, false},
		{config.BackendPinecone, false},
		{"qdrant", true},
	}
	for _, tc := range cases {
		cfg := &config.Config{
			Backend:          tc.backend,
			ChromaURL:        "http://localhost:8000",
			ChromaCollection: "news_articles",
			PineconeIndex:    "news-articles",
		}
		store, err := buildVectorStore(cfg, logger)
		if tc.wantErr {
			if !errors.Is(err, config.ErrInvalidBackend) {
				t.Errorf("backend %q: expected ErrInvalidBackend, got %v", tc.backend, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("backend %q: %v", tc.backend, err)
		}
		if store == nil {
			t.Errorf("backend %q: nil store", tc.backend)
		}
	}
}

func TestBuildEmbedder_RequiresKey(t *testing.T) {
	t.Setenv("JINA_API_KEY", "")
	if _, err := buildEmbedder(&config.Config{}); err == nil {
		t.Error("expected error without JINA_API_KEY")
	}

	t.Setenv("JINA_API_KEY", "jina_test_key")
	if _, err := buildEmbedder(&config.Config{}); err != nil {
		t.Errorf("buildEmbedder: %v", err)
	}
}

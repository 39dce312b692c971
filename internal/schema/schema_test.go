package schema

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jackzampolin/bookboost/internal/defra"
)

func TestAll(t *testing.T) {
	schemas, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(schemas) != 3 {
		t.Fatalf("len(All()) = %d, want 3", len(schemas))
	}
	for _, s := range schemas {
		if !strings.Contains(s.SDL, "type "+s.Name+" {") {
			t.Errorf("schema %s SDL does not declare its type:\n%s", s.Name, s.SDL)
		}
	}
}

func TestGet(t *testing.T) {
	if _, err := Get("Part"); err != nil {
		t.Errorf("Get(Part) error = %v", err)
	}
	if _, err := Get("Book"); err == nil {
		t.Error("expected error for unknown schema")
	}
}

func TestInitialize(t *testing.T) {
	t.Run("applies every schema", func(t *testing.T) {
		var mu sync.Mutex
		var bodies []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			mu.Lock()
			bodies = append(bodies, string(b))
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		if err := Initialize(context.Background(), defra.NewClient(server.URL), nil); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if len(bodies) != 3 || !strings.Contains(bodies[0], "type Job") {
			t.Errorf("schema bodies = %v", bodies)
		}
	})

	t.Run("existing collections are skipped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "collection already exists", http.StatusBadRequest)
		}))
		defer server.Close()

		if err := Initialize(context.Background(), defra.NewClient(server.URL), nil); err != nil {
			t.Errorf("Initialize() error = %v", err)
		}
	})

	t.Run("other errors fail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "syntax error", http.StatusBadRequest)
		}))
		defer server.Close()

		if err := Initialize(context.Background(), defra.NewClient(server.URL), nil); err == nil {
			t.Error("expected error")
		}
	})
}

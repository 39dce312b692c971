package defra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// graphqlServer answers every GraphQL request with handler's response and
// records the query text it saw.
func graphqlServer(t *testing.T, handler func(req GQLRequest) GQLResponse) (*httptest.Server, *[]GQLRequest) {
	t.Helper()
	var seen []GQLRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/graphql" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req GQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		seen = append(seen, req)
		json.NewEncoder(w).Encode(handler(req))
	}))
	t.Cleanup(server.Close)
	return server, &seen
}

func TestClient_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy_500", http.StatusInternalServerError, true},
		{"unhealthy_503", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			err := NewClient(server.URL).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnhealthy) {
				t.Errorf("expected ErrUnhealthy, got %v", err)
			}
		})
	}
}

func TestClient_Execute(t *testing.T) {
	t.Run("variables are sent", func(t *testing.T) {
		server, seen := graphqlServer(t, func(req GQLRequest) GQLResponse {
			return GQLResponse{Data: map[string]any{"Job": []any{}}}
		})

		_, err := NewClient(server.URL).Execute(context.Background(), "query { Job { _docID } }", map[string]any{"v0": "x"})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if got := (*seen)[0].Variables["v0"]; got != "x" {
			t.Errorf("variable v0 = %v, want x", got)
		}
	})

	t.Run("graphql error is surfaced in response", func(t *testing.T) {
		server, _ := graphqlServer(t, func(req GQLRequest) GQLResponse {
			return GQLResponse{Errors: []GQLError{{Message: "boom"}}}
		})

		resp, err := NewClient(server.URL).Execute(context.Background(), "query { x }", nil)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if resp.Error() != "boom" {
			t.Errorf("Error() = %q, want boom", resp.Error())
		}
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		}))
		defer server.Close()

		if _, err := NewClient(server.URL).Execute(context.Background(), "query { x }", nil); err == nil {
			t.Error("expected error for 5xx response")
		}
	})
}

func TestClient_AddSchema(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/schema" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := NewClient(server.URL).AddSchema(context.Background(), "type Job { job_id: String }"); err != nil {
		t.Fatalf("AddSchema() error = %v", err)
	}
	if !strings.Contains(body, "type Job") {
		t.Errorf("schema body = %q", body)
	}
}

func TestClient_Create(t *testing.T) {
	server, seen := graphqlServer(t, func(req GQLRequest) GQLResponse {
		return GQLResponse{Data: map[string]any{"create_Job": []any{map[string]any{"_docID": "bae-abc123"}}}}
	})

	docID, err := NewClient(server.URL).Create(context.Background(), "Job", map[string]any{
		"user_id": "u1",
		"job_id":  "j1",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if docID != "bae-abc123" {
		t.Errorf("docID = %q", docID)
	}
	want := `mutation { create_Job(input: [{job_id: "j1", user_id: "u1"}]) { _docID } }`
	if got := (*seen)[0].Query; got != want {
		t.Errorf("query = %s\nwant    %s", got, want)
	}
}

func TestClient_UpdateWhere(t *testing.T) {
	t.Run("matched", func(t *testing.T) {
		server, seen := graphqlServer(t, func(req GQLRequest) GQLResponse {
			return GQLResponse{Data: map[string]any{"update_Job": []any{map[string]any{"_docID": "d1"}}}}
		})

		ids, err := NewClient(server.URL).UpdateWhere(context.Background(), "Job",
			map[string]any{"status": map[string]any{"_in": []any{"CREATED"}}},
			map[string]any{"status": "CONVERTING"})
		if err != nil {
			t.Fatalf("UpdateWhere() error = %v", err)
		}
		if len(ids) != 1 || ids[0] != "d1" {
			t.Errorf("ids = %v", ids)
		}
		want := `mutation { update_Job(filter: {status: {_in: ["CREATED"]}}, input: {status: "CONVERTING"}) { _docID } }`
		if got := (*seen)[0].Query; got != want {
			t.Errorf("query = %s\nwant    %s", got, want)
		}
	})

	t.Run("nothing matched", func(t *testing.T) {
		server, _ := graphqlServer(t, func(req GQLRequest) GQLResponse {
			return GQLResponse{Data: map[string]any{"update_Job": []any{}}}
		})

		ids, err := NewClient(server.URL).UpdateWhere(context.Background(), "Job", map[string]any{}, map[string]any{"status": "X"})
		if err != nil {
			t.Fatalf("UpdateWhere() error = %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("ids = %v, want none", ids)
		}
	})
}

func TestClient_URLNormalization(t *testing.T) {
	if got := NewClient("http://localhost:9181/").URL(); got != "http://localhost:9181" {
		t.Errorf("URL() = %s", got)
	}
}

func TestMapToGraphQLInput(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  string
	}{
		{"string value", map[string]any{"title": "Test"}, `{title: "Test"}`},
		{"int value", map[string]any{"count": 42}, `{count: 42}`},
		{"bool value", map[string]any{"active": true}, `{active: true}`},
		{"sorted keys", map[string]any{"b": 1, "a": 2}, `{a: 2, b: 1}`},
		{"nested", map[string]any{"f": map[string]any{"_eq": "x"}}, `{f: {_eq: "x"}}`},
		{"control chars", map[string]any{"t": "a\nb"}, `{t: "a\nb"}`},
		{"empty map", map[string]any{}, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mapToGraphQLInput(tt.input)
			if err != nil {
				t.Fatalf("mapToGraphQLInput() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("mapToGraphQLInput() = %v, want %v", got, tt.want)
			}
		})
	}
}

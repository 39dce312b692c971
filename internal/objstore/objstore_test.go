package objstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	t.Run("put and get", func(t *testing.T) {
		obj, err := s.Put(ctx, "u1/j1/book.txt", []byte("hello"))
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if obj.Key != "u1/j1/book.txt" || obj.Size != 5 || obj.Location == "" {
			t.Errorf("Put() = %+v", obj)
		}
		got, err := s.Get(ctx, "u1/j1/book.txt")
		if err != nil || got != "hello" {
			t.Errorf("Get() = %q, %v", got, err)
		}
	})

	t.Run("overwrite keeps key", func(t *testing.T) {
		if _, err := s.Put(ctx, "u1/j1/book.txt", []byte("hello again")); err != nil {
			t.Fatal(err)
		}
		obj, err := s.Stat(ctx, "u1/j1/book.txt")
		if err != nil || obj.Size != 11 {
			t.Errorf("Stat() = %+v, %v", obj, err)
		}
	})

	t.Run("json round trip", func(t *testing.T) {
		type chapter struct{ Title string }
		if _, err := s.PutJSON(ctx, ChaptersKey("u1", "j1"), []chapter{{"One"}, {"Two"}}); err != nil {
			t.Fatal(err)
		}
		var got []chapter
		if err := s.GetJSON(ctx, "u1/j1/chapters.json", &got); err != nil {
			t.Fatalf("GetJSON() error = %v", err)
		}
		if len(got) != 2 || got[1].Title != "Two" {
			t.Errorf("GetJSON() = %+v", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := s.Get(ctx, "u1/none"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
		}
		ok, err := s.Exists(ctx, "u1/none")
		if err != nil || ok {
			t.Errorf("Exists(missing) = %v, %v", ok, err)
		}
		ok, _ = s.Exists(ctx, "u1/j1/book.txt")
		if !ok {
			t.Error("Exists() = false for stored object")
		}
	})

	t.Run("invalid keys", func(t *testing.T) {
		for _, key := range []string{"", "/", "../etc/passwd", "u1/../../x"} {
			if _, err := s.Put(ctx, key, []byte("x")); err == nil {
				t.Errorf("Put(%q) succeeded, want error", key)
			}
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := s.Put(cctx, "u1/x", nil); err == nil {
			t.Error("expected context error")
		}
	})
}

func TestNewOS(t *testing.T) {
	root := filepath.Join(t.TempDir(), "objects")
	s, err := NewOS(root)
	if err != nil {
		t.Fatalf("NewOS() error = %v", err)
	}
	obj, err := s.Put(context.Background(), JobKey("u1", "j1", "a.txt"), []byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(root, "u1", "j1", "a.txt"))
	if err != nil || string(data) != "abc" {
		t.Errorf("file on disk = %q, %v", data, err)
	}
	if obj.Location != filepath.Join(root, "u1", "j1", "a.txt") {
		t.Errorf("Location = %s", obj.Location)
	}
}

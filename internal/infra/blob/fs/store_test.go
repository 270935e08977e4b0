package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trackgeo/internal/blob/core"
)

func TestStoreRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	info, err := s.Put(ctx, "cave/hall.json", strings.NewReader(`{"volumes":[]}`), core.PutOptions{
		ContentType: core.FormatJSON.ContentType(),
		Metadata:    map[string]string{"detector": "hall"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 14 || len(info.ETag) != 64 || info.Format() != core.FormatJSON {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "cave/hall.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected exists error, got %v", err)
	}
	got, rc, err := s.Get(ctx, "cave/hall.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"volumes":[]}` || got.Metadata["detector"] != "hall" {
		t.Fatalf("get returned %q %+v", body, got)
	}
	list, err := s.List(ctx, "cave/")
	if err != nil || len(list) != 1 || list[0].Key != "cave/hall.json" {
		t.Fatalf("list: %v %+v", err, list)
	}
	if ok, err := s.Delete(ctx, "cave/hall.json"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := s.Head(ctx, "cave/hall.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if ok, err := s.Delete(ctx, "cave/hall.json"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
}

func TestStoreRejectsBadKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "/abs.yaml", "../escape.yaml", "doc.meta"} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrBadKey) {
			t.Fatalf("key %q: expected bad key, got %v", key, err)
		}
	}
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "docs")
	if _, err := New(root); err != nil {
		t.Fatalf("new: %v", err)
	}
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

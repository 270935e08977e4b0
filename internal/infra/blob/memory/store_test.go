package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"trackgeo/internal/blob/core"
)

func TestStoreIsolatesCallers(t *testing.T) {
	s := New()
	ctx := context.Background()
	md := map[string]string{"source": "legacy"}
	if _, err := s.Put(ctx, "a.yaml", strings.NewReader("materials: []"), core.PutOptions{Metadata: md}); err != nil {
		t.Fatalf("put: %v", err)
	}
	md["source"] = "changed"
	info, rc, err := s.Get(ctx, "a.yaml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "materials: []" || info.Metadata["source"] != "legacy" {
		t.Fatalf("unexpected %q %+v", body, info)
	}
	if _, err := s.Put(ctx, "a.yaml", strings.NewReader(""), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected exists error, got %v", err)
	}
	if _, err := s.Head(ctx, "b.yaml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListOrdersByKey(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, k := range []string{"geo/z.yaml", "geo/a.yaml", "other.yaml"} {
		if _, err := s.Put(ctx, k, strings.NewReader("{}"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := s.List(ctx, "geo/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "geo/a.yaml" || list[1].Key != "geo/z.yaml" {
		t.Fatalf("unexpected list %+v", list)
	}
	if ok, _ := s.Delete(ctx, "geo/a.yaml"); !ok {
		t.Fatalf("delete should report existing key")
	}
}

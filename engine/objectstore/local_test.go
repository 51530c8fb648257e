package objectstore

import (
	"context"
	"testing"
)

func TestLocalStorePutGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	if err := store.PutBytes(ctx, "aird", "ws/w1/raw/a.txt", []byte("hello"), "text/plain"); err != nil {
		t.Fatalf("PutBytes: %v", err)
	}

	got, err := store.GetBytes(ctx, "aird", "ws/w1/raw/a.txt")
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}

	exists, err := store.ObjectExists(ctx, "aird", "ws/w1/raw/a.txt")
	if err != nil || !exists {
		t.Fatalf("expected exists, got %v %v", exists, err)
	}

	missing, err := store.ObjectExists(ctx, "aird", "ws/w1/raw/missing.txt")
	if err != nil || missing {
		t.Fatalf("expected not exists, got %v %v", missing, err)
	}
}

func TestLocalStoreListObjects(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewLocalStore(dir)
	ctx := context.Background()

	_ = store.PutBytes(ctx, "aird", "ws/w1/raw/a.txt", []byte("1"), "")
	_ = store.PutBytes(ctx, "aird", "ws/w1/raw/b.txt", []byte("22"), "")
	_ = store.PutBytes(ctx, "aird", "ws/w1/clean/c.jsonl", []byte("333"), "")

	objs, err := store.ListObjects(ctx, "aird", "ws/w1/raw/")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("expected 2 objects under raw/, got %d", len(objs))
	}
}

func TestLocalStoreCopyAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewLocalStore(dir)
	ctx := context.Background()

	_ = store.PutBytes(ctx, "aird", "src.txt", []byte("data"), "")
	if err := store.CopyObject(ctx, "aird", "src.txt", "dst.txt"); err != nil {
		t.Fatalf("CopyObject: %v", err)
	}
	got, err := store.GetBytes(ctx, "aird", "dst.txt")
	if err != nil || string(got) != "data" {
		t.Fatalf("copy mismatch: %v %q", err, got)
	}

	if err := store.DeleteObject(ctx, "aird", "src.txt"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
	exists, _ := store.ObjectExists(ctx, "aird", "src.txt")
	if exists {
		t.Fatal("expected src.txt to be deleted")
	}
}

func TestPutJSONGetJSON(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewLocalStore(dir)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	in := payload{Name: "aird"}
	if err := PutJSON(ctx, store, "aird", "meta.json", in); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	var out payload
	if err := GetJSON(ctx, store, "aird", "meta.json", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "aird" {
		t.Fatalf("got %+v", out)
	}
}

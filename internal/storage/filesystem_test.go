package storage

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"

	"assetgen/internal/infra"
)

func TestFileStoreWriteAndRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	key, err := store.Write(context.Background(), "batch-1/bakery/shot.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "batch-1/bakery/shot.png" {
		t.Fatalf("unexpected key %q", key)
	}

	data, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("read %q", data)
	}

	full, err := store.FullPath(key)
	if err != nil {
		t.Fatalf("full path: %v", err)
	}
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("stat %s: %v", full, err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	for _, key := range []string{"", "../escape.png", "a/../../escape.png", "."} {
		if _, err := store.Write(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}

	// Leading slashes and backslashes are normalized, not rejected.
	key, err := store.Write(context.Background(), `/batch\sub\file.png`, []byte("x"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "batch/sub/file.png" {
		t.Fatalf("normalized key %q", key)
	}
}

func TestFileStoreWalk(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{
		"b1/bakery/a.png",
		"b1/bakery/b.webp",
		"b2/florist/c.png",
	} {
		if _, err := store.Write(ctx, key, []byte("x")); err != nil {
			t.Fatalf("write %s: %v", key, err)
		}
	}

	var keys []string
	err = store.Walk(ctx, "b1", func(key string, size int64) error {
		if size != 1 {
			t.Fatalf("size %d for %s", size, key)
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	sort.Strings(keys)
	want := []string{"b1/bakery/a.png", "b1/bakery/b.webp"}
	if len(keys) != len(want) || keys[0] != want[0] || keys[1] != want[1] {
		t.Fatalf("walked %v, want %v", keys, want)
	}
}

type recordingSink struct {
	writes map[string][]byte
	err    error
}

func (s *recordingSink) Write(_ context.Context, key string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.writes == nil {
		s.writes = map[string][]byte{}
	}
	s.writes[key] = data
	return key, nil
}

func TestMirroredSink(t *testing.T) {
	primary := &recordingSink{}
	mirror := &recordingSink{}
	sink := NewMirroredSink(primary, mirror, infra.NopLogger())

	key, err := sink.Write(context.Background(), "a/b.png", []byte("x"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if key != "a/b.png" {
		t.Fatalf("key %q", key)
	}
	if _, ok := mirror.writes["a/b.png"]; !ok {
		t.Fatal("mirror never written")
	}
}

func TestMirroredSinkMirrorFailureIsSwallowed(t *testing.T) {
	primary := &recordingSink{}
	mirror := &recordingSink{err: errors.New("bucket down")}
	sink := NewMirroredSink(primary, mirror, infra.NopLogger())

	if _, err := sink.Write(context.Background(), "a/b.png", []byte("x")); err != nil {
		t.Fatalf("mirror failure leaked: %v", err)
	}
	if _, ok := primary.writes["a/b.png"]; !ok {
		t.Fatal("primary write missing")
	}
}

func TestMirroredSinkPrimaryFailure(t *testing.T) {
	primary := &recordingSink{err: errors.New("disk full")}
	sink := NewMirroredSink(primary, &recordingSink{}, infra.NopLogger())

	if _, err := sink.Write(context.Background(), "a/b.png", []byte("x")); err == nil {
		t.Fatal("expected primary failure to propagate")
	}
}

func TestContentTypeForKey(t *testing.T) {
	cases := map[string]string{
		"a/b.png":         "image/png",
		"a/b.JPG":         "image/jpeg",
		"a/b.webp":        "image/webp",
		"a.metadata.json": "application/json",
		"a/no-extension":  "application/octet-stream",
	}
	for key, want := range cases {
		if got := contentTypeForKey(key); got != want {
			t.Fatalf("%s: got %s, want %s", key, got, want)
		}
	}
}

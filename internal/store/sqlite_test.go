package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "absent"); err != nil || ok {
		t.Fatalf("Get(absent) = ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get after Set = %q ok=%v err=%v", got, ok, err)
	}

	// Set replaces.
	if err := s.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Get(ctx, "k")
	if string(got) != "v2" {
		t.Fatalf("Get after second Set = %q, want v2", got)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("key present after delete")
	}

	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("deleting absent key: %v", err)
	}
}

func TestListAppendTrimRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c", "d", "e"} {
		if err := s.ListAppend(ctx, "list", []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListRange(ctx, "list", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 || string(all[0]) != "a" || string(all[4]) != "e" {
		t.Fatalf("full range = %v", asStrings(all))
	}

	mid, err := s.ListRange(ctx, "list", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(mid) != 3 || string(mid[0]) != "b" || string(mid[2]) != "d" {
		t.Fatalf("mid range = %v", asStrings(mid))
	}

	// Trim keeps the most recent entries.
	if err := s.ListTrim(ctx, "list", 2); err != nil {
		t.Fatal(err)
	}
	kept, _ := s.ListRange(ctx, "list", 0, -1)
	if len(kept) != 2 || string(kept[0]) != "d" || string(kept[1]) != "e" {
		t.Fatalf("after trim = %v", asStrings(kept))
	}

	if err := s.ListClear(ctx, "list"); err != nil {
		t.Fatal(err)
	}
	cleared, _ := s.ListRange(ctx, "list", 0, -1)
	if len(cleared) != 0 {
		t.Fatalf("after clear = %v", asStrings(cleared))
	}
}

func TestJSONHelpers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	if err := SetJSON(ctx, s, "obj", payload{Name: "x", Value: 1.5}); err != nil {
		t.Fatal(err)
	}
	var got payload
	ok, err := GetJSON(ctx, s, "obj", &got)
	if err != nil || !ok {
		t.Fatalf("GetJSON = ok=%v err=%v", ok, err)
	}
	if got.Name != "x" || got.Value != 1.5 {
		t.Fatalf("GetJSON = %+v", got)
	}

	var missing payload
	if ok, err := GetJSON(ctx, s, "nope", &missing); err != nil || ok {
		t.Fatalf("GetJSON(absent) = ok=%v err=%v", ok, err)
	}

	for i := 0; i < 10; i++ {
		if err := AppendJSON(ctx, s, "history", payload{Value: float64(i)}, 3); err != nil {
			t.Fatal(err)
		}
	}
	values, _ := s.ListRange(ctx, "history", 0, -1)
	if len(values) != 3 {
		t.Fatalf("AppendJSON kept %d entries, want 3", len(values))
	}
}

func asStrings(values [][]byte) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

package modeltable

import "testing"

func TestPutGetDelete(t *testing.T) {
	tbl := New()
	key := Key{ModelType: "vlm", ModelPath: "/tmp/a.hef"}

	if _, ok := tbl.Get(key); ok {
		t.Fatalf("expected no entry before Put")
	}

	entry := tbl.Put(key, "runtime-a")
	if entry.ModelType != "vlm" || entry.ModelPath != "/tmp/a.hef" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.LoadedAt.After(entry.LastUsed) || entry.LoadedAt.Before(entry.LastUsed.Add(-1)) {
		// loaded_at <= last_used invariant; on first Put they should be equal-ish.
		t.Fatalf("expected loaded_at == last_used on first Put, got %v / %v", entry.LoadedAt, entry.LastUsed)
	}

	got, ok := tbl.Get(key)
	if !ok || got.Runtime != "runtime-a" {
		t.Fatalf("expected loaded entry, got %+v ok=%v", got, ok)
	}

	if tbl.Len() != 1 {
		t.Fatalf("expected len 1, got %d", tbl.Len())
	}

	deleted, ok := tbl.Delete(key)
	if !ok || deleted.Runtime != "runtime-a" {
		t.Fatalf("expected deleted entry, got %+v ok=%v", deleted, ok)
	}
	if tbl.Len() != 0 {
		t.Fatalf("expected len 0 after delete, got %d", tbl.Len())
	}
}

func TestTouchUpdatesLastUsed(t *testing.T) {
	tbl := New()
	key := Key{ModelType: "vlm", ModelPath: "/tmp/a.hef"}
	first := tbl.Put(key, "r")

	tbl.Touch(key)
	after, _ := tbl.Get(key)
	if after.LastUsed.Before(first.LoadedAt) {
		t.Fatalf("expected last_used >= loaded_at")
	}
}

func TestDeleteAllReverseInsertionOrder(t *testing.T) {
	tbl := New()
	keys := []Key{
		{ModelType: "vlm", ModelPath: "/tmp/a.hef"},
		{ModelType: "whisper", ModelPath: "/tmp/b.hef"},
		{ModelType: "clip", ModelPath: "/tmp/c.hef"},
	}
	for _, k := range keys {
		tbl.Put(k, k.ModelPath)
	}

	entries := tbl.DeleteAllReverseInsertionOrder()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		want := keys[len(keys)-1-i]
		if e.ModelType != want.ModelType || e.ModelPath != want.ModelPath {
			t.Fatalf("entry %d: got %s/%s, want %s/%s", i, e.ModelType, e.ModelPath, want.ModelType, want.ModelPath)
		}
	}
	if tbl.Len() != 0 {
		t.Fatalf("expected table empty after DeleteAllReverseInsertionOrder")
	}
}

func TestSnapshotIsValueCopy(t *testing.T) {
	tbl := New()
	key := Key{ModelType: "vlm", ModelPath: "/tmp/a.hef"}
	tbl.Put(key, "r")

	snap := tbl.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 snapshot entry, got %d", len(snap))
	}

	tbl.Touch(key)
	if snap[0].LastUsed.Equal(func() Entry { e, _ := tbl.Get(key); return e }().LastUsed) {
		t.Fatalf("snapshot should not reflect subsequent mutation")
	}
}

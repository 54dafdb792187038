package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *MetadataDB {
	t.Helper()
	db, err := NewMetadataDB(filepath.Join(t.TempDir(), "data", "manifest.db"))
	if err != nil {
		t.Fatalf("NewMetadataDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndLookupArtifacts(t *testing.T) {
	db := openTestDB(t)

	if err := db.RecordArtifacts(ArtifactNames("clip"), "clip.mp4", "abc", "en", 1, 1.5); err != nil {
		t.Fatalf("RecordArtifacts() error = %v", err)
	}

	for _, name := range []string{"clip_transcript.txt", "clip_with_timestamps.txt", "clip.srt"} {
		ok, err := db.HasArtifact(name)
		if err != nil {
			t.Fatalf("HasArtifact(%q) error = %v", name, err)
		}
		if !ok {
			t.Fatalf("HasArtifact(%q) = false", name)
		}
	}

	ok, err := db.HasArtifact("other.srt")
	if err != nil || ok {
		t.Fatalf("HasArtifact(other.srt) = %v, %v", ok, err)
	}
}

func TestRecordArtifactsUpserts(t *testing.T) {
	db := openTestDB(t)

	if err := db.RecordArtifacts(ArtifactNames("clip"), "clip.mp4", "h1", "en", 1, 1.5); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := db.RecordArtifacts(ArtifactNames("clip"), "clip.mov", "h2", "fr", 3, 9); err != nil {
		t.Fatalf("second record: %v", err)
	}

	records, err := db.ListArtifacts(10)
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	for _, rec := range records {
		if rec.SourceHash != "h2" || rec.Language != "fr" || rec.SegmentCount != 3 {
			t.Fatalf("record not refreshed: %+v", rec)
		}
		if rec.BaseName != "clip" {
			t.Fatalf("base name = %q", rec.BaseName)
		}
	}
}

func TestListArtifactsRespectsLimit(t *testing.T) {
	db := openTestDB(t)
	if err := db.RecordArtifacts(ArtifactNames("a"), "a.mp4", "", "en", 0, 0); err != nil {
		t.Fatalf("record: %v", err)
	}

	records, err := db.ListArtifacts(2)
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
}

func TestHashFileIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("video bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	first, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	second, _ := HashFile(path)
	if first != second || len(first) != 64 {
		t.Fatalf("hashes = %q / %q", first, second)
	}

	if _, err := HashFile(path + ".missing"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

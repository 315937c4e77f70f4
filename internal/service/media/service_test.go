package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/models"
	"clipscribe/internal/objectstore"
	"clipscribe/internal/storage"
)

type fakeStore struct {
	bucket    string
	domain    string
	putCalls  int
	putErr    error
	lastKey   string
	fetchErr  error
	fetchBody string
}

func (f *fakeStore) Put(_ context.Context, localPath, key string) error {
	f.putCalls++
	f.lastKey = key
	if f.putErr != nil {
		return f.putErr
	}
	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("staged file missing: %w", err)
	}
	return nil
}

func (f *fakeStore) Fetch(_ context.Context, _, localPath string) error {
	if f.fetchErr != nil {
		return f.fetchErr
	}
	return os.WriteFile(localPath, []byte(f.fetchBody), 0o644)
}

func (f *fakeStore) PublicURL(key string) string {
	return objectstore.PublicURL(f.bucket, f.domain, key)
}

type fakeTranscriber struct {
	calls int
	text  string
	err   error
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestService(t *testing.T) (*Service, *sql.DB, *fakeStore, *fakeTranscriber) {
	t.Helper()
	cfg := &config.Config{Databases: map[string]config.DatabaseConfig{
		"sqlite3": {DSN: ":memory:"},
	}}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	store := &fakeStore{bucket: "clips", domain: "storage.example.com"}
	tr := &fakeTranscriber{text: "hello world"}
	svc := NewService(db, store, tr, t.TempDir(), time.Hour)
	return svc, db, store, tr
}

func TestHandleUploadEndToEnd(t *testing.T) {
	svc, db, store, tr := newTestService(t)

	result, err := svc.HandleUpload(context.Background(),
		strings.NewReader("fake video bytes"), "clip.mp4", "alice@example.com")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.Transcript != "hello world" {
		t.Fatalf("unexpected transcript %q", result.Transcript)
	}
	if want := "https://clips.storage.example.com/clip.mp4"; result.FileURL != want {
		t.Fatalf("unexpected url %q, want %q", result.FileURL, want)
	}
	if store.putCalls != 1 || tr.calls != 1 {
		t.Fatalf("expected one put and one transcription, got %d/%d", store.putCalls, tr.calls)
	}

	var status, transcript string
	if err := db.QueryRow(
		`SELECT transcription_status, transcript FROM videos WHERE user_email = ?`,
		"alice@example.com").Scan(&status, &transcript); err != nil {
		t.Fatalf("query video: %v", err)
	}
	if status != models.TranscriptionCompleted || transcript != "hello world" {
		t.Fatalf("video row not finalized: status=%s transcript=%q", status, transcript)
	}
}

func TestStorageFailureSkipsTranscription(t *testing.T) {
	svc, _, store, tr := newTestService(t)
	store.putErr = errors.New("bucket rejected the write")

	_, err := svc.HandleUpload(context.Background(),
		strings.NewReader("bytes"), "clip.mp4", "alice@example.com")
	if !errors.Is(err, ErrStorageUpload) {
		t.Fatalf("expected ErrStorageUpload, got %v", err)
	}
	if tr.calls != 0 {
		t.Fatalf("transcription must not run after a failed push, ran %d times", tr.calls)
	}
}

func TestTranscriptionFailureStillReportsURL(t *testing.T) {
	svc, db, _, tr := newTestService(t)
	tr.err = errors.New("model unavailable")

	_, err := svc.HandleUpload(context.Background(),
		strings.NewReader("bytes"), "clip.mp4", "alice@example.com")
	var trErr *TranscriptionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected *TranscriptionError, got %v", err)
	}
	if trErr.FileURL != "https://clips.storage.example.com/clip.mp4" {
		t.Fatalf("expected the stored URL on the error, got %q", trErr.FileURL)
	}

	var status string
	if err := db.QueryRow(`SELECT transcription_status FROM videos`).Scan(&status); err != nil {
		t.Fatalf("query video: %v", err)
	}
	if status != models.TranscriptionFailed {
		t.Fatalf("expected FAILED row, got %s", status)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"clip.mp4", "clip.mp4", false},
		{"../../etc/passwd", "passwd", false},
		{`..\..\windows\system32`, "system32", false},
		{"my clip (final).mp4", "my_clip__final_.mp4", false},
		{".hidden", "hidden", false},
		{"...", "", true},
		{"", "", true},
		{"////", "", true},
	}
	for _, tc := range cases {
		got, err := SanitizeFilename(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrUnsafeFilename) {
				t.Fatalf("%q: expected ErrUnsafeFilename, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
		if strings.ContainsAny(got, "/\\") || strings.Contains(got, "..") {
			t.Fatalf("%q: sanitized name %q still unsafe", tc.in, got)
		}
	}
}

func TestSameFilenameUploadsDoNotCollide(t *testing.T) {
	svc, _, store, _ := newTestService(t)

	first, err := svc.HandleUpload(context.Background(),
		strings.NewReader("one"), "clip.mp4", "alice@example.com")
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := svc.HandleUpload(context.Background(),
		strings.NewReader("two"), "clip.mp4", "alice@example.com")
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if first.FileURL == second.FileURL {
		t.Fatalf("expected distinct keys for duplicate filenames, both got %q", first.FileURL)
	}
	if store.lastKey != "clip (1).mp4" {
		t.Fatalf("expected uniquified key, got %q", store.lastKey)
	}
}

func TestListVideosNewestFirst(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	base := time.Now().UTC().Add(-time.Hour)
	for i, name := range []string{"a.mp4", "b.mp4"} {
		if _, err := db.Exec(`
			INSERT INTO videos (user_email, name, object_key, url, transcription_status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			"alice@example.com", name, name,
			"https://clips.storage.example.com/"+name,
			models.TranscriptionCompleted, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("insert video: %v", err)
		}
	}

	videos, err := svc.ListVideos(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if len(videos) != 2 || videos[0].Name != "b.mp4" {
		t.Fatalf("expected newest first, got %+v", videos)
	}

	others, err := svc.ListVideos(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if len(others) != 0 {
		t.Fatalf("expected no videos for other user, got %d", len(others))
	}
}

func TestAnalyzeURL(t *testing.T) {
	svc, _, store, tr := newTestService(t)
	store.fetchBody = "downloaded bytes"

	transcript, err := svc.AnalyzeURL(context.Background(),
		"clips", "storage.example.com", "https://clips.storage.example.com/clip.mp4")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if transcript != "hello world" || tr.calls != 1 {
		t.Fatalf("unexpected transcript %q (calls=%d)", transcript, tr.calls)
	}

	if _, err := svc.AnalyzeURL(context.Background(),
		"clips", "storage.example.com", "https://elsewhere.example.com/clip.mp4"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset for foreign url, got %v", err)
	}
}

func TestJanitorRemovesExpiredStagedFiles(t *testing.T) {
	svc, db, _, _ := newTestService(t)

	stale := filepath.Join(svc.stagingDir, "stale.mp4")
	if err := os.MkdirAll(svc.stagingDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}
	past := time.Now().UTC().Add(-time.Minute)
	if _, err := db.Exec(
		`INSERT INTO staged_files (path, created_at, expires_at) VALUES (?, ?, ?)`,
		stale, past.Add(-time.Hour), past); err != nil {
		t.Fatalf("insert staged row: %v", err)
	}

	if err := svc.cleanupExpired(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale file to be removed, stat err: %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM staged_files`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected staged row removed, %d left", count)
	}
}

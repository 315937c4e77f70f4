// Package media implements the upload-and-transcribe pipeline: stage the
// incoming file locally, push it to durable object storage, transcribe it,
// and record the outcome.
package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"clipscribe/internal/models"
	"clipscribe/internal/objectstore"
	"clipscribe/internal/transcriber"
)

var (
	// ErrNoFile means the request carried no file at all.
	ErrNoFile = errors.New("no file provided")
	// ErrUnsafeFilename means sanitization left nothing usable.
	ErrUnsafeFilename = errors.New("invalid filename")
	// ErrLocalWrite covers staging failures (disk, permissions).
	ErrLocalWrite = errors.New("local write failed")
	// ErrStorageUpload covers a rejected or interrupted store push.
	// Transcription is never attempted after it.
	ErrStorageUpload = errors.New("storage upload failed")
	// ErrUnknownAsset means an analyze request named a URL outside the bucket.
	ErrUnknownAsset = errors.New("unknown asset url")
)

// TranscriptionError reports a durably stored asset whose transcription
// failed. FileURL is valid: the push succeeded before the failure.
type TranscriptionError struct {
	FileURL string
	Err     error
}

func (e *TranscriptionError) Error() string { return "transcription failed: " + e.Err.Error() }
func (e *TranscriptionError) Unwrap() error { return e.Err }

// UploadResult is the combined outcome of a successful pipeline run.
type UploadResult struct {
	Transcript string `json:"transcript"`
	FileURL    string `json:"file_url"`
}

// Service runs the pipeline. Each request stages its own uniquely named file,
// so no cross-request coordination is needed.
type Service struct {
	db          *sql.DB
	store       objectstore.Store
	transcriber transcriber.Transcriber
	stagingDir  string
	stagedTTL   time.Duration
	opTimeout   time.Duration
}

// NewService wires the pipeline's collaborators.
func NewService(db *sql.DB, store objectstore.Store, tr transcriber.Transcriber, stagingDir string, stagedTTL time.Duration) *Service {
	if stagingDir == "" {
		stagingDir = "./data/uploads"
	}
	if stagedTTL <= 0 {
		stagedTTL = 24 * time.Hour
	}
	return &Service{
		db:          db,
		store:       store,
		transcriber: tr,
		stagingDir:  stagingDir,
		stagedTTL:   stagedTTL,
		opTimeout:   5 * time.Minute,
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename reduces a client-supplied filename to a safe storage key:
// directory components and traversal sequences are stripped, anything outside
// [A-Za-z0-9._-] becomes an underscore, and leading dots are removed.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" || strings.Trim(name, "._-") == "" {
		return "", ErrUnsafeFilename
	}
	return name, nil
}

// HandleUpload runs the full pipeline for one incoming file. The steps are
// strictly sequential: stage, push, transcribe. A failed push short-circuits
// transcription; a failed transcription still reports the stored URL via
// *TranscriptionError.
func (s *Service) HandleUpload(ctx context.Context, file io.Reader, filename, userEmail string) (*UploadResult, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	stagedPath, key, err := s.stage(ctx, file, name)
	if err != nil {
		return nil, err
	}

	pushCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	err = s.store.Put(pushCtx, stagedPath, key)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUpload, err)
	}
	fileURL := s.store.PublicURL(key)

	videoID, err := s.insertVideo(ctx, userEmail, name, key, fileURL)
	if err != nil {
		return nil, err
	}

	trCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	transcript, err := s.transcriber.Transcribe(trCtx, stagedPath)
	cancel()
	if err != nil {
		s.setTranscription(ctx, videoID, models.TranscriptionFailed, "")
		return nil, &TranscriptionError{FileURL: fileURL, Err: err}
	}
	s.setTranscription(ctx, videoID, models.TranscriptionCompleted, transcript)

	return &UploadResult{Transcript: transcript, FileURL: fileURL}, nil
}

// AnalyzeURL re-transcribes an asset already pushed to the store. The object
// is fetched back into the staging area first.
func (s *Service) AnalyzeURL(ctx context.Context, bucket, domain, url string) (string, error) {
	key := objectstore.KeyFromURL(bucket, domain, url)
	if key == "" {
		return "", ErrUnknownAsset
	}
	localPath, err := s.uniqueStagePath(key)
	if err != nil {
		return "", err
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	err = s.store.Fetch(fetchCtx, key, localPath)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUpload, err)
	}
	s.recordStagedFile(ctx, localPath)

	trCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	transcript, err := s.transcriber.Transcribe(trCtx, localPath)
	if err != nil {
		return "", &TranscriptionError{FileURL: url, Err: err}
	}
	s.updateTranscriptByURL(ctx, url, transcript)
	return transcript, nil
}

// ListVideos returns the caller's uploads, newest first.
func (s *Service) ListVideos(ctx context.Context, userEmail string) ([]*models.Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_email, name, object_key, url, transcription_status,
		       COALESCE(transcript, ''), created_at
		FROM videos WHERE user_email = ? ORDER BY created_at DESC`, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.UserEmail, &v.Name, &v.ObjectKey, &v.URL,
			&v.TranscriptionStatus, &v.Transcript, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, &v)
	}
	return videos, rows.Err()
}

// stage writes the incoming stream into the staging area under a
// collision-free variant of name and records it for cleanup.
func (s *Service) stage(ctx context.Context, file io.Reader, name string) (string, string, error) {
	destPath, err := s.uniqueStagePath(name)
	if err != nil {
		return "", "", err
	}
	out, err := os.Create(destPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(destPath)
		return "", "", fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	if err := out.Close(); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	s.recordStagedFile(ctx, destPath)
	return destPath, filepath.Base(destPath), nil
}

// uniqueStagePath ensures concurrent uploads with the same client filename
// cannot overwrite each other: taken names get a " (n)" suffix, then a
// nanosecond fallback.
func (s *Service) uniqueStagePath(name string) (string, error) {
	if err := os.MkdirAll(s.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	destPath := filepath.Join(s.stagingDir, name)
	if _, err := os.Stat(destPath); os.IsNotExist(err) {
		return destPath, nil
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for idx := 1; idx <= 1000; idx++ {
		candidate := filepath.Join(s.stagingDir, fmt.Sprintf("%s (%d)%s", base, idx, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return filepath.Join(s.stagingDir, fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext)), nil
}

func (s *Service) insertVideo(ctx context.Context, userEmail, name, key, url string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (user_email, name, object_key, url, transcription_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userEmail, name, key, url, models.TranscriptionInProgress, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("record video: %w", err)
	}
	return res.LastInsertId()
}

func (s *Service) setTranscription(ctx context.Context, videoID int64, status, transcript string) {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE videos SET transcription_status = ?, transcript = ? WHERE id = ?`,
		status, transcript, videoID); err != nil {
		logf("update video %d: %v", videoID, err)
	}
}

func (s *Service) updateTranscriptByURL(ctx context.Context, url, transcript string) {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE videos SET transcription_status = ?, transcript = ? WHERE url = ?`,
		models.TranscriptionCompleted, transcript, url); err != nil {
		logf("update video by url: %v", err)
	}
}

func (s *Service) recordStagedFile(ctx context.Context, path string) {
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO staged_files (path, created_at, expires_at) VALUES (?, ?, ?)`,
		path, now, now.Add(s.stagedTTL)); err != nil {
		// Bookkeeping only; the upload proceeds, the janitor just won't see it.
		logf("record staged file %s: %v", filepath.Base(path), err)
	}
}

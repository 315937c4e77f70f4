package media

import (
	"context"
	"log"
	"os"
	"time"
)

// DefaultCleanupInterval is used when config does not set one.
const DefaultCleanupInterval = time.Hour

func logf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// StartJanitor launches the background loop that removes expired staged
// files. The remote copies are durable and untouched; only the transient
// local staging area is pruned.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	go s.janitorLoop(ctx, interval)
}

func (s *Service) janitorLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.cleanupExpired(ctx); err != nil {
				log.Printf("cleanup staged files error: %v", err)
			}
		}
	}
}

func (s *Service) cleanupExpired(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path FROM staged_files WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return err
	}
	defer rows.Close()

	type fileRow struct {
		id   int64
		path string
	}
	var files []fileRow
	for rows.Next() {
		var fr fileRow
		if err := rows.Scan(&fr.id, &fr.path); err != nil {
			return err
		}
		files = append(files, fr)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, f := range files {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove staged file %s failed: %v", f.path, err)
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM staged_files WHERE id = ?`, f.id); err != nil {
			log.Printf("delete staged file record %d failed: %v", f.id, err)
		}
	}
	return nil
}

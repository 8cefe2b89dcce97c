package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Outcome reports where a recording ended up.
type Outcome string

const (
	// OutcomeSaved means the recording reached the library service.
	OutcomeSaved Outcome = "saved"

	// OutcomeSavedLocally means the upload failed and the recording is
	// cached in the pending store for a later sync.
	OutcomeSavedLocally Outcome = "saved_locally"

	// OutcomeFailed means both the upload and the local cache failed.
	OutcomeFailed Outcome = "failed"
)

// Saver routes finished recordings: remote first, local cache as the
// fallback when the library service is down.
type Saver struct {
	local  *JSONStore
	remote Remote
	logger *slog.Logger
}

// NewSaver creates a Saver over the given cache and remote.
func NewSaver(local *JSONStore, remote Remote, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		local:  local,
		remote: remote,
		logger: logger,
	}
}

// Save uploads the entry, caching it locally when the upload fails.
// A recording is only lost when both destinations fail.
func (s *Saver) Save(ctx context.Context, e *Entry) (Outcome, error) {
	err := s.remote.Upload(ctx, e)
	if err == nil {
		return OutcomeSaved, nil
	}

	s.logger.Warn("upload failed, caching recording locally",
		"session_id", e.SessionID,
		"error", err,
	)

	e.Attempts++
	e.LastError = err.Error()

	if cacheErr := s.local.Put(e); cacheErr != nil {
		s.logger.Error("local cache failed, recording lost",
			"session_id", e.SessionID,
			"error", cacheErr,
		)
		return OutcomeFailed, fmt.Errorf("store: save: upload failed (%v), cache failed: %w", err, cacheErr)
	}

	return OutcomeSavedLocally, nil
}

// Sync retries every pending entry, oldest first. Entries that upload
// are removed from the cache; failures stay pending with their attempt
// count bumped. Returns the number of entries synced.
func (s *Saver) Sync(ctx context.Context) (int, error) {
	pending, err := s.local.List()
	if err != nil {
		return 0, fmt.Errorf("store: sync: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	s.logger.Info("syncing pending recordings", "count", len(pending))

	synced := 0
	for _, e := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}

		if err := s.remote.Upload(ctx, e); err != nil {
			e.Attempts++
			e.LastError = err.Error()
			if putErr := s.local.Put(e); putErr != nil {
				return synced, fmt.Errorf("store: sync: update entry %s: %w", e.ID, putErr)
			}
			s.logger.Warn("pending upload still failing",
				"entry_id", e.ID,
				"attempts", e.Attempts,
				"error", err,
			)
			continue
		}

		if err := s.local.Delete(e.ID); err != nil {
			return synced, fmt.Errorf("store: sync: delete entry %s: %w", e.ID, err)
		}
		synced++
	}

	s.logger.Info("sync finished", "synced", synced, "remaining", s.local.Count())

	return synced, nil
}

// Pending returns the number of locally cached recordings.
func (s *Saver) Pending() int {
	return s.local.Count()
}

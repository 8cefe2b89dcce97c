package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/hahalabs/laughtrack/pkg/audioio"
	"github.com/hahalabs/laughtrack/pkg/hub"
	"github.com/hahalabs/laughtrack/pkg/score"
	"github.com/hahalabs/laughtrack/pkg/session"
	"github.com/hahalabs/laughtrack/pkg/share"
	"github.com/hahalabs/laughtrack/pkg/store"
)

// statusResponse is the GET /api/status payload.
type statusResponse struct {
	session.Snapshot
	PendingUploads int `json:"pending_uploads"`
	FeedClients    int `json:"feed_clients"`
}

// handleStatus returns the controller snapshot plus store state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(statusResponse{
		Snapshot:       s.controller.Snapshot(),
		PendingUploads: s.saver.Pending(),
		FeedClients:    s.feedHub.ClientCount(),
	})
}

// handleStart begins a new recording session.
func (s *Server) handleStart(c *fiber.Ctx) error {
	// Capture outlives the request; the session owns its lifetime.
	if err := s.controller.Start(context.Background()); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionActive):
			return errorJSON(c, fiber.StatusConflict, err)
		case errors.Is(err, audioio.ErrPermissionDenied):
			return errorJSON(c, fiber.StatusForbidden, err)
		case errors.Is(err, audioio.ErrNotAvailable):
			return errorJSON(c, fiber.StatusServiceUnavailable, err)
		default:
			return errorJSON(c, fiber.StatusInternalServerError, err)
		}
	}
	return c.JSON(s.controller.Snapshot())
}

// handlePause suspends the active session.
func (s *Server) handlePause(c *fiber.Ctx) error {
	if err := s.controller.Pause(); err != nil {
		return errorJSON(c, fiber.StatusConflict, err)
	}
	return c.JSON(s.controller.Snapshot())
}

// handleResume continues a paused session.
func (s *Server) handleResume(c *fiber.Ctx) error {
	if err := s.controller.Resume(); err != nil {
		return errorJSON(c, fiber.StatusConflict, err)
	}
	return c.JSON(s.controller.Snapshot())
}

// stopResponse is the POST /api/session/stop payload.
type stopResponse struct {
	SessionID   string         `json:"session_id"`
	Status      session.Status `json:"status"`
	DurationSec float64        `json:"duration_sec"`
	LaughCount  int            `json:"laugh_count"`
	MIME        string         `json:"mime,omitempty"`
	Outcome     store.Outcome  `json:"outcome,omitempty"`
}

// handleStop finalizes the active session and keeps the result around
// for a share request.
func (s *Server) handleStop(c *fiber.Ctx) error {
	result, err := s.controller.Stop()
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotRecording):
			return errorJSON(c, fiber.StatusConflict, err)
		case errors.Is(err, session.ErrNoAudioCaptured):
			// The result still carries duration and events.
			s.setLastResult(result)
			return c.Status(fiber.StatusUnprocessableEntity).JSON(stopResponse{
				SessionID:   result.SessionID.String(),
				Status:      result.Status,
				DurationSec: result.DurationSec,
				LaughCount:  len(result.Events),
			})
		default:
			return errorJSON(c, fiber.StatusInternalServerError, err)
		}
	}

	// Persist the recording: remote first, local cache when offline.
	outcome, saveErr := s.saver.Save(c.Context(), &store.Entry{
		SessionID:   result.SessionID.String(),
		DurationSec: result.DurationSec,
		LaughCount:  len(result.Events),
		MIME:        result.Artifact.MIME,
		Data:        result.Artifact.Data,
	})
	if saveErr != nil {
		s.logger.Error("recording not persisted", "session_id", result.SessionID, "error", saveErr)
	}
	if outcome == store.OutcomeSavedLocally {
		result.Status = session.StatusOfflineSaved
	}

	s.setLastResult(result)

	return c.JSON(stopResponse{
		SessionID:   result.SessionID.String(),
		Status:      result.Status,
		DurationSec: result.DurationSec,
		LaughCount:  len(result.Events),
		MIME:        result.Artifact.MIME,
		Outcome:     outcome,
	})
}

// handleShare runs the best-clip pipeline for the last finished session.
func (s *Server) handleShare(c *fiber.Ctx) error {
	result := s.getLastResult()
	if result == nil {
		return errorJSON(c, fiber.StatusNotFound,
			errors.New("web: no finished session to share"))
	}

	shared, err := s.pipeline.Share(c.Context(), result)
	if err != nil {
		switch {
		case errors.Is(err, share.ErrNoLaughEvents),
			errors.Is(err, score.ErrNoSuitableClip):
			return errorJSON(c, fiber.StatusUnprocessableEntity, err)
		default:
			return errorJSON(c, fiber.StatusInternalServerError, err)
		}
	}

	return c.JSON(shared)
}

// syncResponse is the POST /api/sync payload.
type syncResponse struct {
	Synced  int `json:"synced"`
	Pending int `json:"pending"`
}

// handleSync retries pending uploads.
func (s *Server) handleSync(c *fiber.Ctx) error {
	synced, err := s.saver.Sync(c.Context())
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(syncResponse{Synced: synced, Pending: s.saver.Pending()})
}

// handleLoudnessWS attaches a browser tab to the live loudness feed.
func (s *Server) handleLoudnessWS(c *websocket.Conn) {
	client := hub.NewClient(s.feedHub, c)
	client.Run() // Blocks until connection closes
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

package handler

import (
	"errors"
	"net/http"

	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/coursekit/livequiz-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ProjectorHandler serves the shared-screen view. Projectors address the
// quiz by channel name, not session id, so a new session on the same
// channel is picked up without reconfiguring the screen.
type ProjectorHandler struct {
	snapshotService *service.SnapshotService
	log             zerolog.Logger
}

// NewProjectorHandler creates a new ProjectorHandler.
func NewProjectorHandler(snapshotService *service.SnapshotService, log zerolog.Logger) *ProjectorHandler {
	return &ProjectorHandler{
		snapshotService: snapshotService,
		log:             log.With().Str("component", "projector_handler").Logger(),
	}
}

// Results godoc
// GET /api/v1/projector/channels/:channel/results
// Conditional poll for the channel's current session, full projection.
func (h *ProjectorHandler) Results(c *gin.Context) {
	channel := c.Param("channel")

	sessionID, err := h.snapshotService.ResolveChannel(c.Request.Context(), channel)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			writeGone(c)
			return
		}
		h.log.Error().Err(err).Str("channel", channel).Msg("Failed to resolve channel")
		c.Status(http.StatusInternalServerError)
		return
	}

	if _, ok := c.Request.Header["If-Modified-Since"]; ok {
		updatedAt, err := h.snapshotService.UpdatedAt(c.Request.Context(), sessionID)
		if err == nil && notModified(c, updatedAt) {
			writeNotModified(c)
			return
		}
	}

	results, updatedAt, err := h.snapshotService.Results(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			// The cached channel mapping outlived the session.
			writeGone(c)
			return
		}
		h.log.Error().Err(err).Msg("Failed to build results")
		c.Status(http.StatusInternalServerError)
		return
	}

	writeSnapshot(c, updatedAt, results)
}

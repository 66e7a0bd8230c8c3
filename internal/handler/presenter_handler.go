package handler

import (
	"errors"
	"net/http"

	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/coursekit/livequiz-backend/internal/response"
	"github.com/coursekit/livequiz-backend/internal/service"
	"github.com/coursekit/livequiz-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PresenterHandler handles the presenter control plane: starting sessions,
// driving the phase machine, and reading full results.
type PresenterHandler struct {
	sessionService  *service.QuizSessionService
	snapshotService *service.SnapshotService
	log             zerolog.Logger
}

// NewPresenterHandler creates a new PresenterHandler.
func NewPresenterHandler(
	sessionService *service.QuizSessionService,
	snapshotService *service.SnapshotService,
	log zerolog.Logger,
) *PresenterHandler {
	return &PresenterHandler{
		sessionService:  sessionService,
		snapshotService: snapshotService,
		log:             log.With().Str("component", "presenter_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/presenter/sessions
// Creates a session in the waiting phase with the full question list.
func (h *PresenterHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrOptionOutOfRange) {
			response.Fail(c, http.StatusBadRequest, response.ErrOptionOutOfRange)
			return
		}
		h.log.Error().Err(err).Msg("Failed to start session")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// Launch godoc
// POST /api/v1/presenter/sessions/:session_id/launch
func (h *PresenterHandler) Launch(c *gin.Context) {
	h.command(c, model.CommandLaunch)
}

// RevealDistribution godoc
// POST /api/v1/presenter/sessions/:session_id/reveal-distribution
func (h *PresenterHandler) RevealDistribution(c *gin.Context) {
	h.command(c, model.CommandRevealDistribution)
}

// RevealCorrect godoc
// POST /api/v1/presenter/sessions/:session_id/reveal-correct
func (h *PresenterHandler) RevealCorrect(c *gin.Context) {
	h.command(c, model.CommandRevealCorrect)
}

// Next godoc
// POST /api/v1/presenter/sessions/:session_id/next
func (h *PresenterHandler) Next(c *gin.Context) {
	h.command(c, model.CommandNext)
}

// Skip godoc
// POST /api/v1/presenter/sessions/:session_id/skip
func (h *PresenterHandler) Skip(c *gin.Context) {
	h.command(c, model.CommandSkip)
}

// Close godoc
// POST /api/v1/presenter/sessions/:session_id/close
func (h *PresenterHandler) Close(c *gin.Context) {
	h.command(c, model.CommandClose)
}

// command applies a phase command. A rejected command returns 409 without
// changing anything; the presenter re-polls and retries from fresh state.
func (h *PresenterHandler) command(c *gin.Context, cmd model.Command) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.Command(c.Request.Context(), sessionID, cmd)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, model.ErrInvalidTransition):
			response.Fail(c, http.StatusConflict, response.ErrInvalidTransition)
		default:
			h.log.Error().Err(err).Str("command", string(cmd)).Msg("Failed to apply command")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// Delete godoc
// DELETE /api/v1/presenter/sessions/:session_id
// Removes the session and its ledger; polls answer 410 from here on.
func (h *PresenterHandler) Delete(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.Delete(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to delete session")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "session deleted"})
}

// Results godoc
// GET /api/v1/presenter/sessions/:session_id/results
// Conditional poll for the full projection: state plus roster and the
// answer distribution of the current question.
func (h *PresenterHandler) Results(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if _, ok := c.Request.Header["If-Modified-Since"]; ok {
		updatedAt, err := h.snapshotService.UpdatedAt(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, model.ErrSessionNotFound) {
				writeGone(c)
				return
			}
			h.log.Error().Err(err).Msg("Failed to read updated_at")
			c.Status(http.StatusInternalServerError)
			return
		}
		if notModified(c, updatedAt) {
			writeNotModified(c)
			return
		}
	}

	results, updatedAt, err := h.snapshotService.Results(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			writeGone(c)
			return
		}
		h.log.Error().Err(err).Msg("Failed to build results")
		c.Status(http.StatusInternalServerError)
		return
	}

	writeSnapshot(c, updatedAt, results)
}

// Summary godoc
// GET /api/v1/presenter/sessions/:session_id/summary
// Post-close review: per-question distributions with the answer key.
func (h *PresenterHandler) Summary(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	summary, err := h.snapshotService.Summary(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, model.ErrSessionNotClosed):
			response.Fail(c, http.StatusConflict, response.ErrSessionNotClosed)
		default:
			h.log.Error().Err(err).Msg("Failed to build summary")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, summary)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/coursekit/livequiz-backend/internal/middleware"
	"github.com/coursekit/livequiz-backend/internal/model"
	"github.com/coursekit/livequiz-backend/internal/response"
	"github.com/coursekit/livequiz-backend/internal/service"
	"github.com/coursekit/livequiz-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StudentHandler handles the student surface: joining a session, submitting
// answers, and the state poll.
type StudentHandler struct {
	ledgerService   *service.LedgerService
	snapshotService *service.SnapshotService
	log             zerolog.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(
	ledgerService *service.LedgerService,
	snapshotService *service.SnapshotService,
	log zerolog.Logger,
) *StudentHandler {
	return &StudentHandler{
		ledgerService:   ledgerService,
		snapshotService: snapshotService,
		log:             log.With().Str("component", "student_handler").Logger(),
	}
}

// Join godoc
// POST /api/v1/student/sessions/:session_id/join
// Registers the student on the roster. Joining twice is a no-op.
func (h *StudentHandler) Join(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.ledgerService.Join(c.Request.Context(), sessionID, claims.UserID); err != nil {
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, model.ErrSessionClosed):
			response.Fail(c, http.StatusGone, response.ErrSessionGone)
		default:
			h.log.Error().Err(err).Msg("Failed to join session")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"joined": true})
}

// SubmitAnswer godoc
// POST /api/v1/student/sessions/:session_id/answers
// Records an answer for the current question. A submission that raced past
// a phase change is dropped, reported as accepted:false with 200 so clients
// do not retry; a duplicate under first-wins reports accepted:true.
func (h *StudentHandler) SubmitAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.ledgerService.Submit(c.Request.Context(), sessionID, claims.UserID, &req); err != nil {
		switch {
		case errors.Is(err, model.ErrStaleSubmission):
			response.Success(c, http.StatusOK, gin.H{"accepted": false})
		case errors.Is(err, model.ErrOptionOutOfRange):
			response.Fail(c, http.StatusBadRequest, response.ErrOptionOutOfRange)
		case errors.Is(err, model.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, model.ErrSessionClosed):
			response.Fail(c, http.StatusGone, response.ErrSessionGone)
		default:
			h.log.Error().Err(err).Msg("Failed to submit answer")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"accepted": true})
}

// State godoc
// GET /api/v1/student/sessions/:session_id/state
// Conditional poll for the student projection. Once the session is closed
// or deleted this answers 410 and clients stop polling.
func (h *StudentHandler) State(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	// Fast path: a closed session bumps updated_at past any stamp the
	// client holds, so 304 can never mask the terminal 410.
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

	state, updatedAt, err := h.snapshotService.StudentState(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) || errors.Is(err, model.ErrSessionClosed) {
			writeGone(c)
			return
		}
		h.log.Error().Err(err).Msg("Failed to build student state")
		c.Status(http.StatusInternalServerError)
		return
	}

	writeSnapshot(c, updatedAt, state)
}

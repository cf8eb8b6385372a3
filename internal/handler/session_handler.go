package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
	"github.com/quizforge/quizforge-backend/internal/validator"
)

// SessionHandler handles hosting and joining quiz sessions.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// HostQuiz godoc
// POST /api/v1/quizzes/:quiz_id/host
// Opens a fresh session for a published quiz. Prior sessions of the
// same quiz keep running untouched.
func (h *SessionHandler) HostQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.HostQuiz(c.Request.Context(), quizID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrJoinCodeCapacity) {
			response.Fail(c, http.StatusServiceUnavailable, response.ErrJoinCodeCapacity)
			return
		}
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// ListQuizSessions godoc
// GET /api/v1/quizzes/:quiz_id/sessions
// Lists a quiz's sessions, newest first. Owner only.
func (h *SessionHandler) ListQuizSessions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage := pageParams(c)
	sessions, total, err := h.sessionService.ListByQuiz(c.Request.Context(), quizID, claims.UserID, page, perPage)
	if err != nil {
		failQuizError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions}, paginate(page, perPage, total))
}

// ListMySessions godoc
// GET /api/v1/sessions
// Lists sessions across all of the caller's quizzes. ?active=true
// narrows to sessions that are still open.
func (h *SessionHandler) ListMySessions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := pageParams(c)
	activeOnly := c.Query("active") == "true"

	sessions, total, err := h.sessionService.ListByHost(c.Request.Context(), claims.UserID, page, perPage, activeOnly)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions}, paginate(page, perPage, total))
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
// Returns one session for the owning host.
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.GetOwnedSession(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	count, err := h.sessionService.ParticipantCount(c.Request.Context(), sessionID)
	if err != nil {
		count = 0
	}

	response.Success(c, http.StatusOK, gin.H{
		"session":           session,
		"participant_count": count,
	})
}

// JoinSession godoc
// POST /api/v1/sessions/join
// Public endpoint: resolves a join code and returns the participant
// payload. No account required.
func (h *SessionHandler) JoinSession(c *gin.Context) {
	var req model.JoinSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	payload, count, err := h.sessionService.JoinByCode(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidJoinCode):
			response.Fail(c, http.StatusNotFound, response.ErrInvalidJoinCode)
		case errors.Is(err, service.ErrSessionEnded):
			response.Fail(c, http.StatusGone, response.ErrSessionEnded)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"payload":           payload,
		"participant_count": count,
	})
}

// failSessionError translates session service sentinels into API error codes.
func failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotQuizOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotQuizOwner)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

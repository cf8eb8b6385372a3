package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/quizgen"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
	"github.com/quizforge/quizforge-backend/internal/validator"
)

// QuizHandler handles quiz authoring and generation endpoints.
type QuizHandler struct {
	quizService       *service.QuizService
	generationService *service.GenerationService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService, generationService *service.GenerationService) *QuizHandler {
	return &QuizHandler{
		quizService:       quizService,
		generationService: generationService,
	}
}

// ListQuizzes godoc
// GET /api/v1/quizzes
// Lists the caller's quizzes with pagination, optional title search and
// status filter.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := pageParams(c)
	search := c.Query("search")

	status := model.QuizStatus(strings.ToUpper(c.Query("status")))
	if status != "" && status != model.QuizStatusDraft && status != model.QuizStatusPublished {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"status": "must be DRAFT or PUBLISHED",
		})
		return
	}

	quizzes, total, err := h.quizService.ListByOwner(c.Request.Context(), claims.UserID, page, perPage, search, status)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"quizzes": quizzes}, paginate(page, perPage, total))
}

// GetQuiz godoc
// GET /api/v1/quizzes/:quiz_id
// Returns one quiz with its full question set, answers included. Owner only.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
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

	quiz, err := h.quizService.GetOwned(c.Request.Context(), quizID, claims.UserID)
	if err != nil {
		failQuizError(c, err)
		return
	}

	questions, err := h.quizService.ListQuestions(c.Request.Context(), quizID, claims.UserID)
	if err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"quiz":      quiz,
		"questions": questions,
	})
}

// CreateQuiz godoc
// POST /api/v1/quizzes
// Creates a new draft quiz.
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"quiz": quiz})
}

// UpdateQuiz godoc
// PATCH /api/v1/quizzes/:quiz_id
// Updates a draft quiz's metadata.
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
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

	var req model.UpdateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.Update(c.Request.Context(), quizID, claims.UserID, req)
	if err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// DeleteQuiz godoc
// DELETE /api/v1/quizzes/:quiz_id
// Deletes a quiz along with its questions and session records.
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
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

	if err := h.quizService.Delete(c.Request.Context(), quizID, claims.UserID); err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "quiz deleted"})
}

// PublishQuiz godoc
// POST /api/v1/quizzes/:quiz_id/publish
// Moves a draft quiz to PUBLISHED so it can be hosted.
func (h *QuizHandler) PublishQuiz(c *gin.Context) {
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

	quiz, err := h.quizService.Publish(c.Request.Context(), quizID, claims.UserID)
	if err != nil {
		failQuizError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quiz": quiz})
}

// GenerateQuiz godoc
// POST /api/v1/quizzes/generate
// Generates a quiz from a topic and immediately hosts a session for it.
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.GenerateQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.generationService.GenerateQuiz(c.Request.Context(), claims.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGeneratorUnavailable):
			response.Fail(c, http.StatusBadGateway, response.ErrGeneratorUnavailable)
		case errors.Is(err, quizgen.ErrUnparseable):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnparseableOutput)
		case errors.Is(err, quizgen.ErrNoUsableQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoUsableQuestions)
		case errors.Is(err, service.ErrJoinCodeCapacity):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrJoinCodeCapacity)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"quiz_id":            result.Quiz.ID,
		"title":              result.Quiz.Title,
		"total_points":       result.Quiz.TotalPoints,
		"session_id":         result.Session.ID,
		"join_code":          result.Session.JoinCode,
		"question_count":     result.QuestionCount,
		"dropped_candidates": result.Dropped,
	})
}

// failQuizError translates quiz service sentinels into API error codes.
func failQuizError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotQuizOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotQuizOwner)
	case errors.Is(err, service.ErrQuizNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrQuizNotDraft)
	case errors.Is(err, service.ErrQuizNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrQuizNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
	case errors.Is(err, service.ErrAnswerNotInOptions):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"correct_answer": "must match one of the options",
		})
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// pageParams reads page/per_page query params with the API defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

func paginate(page, perPage, total int) *response.Pagination {
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}
}

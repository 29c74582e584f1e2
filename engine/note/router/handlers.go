package ntrouter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mpdriver/mpdriver/engine/auth/userctx"
	"github.com/mpdriver/mpdriver/engine/core"
	"github.com/mpdriver/mpdriver/engine/infra/server/router"
	"github.com/mpdriver/mpdriver/engine/note"
	"github.com/mpdriver/mpdriver/engine/note/uc"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

var (
	notFoundMessages = core.Messages{
		"ru": "Уведомление не найдено",
		"en": "Note not found",
	}
	badRequestMessages = core.Messages{
		"ru": "Некорректный запрос",
		"en": "Malformed request",
	}
	internalMessages = core.Messages{
		"ru": "Внутренняя ошибка сервера",
		"en": "Internal server error",
	}
)

// Handler serves the note endpoints for the authenticated user.
type Handler struct {
	list   *uc.ListNotes
	create *uc.CreateNote
	update *uc.UpdateNoteStatus
}

func NewHandler(list *uc.ListNotes, create *uc.CreateNote, update *uc.UpdateNoteStatus) *Handler {
	return &Handler{list: list, create: create, update: update}
}

func (h *Handler) listNotes(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.respondNotes(c, userID, http.StatusOK)
}

func (h *Handler) createNote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, router.ErrBadRequestCode, err.Error(), badRequestMessages)
		return
	}
	if err := h.create.Execute(c.Request.Context(), req.draft(userID)); err != nil {
		respondNoteError(c, err)
		return
	}
	h.respondNotes(c, userID, http.StatusCreated)
}

func (h *Handler) updateNote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	noteID, err := strconv.ParseInt(c.Param("note_id"), 10, 64)
	if err != nil || noteID <= 0 {
		respondError(c, http.StatusBadRequest, router.ErrBadRequestCode,
			"note_id must be a positive integer", badRequestMessages)
		return
	}
	var req UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, router.ErrBadRequestCode, err.Error(), badRequestMessages)
		return
	}
	change := &note.StatusChange{UserID: userID, NoteID: noteID, Status: *req.Status}
	if err := h.update.Execute(c.Request.Context(), change); err != nil {
		respondNoteError(c, err)
		return
	}
	h.respondNotes(c, userID, http.StatusOK)
}

func (h *Handler) respondNotes(c *gin.Context, userID int64, status int) {
	notes, err := h.list.Execute(c.Request.Context(), userID)
	if err != nil {
		respondNoteError(c, err)
		return
	}
	c.JSON(status, notes)
}

func respondNoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, note.ErrNotFound):
		respondError(c, http.StatusNotFound, router.ErrNotFoundCode, "no such note for the current user", notFoundMessages)
	case errors.Is(err, note.ErrInvalidDraft):
		respondError(c, http.StatusBadRequest, router.ErrBadRequestCode, err.Error(), badRequestMessages)
	default:
		logger.FromContext(c.Request.Context()).Error("Note request failed", "error", err)
		respondError(c, http.StatusInternalServerError, router.ErrInternalCode, "failed to process notes", internalMessages)
	}
}

func respondError(c *gin.Context, status int, code, detail string, msgs core.Messages) {
	problem := &core.Problem{
		Status: status,
		Title:  http.StatusText(status),
		Detail: detail,
		Extras: map[string]any{"code": code},
	}
	router.RespondProblem(c, problem.WithMessages(msgs, router.PreferredLanguage(c)))
}

func currentUser(c *gin.Context) (int64, bool) {
	userID, ok := userctx.UserIDFromContext(c.Request.Context())
	if !ok {
		router.RespondProblemWithCode(c, http.StatusUnauthorized, router.ErrUnauthorizedCode, "authentication required")
		return 0, false
	}
	return userID, true
}

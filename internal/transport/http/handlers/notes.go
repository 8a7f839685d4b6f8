package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rawatapurva/HD-Notes-App/internal/core/domain"
	"github.com/rawatapurva/HD-Notes-App/internal/transport/http/middleware"
	"github.com/rawatapurva/HD-Notes-App/internal/usecase"
)

// NoteService is the part of usecase.NoteService the HTTP layer drives.
type NoteService interface {
	List(ctx context.Context, userID string) ([]domain.Note, error)
	Create(ctx context.Context, userID, title, body string) (*domain.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
}

// NoteHandler serves the authenticated notes endpoints.
type NoteHandler struct {
	notes NoteService
}

func NewNoteHandler(notes NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// RegisterRoutes expects the group to already require a session.
func (h *NoteHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.POST("", h.create)
	r.DELETE("/:id", h.delete)
}

// list godoc
// @Summary List the caller's notes, newest first
// @Tags Notes
// @Produce json
// @Success 200 {object} NoteListResponse
// @Failure 401 {object} ErrorResponse
// @Router /notes [get]
func (h *NoteHandler) list(c *gin.Context) {
	userID, _ := middleware.GetAuthenticatedUserID(c)

	notes, err := h.notes.List(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "Failed to load notes")
		return
	}

	resp := NoteListResponse{Notes: make([]NoteResponse, 0, len(notes))}
	for _, note := range notes {
		resp.Notes = append(resp.Notes, newNoteResponse(note))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NoteHandler) create(c *gin.Context) {
	var req CreateNoteRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, _ := middleware.GetAuthenticatedUserID(c)

	note, err := h.notes.Create(c.Request.Context(), userID, req.Title, req.Body)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "Failed to create note")
		return
	}

	c.JSON(http.StatusCreated, NoteEnvelope{Note: newNoteResponse(*note)})
}

func (h *NoteHandler) delete(c *gin.Context) {
	userID, _ := middleware.GetAuthenticatedUserID(c)

	if err := h.notes.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNoteNotFound, Status: http.StatusNotFound, Message: "Note not found"},
		}, http.StatusInternalServerError, "Failed to delete note")
		return
	}

	c.JSON(http.StatusOK, OKResponse{OK: true})
}

package ntrouter

import "github.com/gin-gonic/gin"

func Register(apiBase *gin.RouterGroup, h *Handler, middleware ...gin.HandlerFunc) {
	notesGroup := apiBase.Group("/notes", middleware...)
	{
		// GET /api/v1/notes
		notesGroup.GET("", h.listNotes)

		// POST /api/v1/notes
		// Write a note, optionally linked to a task
		notesGroup.POST("", h.createNote)

		// PATCH /api/v1/notes/:note_id
		// Change the note status
		notesGroup.PATCH("/:note_id", h.updateNote)
	}
}

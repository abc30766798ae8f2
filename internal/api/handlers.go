package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/export"
	"github.com/starford/othala/internal/library"
	"github.com/starford/othala/internal/models"
)

// Handler holds API route handlers. It reads through the library handle,
// so watcher reloads are visible without restarting the server.
type Handler struct {
	lib *library.Handle
}

// NewHandler creates a new Handler.
func NewHandler(lib *library.Handle) *Handler {
	return &Handler{lib: lib}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional filtering and pagination
//	@Tags			notes
//	@Produce		json
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			mention	query		string	false	"Filter by mention"
//	@Param			folder	query		string	false	"Filter by folder name"
//	@Param			account	query		string	false	"Filter by account name"
//	@Param			pinned	query		bool	false	"Pinned notes only"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag := q.Get("tag")
	mention := q.Get("mention")
	folder := q.Get("folder")
	account := q.Get("account")
	pinned := q.Get("pinned") == "true"
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	lib := h.lib.Current()
	notes := lib.Filter(func(n *models.Note) bool {
		if tag != "" && !n.HasTag(tag) {
			return false
		}
		if mention != "" && !n.HasMention(mention) {
			return false
		}
		if folder != "" && (n.Folder == nil || !strings.EqualFold(n.Folder.Name, folder)) {
			return false
		}
		if account != "" && (n.Account == nil || !strings.EqualFold(n.Account.Name, account)) {
			return false
		}
		if pinned && !n.IsPinned {
			return false
		}
		return true
	})

	total := len(notes)
	notes = page(notes, limit, offset)

	folders := lib.FolderMap()
	items := make([]NoteSummary, 0, len(notes))
	for _, n := range notes {
		items = append(items, toSummary(n, folders))
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note with its decoded content
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		int	true	"Note ID"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid note id")
		return
	}
	lib := h.lib.Current()
	note, err := lib.Note(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			errorJSON(w, http.StatusNotFound, "not found")
			return
		}
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toDetail(note, lib.FolderMap()))
}

// Search handles GET /api/search.
//
//	@Summary		Substring search over note titles and text
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Query string"
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		errorJSON(w, http.StatusBadRequest, "q is required")
		return
	}
	lib := h.lib.Current()
	notes := lib.Search(query)
	folders := lib.FolderMap()
	items := make([]NoteSummary, 0, len(notes))
	for _, n := range notes {
		items = append(items, toSummary(n, folders))
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	lib := h.lib.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"tags":   lib.Tags(),
		"counts": lib.TagCounts(),
	})
}

// Mentions handles GET /api/mentions.
func (h *Handler) Mentions(w http.ResponseWriter, r *http.Request) {
	lib := h.lib.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"mentions": lib.Mentions(),
	})
}

// Export handles GET /api/export. content=false yields metadata only.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	includeContent := r.URL.Query().Get("content") != "false"
	doc := export.Build(h.lib.Current(), export.Options{IncludeContent: includeContent})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = export.Write(w, doc)
}

// Meta handles GET /api/meta: the detected schema and snapshot counts.
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	lib := h.lib.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"schema_version": lib.Profile.Label,
		"legacy":         lib.Profile.Legacy,
		"store_uuid":     lib.StoreUUID,
		"notes":          lib.Len(),
		"accounts":       len(lib.Accounts()),
		"folders":        len(lib.Folders()),
	})
}

func page(notes []*models.Note, limit, offset int) []*models.Note {
	if offset > 0 {
		if offset >= len(notes) {
			return nil
		}
		notes = notes[offset:]
	}
	if limit > 0 && limit < len(notes) {
		notes = notes[:limit]
	}
	return notes
}

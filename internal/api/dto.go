package api

import (
	"time"

	"github.com/starford/othala/internal/models"
)

// NoteSummary is the list-level view of a note: metadata only, no body.
type NoteSummary struct {
	ID                  int64     `json:"id"`
	Title               string    `json:"title,omitempty"`
	AccountName         string    `json:"account_name,omitempty"`
	FolderName          string    `json:"folder_name,omitempty"`
	FolderPath          string    `json:"folder_path,omitempty"`
	CreatedAt           time.Time `json:"created_at,omitzero"`
	ModifiedAt          time.Time `json:"modified_at,omitzero"`
	IsPinned            bool      `json:"is_pinned,omitempty"`
	IsPasswordProtected bool      `json:"is_password_protected,omitempty"`
	Tags                []string  `json:"tags,omitempty"`
	Mentions            []string  `json:"mentions,omitempty"`
	Links               []string  `json:"links,omitempty"`
	Attachments         int       `json:"attachments,omitempty"`
	ContentAvailable    bool      `json:"content_available"`
}

// NoteDetail is the single-note view: summary plus the decoded content.
type NoteDetail struct {
	NoteSummary
	AppleScriptID string              `json:"applescript_id,omitempty"`
	UUID          string              `json:"uuid,omitempty"`
	Content       *models.NoteContent `json:"content,omitempty"`
}

// NoteListResponse wraps a page of note summaries.
type NoteListResponse struct {
	Notes []NoteSummary `json:"notes"`
	Total int           `json:"total"`
}

func toSummary(n *models.Note, folders map[int64]*models.Folder) NoteSummary {
	s := NoteSummary{
		ID:                  n.NoteID,
		Title:               n.Title,
		CreatedAt:           n.CreatedAt,
		ModifiedAt:          n.ModifiedAt,
		IsPinned:            n.IsPinned,
		IsPasswordProtected: n.IsPasswordProtected,
		Tags:                n.Tags,
		Mentions:            n.Mentions,
		Links:               n.Links,
		Attachments:         len(n.Attachments),
		ContentAvailable:    n.Content != nil && n.Content.Available,
	}
	if n.Account != nil {
		s.AccountName = n.Account.Name
	}
	if n.Folder != nil {
		s.FolderName = n.Folder.Name
		s.FolderPath = n.Folder.Path(folders)
	}
	return s
}

func toDetail(n *models.Note, folders map[int64]*models.Folder) NoteDetail {
	return NoteDetail{
		NoteSummary:   toSummary(n, folders),
		AppleScriptID: n.AppleScriptID,
		UUID:          n.UUID,
		Content:       n.Content,
	}
}

// Package models defines the domain types for Othala.
package models

import (
	"strings"
	"time"
)

// Account represents a notes account (e.g. iCloud, "On My Mac").
type Account struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Identifier     string `json:"identifier"`
	UserRecordName string `json:"user_record_name,omitempty"`
}

// Folder represents a notes folder. ParentID is zero for root folders.
type Folder struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AccountID int64  `json:"account_id"`
	UUID      string `json:"uuid,omitempty"`
	ParentID  int64  `json:"parent_id,omitempty"`
}

// Path returns the root-to-leaf folder path (e.g. "Notes/Cocktails/Classic").
// A cycle in parent links terminates at the first repeated folder.
func (f *Folder) Path(folders map[int64]*Folder) string {
	parts := []string{}
	visited := map[int64]bool{}
	for cur := f; cur != nil && !visited[cur.ID]; cur = folders[cur.ParentID] {
		visited[cur.ID] = true
		parts = append(parts, cur.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Attachment holds attachment metadata. The binary content itself is never
// read from the store; only the catalog row is.
type Attachment struct {
	ID         int64     `json:"id"`
	NoteID     int64     `json:"note_id"`
	Filename   string    `json:"filename,omitempty"`
	FileSize   int64     `json:"file_size,omitempty"`
	TypeUTI    string    `json:"type_uti,omitempty"`
	Identifier string    `json:"identifier,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
	IsRemote   bool      `json:"is_remote,omitempty"`
	RemoteURL  string    `json:"remote_url,omitempty"`
}

// Note is one recovered note: catalog metadata plus decoded content.
type Note struct {
	ID                  int64         `json:"id"`
	NoteID              int64         `json:"note_id"`
	Title               string        `json:"title,omitempty"`
	Content             *NoteContent  `json:"content,omitempty"`
	CreatedAt           time.Time     `json:"created_at,omitzero"`
	ModifiedAt          time.Time     `json:"modified_at,omitzero"`
	Account             *Account      `json:"-"`
	Folder              *Folder       `json:"-"`
	IsPinned            bool          `json:"is_pinned,omitempty"`
	IsPasswordProtected bool          `json:"is_password_protected,omitempty"`
	UUID                string        `json:"uuid,omitempty"`
	AppleScriptID       string        `json:"applescript_id,omitempty"`
	Tags                []string      `json:"tags,omitempty"`
	Mentions            []string      `json:"mentions,omitempty"`
	Links               []string      `json:"links,omitempty"`
	Attachments         []*Attachment `json:"attachments,omitempty"`
}

// Text returns the note's decoded plain text, or "" when content is unavailable.
func (n *Note) Text() string {
	if n.Content == nil {
		return ""
	}
	return n.Content.Text
}

// HasTag reports whether the note carries the tag, case-insensitively.
func (n *Note) HasTag(tag string) bool {
	return containsFold(n.Tags, tag)
}

// HasMention reports whether the note mentions the given name, case-insensitively.
func (n *Note) HasMention(mention string) bool {
	return containsFold(n.Mentions, mention)
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

// Package export renders a library snapshot as a portable JSON object
// graph: accounts, folders with full paths, and notes with their decoded
// text and name lists.
package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/starford/othala/internal/library"
	"github.com/starford/othala/internal/models"
)

// Document is the top-level export shape.
type Document struct {
	Accounts []Account `json:"accounts"`
	Folders  []Folder  `json:"folders"`
	Notes    []Note    `json:"notes"`
}

// Account is one exported account.
type Account struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Identifier     string `json:"identifier"`
	UserRecordName string `json:"user_record_name,omitempty"`
}

// Folder is one exported folder, with its root-to-leaf path.
type Folder struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AccountName string `json:"account_name,omitempty"`
	UUID        string `json:"uuid,omitempty"`
	ParentID    int64  `json:"parent_id,omitempty"`
	Path        string `json:"path"`
}

// Note is one exported note. Content is omitted when the export was built
// without content or the note's payload could not be decoded.
type Note struct {
	ID                  int64        `json:"id"`
	NoteID              int64        `json:"note_id"`
	Title               string       `json:"title,omitempty"`
	Content             *string      `json:"content"`
	CreationDate        string       `json:"creation_date,omitempty"`
	ModificationDate    string       `json:"modification_date,omitempty"`
	AccountName         string       `json:"account_name,omitempty"`
	FolderName          string       `json:"folder_name,omitempty"`
	FolderPath          string       `json:"folder_path,omitempty"`
	IsPinned            bool         `json:"is_pinned"`
	IsPasswordProtected bool         `json:"is_password_protected"`
	UUID                string       `json:"uuid,omitempty"`
	AppleScriptID       string       `json:"applescript_id,omitempty"`
	Tags                []string     `json:"tags"`
	Mentions            []string     `json:"mentions"`
	Links               []string     `json:"links"`
	Attachments         []Attachment `json:"attachments,omitempty"`
}

// Attachment is the catalog metadata of one note attachment. The binary
// itself is never read from the store.
type Attachment struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
	TypeUTI    string `json:"type_uti,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// Options controls what an export includes.
type Options struct {
	// IncludeContent embeds each note's decoded text. Metadata-only
	// exports leave content null.
	IncludeContent bool
}

// Build assembles the export document from a snapshot.
func Build(lib *library.Library, opts Options) *Document {
	folderMap := lib.FolderMap()
	accountName := func(id int64) string {
		for _, a := range lib.Accounts() {
			if a.ID == id {
				return a.Name
			}
		}
		return ""
	}

	doc := &Document{
		Accounts: []Account{},
		Folders:  []Folder{},
		Notes:    []Note{},
	}

	for _, a := range lib.Accounts() {
		doc.Accounts = append(doc.Accounts, Account{
			ID:             a.ID,
			Name:           a.Name,
			Identifier:     a.Identifier,
			UserRecordName: a.UserRecordName,
		})
	}

	for _, f := range lib.Folders() {
		doc.Folders = append(doc.Folders, Folder{
			ID:          f.ID,
			Name:        f.Name,
			AccountName: accountName(f.AccountID),
			UUID:        f.UUID,
			ParentID:    f.ParentID,
			Path:        f.Path(folderMap),
		})
	}

	for _, n := range lib.Notes() {
		doc.Notes = append(doc.Notes, exportNote(n, folderMap, opts))
	}
	return doc
}

func exportNote(n *models.Note, folders map[int64]*models.Folder, opts Options) Note {
	out := Note{
		ID:                  n.ID,
		NoteID:              n.NoteID,
		Title:               n.Title,
		CreationDate:        isoDate(n.CreatedAt),
		ModificationDate:    isoDate(n.ModifiedAt),
		IsPinned:            n.IsPinned,
		IsPasswordProtected: n.IsPasswordProtected,
		UUID:                n.UUID,
		AppleScriptID:       n.AppleScriptID,
		Tags:                orEmpty(n.Tags),
		Mentions:            orEmpty(n.Mentions),
		Links:               orEmpty(n.Links),
	}
	if n.Account != nil {
		out.AccountName = n.Account.Name
	}
	if n.Folder != nil {
		out.FolderName = n.Folder.Name
		out.FolderPath = n.Folder.Path(folders)
	}
	for _, a := range n.Attachments {
		out.Attachments = append(out.Attachments, Attachment{
			ID:         a.ID,
			Filename:   a.Filename,
			FileSize:   a.FileSize,
			TypeUTI:    a.TypeUTI,
			Identifier: a.Identifier,
		})
	}
	if opts.IncludeContent && n.Content != nil && n.Content.Available {
		text := n.Content.Text
		out.Content = &text
	}
	return out
}

// Write renders the document as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

func isoDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

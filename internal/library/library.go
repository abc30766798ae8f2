// Package library loads a notes store into a decoded, queryable in-memory
// snapshot. A Library is immutable after Load; reloads build a fresh one
// and swap it in through a Handle.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/starford/othala/internal/content"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/schema"
	"github.com/starford/othala/internal/store"
)

// Library is one fully decoded snapshot of a store.
type Library struct {
	Profile   *schema.Profile
	StoreUUID string

	accounts map[int64]*models.Account
	folders  map[int64]*models.Folder
	notes    []*models.Note
	byID     map[int64]*models.Note
}

// Load reads the whole store and decodes every note. Schema detection
// failure is fatal; a single note that fails to decode is not, it stays
// in the snapshot with unavailable content and its diagnostics.
func Load(ctx context.Context, s *store.Store, logger *slog.Logger) (*Library, error) {
	profile, err := s.Detect()
	if err != nil {
		return nil, err
	}
	logger.Info("library: schema detected",
		slog.String("version", profile.Label),
		slog.Bool("legacy", profile.Legacy))

	accounts, err := s.Accounts(profile)
	if err != nil {
		return nil, err
	}
	folders, err := s.Folders(profile)
	if err != nil {
		return nil, err
	}
	attachments, err := s.Attachments(profile)
	if err != nil {
		return nil, err
	}
	inline, err := s.InlineObjects(profile)
	if err != nil {
		return nil, err
	}
	rows, err := s.NoteRows(profile)
	if err != nil {
		return nil, err
	}
	uuid := s.UUID()

	// Attachment lookup for embedded reference resolution.
	byIdentifier := make(map[string]*models.Attachment)
	for _, atts := range attachments {
		for _, a := range atts {
			if a.Identifier != "" {
				byIdentifier[a.Identifier] = a
			}
		}
	}
	lookup := func(identifier string) (*models.Attachment, bool) {
		a, ok := byIdentifier[identifier]
		return a, ok
	}

	notes := make([]*models.Note, len(rows))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, row := range rows {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			notes[i] = buildNote(row, profile, accounts, folders,
				attachments[row.NoteID], inline[row.NoteID], uuid, lookup)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })

	byID := make(map[int64]*models.Note, len(notes))
	unavailable := 0
	for _, n := range notes {
		byID[n.NoteID] = n
		if n.Content != nil && !n.Content.Available {
			unavailable++
			logger.Warn("library: note content unavailable",
				slog.Int64("note", n.NoteID),
				slog.String("diagnostics", strings.Join(n.Content.Diagnostics, "; ")))
		}
	}
	logger.Info("library: loaded",
		slog.Int("notes", len(notes)),
		slog.Int("unavailable", unavailable),
		slog.Int("accounts", len(accounts)),
		slog.Int("folders", len(folders)))

	return &Library{
		Profile:   profile,
		StoreUUID: uuid,
		accounts:  accounts,
		folders:   folders,
		notes:     notes,
		byID:      byID,
	}, nil
}

func buildNote(row store.NoteRow, profile *schema.Profile,
	accounts map[int64]*models.Account, folders map[int64]*models.Folder,
	atts []*models.Attachment, inline *store.InlineObjects,
	uuid string, lookup func(string) (*models.Attachment, bool)) *models.Note {

	n := &models.Note{
		ID:                  row.ID,
		NoteID:              row.NoteID,
		Title:               row.Title,
		CreatedAt:           row.Created(),
		ModifiedAt:          row.Modified(),
		Account:             accounts[row.AccountID],
		Folder:              folders[row.FolderID],
		IsPinned:            row.Pinned,
		IsPasswordProtected: row.Protected,
		UUID:                row.UUID,
		Attachments:         atts,
	}
	if uuid != "" {
		n.AppleScriptID = fmt.Sprintf("x-coredata://%s/ICNote/p%d", uuid, row.NoteID)
	}

	switch {
	case row.Protected:
		// Protected payloads are encrypted; the note is listed but its
		// body stays empty.
		n.Content = &models.NoteContent{Diagnostics: []string{"password protected"}}
	case profile.Legacy:
		n.Content = content.Decode([]byte(row.LegacyText), profile, lookup)
	default:
		n.Content = content.Decode(row.Payload, profile, lookup)
	}

	n.Tags, n.Mentions, n.Links = names(n.Content, inline)
	return n
}

// names derives the note's tag, mention, and link lists. Catalog inline
// rows win over text-derived annotations family by family: a store that
// materializes hashtags may still predate link rows.
func names(c *models.NoteContent, inline *store.InlineObjects) (tags, mentions, links []string) {
	if c != nil {
		for _, a := range c.Annotations {
			switch a.Kind {
			case models.AnnotationHashtag:
				tags = appendUnique(tags, a.Text)
			case models.AnnotationMention:
				mentions = appendUnique(mentions, a.Text)
			case models.AnnotationLink:
				links = appendUnique(links, a.Text)
			}
		}
	}
	if inline != nil {
		if len(inline.Hashtags) > 0 {
			tags = stripSigil(inline.Hashtags, "#")
		}
		if len(inline.Mentions) > 0 {
			mentions = stripSigil(inline.Mentions, "@")
		}
		if len(inline.Links) > 0 {
			links = append([]string(nil), inline.Links...)
		}
	}
	return tags, mentions, links
}

func stripSigil(list []string, sigil string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = appendUnique(out, strings.TrimPrefix(s, sigil))
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}

// Handle is a swap-on-reload pointer to the current snapshot. Readers get
// a consistent Library for the duration of one request; the watcher
// replaces the whole snapshot atomically.
type Handle struct {
	cur atomic.Pointer[Library]
}

// NewHandle returns a handle serving the given snapshot.
func NewHandle(l *Library) *Handle {
	h := &Handle{}
	h.cur.Store(l)
	return h
}

// Current returns the active snapshot.
func (h *Handle) Current() *Library {
	return h.cur.Load()
}

// Replace swaps in a new snapshot.
func (h *Handle) Replace(l *Library) {
	h.cur.Store(l)
}

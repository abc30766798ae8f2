package library

import (
	"sort"
	"strings"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Notes returns every note, ordered by primary key.
func (l *Library) Notes() []*models.Note {
	return l.notes
}

// Len returns the number of notes in the snapshot.
func (l *Library) Len() int {
	return len(l.notes)
}

// Note returns one note by its note primary key.
func (l *Library) Note(id int64) (*models.Note, error) {
	n, ok := l.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return n, nil
}

// Accounts returns every account, ordered by primary key.
func (l *Library) Accounts() []*models.Account {
	out := make([]*models.Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Folders returns every folder, ordered by primary key.
func (l *Library) Folders() []*models.Folder {
	out := make([]*models.Folder, 0, len(l.folders))
	for _, f := range l.folders {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FolderMap returns folders keyed by primary key, for path construction.
func (l *Library) FolderMap() map[int64]*models.Folder {
	return l.folders
}

// Filter returns the notes the predicate accepts, in snapshot order.
func (l *Library) Filter(keep func(*models.Note) bool) []*models.Note {
	var out []*models.Note
	for _, n := range l.notes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// NotesByTag returns notes carrying the tag, case-insensitively.
func (l *Library) NotesByTag(tag string) []*models.Note {
	return l.Filter(func(n *models.Note) bool { return n.HasTag(tag) })
}

// NotesByTags returns notes matching the tag list. With matchAll set a
// note must carry every tag; otherwise any one suffices.
func (l *Library) NotesByTags(tags []string, matchAll bool) []*models.Note {
	return l.Filter(func(n *models.Note) bool {
		for _, tag := range tags {
			if n.HasTag(tag) {
				if !matchAll {
					return true
				}
			} else if matchAll {
				return false
			}
		}
		return matchAll && len(tags) > 0
	})
}

// NotesByMention returns notes mentioning the name, case-insensitively.
func (l *Library) NotesByMention(mention string) []*models.Note {
	return l.Filter(func(n *models.Note) bool { return n.HasMention(mention) })
}

// NotesByFolder returns notes whose folder name matches, case-insensitively.
func (l *Library) NotesByFolder(name string) []*models.Note {
	return l.Filter(func(n *models.Note) bool {
		return n.Folder != nil && strings.EqualFold(n.Folder.Name, name)
	})
}

// NotesByAccount returns notes whose account name matches, case-insensitively.
func (l *Library) NotesByAccount(name string) []*models.Note {
	return l.Filter(func(n *models.Note) bool {
		return n.Account != nil && strings.EqualFold(n.Account.Name, name)
	})
}

// Pinned returns pinned notes.
func (l *Library) Pinned() []*models.Note {
	return l.Filter(func(n *models.Note) bool { return n.IsPinned })
}

// Protected returns password-protected notes.
func (l *Library) Protected() []*models.Note {
	return l.Filter(func(n *models.Note) bool { return n.IsPasswordProtected })
}

// WithLinks returns notes carrying at least one link.
func (l *Library) WithLinks() []*models.Note {
	return l.Filter(func(n *models.Note) bool { return len(n.Links) > 0 })
}

// NotesByLinkDomain returns notes with a link containing the domain,
// case-insensitively.
func (l *Library) NotesByLinkDomain(domain string) []*models.Note {
	domain = strings.ToLower(domain)
	return l.Filter(func(n *models.Note) bool {
		for _, link := range n.Links {
			if strings.Contains(strings.ToLower(link), domain) {
				return true
			}
		}
		return false
	})
}

// Search returns notes whose title or text contains the query,
// case-insensitively.
func (l *Library) Search(query string) []*models.Note {
	query = strings.ToLower(query)
	return l.Filter(func(n *models.Note) bool {
		return strings.Contains(strings.ToLower(n.Title), query) ||
			strings.Contains(strings.ToLower(n.Text()), query)
	})
}

// Tags returns every distinct tag across the snapshot, sorted.
func (l *Library) Tags() []string {
	return collect(l.notes, func(n *models.Note) []string { return n.Tags })
}

// Mentions returns every distinct mention across the snapshot, sorted.
func (l *Library) Mentions() []string {
	return collect(l.notes, func(n *models.Note) []string { return n.Mentions })
}

// TagCounts returns how many notes carry each tag.
func (l *Library) TagCounts() map[string]int {
	return count(l.notes, func(n *models.Note) []string { return n.Tags })
}

// FolderCounts returns how many notes each folder holds, keyed by name.
func (l *Library) FolderCounts() map[string]int {
	out := make(map[string]int)
	for _, n := range l.notes {
		if n.Folder != nil {
			out[n.Folder.Name]++
		}
	}
	return out
}

// AccountCounts returns how many notes each account holds, keyed by name.
func (l *Library) AccountCounts() map[string]int {
	out := make(map[string]int)
	for _, n := range l.notes {
		if n.Account != nil {
			out[n.Account.Name]++
		}
	}
	return out
}

func collect(notes []*models.Note, get func(*models.Note) []string) []string {
	seen := make(map[string]struct{})
	for _, n := range notes {
		for _, s := range get(n) {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func count(notes []*models.Note, get func(*models.Note) []string) map[string]int {
	out := make(map[string]int)
	for _, n := range notes {
		for _, s := range get(n) {
			out[s]++
		}
	}
	return out
}

package library

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/store"
	"github.com/starford/othala/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func loadFixture(t *testing.T, f *testutil.Fixture) *Library {
	t.Helper()
	s := openStore(t, f.Path)
	lib, err := Load(context.Background(), s, discardLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return lib
}

func seedModern(t *testing.T) *testutil.Fixture {
	t.Helper()
	f := testutil.NewFixture(t)
	f.AddAccount(1, "iCloud", "acct-icloud")
	f.AddFolder(10, "Notes", 1, 0)
	f.AddFolder(11, "Recipes", 1, 10)

	f.AddNote(testutil.NoteSeed{
		PK: 100, DataPK: 1, Title: "Groceries",
		Payload: testutil.GzipPayload(t, "Buy milk #groceries ping @bob https://example.com/list"),
		Account: 1, Folder: 10, Created: 700000000, Modified: 700000500,
		Pinned: true, UUID: "uuid-100",
	})
	f.AddNote(testutil.NoteSeed{
		PK: 101, DataPK: 2, Title: "Passwords",
		Payload: []byte{0xde, 0xad}, // encrypted, never decoded
		Account: 1, Folder: 10, Protected: true,
	})
	f.AddNote(testutil.NoteSeed{
		PK: 102, DataPK: 3, Title: "Chart",
		Payload: testutil.GzipPayload(t, "Hello",
			testutil.RunSpec{Length: 5},
			testutil.RunSpec{Length: 0, Ref: "att-chart", UTI: "public.png"}),
		Account: 1, Folder: 11,
	})
	f.AddAttachment(200, 102, "chart.png", "public.png", "att-chart", 2048)
	return f
}

func TestLoad_ModernStore(t *testing.T) {
	lib := loadFixture(t, seedModern(t))

	if lib.Len() != 3 {
		t.Fatalf("Len = %d, want 3", lib.Len())
	}
	if lib.Profile.Legacy {
		t.Error("modern fixture loaded as legacy")
	}

	n, err := lib.Note(100)
	if err != nil {
		t.Fatalf("Note(100): %v", err)
	}
	if !n.Content.Available {
		t.Fatalf("content unavailable: %v", n.Content.Diagnostics)
	}
	if n.Text() != "Buy milk #groceries ping @bob https://example.com/list" {
		t.Errorf("text = %q", n.Text())
	}
	if !reflect.DeepEqual(n.Tags, []string{"groceries"}) {
		t.Errorf("tags = %v", n.Tags)
	}
	if !reflect.DeepEqual(n.Mentions, []string{"bob"}) {
		t.Errorf("mentions = %v", n.Mentions)
	}
	if !reflect.DeepEqual(n.Links, []string{"https://example.com/list"}) {
		t.Errorf("links = %v", n.Links)
	}
	if !n.IsPinned {
		t.Error("note 100 should be pinned")
	}
	if n.AppleScriptID != "x-coredata://12345678-ABCD-ABCD-ABCD-123456789012/ICNote/p100" {
		t.Errorf("applescript id = %q", n.AppleScriptID)
	}
	want := time.Date(2023, 3, 8, 20, 26, 40, 0, time.UTC)
	if !n.CreatedAt.Equal(want) {
		t.Errorf("created = %v, want %v", n.CreatedAt, want)
	}
	if n.Account == nil || n.Account.Name != "iCloud" {
		t.Errorf("account = %+v", n.Account)
	}
	if n.Folder == nil || n.Folder.Name != "Notes" {
		t.Errorf("folder = %+v", n.Folder)
	}
}

func TestLoad_ProtectedNoteListedWithoutContent(t *testing.T) {
	lib := loadFixture(t, seedModern(t))

	n, err := lib.Note(101)
	if err != nil {
		t.Fatalf("Note(101): %v", err)
	}
	if !n.IsPasswordProtected {
		t.Error("note 101 should be protected")
	}
	if n.Content.Available || n.Text() != "" {
		t.Errorf("protected note decoded: %+v", n.Content)
	}
	if len(n.Content.Diagnostics) == 0 {
		t.Error("protected note should carry a diagnostic")
	}
	// Still counted against its folder.
	if got := lib.FolderCounts()["Notes"]; got != 2 {
		t.Errorf("Notes folder count = %d, want 2", got)
	}
}

func TestLoad_AttachmentResolved(t *testing.T) {
	lib := loadFixture(t, seedModern(t))

	n, err := lib.Note(102)
	if err != nil {
		t.Fatalf("Note(102): %v", err)
	}
	if len(n.Content.Attachments) != 1 {
		t.Fatalf("bindings = %+v", n.Content.Attachments)
	}
	b := n.Content.Attachments[0]
	if b.Identifier != "att-chart" {
		t.Errorf("binding identifier = %q", b.Identifier)
	}
	if b.Attachment == nil || b.Attachment.Filename != "chart.png" {
		t.Errorf("binding attachment = %+v", b.Attachment)
	}
	if len(n.Attachments) != 1 || n.Attachments[0].ID != 200 {
		t.Errorf("note attachments = %+v", n.Attachments)
	}
}

func TestLoad_InlineRowsWinPerFamily(t *testing.T) {
	f := testutil.NewFixture(t)
	f.AddAccount(1, "iCloud", "acct")
	f.AddFolder(10, "Notes", 1, 0)
	f.AddNote(testutil.NoteSeed{
		PK: 100, DataPK: 1,
		Payload: testutil.GzipPayload(t, "text says #texttag and @textname"),
		Account: 1, Folder: 10,
	})
	// Catalog materializes hashtags for this note, but no mention rows.
	f.AddInline(300, 100, store.UTIHashtag, "#work", "")
	f.AddInline(301, 100, store.UTIHashtag, "#home", "")
	lib := loadFixture(t, f)

	n, err := lib.Note(100)
	if err != nil {
		t.Fatalf("Note(100): %v", err)
	}
	if !reflect.DeepEqual(n.Tags, []string{"work", "home"}) {
		t.Errorf("tags = %v, want inline rows to win", n.Tags)
	}
	if !reflect.DeepEqual(n.Mentions, []string{"textname"}) {
		t.Errorf("mentions = %v, want text-derived fallback", n.Mentions)
	}
}

func TestLoad_LegacyStore(t *testing.T) {
	f := testutil.NewLegacyFixture(t)
	f.AddLegacyAccount(1, "Local", "local")
	f.AddLegacyStore(3, "Notes", 1)
	f.AddLegacyNote(7, "Old", "Plain body #retro", 3, 600000000, 600000100)
	lib := loadFixture(t, f)

	if !lib.Profile.Legacy {
		t.Fatalf("profile = %+v", lib.Profile)
	}
	n, err := lib.Note(7)
	if err != nil {
		t.Fatalf("Note(7): %v", err)
	}
	if n.Text() != "Plain body #retro" {
		t.Errorf("text = %q", n.Text())
	}
	if !reflect.DeepEqual(n.Tags, []string{"retro"}) {
		t.Errorf("tags = %v", n.Tags)
	}
	if n.Account == nil || n.Account.Name != "Local" {
		t.Errorf("account = %+v", n.Account)
	}
}

func TestLoad_CorruptNoteStaysListed(t *testing.T) {
	f := testutil.NewFixture(t)
	f.AddAccount(1, "iCloud", "acct")
	f.AddFolder(10, "Notes", 1, 0)
	f.AddNote(testutil.NoteSeed{
		PK: 100, DataPK: 1, Title: "Broken",
		Payload: []byte{0x1f, 0x8b, 0x00, 0x01}, // truncated container
		Account: 1, Folder: 10,
	})
	lib := loadFixture(t, f)

	n, err := lib.Note(100)
	if err != nil {
		t.Fatalf("Note(100): %v", err)
	}
	if n.Content.Available {
		t.Error("corrupt payload decoded as available")
	}
	if len(n.Content.Diagnostics) == 0 {
		t.Error("corrupt payload should carry diagnostics")
	}
	if lib.Len() != 1 {
		t.Errorf("Len = %d, want corrupt note listed", lib.Len())
	}
}

func TestQueries(t *testing.T) {
	lib := loadFixture(t, seedModern(t))

	if got := lib.NotesByTag("GROCERIES"); len(got) != 1 || got[0].NoteID != 100 {
		t.Errorf("NotesByTag = %v", ids(got))
	}
	if got := lib.NotesByMention("bob"); len(got) != 1 {
		t.Errorf("NotesByMention = %v", ids(got))
	}
	if got := lib.NotesByFolder("recipes"); len(got) != 1 || got[0].NoteID != 102 {
		t.Errorf("NotesByFolder = %v", ids(got))
	}
	if got := lib.NotesByAccount("iCloud"); len(got) != 3 {
		t.Errorf("NotesByAccount = %v", ids(got))
	}
	if got := lib.Pinned(); len(got) != 1 || got[0].NoteID != 100 {
		t.Errorf("Pinned = %v", ids(got))
	}
	if got := lib.Protected(); len(got) != 1 || got[0].NoteID != 101 {
		t.Errorf("Protected = %v", ids(got))
	}
	if got := lib.WithLinks(); len(got) != 1 || got[0].NoteID != 100 {
		t.Errorf("WithLinks = %v", ids(got))
	}
	if got := lib.NotesByLinkDomain("example.com"); len(got) != 1 {
		t.Errorf("NotesByLinkDomain = %v", ids(got))
	}
	if got := lib.Search("buy MILK"); len(got) != 1 || got[0].NoteID != 100 {
		t.Errorf("Search body = %v", ids(got))
	}
	if got := lib.Search("passwords"); len(got) != 1 || got[0].NoteID != 101 {
		t.Errorf("Search title = %v", ids(got))
	}
	if got := lib.Tags(); !reflect.DeepEqual(got, []string{"groceries"}) {
		t.Errorf("Tags = %v", got)
	}
	if got := lib.TagCounts(); got["groceries"] != 1 {
		t.Errorf("TagCounts = %v", got)
	}
	if got := lib.AccountCounts(); got["iCloud"] != 3 {
		t.Errorf("AccountCounts = %v", got)
	}

	if _, err := lib.Note(9999); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Note(9999) err = %v, want ErrNotFound", err)
	}
}

func TestNotesByTags_MatchAll(t *testing.T) {
	f := testutil.NewFixture(t)
	f.AddAccount(1, "iCloud", "acct")
	f.AddFolder(10, "Notes", 1, 0)
	f.AddNote(testutil.NoteSeed{PK: 300, DataPK: 1, Account: 1, Folder: 10,
		Payload: testutil.GzipPayload(t, "#a #b")})
	f.AddNote(testutil.NoteSeed{PK: 301, DataPK: 2, Account: 1, Folder: 10,
		Payload: testutil.GzipPayload(t, "#a only")})
	lib := loadFixture(t, f)

	if got := lib.NotesByTags([]string{"a", "b"}, false); len(got) != 2 {
		t.Errorf("any-match = %v", ids(got))
	}
	if got := lib.NotesByTags([]string{"a", "b"}, true); len(got) != 1 || got[0].NoteID != 300 {
		t.Errorf("all-match = %v", ids(got))
	}
	if got := lib.NotesByTags(nil, true); len(got) != 0 {
		t.Errorf("empty all-match = %v", ids(got))
	}
}

func TestHandle_Swap(t *testing.T) {
	a := &Library{}
	b := &Library{}
	h := NewHandle(a)
	if h.Current() != a {
		t.Fatal("handle does not serve initial snapshot")
	}
	h.Replace(b)
	if h.Current() != b {
		t.Fatal("handle did not swap")
	}
}

func TestWatch_ReloadsOnStoreChange(t *testing.T) {
	f := seedModern(t)
	s := openStore(t, f.Path)
	logger := discardLogger()

	lib, err := Load(context.Background(), s, logger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h := NewHandle(lib)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Library, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, h, s, logger, func(l *Library) { reloaded <- l })
	}()

	// Give the watcher a moment to start, then grow the store.
	time.Sleep(200 * time.Millisecond)
	f.AddNote(testutil.NoteSeed{
		PK: 500, DataPK: 50, Title: "Fresh",
		Payload: testutil.GzipPayload(t, "new note"),
		Account: 1, Folder: 10,
	})

	select {
	case l := <-reloaded:
		if l.Len() != 4 {
			t.Errorf("reloaded Len = %d, want 4", l.Len())
		}
		if h.Current() != l {
			t.Error("handle not swapped to reloaded snapshot")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no reload after store change")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func ids(notes []*models.Note) []int64 {
	out := make([]int64, len(notes))
	for i, n := range notes {
		out[i] = n.NoteID
	}
	return out
}

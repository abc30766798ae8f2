// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only notes tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/library"
	"github.com/starford/othala/internal/models"
)

// Server wraps the MCP server with notes tools. All tools read through
// the library handle, so they always see the current snapshot.
type Server struct {
	mcp *server.MCPServer
	lib *library.Handle
}

// New creates a new MCP server with all tools registered.
func New(lib *library.Handle) *Server {
	s := &Server{lib: lib}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes or notes in a specific folder. Returns titles, IDs, and tags."),
		mcp.WithString("folder", mcp.Description("Optional folder name to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read one note's decoded text and metadata by its numeric ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID as returned by list_notes or search_notes")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Substring search through note titles and decoded text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every hashtag in the store with its note count."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("notes_by_tag",
		mcp.WithDescription("List the notes carrying a specific hashtag."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name, with or without the leading #")),
	), s.notesByTag)

	// Resource: store metadata (schema version, counts).
	s.mcp.AddResource(
		mcp.NewResource("othala://store-info", "Store Info",
			mcp.WithResourceDescription("Detected schema version and snapshot counts of the opened notes store."),
			mcp.WithMIMEType("application/json"),
		),
		s.readStoreInfoResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// noteLine is the compact per-note form returned by listing tools.
type noteLine struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title,omitempty"`
	Folder    string   `json:"folder,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Pinned    bool     `json:"pinned,omitempty"`
	Protected bool     `json:"protected,omitempty"`
}

func lines(notes []*models.Note) []noteLine {
	out := make([]noteLine, 0, len(notes))
	for _, n := range notes {
		l := noteLine{
			ID:        n.NoteID,
			Title:     n.Title,
			Tags:      n.Tags,
			Pinned:    n.IsPinned,
			Protected: n.IsPasswordProtected,
		}
		if n.Folder != nil {
			l.Folder = n.Folder.Name
		}
		out = append(out, l)
	}
	return out
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	lib := s.lib.Current()
	notes := lib.Notes()
	if folder != "" {
		notes = lib.NotesByFolder(folder)
	}
	return jsonResult(lines(notes)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var id int64
	if _, scanErr := fmt.Sscanf(raw, "%d", &id); scanErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid note id: %s", raw)), nil
	}

	lib := s.lib.Current()
	note, err := lib.Note(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %d", id)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", note.Title)
	if note.Folder != nil {
		fmt.Fprintf(&b, "Folder: %s\n", note.Folder.Path(lib.FolderMap()))
	}
	if len(note.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(note.Tags, ", "))
	}
	if len(note.Mentions) > 0 {
		fmt.Fprintf(&b, "Mentions: %s\n", strings.Join(note.Mentions, ", "))
	}
	switch {
	case note.IsPasswordProtected:
		b.WriteString("\n[password protected, content not available]\n")
	case note.Content == nil || !note.Content.Available:
		b.WriteString("\n[content could not be decoded]\n")
	default:
		b.WriteString("\n")
		b.WriteString(note.Content.Text)
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(lines(s.lib.Current().Search(query))), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.lib.Current().TagCounts()), nil
}

func (s *Server) notesByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag = strings.TrimPrefix(tag, "#")
	return jsonResult(lines(s.lib.Current().NotesByTag(tag))), nil
}

func (s *Server) readStoreInfoResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	lib := s.lib.Current()
	info, _ := json.MarshalIndent(map[string]any{
		"schema_version": lib.Profile.Label,
		"legacy":         lib.Profile.Legacy,
		"store_uuid":     lib.StoreUUID,
		"notes":          lib.Len(),
		"accounts":       len(lib.Accounts()),
		"folders":        len(lib.Folders()),
	}, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://store-info",
			MIMEType: "application/json",
			Text:     string(info),
		},
	}, nil
}

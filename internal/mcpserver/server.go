// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the journal engine for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/journal"
	"github.com/starford/dagaz/internal/models"
)

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp *server.MCPServer
	svc *journal.Service
	nl  *when.Parser
}

// New creates a new MCP server with all journal tools registered.
func New(svc *journal.Service) *Server {
	nl := when.New(nil)
	nl.Add(en.All...)
	nl.Add(common.All...)

	s := &Server{svc: svc, nl: nl}

	s.mcp = server.NewMCPServer(
		"Dagaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read one day's journal entry: bullets, counts, references and the canonical text."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Entry date (YYYY-MM-DD)")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("write_entry",
		mcp.WithDescription("Write one day's entry. Content MUST follow the canonical entry format "+
			"(typed sections, one bullet per line). Read the contract first via the "+
			"get_entry_contract tool or the journal://format resource. Empty content removes the day."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Entry date (YYYY-MM-DD)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Entry text following the format contract")),
	), s.writeEntry)

	s.mcp.AddTool(mcp.NewTool("append_bullet",
		mcp.WithDescription("Append a single bullet to a day's entry (rapid logging). Creates the day when absent."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Entry date (YYYY-MM-DD)")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Bullet type: task, event, note, priority, inspiration, insight or misstep")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Bullet text")),
		mcp.WithString("state", mcp.Description("Task state: pending, completed, migrated or scheduled (tasks only, default pending)")),
	), s.appendBullet)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List entry summaries (date, counts, checksum) in an inclusive date range."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Range start (YYYY-MM-DD)")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Range end (YYYY-MM-DD)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("search_journal",
		mcp.WithDescription("Full-text search across journal entries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchJournal)

	s.mcp.AddTool(mcp.NewTool("term_stats",
		mcp.WithDescription("Term frequency statistics: pass a term for one record, or omit it for the most frequent terms."),
		mcp.WithString("term", mcp.Description("Single term to look up (case-insensitive)")),
		mcp.WithNumber("limit", mcp.Description("Max terms when listing (default 20)")),
	), s.termStats)

	s.mcp.AddTool(mcp.NewTool("get_references",
		mcp.WithDescription("All cross-references touching a day, outgoing and incoming."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Entry date (YYYY-MM-DD)")),
	), s.getReferences)

	s.mcp.AddTool(mcp.NewTool("migrate_task",
		mcp.WithDescription("Move a pending or scheduled task to another day. The source bullet is "+
			"marked migrated and a fresh pending copy is appended to the target."),
		mcp.WithString("source_date", mcp.Required(), mcp.Description("Day the task currently lives on (YYYY-MM-DD)")),
		mcp.WithString("bullet_id", mcp.Required(), mcp.Description("Bullet ID within the source entry (e.g. b1)")),
		mcp.WithString("target_date", mcp.Required(), mcp.Description("Target day: YYYY-MM-DD or natural language like \"tomorrow\" or \"next monday\"")),
	), s.migrateTask)

	s.mcp.AddTool(mcp.NewTool("capture_link",
		mcp.WithDescription("Fetch a web page and append it to a day as a note bullet with the page title."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http/https URL to capture")),
		mcp.WithString("date", mcp.Description("Entry date (YYYY-MM-DD), default today")),
		mcp.WithString("note", mcp.Description("Label to use instead of the fetched page title")),
	), s.captureLink)

	s.mcp.AddTool(mcp.NewTool("journal_stats",
		mcp.WithDescription("Journal-wide totals: entry count and bullet counts by type."),
	), s.journalStats)

	s.mcp.AddTool(mcp.NewTool("get_entry_contract",
		mcp.WithDescription("Returns the canonical entry format contract. "+
			"Call this before writing entries to ensure correct structure."),
	), s.getEntryContract)

	// Resource: entry format contract.
	s.mcp.AddResource(
		mcp.NewResource("journal://format", "Entry Format Contract",
			mcp.WithResourceDescription("Canonical entry text format that all journal entries follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, errResult := dateArg(req, "date")
	if errResult != nil {
		return errResult, nil
	}
	detail, err := s.svc.Read(ctx, date)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no entry for %s", date)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) writeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, errResult := dateArg(req, "date")
	if errResult != nil {
		return errResult, nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	detail, err := s.svc.Write(ctx, date, content, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if detail.Content == "" {
		return mcp.NewToolResultText(fmt.Sprintf("removed: %s (entry emptied)", date)), nil
	}
	if len(detail.Warnings) > 0 {
		return mcp.NewToolResultText(fmt.Sprintf("written: %s with warnings:\n%s",
			date, strings.Join(detail.Warnings, "\n"))), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("written: %s", date)), nil
}

func (s *Server) appendBullet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, errResult := dateArg(req, "date")
	if errResult != nil {
		return errResult, nil
	}
	typeStr, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	bt, err := models.ParseBulletType(typeStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b := models.Bullet{Type: bt, Content: content}
	if stateStr := req.GetString("state", ""); stateStr != "" {
		if bt != models.Task {
			return mcp.NewToolResultError("state applies to task bullets only"), nil
		}
		st := models.TaskState(strings.ToLower(strings.TrimSpace(stateStr)))
		if !st.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown task state %q", stateStr)), nil
		}
		b.TaskState = st
	}

	detail, err := s.svc.AppendBullet(ctx, date, b)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	appended := lastOfType(detail.Bullets, bt)
	return mcp.NewToolResultText(fmt.Sprintf("appended %s %s to %s", bt, appended.ID, date)), nil
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, errResult := dateArg(req, "from")
	if errResult != nil {
		return errResult, nil
	}
	to, errResult := dateArg(req, "to")
	if errResult != nil {
		return errResult, nil
	}
	rows, err := s.svc.Summaries(ctx, models.DateRange{From: from, To: to})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) termStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if term := req.GetString("term", ""); term != "" {
		rec, err := s.svc.Term(ctx, term)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("term %q not indexed", term)), nil
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, _ := json.MarshalIndent(rec, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}

	terms, err := s.svc.Terms(ctx, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(terms, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, errResult := dateArg(req, "date")
	if errResult != nil {
		return errResult, nil
	}
	out, in, err := s.svc.References(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, _ := json.MarshalIndent(map[string]any{
		"outgoing": out,
		"incoming": in,
	}, "", "  ")
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) migrateTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, errResult := dateArg(req, "source_date")
	if errResult != nil {
		return errResult, nil
	}
	bulletID, err := req.RequireString("bullet_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tgtStr, err := req.RequireString("target_date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := s.resolveDate(tgtStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.svc.Migrate(ctx, source, bulletID, target); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("migrated %s from %s to %s", bulletID, source, target)), nil
}

func (s *Server) journalStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getEntryContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EntryFormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "journal://format",
			MIMEType: "text/markdown",
			Text:     EntryFormatContract,
		},
	}, nil
}

// dateArg pulls a required date parameter, reporting both missing and
// malformed values as tool errors.
func dateArg(req mcp.CallToolRequest, name string) (models.Date, *mcp.CallToolResult) {
	str, err := req.RequireString(name)
	if err != nil {
		return models.Date{}, mcp.NewToolResultError(err.Error())
	}
	date, err := models.ParseDate(str)
	if err != nil {
		return models.Date{}, mcp.NewToolResultError(fmt.Sprintf("invalid %s %q, want YYYY-MM-DD", name, str))
	}
	return date, nil
}

// resolveDate accepts YYYY-MM-DD or natural language ("tomorrow",
// "next monday") resolved against the current time.
func (s *Server) resolveDate(str string) (models.Date, error) {
	if d, err := models.ParseDate(str); err == nil {
		return d, nil
	}
	r, err := s.nl.Parse(str, time.Now())
	if err != nil || r == nil {
		return models.Date{}, fmt.Errorf("cannot understand date %q, use YYYY-MM-DD or a phrase like \"tomorrow\"", str)
	}
	return models.DateOf(r.Time), nil
}

// lastOfType returns the last bullet of the given type. An appended
// bullet lands at the end of its section after normalization, so this
// is how a fresh append is located again.
func lastOfType(bullets []models.Bullet, t models.BulletType) *models.Bullet {
	for i := len(bullets) - 1; i >= 0; i-- {
		if bullets[i].Type == t {
			return &bullets[i]
		}
	}
	return nil
}

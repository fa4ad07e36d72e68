// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido study tools for LLM integration via stdio transport.
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

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/media"
	"github.com/starford/raido/internal/models"
)

// Server wraps the MCP server with Raido study tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *api.Service
	media media.Provider
}

// New creates a new MCP server with all Raido tools registered. mp may be
// nil when media uploads are disabled.
func New(svc *api.Service, mp media.Provider) *Server {
	s := &Server{svc: svc, media: mp}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_decks",
		mcp.WithDescription("List all decks with their due counts (learning, review, new), "+
			"including subtree rollups for parent decks."),
	), s.listDecks)

	s.mcp.AddTool(mcp.NewTool("create_deck",
		mcp.WithDescription("Create a new deck, optionally under a parent and seeded from a named options preset."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Deck name (e.g. Japanese::Vocab)")),
		mcp.WithNumber("parent_id", mcp.Description("Optional parent deck ID (0 or omitted for a root deck)")),
		mcp.WithString("preset", mcp.Description("Optional preset name to seed scheduling options from")),
	), s.createDeck)

	s.mcp.AddTool(mcp.NewTool("next_card",
		mcp.WithDescription("Get the next card to study in a deck, together with its note fields. "+
			"Returns a null card when the queue is exhausted for today."),
		mcp.WithNumber("deck_id", mcp.Required(), mcp.Description("Deck ID to study")),
	), s.nextCard)

	s.mcp.AddTool(mcp.NewTool("answer_card",
		mcp.WithDescription("Record an answer for a card. Rating: 1=Again, 2=Hard, 3=Good, 4=Easy. "+
			"Returns the rescheduled card plus leech/bury outcomes."),
		mcp.WithNumber("deck_id", mcp.Required(), mcp.Description("Deck the card is being studied in")),
		mcp.WithNumber("card_id", mcp.Required(), mcp.Description("Card being answered")),
		mcp.WithNumber("rating", mcp.Required(), mcp.Description("Answer rating from 1 (Again) to 4 (Easy)")),
		mcp.WithNumber("time_ms", mcp.Required(), mcp.Description("Time spent on the card in milliseconds (must be positive)")),
	), s.answerCard)

	s.mcp.AddTool(mcp.NewTool("undo_answer",
		mcp.WithDescription("Revert the most recent answer in a deck's session. Only the last "+
			"answer can be undone, and only once."),
		mcp.WithNumber("deck_id", mcp.Required(), mcp.Description("Deck whose last answer to undo")),
	), s.undoAnswer)

	s.mcp.AddTool(mcp.NewTool("session_stats",
		mcp.WithDescription("Report the study session's progress for a deck: cards studied, elapsed "+
			"time, current due counts, and whether more cards remain."),
		mcp.WithNumber("deck_id", mcp.Required(), mcp.Description("Deck ID")),
	), s.sessionStats)

	s.mcp.AddTool(mcp.NewTool("complete_session",
		mcp.WithDescription("End the study session for a deck and return its final statistics."),
		mcp.WithNumber("deck_id", mcp.Required(), mcp.Description("Deck ID")),
	), s.completeSession)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Add a note with its sibling cards to a deck. Fields MUST follow the "+
			"canonical note format (JSON object with front/back and optional extras). Read the "+
			"contract first via the get_note_contract tool or the raido://note-format resource."),
		mcp.WithNumber("deck_id", mcp.Required(), mcp.Description("Deck to add the note's cards to")),
		mcp.WithString("fields", mcp.Required(), mcp.Description(`JSON object mapping field names to values, e.g. {"front":"猫","back":"cat"}`)),
		mcp.WithString("tags", mcp.Description("Optional comma-separated tags (lowercase, kebab-case)")),
		mcp.WithNumber("card_count", mcp.Description("Number of sibling cards to generate (default 1)")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical Raido note format contract. "+
			"Call this before adding notes to ensure correct field structure."),
	), s.getNoteContract)

	if s.media != nil {
		s.mcp.AddTool(mcp.NewTool("upload_media",
			mcp.WithDescription("Upload a media file for use in note fields, from an http(s) URL or a "+
				"base64 data URI. Returns the /media/ URL to embed in a field."),
			mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the file")),
			mcp.WithString("filename", mcp.Description("Optional filename to store under (extension must match content)")),
		), s.uploadMedia)
	}

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical note field format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func (s *Server) listDecks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	decks, err := s.svc.ListDecks(time.Now().UnixMilli())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(decks, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createDeck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parentID := int64(req.GetInt("parent_id", 0))
	preset := req.GetString("preset", "")

	deck, err := s.svc.CreateDeck(name, parentID, preset)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(deck, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) nextCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireInt("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	card, note, err := s.svc.NextCard(int64(deckID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if card == nil {
		return mcp.NewToolResultText(`{"card": null}`), nil
	}
	out, _ := json.MarshalIndent(api.NextCardResponse{Card: card, Note: note}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) answerCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireInt("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cardID, err := req.RequireInt("card_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rating, err := req.RequireInt("rating")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeMS, err := req.RequireInt("time_ms")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.Answer(int64(deckID), int64(cardID), models.Rating(rating), int64(timeMS))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) undoAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireInt("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	card, err := s.svc.Undo(int64(deckID))
	if err != nil {
		if errors.Is(err, apperr.ErrNothingToUndo) {
			return mcp.NewToolResultError("nothing to undo"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(card, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) sessionStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireInt("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, counts, more, err := s.svc.SessionStats(int64(deckID), time.Now().UnixMilli())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"stats":    stats,
		"counts":   counts,
		"has_more": more,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) completeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireInt("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, err := s.svc.CompleteSession(int64(deckID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deckID, err := req.RequireInt("deck_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldsJSON, err := req.RequireString("fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fields must be a JSON object of strings: %v", err)), nil
	}
	if len(fields) == 0 {
		return mcp.NewToolResultError("fields must not be empty"), nil
	}

	var tags []string
	for _, tag := range strings.Split(req.GetString("tags", ""), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	cardCount := req.GetInt("card_count", 1)

	note, cards, err := s.svc.CreateNote(int64(deckID), fields, tags, cardCount)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(api.NoteResponse{Note: note, Cards: cards}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

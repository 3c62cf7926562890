package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// defaultSearchLimit is used when the caller gives no limit.
const defaultSearchLimit = 10

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query    string `json:"query" jsonschema:"the question to answer from the document corpus"`
	Category string `json:"category,omitempty" jsonschema:"restrict retrieval to this document category"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string          `json:"answer"`
	Mode    string          `json:"mode"`
	Sources []domain.Source `json:"sources"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query    string `json:"query" jsonschema:"text to find similar passages for"`
	Category string `json:"category,omitempty" jsonschema:"restrict results to this document category"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 10)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput is one retrieved passage.
type PassageOutput struct {
	OriginPath string  `json:"origin_path"`
	Page       int     `json:"page"`
	Category   string  `json:"category"`
	Version    int     `json:"version"`
	IsLatest   bool    `json:"is_latest"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// ListCategoriesOutput is the output schema for the list_categories tool.
type ListCategoriesOutput struct {
	Categories []string `json:"categories"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []domain.DocumentInfo `json:"documents"`
	Count     int                   `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documents, citing sources and marking the latest version of each",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the passages most similar to a query, optionally within one category",
	}, s.handleSearch)

	if s.ports.Corpus == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the document categories",
	}, s.handleListCategories)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents in the corpus with category and version",
	}, s.handleListDocuments)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	result, err := s.ports.Engine.Answer().Ask(ctx, domain.QueryRequest{
		Question: input.Query,
		Category: input.Category,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := result.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return nil, AskOutput{Answer: result.Answer, Mode: string(result.Mode), Sources: sources}, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := s.ports.Engine.Retrieval().Search(ctx, input.Query, limit, input.Category)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]PassageOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		c := results[i].Chunk
		output.Results[i] = PassageOutput{
			OriginPath: c.OriginPath,
			Page:       c.Page,
			Category:   c.Category,
			Version:    c.Version,
			IsLatest:   results[i].IsLatest,
			Similarity: results[i].Similarity,
			Content:    c.Content,
		}
	}

	return nil, output, nil
}

func (s *Server) handleListCategories(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListCategoriesOutput, error) {
	categories, err := s.ports.Corpus.Categories(ctx)
	if err != nil {
		return nil, ListCategoriesOutput{}, err
	}
	return nil, ListCategoriesOutput{Categories: categories}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Corpus.Documents(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	return nil, ListDocumentsOutput{Documents: docs, Count: len(docs)}, nil
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

const serviceName = "docrag"

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	domain.EngineStatus
}

type ingestResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
	Skipped   int    `json:"skipped"`
}

type uploadResponse struct {
	domain.DocumentInfo
	Message string `json:"message"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the docrag API. POST /query to ask a question."})
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.ports.Engine.Status(c.Request.Context())
	status := "ok"
	if !st.Ready {
		status = "initializing or error"
	}
	c.JSON(http.StatusOK, healthResponse{Status: status, Service: serviceName, EngineStatus: st})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req domain.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	logger.Info("Received query: %q (category: %q)", req.Question, req.Category)

	result, err := s.ports.Engine.Answer().Ask(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCategories(c *gin.Context) {
	categories, err := s.ports.Corpus.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *Server) handleDocuments(c *gin.Context) {
	docs, err := s.ports.Corpus.Documents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// handleIngest runs a full ingestion. A client that disconnects does not
// abort the rebuild.
func (s *Server) handleIngest(c *gin.Context) {
	logger.Info("Starting ingestion...")
	report, err := s.ports.Ingest.Ingest(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingestResponse{
		Status:    "Ingestion complete and engine updated",
		Documents: report.Documents,
		Chunks:    report.Chunks,
		Skipped:   report.Skipped,
	})
}

func (s *Server) handleClear(c *gin.Context) {
	err := s.ports.Engine.ClearIndex(c.Request.Context())
	if errors.Is(err, domain.ErrIndexBusy) {
		c.Header("Retry-After", "5")
		abortWithError(c, http.StatusLocked, "index_busy",
			"Index is in use. Retry once in-flight queries and ingestion have finished.")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "Index cleared successfully",
		"message": "Call /ingest to rebuild it",
	})
}

// handleUpload stores a multipart "file". category and version are read from
// the form, falling back to the query string.
func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, fmt.Errorf("%w: multipart field \"file\" is required", domain.ErrInvalidInput))
		return
	}

	category := formOrQuery(c, "category")
	version := 0
	if v := formOrQuery(c, "version"); v != "" {
		version, err = strconv.Atoi(v)
		if err != nil {
			respondError(c, fmt.Errorf("%w: version must be an integer", domain.ErrInvalidInput))
			return
		}
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	info, err := s.ports.Corpus.Upload(c.Request.Context(), driving.UploadRequest{
		Filename: header.Filename,
		Category: category,
		Version:  version,
		Body:     f,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("File saved: %s (category: %s, version: %d)", info.Path, info.Category, info.Version)

	c.JSON(http.StatusCreated, uploadResponse{
		DocumentInfo: *info,
		Message:      fmt.Sprintf("File uploaded to category %q. Call /ingest to process it.", info.Category),
	})
}

func formOrQuery(c *gin.Context, key string) string {
	if v, ok := c.GetPostForm(key); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.Query(key))
}

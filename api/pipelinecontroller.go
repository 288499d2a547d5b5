package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anujpatel512/bias-lens/clustering"
	"github.com/anujpatel512/bias-lens/scoring"
	"github.com/anujpatel512/bias-lens/store"
)

// IngestRunRequest asks the pipeline to pull one feed.
type IngestRunRequest struct {
	Feed     string `json:"feed" binding:"required"`
	MaxCount int    `json:"max_count"`
}

// ScoringRunResponse summarizes a scoring pass. Failed articles are flagged
// distinctly so the caller can show partial results.
type ScoringRunResponse struct {
	Scored       int               `json:"scored"`
	Failed       int               `json:"failed"`
	NotAttempted int               `json:"not_attempted"`
	Errors       map[string]string `json:"errors,omitempty"`
}

func (s *Server) handleIngestRun(c *gin.Context) {
	var req IngestRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := s.pipeline.Ingest(c.Request.Context(), req.Feed, req.MaxCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingest failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ingested", "saved": saved})
}

func (s *Server) handleScoringRun(c *gin.Context) {
	results, err := s.pipeline.ScoreUnscored(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scoring.ErrBatchTooLarge) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": "scoring run failed: " + err.Error()})
		return
	}

	resp := ScoringRunResponse{Errors: make(map[string]string)}
	for id, result := range results {
		switch result.Status {
		case scoring.StatusScored:
			resp.Scored++
		case scoring.StatusFailed:
			resp.Failed++
			resp.Errors[id] = result.Error
		case scoring.StatusNotAttempted:
			resp.NotAttempted++
		}
	}
	if len(resp.Errors) == 0 {
		resp.Errors = nil
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleClusteringRun(c *gin.Context) {
	clusters, err := s.pipeline.Recluster(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, clustering.ErrIncompatibleRepresentations) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": "clustering run failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "clustered", "clusters": clusters})
}

func (s *Server) handleListClusters(c *gin.Context) {
	clusters, err := s.articles.ListClusters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list clusters: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clusters": clusters})
}

func (s *Server) handleListArticles(c *gin.Context) {
	articles, err := s.articles.ListArticles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list articles: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (s *Server) handleGetAssessment(c *gin.Context) {
	assessment, err := s.articles.GetAssessment(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Distinct "scoring unavailable" signal for the UI.
			c.JSON(http.StatusNotFound, gin.H{"error": "no assessment for article"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load assessment: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, assessment)
}

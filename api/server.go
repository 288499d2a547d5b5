// Package api exposes the pipeline over HTTP for the presentation layer.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/anujpatel512/bias-lens/pipeline"
	"github.com/anujpatel512/bias-lens/store"
)

// Server holds the wired pipeline behind the HTTP handlers.
type Server struct {
	pipeline *pipeline.Pipeline
	articles store.ArticleStore
}

// NewRouter constructs a Gin engine with all routes registered.
func NewRouter(p *pipeline.Pipeline, articles store.ArticleStore) *gin.Engine {
	s := &Server{pipeline: p, articles: articles}

	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)

	g := r.Group("/api")
	g.POST("/ingest/run", s.handleIngestRun)
	g.POST("/scoring/run", s.handleScoringRun)
	g.POST("/clustering/run", s.handleClusteringRun)
	g.GET("/clusters", s.handleListClusters)
	g.GET("/articles", s.handleListArticles)
	g.GET("/articles/:id/assessment", s.handleGetAssessment)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "healthy"})
}

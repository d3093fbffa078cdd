package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/cortex/internal/config"
	"github.com/agenthands/cortex/internal/core"
	"github.com/agenthands/cortex/internal/core/assembler"
	"github.com/agenthands/cortex/internal/core/model"
	"github.com/agenthands/cortex/internal/driver"
	"github.com/agenthands/cortex/internal/llm"
)

type Server struct {
	Engine *core.Engine
}

func NewServer() *Server {
	dbURI := os.Getenv("MEMGRAPH_URI")
	if dbURI == "" {
		dbURI = "bolt://localhost:7687"
	}
	dbUser := os.Getenv("MEMGRAPH_USER")
	dbPass := os.Getenv("MEMGRAPH_PASSWORD")

	d, err := driver.NewMemgraphDriver(dbURI, dbUser, dbPass)
	if err != nil {
		log.Fatalf("Failed to connect to Memgraph: %v", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using defaults", cfgPath, err)
		cfg = config.Default()
	}

	// Env overrides for the LLM block
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
		cfg.LLM.Model = "gpt-oss:latest"
		cfg.LLM.BaseURL = "http://localhost:11434"
	}

	llmClient, embedderClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	engine := core.NewEngine(d, llmClient, embedderClient, cfg)
	if err := engine.BuildIndices(context.Background()); err != nil {
		log.Printf("Warning: failed to build indices: %v", err)
	}
	engine.StartBackground()

	return &Server{Engine: engine}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/entities", s.SaveEntity)
	r.POST("/content", s.IndexContent)
	r.POST("/resolution/cycle", s.RunResolutionCycle)
	r.POST("/relationships/reinforce", s.Reinforce)
	r.POST("/relationships/decay", s.ApplyDecay)
	r.GET("/relationships/strongest", s.Strongest)
	r.POST("/timeblocks/link", s.LinkTimeBlock)
	r.GET("/timeline", s.Timeline)
	r.POST("/episodes/detect", s.DetectEpisodes)
	r.GET("/heatmap", s.Heatmap)
	r.POST("/correlations/index", s.Correlate)
	r.POST("/meetings/prepare", s.MeetingPrep)
	r.POST("/context/assemble", s.AssembleContext)

	return r
}

type SaveEntityRequest struct {
	Type   string `json:"type" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email"`
	Source string `json:"source"`
	UserID int64  `json:"user_id"`
}

func (s *Server) SaveEntity(c *gin.Context) {
	var req SaveEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	entity, err := s.Engine.SaveEntity(c.Request.Context(), model.Entity{
		Type:   model.NodeType(req.Type),
		Name:   req.Name,
		Email:  req.Email,
		Source: req.Source,
		UserID: req.UserID,
	})
	if err != nil {
		log.Printf("Failed to save entity: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save entity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entity": entity})
}

type IndexContentRequest struct {
	Type         string    `json:"type" binding:"required"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Source       string    `json:"source"`
	UserID       int64     `json:"user_id"`
	Participants []string  `json:"participants"`
	Keywords     []string  `json:"keywords"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s *Server) IndexContent(c *gin.Context) {
	var req IndexContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	node, correlations, err := s.Engine.IndexContent(c.Request.Context(), model.ContentNode{
		Type:         model.NodeType(req.Type),
		Title:        req.Title,
		Content:      req.Content,
		Source:       req.Source,
		UserID:       req.UserID,
		Participants: req.Participants,
		Keywords:     req.Keywords,
		Timestamp:    req.Timestamp,
	})
	if err != nil {
		log.Printf("Failed to index content: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to index content"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"node": node, "correlations": correlations})
}

func (s *Server) RunResolutionCycle(c *gin.Context) {
	stats := s.Engine.Resolution.RunResolutionCycle(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

type ReinforceRequest struct {
	FromUUID string  `json:"from_uuid" binding:"required"`
	ToUUID   string  `json:"to_uuid" binding:"required"`
	Type     string  `json:"type" binding:"required"`
	Weight   float64 `json:"weight"`
}

func (s *Server) Reinforce(c *gin.Context) {
	var req ReinforceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	edge, err := s.Engine.Strength.Reinforce(c.Request.Context(), req.FromUUID, req.ToUUID, model.EdgeType(req.Type), req.Weight)
	if err != nil {
		log.Printf("Failed to reinforce: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reinforce relationship"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"edge": edge})
}

func (s *Server) ApplyDecay(c *gin.Context) {
	stats, err := s.Engine.Strength.ApplyDecayAll(c.Request.Context())
	if err != nil {
		log.Printf("Failed to apply decay: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply decay"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (s *Server) Strongest(c *gin.Context) {
	nodeUUID := c.Query("uuid")
	if nodeUUID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uuid is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	minStrength, _ := strconv.ParseFloat(c.DefaultQuery("min_strength", "0"), 64)

	edges, err := s.Engine.Strength.GetStrongestRelationships(c.Request.Context(), nodeUUID, limit, minStrength, nil)
	if err != nil {
		log.Printf("Failed to fetch relationships: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch relationships"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"relationships": edges})
}

func (s *Server) Timeline(c *gin.Context) {
	userID, _ := strconv.ParseInt(c.Query("user_id"), 10, 64)
	granularity := model.Granularity(c.DefaultQuery("granularity", "day"))
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
		return
	}

	timeline, err := s.Engine.Temporal.GetTimeline(c.Request.Context(), userID, start, end, granularity)
	if err != nil {
		log.Printf("Failed to build timeline: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build timeline"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"timeline": timeline})
}

type LinkTimeBlockRequest struct {
	EventUUID   string    `json:"event_uuid" binding:"required"`
	Timestamp   time.Time `json:"timestamp" binding:"required"`
	Granularity string    `json:"granularity" binding:"required"`
	UserID      int64     `json:"user_id"`
	RelType     string    `json:"rel_type"`
}

func (s *Server) LinkTimeBlock(c *gin.Context) {
	var req LinkTimeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	linked := s.Engine.Temporal.LinkEventToTimeBlock(c.Request.Context(),
		req.EventUUID, req.Timestamp, model.Granularity(req.Granularity), req.UserID, model.EdgeType(req.RelType))

	c.JSON(http.StatusOK, gin.H{"linked": linked})
}

type DetectEpisodesRequest struct {
	UserID int64     `json:"user_id" binding:"required"`
	Start  time.Time `json:"start" binding:"required"`
	End    time.Time `json:"end" binding:"required"`
}

func (s *Server) DetectEpisodes(c *gin.Context) {
	var req DetectEpisodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	episodes, err := s.Engine.Temporal.DetectEpisodes(c.Request.Context(), req.UserID, req.Start, req.End)
	if err != nil {
		log.Printf("Failed to detect episodes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to detect episodes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"episodes": episodes})
}

func (s *Server) Heatmap(c *gin.Context) {
	userID, _ := strconv.ParseInt(c.Query("user_id"), 10, 64)
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	heatmap, err := s.Engine.Temporal.GetUserActivityHeatmap(c.Request.Context(), userID, days)
	if err != nil {
		log.Printf("Failed to build heatmap: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build heatmap"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"heatmap": heatmap})
}

type CorrelateRequest struct {
	UUID                string `json:"uuid" binding:"required"`
	Type                string `json:"type" binding:"required"`
	Title               string `json:"title"`
	Content             string `json:"content"`
	Source              string `json:"source"`
	UserID              int64  `json:"user_id"`
	CreateRelationships bool   `json:"create_relationships"`
}

func (s *Server) Correlate(c *gin.Context) {
	var req CorrelateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	correlations := s.Engine.Correlator.CorrelateOnIndex(c.Request.Context(), model.ContentNode{
		UUID:    req.UUID,
		Type:    model.NodeType(req.Type),
		Title:   req.Title,
		Content: req.Content,
		Source:  req.Source,
		UserID:  req.UserID,
	}, req.CreateRelationships)

	c.JSON(http.StatusOK, gin.H{"correlations": correlations})
}

type MeetingPrepRequest struct {
	EventUUID   string   `json:"event_uuid" binding:"required"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Attendees   []string `json:"attendees"`
	UserID      int64    `json:"user_id"`
	MaxDocs     int      `json:"max_docs"`
}

func (s *Server) MeetingPrep(c *gin.Context) {
	var req MeetingPrepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.MaxDocs <= 0 {
		req.MaxDocs = 5
	}

	docs := s.Engine.Correlator.FindRelatedDocumentsForMeeting(c.Request.Context(),
		req.EventUUID, req.Title, req.Description, req.Attendees, req.UserID, req.MaxDocs)

	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) AssembleContext(c *gin.Context) {
	var req assembler.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result := s.Engine.AssembleContext(c.Request.Context(), req)
	c.JSON(http.StatusOK, result)
}

package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crypto-tracker/internal/models"
	"crypto-tracker/internal/pipeline"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 100

// HistoryReader reads archived snapshot rows.
type HistoryReader interface {
	Recent(ctx context.Context, symbol string, limit int) ([]models.CryptoSnapshot, error)
}

type APIHandler struct {
	state   *State
	hub     *Hub
	history HistoryReader
}

// SetupRoutes registers the read-only tracker endpoints on r. history may be
// nil when no database is configured.
func SetupRoutes(r *gin.RouterGroup, state *State, hub *Hub, history HistoryReader) *APIHandler {
	handler := &APIHandler{
		state:   state,
		hub:     hub,
		history: history,
	}

	r.GET("/status", handler.GetStatus)
	r.GET("/snapshot", handler.GetSnapshot)
	r.GET("/analysis", handler.GetAnalysis)
	r.GET("/history/:symbol", handler.GetHistory)

	return handler
}

// NewRouter builds the full engine: health check, API group and websocket.
func NewRouter(state *State, hub *Hub, history HistoryReader) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler := SetupRoutes(r.Group("/api/v1"), state, hub, history)
	r.GET("/ws", handler.ServeWS)

	return r
}

// GetStatus reports the outcome of the latest run without its data.
func (h *APIHandler) GetStatus(c *gin.Context) {
	last, ok := h.state.Last()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "pending"})
		return
	}

	resp := gin.H{
		"run_id":      last.RunID,
		"status":      last.Status,
		"started_at":  last.StartedAt,
		"finished_at": last.FinishedAt,
	}
	if last.Error != "" {
		resp["error"] = last.Error
	}
	if success, found := h.state.LastSuccess(); found {
		resp["last_success_at"] = success.FinishedAt
	}
	c.JSON(http.StatusOK, resp)
}

func (h *APIHandler) GetSnapshot(c *gin.Context) {
	res, ok := h.state.LastSuccess()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":      res.RunID,
		"captured_at": res.CapturedAt.Format(pipeline.TimestampLayout),
		"columns":     res.Table.Columns,
		"rows":        res.Table.Rows,
	})
}

func (h *APIHandler) GetAnalysis(c *gin.Context) {
	res, ok := h.state.LastSuccess()
	if !ok || res.Report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id": res.RunID,
		"report": res.Report,
	})
}

func (h *APIHandler) GetHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store not configured"})
		return
	}

	symbol := strings.TrimSpace(c.Param("symbol"))
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rows, err := h.history.Recent(ctx, symbol, limit)
	if err != nil {
		log.Printf("history query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": strings.ToLower(symbol),
		"count":  len(rows),
		"rows":   rows,
	})
}

// ServeWS upgrades to a websocket that receives every job result, starting
// with the latest one.
func (h *APIHandler) ServeWS(c *gin.Context) {
	var initial []byte
	if last, ok := h.state.Last(); ok {
		if data, err := json.Marshal(last); err == nil {
			initial = data
		}
	}
	if err := h.hub.Serve(c.Writer, c.Request, initial); err != nil {
		log.Printf("websocket upgrade failed: %v", err)
	}
}

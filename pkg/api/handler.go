// Package api exposes the audit log client over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ava-labs/auditlog/pkg/client"
	"github.com/ava-labs/auditlog/pkg/ledger"
)

// DefaultListLimit is the number of entries GET /logs returns without ?limit.
const DefaultListLimit = 20

// LogClient is the part of *client.Client the handlers use.
type LogClient interface {
	Submit(ctx context.Context, payload client.LogPayload, opts ...client.CallOption) (string, error)
	Fetch(ctx context.Context, opts ...client.CallOption) ([]client.Record, error)
}

// LogRequest is the body of POST /logs.
type LogRequest struct {
	Verb        string `json:"verb"`
	PayloadHash string `json:"payload_hash"`
	RefID       string `json:"ref_id"`
}

// LogResponse is returned by POST /logs.
type LogResponse struct {
	TxHash string `json:"tx_hash"`
}

// ListResponse is returned by GET /logs.
type ListResponse struct {
	Items []client.Record `json:"items"`
	Count int             `json:"count"`
}

// LogsHandler serves the /logs routes.
type LogsHandler struct {
	client LogClient
	log    *zap.SugaredLogger
}

// NewLogsHandler creates a LogsHandler.
func NewLogsHandler(c LogClient, log *zap.SugaredLogger) *LogsHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogsHandler{client: c, log: log}
}

// Register mounts the log routes on the given router group.
func (h *LogsHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/logs")
	{
		l.POST("", h.CreateLog)
		l.GET("", h.ListLogs)
	}
}

// CreateLog handles POST /logs.
func (h *LogsHandler) CreateLog(c *gin.Context) {
	var req LogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	txID, err := h.client.Submit(c.Request.Context(), client.LogPayload{
		Verb:        req.Verb,
		PayloadHash: req.PayloadHash,
		RefID:       req.RefID,
	})
	if err != nil {
		h.fail(c, "submit log", err)
		return
	}
	c.JSON(http.StatusAccepted, LogResponse{TxHash: txID})
}

// ListLogs handles GET /logs?limit=N and returns the N most recent entries.
func (h *LogsHandler) ListLogs(c *gin.Context) {
	limit := DefaultListLimit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := h.client.Fetch(c.Request.Context(), client.WithLimit(limit))
	if err != nil {
		h.fail(c, "fetch logs", err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Items: records, Count: len(records)})
}

func (h *LogsHandler) fail(c *gin.Context, op string, err error) {
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      verr.Msg,
			"field":      verr.Field,
			"constraint": verr.Constraint,
		})
		return
	}
	h.log.Errorw(op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
}

// Package api exposes the ledger's storage surface and the homomorphic
// score pipeline over HTTP.
package api

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cognivault-dev/cognivault-ledger/internal/fhe"
	"github.com/cognivault-dev/cognivault-ledger/internal/ledger"
)

type Handler struct {
	Store ledger.ChainLedger
	Cop   *fhe.Coprocessor
	Hub   *Hub
	Log   *zap.Logger
}

// Register mounts all routes under /api. Mutating routes are guarded by
// bearer auth when authSecret is non-empty.
func (h *Handler) Register(r *gin.Engine, authSecret []byte) {
	api := r.Group("/api")
	{
		api.GET("/available", h.Available)
		api.GET("/keys", h.GetKeys)
		api.GET("/data/:key", h.GetData)
		api.GET("/fhe/average", h.Average)
		if h.Hub != nil {
			api.GET("/events", h.Hub.Serve)
		}

		protected := api.Group("").Use(AuthRequired(authSecret))
		{
			protected.POST("/data/:key", h.SetData)
			protected.POST("/fhe/scores", h.SubmitScore)
			protected.POST("/fhe/decrypt/:handle", h.RequestDecryption)
		}
	}
}

func (h *Handler) Available(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"available": h.Store.IsAvailable()})
}

func (h *Handler) GetKeys(c *gin.Context) {
	keys, err := h.Store.Keys()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if keys == nil {
		keys = []string{}
	}
	c.JSON(http.StatusOK, keys)
}

func (h *Handler) GetData(c *gin.Context) {
	key := c.Param("key")
	val, err := h.Store.GetData(key)
	if err == ledger.ErrKeyNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"value": base64.StdEncoding.EncodeToString(val),
	})
}

func (h *Handler) SetData(c *gin.Context) {
	key := c.Param("key")

	var input struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	val, err := base64.StdEncoding.DecodeString(input.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be base64"})
		return
	}

	if err := h.Store.SetData(key, val); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.Log != nil {
		h.Log.Debug("data write", zap.String("key", key), zap.Int("bytes", len(val)))
	}
	if h.Hub != nil {
		h.Hub.Broadcast(Event{Type: "data_set", Key: key, At: time.Now().Unix()})
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) SubmitScore(c *gin.Context) {
	var input struct {
		Owner      string `json:"owner" binding:"required"`
		Ciphertext string `json:"ciphertext" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	handle, err := h.Cop.SubmitScore(input.Owner, input.Ciphertext)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"handle": handle})
}

func (h *Handler) RequestDecryption(c *gin.Context) {
	handle := c.Param("handle")

	requestID, err := h.Cop.RequestDecryption(handle)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": requestID})
}

func (h *Handler) Average(c *gin.Context) {
	avg, ok := h.Cop.Average()
	c.JSON(http.StatusOK, gin.H{
		"average":   avg,
		"populated": ok,
	})
}

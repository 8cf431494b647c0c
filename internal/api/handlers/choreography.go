package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/audio"
	"github.com/Conceptual-Machines/choreo-api/internal/choreography"
	"github.com/Conceptual-Machines/choreo-api/internal/logger"
	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	// maxBatchSize bounds the number of requests in one batch call
	maxBatchSize = 32

	uploadFieldFile     = "file"
	uploadFieldStyle    = "style"
	uploadFieldBeats    = "beats_per_segment"
	uploadFieldSeed     = "seed"
	uploadFieldFeatures = "features"

	// statusClientClosedRequest is the nginx convention for a client that went away
	statusClientClosedRequest = 499
)

// ChoreographyService is what the handlers need from choreography.Service
type ChoreographyService interface {
	Generate(ctx context.Context, req choreography.Request) (*models.ChoreographyResult, error)
	GenerateWithObserver(ctx context.Context, req choreography.Request, observer choreography.Observer) (*models.ChoreographyResult, error)
	GenerateBatch(ctx context.Context, reqs []choreography.Request) ([]choreography.BatchItem, error)
}

type ChoreographyHandler struct {
	service        ChoreographyService
	maxUploadBytes int64
}

func NewChoreographyHandler(service ChoreographyService, maxUploadBytes int64) *ChoreographyHandler {
	return &ChoreographyHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

type ChoreographyResponse struct {
	RequestID  string                     `json:"request_id"`
	Result     *models.ChoreographyResult `json:"result"`
	DurationMS int64                      `json:"duration_ms"`
}

type BatchResponse struct {
	RequestID  string                   `json:"request_id"`
	Items      []choreography.BatchItem `json:"items"`
	Failed     int                      `json:"failed"`
	DurationMS int64                    `json:"duration_ms"`
}

// Generate handles a JSON request carrying a beat timeline and optional features
func (h *ChoreographyHandler) Generate(c *gin.Context) {
	var req choreography.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Timeline == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timeline is required"})
		return
	}

	h.run(c, req)
}

// Upload handles a multipart audio upload; the audio is analyzed before choreography
func (h *ChoreographyHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		if c.Request.ContentLength > h.maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes),
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fileHeader, err := c.FormFile(uploadFieldFile)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("upload exceeds %d bytes", maxBytesErr.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s is required: %v", uploadFieldFile, err)})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("failed to read upload: %v", err)})
		return
	}

	req := choreography.Request{
		Audio:    data,
		Filename: fileHeader.Filename,
		Style:    c.PostForm(uploadFieldStyle),
	}
	if err := parseUploadForm(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.Info("Audio upload received", logger.Fields{
		"request_id": c.GetString("request_id"),
		"filename":   req.Filename,
		"bytes":      len(data),
		"style":      req.Style,
	})

	h.run(c, req)
}

// Batch runs a JSON array of requests concurrently
func (h *ChoreographyHandler) Batch(c *gin.Context) {
	var reqs []choreography.Request
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch is empty"})
		return
	}
	if len(reqs) > maxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("batch has %d requests, limit is %d", len(reqs), maxBatchSize),
		})
		return
	}

	start := time.Now()
	items, err := h.service.GenerateBatch(c.Request.Context(), reqs)
	if err != nil {
		h.fail(c, err)
		return
	}

	failed := 0
	for _, item := range items {
		if item.Error != "" {
			failed++
		}
	}

	c.JSON(http.StatusOK, BatchResponse{
		RequestID:  c.GetString("request_id"),
		Items:      items,
		Failed:     failed,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

// Stream runs one JSON request and reports every state transition as a server-sent event,
// followed by a result or error event
func (h *ChoreographyHandler) Stream(c *gin.Context) {
	var req choreography.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Timeline == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timeline is required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Status(http.StatusOK)
	c.Writer.Flush()

	// The orchestrator calls the observer on this goroutine, so writes never interleave.
	observer := func(event choreography.Event) {
		if err := writeEvent(c, gin.H{"type": "state", "event": event}); err != nil {
			logger.Warn("Failed to write SSE state event", logger.Fields{
				"request_id": c.GetString("request_id"),
				"error":      err.Error(),
			})
		}
	}

	result, err := h.service.GenerateWithObserver(c.Request.Context(), req, observer)
	if err != nil {
		logger.Warn("Choreography stream failed", logger.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		})
		_ = writeEvent(c, gin.H{"type": "error", "message": err.Error()})
		return
	}

	_ = writeEvent(c, gin.H{"type": "result", "result": result})
}

func (h *ChoreographyHandler) run(c *gin.Context, req choreography.Request) {
	start := time.Now()
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ChoreographyResponse{
		RequestID:  c.GetString("request_id"),
		Result:     result,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

func (h *ChoreographyHandler) fail(c *gin.Context, err error) {
	status := statusForError(err)
	fields := logger.WithContext(c)
	if status >= http.StatusInternalServerError {
		logger.Error("Choreography request failed", err, fields)
	} else {
		fields["error"] = err.Error()
		logger.Warn("Choreography request rejected", fields)
	}

	c.JSON(status, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
	})
}

// statusForError maps pipeline errors onto HTTP statuses
func statusForError(err error) int {
	switch {
	case errors.Is(err, choreography.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, audio.ErrMalformedTimeline),
		errors.Is(err, audio.ErrUnsupportedFormat),
		errors.Is(err, audio.ErrAudioTooShort):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseUploadForm(c *gin.Context, req *choreography.Request) error {
	if raw := c.PostForm(uploadFieldBeats); raw != "" {
		beats, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", uploadFieldBeats, err)
		}
		req.BeatsPerSegment = beats
	}
	if raw := c.PostForm(uploadFieldSeed); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an unsigned integer: %w", uploadFieldSeed, err)
		}
		req.Seed = &seed
	}
	if raw := c.PostForm(uploadFieldFeatures); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Features); err != nil {
			return fmt.Errorf("%s must be a JSON object of numbers: %w", uploadFieldFeatures, err)
		}
	}
	return nil
}

func writeEvent(c *gin.Context, event gin.H) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", eventJSON); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

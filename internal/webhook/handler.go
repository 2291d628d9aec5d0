package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"revox-adapter/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Publisher hands a normalized event to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Handler receives Revox call-completion webhooks.
//
// Each request is handled independently; nothing is shared between requests
// except the publisher.
type Handler struct {
	Normalizer Normalizer
	Filter     Filter

	// Secret enables signature verification when non-empty.
	Secret string

	Publisher Publisher
}

const maxBodyBytes = 1 << 20

func (h Handler) HandleCallCompleted(c *gin.Context) {
	log := logger.FromGin(c)

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("revox webhook body too large", "limit", tooLarge.Limit)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}
		log.Warn("revox webhook read failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if h.Secret != "" && !VerifySignature(h.Secret, raw, c.GetHeader(SignatureHeader)) {
		log.Warn("revox webhook signature mismatch")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	payload, err := decodePayload(raw)
	if err != nil {
		log.Warn("revox webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	filter := h.Filter
	if q := c.Query("result"); q != "" {
		f, err := ParseFilter(q)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter = f
	}
	if filter == "" {
		filter = FilterAll
	}

	event, ok := h.Normalizer.Normalize(payload, filter)
	if !ok {
		log.Debug("revox webhook suppressed", "filter", string(filter), "result", payload["result"])
		c.Status(http.StatusNoContent)
		return
	}

	if h.Publisher == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "event publisher not configured"})
		return
	}

	if err := h.Publisher.Publish(c.Request.Context(), event); err != nil {
		log.Error("revox event publish failed", "call_id", event.CallID, "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "event not delivered"})
		return
	}

	log.Info("revox event published", "call_id", event.CallID, "result", event.Result)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func decodePayload(raw []byte) (map[string]any, error) {
	payload := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return payload, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

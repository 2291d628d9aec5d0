// Package webhook receives Revox call-completion notifications, filters them by
// call result and republishes them as canonical events.
package webhook

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Filter selects which call results produce events.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterHuman     Filter = "human"
	FilterVoicemail Filter = "voicemail"
	FilterIVR       Filter = "IVR"
)

var ErrInvalidFilter = errors.New("webhook: invalid result filter")

// ParseFilter accepts all, human, voicemail or IVR. Empty means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.TrimSpace(s)); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterHuman, FilterVoicemail, FilterIVR:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

// Matches reports whether an inbound result passes the filter.
func (f Filter) Matches(result any) bool {
	if f == FilterAll {
		return true
	}
	s, ok := result.(string)
	return ok && s == string(f)
}

// TimestampLayout is the format of Event.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Event is the canonical call-completion record.
// Payload fields are copied verbatim; missing fields stay null.
type Event struct {
	CallOrderID  any    `json:"call_order_id"`
	CallID       any    `json:"call_id"`
	Status       any    `json:"status"`
	Result       any    `json:"result"`
	Annotation   any    `json:"annotation"`
	Transcript   any    `json:"transcript"`
	RecordingURL any    `json:"recording_url"`
	StartedAt    any    `json:"started_at"`
	EndedAt      any    `json:"ended_at"`
	CallsCount   any    `json:"calls_count"`
	Timestamp    string `json:"timestamp"`
	WebhookURL   string `json:"webhookUrl"`
}

// Normalizer turns inbound payloads into events.
type Normalizer struct {
	// WebhookURL is the receiver's externally visible callback URL.
	WebhookURL string
	Now        func() time.Time
}

// Normalize returns the event for payload, or ok=false when the filter
// suppresses it.
func (n Normalizer) Normalize(payload map[string]any, filter Filter) (Event, bool) {
	if !filter.Matches(payload["result"]) {
		return Event{}, false
	}

	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	return Event{
		CallOrderID:  payload["call_order_id"],
		CallID:       payload["call_id"],
		Status:       payload["status"],
		Result:       payload["result"],
		Annotation:   payload["annotation"],
		Transcript:   payload["transcript"],
		RecordingURL: payload["recording_url"],
		StartedAt:    payload["started_at"],
		EndedAt:      payload["ended_at"],
		CallsCount:   payload["calls_count"],
		Timestamp:    now().UTC().Format(TimestampLayout),
		WebhookURL:   n.WebhookURL,
	}, true
}

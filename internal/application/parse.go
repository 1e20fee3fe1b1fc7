package application

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// completionPayload is the JSON object the model is instructed to emit.
type completionPayload struct {
	Classification string   `json:"classification"`
	Confidence     float64  `json:"confidence"`
	Headline       string   `json:"headline"`
	RootCause      []string `json:"root_cause"`
	Impact         []string `json:"impact"`
	NextSteps      []string `json:"next_steps"`
}

// ParseSummary extracts a Summary from raw model output. Models sometimes
// wrap the JSON in code fences or surround it with prose, so the parser
// strips fences and falls back to the outermost brace pair before decoding.
func ParseSummary(eventID, raw string) (*model.Summary, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object in completion for %s", eventID)
	}

	var payload completionPayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("decoding completion for %s: %w", eventID, err)
	}
	if payload.Headline == "" {
		return nil, fmt.Errorf("completion for %s has no headline", eventID)
	}

	confidence := payload.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return &model.Summary{
		EventID:        eventID,
		Classification: model.NormalizeClassification(payload.Classification),
		Confidence:     confidence,
		Headline:       payload.Headline,
		RootCause:      payload.RootCause,
		Impact:         payload.Impact,
		NextSteps:      payload.NextSteps,
		RawOutput:      json.RawMessage(body),
		CreatedAt:      time.Now(),
	}, nil
}

// extractJSON returns the best candidate JSON object inside raw, or "" when
// none is present.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

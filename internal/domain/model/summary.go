package model

import (
	"encoding/json"
	"time"
)

// Classification is the unified three-value vocabulary for summaries. The
// code-quality reviewer schema uses its own values; NormalizeClassification
// maps them onto this vocabulary before persistence.
type Classification string

const (
	ClassificationActiveAttack    Classification = "active_attack"
	ClassificationPolicyViolation Classification = "policy_violation"
	ClassificationBenign          Classification = "benign"
)

// qualityClassifications maps code-quality-reviewer classification values
// onto the unified vocabulary.
var qualityClassifications = map[string]Classification{
	"critical":      ClassificationActiveAttack,
	"poor_practice": ClassificationPolicyViolation,
	"minor_concern": ClassificationBenign,
}

// NormalizeClassification canonicalizes a raw model-emitted classification.
// Unknown values default to policy_violation rather than failing the job.
func NormalizeClassification(raw string) Classification {
	switch Classification(raw) {
	case ClassificationActiveAttack, ClassificationPolicyViolation, ClassificationBenign:
		return Classification(raw)
	}
	if c, ok := qualityClassifications[raw]; ok {
		return c
	}
	return ClassificationPolicyViolation
}

// Summary is the persisted incident summary for one event. At most one
// Summary ever exists per event ID; the first successful writer wins.
type Summary struct {
	EventID        string
	Classification Classification
	Confidence     float64
	Headline       string
	RootCause      []string
	Impact         []string
	NextSteps      []string
	RawOutput      json.RawMessage
	CreatedAt      time.Time
}

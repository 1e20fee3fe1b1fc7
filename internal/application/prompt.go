package application

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// payloadCharCeiling caps how much raw event payload is embedded in a prompt.
// Oversized payloads are truncated with a marker rather than rejected.
const payloadCharCeiling = 4000

const securitySystemPrompt = `You are a security analyst reviewing GitHub public activity flagged by an anomaly detector. Assess whether the event indicates an active attack, a policy violation, or a benign anomaly.

Respond with a single JSON object and nothing else, using exactly these keys:
{
  "classification": "active_attack" | "policy_violation" | "benign",
  "confidence": <number between 0 and 1>,
  "headline": "<one sentence>",
  "root_cause": ["<point>", "..."],
  "impact": ["<point>", "..."],
  "next_steps": ["<step>", "..."]
}`

const qualitySystemPrompt = `You are a senior code reviewer triaging GitHub activity flagged for poor engineering practice. Assess the severity and what the maintainers should do about it.

Respond with a single JSON object and nothing else, using exactly these keys:
{
  "classification": "critical" | "poor_practice" | "minor_concern",
  "confidence": <number between 0 and 1>,
  "headline": "<one sentence>",
  "root_cause": ["<point>", "..."],
  "impact": ["<point>", "..."],
  "next_steps": ["<step>", "..."]
}`

// BuildPrompt renders the system and user prompts for a summary job. The
// system prompt is chosen by the job's budget axis: security-flagged events
// (including dual-flagged ones) get the analyst persona, quality-only events
// get the reviewer persona.
func BuildPrompt(job *model.SummaryJob) (system, user string) {
	if job.Category.BudgetAxis() == model.CategorySecurity {
		system = securitySystemPrompt
	} else {
		system = qualitySystemPrompt
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Event %s (%s) in repository %s by %s, observed at %s.\n",
		job.Event.ID, job.Event.Type, orUnknown(job.Event.RepoName),
		orUnknown(job.Event.Actor), job.Event.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))

	writeScoreLine(&b, "Security detector", job.Security)
	writeScoreLine(&b, "Code-quality detector", job.Quality)
	fmt.Fprintf(&b, "Repository context risk: %.2f (0 = established and protected, 1 = maximally risky).\n", job.ContextRisk)

	if rc := job.Context; rc != nil {
		fmt.Fprintf(&b, "Repository profile: %d stars, %.0f days old, %d contributors, %d commits in the last week, check failure rate %.2f",
			rc.Stars, rc.AgeDays, rc.UniqueContributors, rc.RecentCommitCount, rc.CheckFailureRate)
		if rc.IsArchived {
			b.WriteString(", archived")
		}
		if !rc.HasBranchProtection {
			b.WriteString(", no branch protection")
		}
		b.WriteString(".\n")
	}

	b.WriteString("\nRaw event payload:\n")
	b.WriteString(truncatePayload(string(job.Event.Payload)))
	b.WriteString("\n")

	return system, b.String()
}

func writeScoreLine(b *strings.Builder, label string, r *model.ScoreResult) {
	if r == nil {
		fmt.Fprintf(b, "%s: no result for this event.\n", label)
		return
	}

	fmt.Fprintf(b, "%s: score %.3f, flagged=%t", label, r.Score, r.Flagged)
	if len(r.Signals) > 0 {
		b.WriteString(", signals:")
		for name, v := range r.Signals {
			fmt.Fprintf(b, " %s=%.3f", name, v)
		}
	}
	b.WriteString(".\n")
}

func truncatePayload(payload string) string {
	if len(payload) <= payloadCharCeiling {
		return payload
	}
	return payload[:payloadCharCeiling] + "\n... [payload truncated]"
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}

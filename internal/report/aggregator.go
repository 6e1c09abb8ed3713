// Package report merges per-topic findings into one markdown artifact.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"research-job-service/internal/entity"
	"research-job-service/internal/llm"
	"research-job-service/internal/logging"
)

var (
	ErrMisaligned     = errors.New("topics and findings are not aligned")
	ErrAllUnreachable = errors.New("research service unreachable for every topic")
)

const reportTitle = "Research Report"

// Aggregator builds the artifact. The summarizer is optional and only writes the
// overview prose; the document structure never depends on it.
type Aggregator struct {
	summarizer llm.Summarizer
	log        *zerolog.Logger
}

func NewAggregator(s llm.Summarizer, log *zerolog.Logger) *Aggregator {
	return &Aggregator{summarizer: s, log: logging.OrNop(log)}
}

func (a *Aggregator) Aggregate(ctx context.Context, topics []string, outcomes []entity.TopicOutcome) (entity.Artifact, error) {
	if len(topics) == 0 || len(topics) != len(outcomes) {
		return entity.Artifact{}, ErrMisaligned
	}
	for i, o := range outcomes {
		if o.Topic != "" && o.Topic != topics[i] {
			return entity.Artifact{}, fmt.Errorf("%w: position %d has %q, want %q", ErrMisaligned, i, o.Topic, topics[i])
		}
	}
	if allUnreachable(outcomes) {
		return entity.Artifact{}, ErrAllUnreachable
	}

	sections := make([]entity.ArtifactSection, len(topics))
	for i, topic := range topics {
		o := outcomes[i]
		if o.OK() {
			sections[i] = entity.ArtifactSection{Topic: topic, Available: true, Body: renderFinding(*o.Finding)}
			continue
		}
		sections[i] = entity.ArtifactSection{Topic: topic, Available: false, Body: placeholder(o.Failure)}
	}

	overview := a.overview(ctx, topics, outcomes)
	return entity.Artifact{
		Overview: overview,
		Sections: sections,
		Markdown: render(overview, sections),
	}, nil
}

func allUnreachable(outcomes []entity.TopicOutcome) bool {
	for _, o := range outcomes {
		if o.OK() || o.Failure == nil || o.Failure.Kind != entity.FailureUnreachable {
			return false
		}
	}
	return true
}

func (a *Aggregator) overview(ctx context.Context, topics []string, outcomes []entity.TopicOutcome) string {
	coverage := coverageLine(topics, outcomes)
	if a.summarizer == nil {
		return coverage
	}

	summary, err := a.summarizer.Summarize(ctx, overviewPrompt(outcomes))
	if err != nil {
		a.log.Warn().Err(err).Int("topics", len(topics)).Msg("overview summary unavailable, using coverage only")
		return coverage
	}
	summary = demoteHeadings(summary)
	if summary == "" {
		return coverage
	}
	return summary + "\n\n" + coverage
}

func coverageLine(topics []string, outcomes []entity.TopicOutcome) string {
	var missing []string
	for i, o := range outcomes {
		if !o.OK() {
			missing = append(missing, topics[i])
		}
	}
	line := fmt.Sprintf("Findings were available for %d of %d topics.", len(topics)-len(missing), len(topics))
	if len(missing) > 0 {
		line += " No data available for: " + strings.Join(missing, ", ") + "."
	}
	return line
}

func overviewPrompt(outcomes []entity.TopicOutcome) string {
	var findings []entity.Finding
	for _, o := range outcomes {
		if o.OK() {
			findings = append(findings, *o.Finding)
		}
	}
	raw, _ := json.MarshalIndent(findings, "", "  ")

	var b strings.Builder
	b.WriteString("You are a professional technical writer.\n")
	b.WriteString("Write a brief executive summary (2-3 sentences) highlighting the most important ")
	b.WriteString("developments across all topics in the research results below.\n")
	b.WriteString("Return a single markdown paragraph without headings.\n\n")
	b.WriteString("Research results:\n")
	b.Write(raw)
	return b.String()
}

// demoteHeadings keeps delegate output from adding sections to the document.
// ATX headings and setext underlines both become bold lines.
func demoteHeadings(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, ln := range lines {
		t := strings.TrimSpace(ln)
		switch {
		case strings.HasPrefix(t, "#"):
			lines[i] = bold(strings.TrimLeft(t, "#"))
		case isUnderline(t):
			lines[i] = ""
			if i > 0 && !strings.HasPrefix(lines[i-1], "**") {
				lines[i-1] = bold(lines[i-1])
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// isUnderline matches lines of only "=" or only "-", which would turn the line above into a
// heading or draw a rule.
func isUnderline(t string) bool {
	if t == "" {
		return false
	}
	return strings.Trim(t, "=") == "" || strings.Trim(t, "-") == ""
}

func bold(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	return "**" + t + "**"
}

package entity

// FailureKind tells why a single topic produced no finding.
type FailureKind string

const (
	// FailureUnreachable means the research service could not be contacted or timed out.
	FailureUnreachable FailureKind = "unreachable"
	// FailureNoResults means the research service answered but found nothing.
	FailureNoResults FailureKind = "no_results"
)

// Source is one attributed item inside a finding.
type Source struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
	URL         string `json:"url,omitempty"`
	Date        string `json:"date"`
}

// Finding is the result of researching a single topic.
type Finding struct {
	Topic                string   `json:"topic"`
	Description          string   `json:"description"`
	NewsArticles         []Source `json:"news_articles"`
	ResearchDevelopments []Source `json:"research_developments"`
}

type TopicFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// TopicOutcome is either a Finding or a TopicFailure for one topic, never both.
type TopicOutcome struct {
	Topic   string        `json:"topic"`
	Finding *Finding      `json:"finding,omitempty"`
	Failure *TopicFailure `json:"failure,omitempty"`
}

func (o TopicOutcome) OK() bool { return o.Finding != nil && o.Failure == nil }

func Succeeded(topic string, f Finding) TopicOutcome {
	return TopicOutcome{Topic: topic, Finding: &f}
}

func Failed(topic string, kind FailureKind, msg string) TopicOutcome {
	return TopicOutcome{Topic: topic, Failure: &TopicFailure{Kind: kind, Message: msg}}
}

// ArtifactSection is the per-topic part of a report, in submission order.
type ArtifactSection struct {
	Topic     string `json:"topic"`
	Available bool   `json:"available"`
	Body      string `json:"body"`
}

// Artifact is the aggregated report covering all topics of a job.
type Artifact struct {
	Overview string            `json:"overview"`
	Sections []ArtifactSection `json:"sections"`
	Markdown string            `json:"markdown"`
}

// Result is stored on a completed job.
type Result struct {
	Artifact    Artifact       `json:"artifact"`
	RawFindings []TopicOutcome `json:"raw_findings"`
}

func (r Result) clone() Result {
	out := r
	out.Artifact.Sections = append([]ArtifactSection(nil), r.Artifact.Sections...)
	out.RawFindings = make([]TopicOutcome, len(r.RawFindings))
	for i, o := range r.RawFindings {
		c := TopicOutcome{Topic: o.Topic}
		if o.Finding != nil {
			f := *o.Finding
			f.NewsArticles = append([]Source(nil), o.Finding.NewsArticles...)
			f.ResearchDevelopments = append([]Source(nil), o.Finding.ResearchDevelopments...)
			c.Finding = &f
		}
		if o.Failure != nil {
			tf := *o.Failure
			c.Failure = &tf
		}
		out.RawFindings[i] = c
	}
	return out
}

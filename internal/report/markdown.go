package report

import (
	"fmt"
	"strings"

	"research-job-service/internal/entity"
)

func render(overview string, sections []entity.ArtifactSection) string {
	var b strings.Builder
	b.WriteString("# " + reportTitle + "\n\n")
	b.WriteString("## Overview\n\n")
	b.WriteString(overview)
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n## " + oneLine(s.Topic) + "\n\n")
		b.WriteString(s.Body)
		b.WriteString("\n")
	}
	return b.String()
}

func renderFinding(f entity.Finding) string {
	var b strings.Builder
	if d := strings.TrimSpace(f.Description); d != "" {
		b.WriteString(d + "\n\n")
	}

	b.WriteString("### Key News\n\n")
	writeSources(&b, f.NewsArticles, "_No recent news articles found._")

	b.WriteString("\n### Research Highlights\n\n")
	writeSources(&b, f.ResearchDevelopments, "_No recent research developments found._")

	return strings.TrimRight(b.String(), "\n")
}

func writeSources(b *strings.Builder, items []entity.Source, empty string) {
	if len(items) == 0 {
		b.WriteString(empty + "\n")
		return
	}
	for _, s := range items {
		title := "**" + oneLine(s.Title) + "**"
		if s.URL != "" {
			title = fmt.Sprintf("[%s](%s)", title, s.URL)
		}
		line := "- " + title
		if s.Description != "" {
			line += ": " + oneLine(s.Description)
		}
		line += fmt.Sprintf(" (%s, %s)", oneLine(s.Source), oneLine(s.Date))
		b.WriteString(line + "\n")
	}
}

func placeholder(f *entity.TopicFailure) string {
	reason := "The research service could not be reached."
	if f != nil && f.Kind == entity.FailureNoResults {
		reason = "The research service found no recent information."
	}
	return "> **No data available for this topic.** " + reason
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

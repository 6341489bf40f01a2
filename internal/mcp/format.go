package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docqa/internal/docs"
	"github.com/Aman-CERP/docqa/internal/search"
)

// FormatAnswer renders passages as markdown, best match first.
func FormatAnswer(question string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No passages found for \"%s\"", question)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Passages for \"%s\"\n\n", question)
	fmt.Fprintf(&sb, "Found %d passage", len(results))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		fmt.Fprintf(&sb, "### %d. %s, page %d (semantic: %.2f, hybrid: %.2f)\n",
			i+1, r.Title, r.Page, r.SemanticScore, r.HybridScore)
		if r.Title != r.Filename {
			fmt.Fprintf(&sb, "*%s*\n", r.Filename)
		}
		sb.WriteString("\n> ")
		sb.WriteString(strings.ReplaceAll(r.Text, "\n", "\n> "))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// FormatDocuments renders the document list as a markdown table.
func FormatDocuments(list []docs.Info) string {
	if len(list) == 0 {
		return "No documents in the docs directory."
	}

	var sb strings.Builder
	sb.WriteString("| File | Size (KB) | Modified |\n|---|---:|---|\n")
	for _, d := range list {
		fmt.Fprintf(&sb, "| %s | %.2f | %s |\n", d.Filename, d.SizeKB, formatTime(d.Modified))
	}
	return sb.String()
}

func toPassages(results []search.Result) []PassageOutput {
	out := make([]PassageOutput, 0, len(results))
	for _, r := range results {
		out = append(out, PassageOutput{
			Text:          r.Text,
			Filename:      r.Filename,
			Title:         r.Title,
			Page:          r.Page,
			HybridScore:   r.HybridScore,
			SemanticScore: r.SemanticScore,
		})
	}
	return out
}

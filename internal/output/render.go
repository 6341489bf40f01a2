package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Aman-CERP/docqa/internal/docs"
	"github.com/Aman-CERP/docqa/internal/history"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/preflight"
	"github.com/Aman-CERP/docqa/internal/search"
	"github.com/Aman-CERP/docqa/internal/validation"
)

// Results prints query results, best match first.
func (w *Writer) Results(question string, results []search.Result) {
	if len(results) == 0 {
		w.Warningf("No passages found for %q", question)
		return
	}

	_, _ = fmt.Fprintf(w.out, "%s\n\n", w.styles.Header.Render(fmt.Sprintf("%d passages for %q", len(results), question)))
	for i, r := range results {
		source := r.Title
		if r.Title != r.Filename {
			source = fmt.Sprintf("%s (%s)", r.Title, r.Filename)
		}
		_, _ = fmt.Fprintf(w.out, "%d. %s %s\n", i+1, source, w.styles.Label.Render(fmt.Sprintf("p. %d", r.Page)))
		_, _ = fmt.Fprintf(w.out, "   %s\n", w.styles.Score.Render(
			fmt.Sprintf("semantic %.3f  hybrid %.3f", r.SemanticScore, r.HybridScore)))
		if r.Explain != nil {
			e := r.Explain
			_, _ = fmt.Fprintf(w.out, "   %s\n", w.styles.Dim.Render(fmt.Sprintf(
				"lexical %.3f (norm %.3f)  semantic norm %.3f  candidate %d/%d  alpha %.2f",
				e.LexicalScore, e.LexicalNormalized, e.SemanticNormalized, e.CandidateRank, e.Candidates, e.Alpha)))
		}
		_, _ = fmt.Fprintln(w.out, indent(w.styles.Quote.Render(r.Text), "   "))
		_, _ = fmt.Fprintln(w.out)
	}
}

// IndexInfo prints index statistics and recent builds.
func (w *Writer) IndexInfo(path string, sizeBytes int64, stats index.Stats, builds []history.Build) {
	_, _ = fmt.Fprintf(w.out, "%s\n\n", w.styles.Header.Render("Index: "+path))

	w.field("Documents", fmt.Sprintf("%d", stats.Documents))
	w.field("Pages", fmt.Sprintf("%d", stats.Pages))
	w.field("Chunks", fmt.Sprintf("%d", stats.Chunks))
	w.field("Vocabulary", fmt.Sprintf("%d", stats.Vocabulary))
	w.field("Model", fmt.Sprintf("%s (%d dims)", stats.EmbeddingModel, stats.Dimensions))
	w.field("Max chars", fmt.Sprintf("%d", stats.MaxChars))
	w.field("Size", FormatBytes(sizeBytes))
	if !stats.BuiltAt.IsZero() {
		w.field("Built", FormatTime(stats.BuiltAt))
	}

	if len(builds) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w.out, "\n%s\n", w.styles.Header.Render("Recent builds"))
	for _, b := range builds {
		status := w.styles.Success.Render(string(b.Status))
		if b.Status != history.StatusOK {
			status = w.styles.Error.Render(string(b.Status))
		}
		_, _ = fmt.Fprintf(w.out, "  %-16s %-7s %-6s %4d docs %6d chunks %8s\n",
			FormatTime(b.StartedAt), b.Trigger, status, b.Documents, b.Chunks, b.Duration.Round(time.Millisecond))
		if b.Error != "" {
			_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Dim.Render(b.Error))
		}
	}
}

// Documents prints the document list.
func (w *Writer) Documents(list []docs.Info) {
	if len(list) == 0 {
		w.Status("", "No documents.")
		return
	}

	width := len("File")
	for _, d := range list {
		width = max(width, len(d.Filename))
	}
	_, _ = fmt.Fprintf(w.out, "%s\n", w.styles.Label.Render(
		fmt.Sprintf("%-*s %12s  %s", width, "File", "Size (KB)", "Modified")))
	for _, d := range list {
		_, _ = fmt.Fprintf(w.out, "%-*s %12.2f  %s\n", width, d.Filename, d.SizeKB, d.Modified.Format("2006-01-02 15:04"))
	}
}

// Evaluation prints one line per case followed by the summary.
func (w *Writer) Evaluation(result *validation.ValidationResult) {
	line := func(tr validation.TestResult) {
		status := w.styles.Success.Render("PASS")
		if !tr.Passed {
			status = w.styles.Error.Render("FAIL")
		}
		detail := fmt.Sprintf("rank %d", tr.MatchedAt)
		switch {
		case tr.Error != "":
			detail = tr.Error
		case tr.Spec.Negative:
			detail = fmt.Sprintf("%d results", len(tr.TopResults))
		case !tr.Passed:
			detail = "got " + strings.Join(tr.TopResults, ", ")
		}
		_, _ = fmt.Fprintf(w.out, "  [%s] %-16s %s\n", status, tr.Spec.ID, w.styles.Dim.Render(detail))
	}

	_, _ = fmt.Fprintf(w.out, "%s\n", w.styles.Header.Render("Retrieval evaluation"))
	for _, tr := range result.Queries {
		line(tr)
	}
	for _, tr := range result.Negative {
		line(tr)
	}
	_, _ = fmt.Fprintln(w.out)
	w.field("Passed", fmt.Sprintf("%d/%d", result.Passed, result.Total))
	w.field("Hit rate", fmt.Sprintf("%.1f%%", result.HitRate()*100))
	w.field("MRR", fmt.Sprintf("%.3f", result.MRR))
	if result.NegTotal > 0 {
		w.field("Negative", fmt.Sprintf("%d/%d", result.NegPass, result.NegTotal))
	}
}

// Checks prints doctor results, then the problems that need attention.
func (w *Writer) Checks(results []preflight.CheckResult, summary string, verbose bool) {
	_, _ = fmt.Fprintf(w.out, "%s\n\n", w.styles.Header.Render("docqa system check"))

	var failed, warned []preflight.CheckResult
	for _, r := range results {
		status := r.Status.String()
		switch {
		case r.IsCritical():
			failed = append(failed, r)
			status = w.styles.Error.Render(status)
		case r.Status != preflight.StatusPass:
			warned = append(warned, r)
			status = w.styles.Warning.Render(status)
		default:
			status = w.styles.Success.Render(status)
		}
		_, _ = fmt.Fprintf(w.out, "  [%s] %s: %s\n", status, r.Name, r.Message)
		if verbose && r.Details != "" {
			_, _ = fmt.Fprintf(w.out, "         %s\n", w.styles.Dim.Render(r.Details))
		}
	}

	_, _ = fmt.Fprintln(w.out)
	w.field("Status", strings.ToUpper(summary))
	for _, group := range []struct {
		label string
		items []preflight.CheckResult
	}{{"error(s)", failed}, {"warning(s)", warned}} {
		if len(group.items) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w.out, "\n%d %s:\n", len(group.items), group.label)
		for _, r := range group.items {
			_, _ = fmt.Fprintf(w.out, "  - %s: %s\n", r.Name, r.Message)
		}
	}
}

func (w *Writer) field(label, value string) {
	_, _ = fmt.Fprintf(w.out, "  %s %s\n", w.styles.Label.Render(fmt.Sprintf("%-11s", label+":")), value)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// FormatTime formats a time relative to now for display.
func FormatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

// FormatBytes formats a size in binary units, e.g. "1.5 KiB".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kapu/reader-sim-go/internal/domain"
)

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts the --format flag values.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or markdown)", s)
	}
}

// Document is the JSON export shape.
type Document struct {
	Result  *domain.RunResult `json:"result"`
	Summary Summary           `json:"summary"`
}

func Write(w io.Writer, format Format, res *domain.RunResult) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatMarkdown:
		return WriteMarkdown(w, res)
	default:
		return WriteText(w, res)
	}
}

func WriteJSON(w io.Writer, res *domain.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(Document{Result: res, Summary: Summarize(res)})
}

func WriteMarkdown(w io.Writer, res *domain.RunResult) error {
	s := Summarize(res)
	var b strings.Builder

	fmt.Fprintf(&b, "# Reader simulation: %s\n\n", res.OriginalTitle)
	fmt.Fprintf(&b, "- Run: `%s`\n- Model: `%s`\n- Reviews: %d (%d fallback)\n- Average score: %.1f\n\n",
		res.RunID, res.Model, s.TotalReviews, s.FallbackCount, s.AverageScore)

	if !res.Sufficiency.IsSufficient {
		fmt.Fprintf(&b, "> Information insufficient: %s\n\n", res.Sufficiency.Reason)
	}
	if res.EnrichedInfo != "" {
		fmt.Fprintf(&b, "## Additional context\n\n%s\n\n", strings.TrimSpace(res.EnrichedInfo))
	}

	b.WriteString("## Titles\n\n| # | Title | Angle | Avg | Tier |\n|---|---|---|---|---|\n")
	for i, t := range s.Titles {
		angle := t.Angle
		if t.Original {
			angle = "original"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %.1f | %s |\n", i+1, mdEscape(t.Title), mdEscape(angle), t.AverageScore, t.Tier)
	}

	b.WriteString("\n## Personas\n\n| Persona | Avg | Reviews |\n|---|---|---|\n")
	for _, p := range s.Personas {
		fmt.Fprintf(&b, "| %s | %.1f | %d |\n", mdEscape(p.PersonaName), p.AverageScore, p.Reviews)
	}

	if len(s.TopTags) > 0 {
		b.WriteString("\n## Top tags\n\n")
		for _, t := range s.TopTags {
			fmt.Fprintf(&b, "- %s (%d)\n", t.Tag, t.Count)
		}
	}

	groups := GroupByTitle(res.Reviews)
	b.WriteString("\n## Reviews\n")
	for _, t := range s.Titles {
		fmt.Fprintf(&b, "\n### %s\n", t.Title)
		for _, r := range groups[t.Title] {
			fmt.Fprintf(&b, "\n**%s**: %d/10\n\n%s\n\n- Tags: %s\n- Suggestions: %s\n",
				r.PersonaName, r.Score, r.Comment, strings.Join(r.Tags, ", "), strings.Join(r.Suggestions, "; "))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func WriteText(w io.Writer, res *domain.RunResult) error {
	s := Summarize(res)

	fmt.Fprintf(w, "Title:    %s\n", res.OriginalTitle)
	fmt.Fprintf(w, "Reviews:  %d (%d fallback), average %.1f, %d high scores\n", s.TotalReviews, s.FallbackCount, s.AverageScore, s.HighScoreCount)
	if s.Best != nil {
		fmt.Fprintf(w, "Best:     %s (%.1f)\n", s.Best.Title, s.Best.AverageScore)
	}
	if res.EnrichedInfo != "" {
		fmt.Fprintf(w, "Context:  %s\n", oneLine(res.EnrichedInfo, 120))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tTITLE\tPERSONA\tTAGS")
	ranked := Filter{SortBy: SortByScore, Descending: true}.Apply(res.Reviews)
	for _, r := range ranked {
		mark := ""
		if r.Fallback {
			mark = "*"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\t%s\n", r.Score, mark, oneLine(r.Title, 60), r.PersonaName, strings.Join(r.Tags, ", "))
	}
	return tw.Flush()
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > max {
		return string(r[:max]) + "..."
	}
	return s
}

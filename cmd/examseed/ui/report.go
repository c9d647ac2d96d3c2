package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"examseed/internal/seed"

	"github.com/charmbracelet/bubbles/progress"
)

// maxListedFailures caps the failure list under the summary table.
const maxListedFailures = 20

// RecordLine renders one finished item as a single progress line.
func RecordLine(rec seed.Record, styles Styles) string {
	prefix := styles.Muted.Render(fmt.Sprintf("[%s #%d]", rec.Kind, rec.Index))

	var status string
	switch rec.State {
	case seed.Done:
		status = styles.Success.Render("created")
		if rec.Outcome.ID > 0 {
			status += styles.Muted.Render(fmt.Sprintf(" id=%d", rec.Outcome.ID))
		}
	case seed.Skipped:
		status = styles.Warning.Render("skipped") + styles.Muted.Render(" "+detail(rec))
	case seed.Ineligible:
		status = styles.Info.Render("ineligible") + styles.Muted.Render(" "+rec.Reason)
	case seed.Failed:
		status = styles.Error.Render("failed") + " " + detail(rec)
	default:
		status = rec.State.String()
	}
	return fmt.Sprintf("%s %s %s", prefix, styles.Body.Render(rec.Label), status)
}

func detail(rec seed.Record) string {
	if rec.Reason != "" {
		return rec.Reason
	}
	return rec.Outcome.String()
}

// SummaryView renders the per-kind tallies, a completion bar per kind and the
// first failures of the run.
func SummaryView(sum *seed.Summary, styles Styles) string {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage())

	table := NewCountTable("Run "+shortID(sum.RunID),
		Column{Header: "Kind"},
		Column{Header: "Created", Numeric: true},
		Column{Header: "Failed", Numeric: true},
		Column{Header: "Skipped", Numeric: true},
		Column{Header: "Ineligible", Numeric: true},
		Column{Header: "Created share"},
	)
	for _, kind := range sum.Kinds() {
		c := sum.For(kind)
		table.AddRow(string(kind), count(c.Created), count(c.Failed), count(c.Skipped), count(c.Ineligible), bar.ViewAs(share(c)))
	}
	t := sum.Totals()
	table.SetFooter("total", count(t.Created), count(t.Failed), count(t.Skipped), count(t.Ineligible), bar.ViewAs(share(t)))

	var sb strings.Builder
	if table.Len() == 0 {
		sb.WriteString(styles.Muted.Render("Nothing was processed.") + "\n")
	} else {
		sb.WriteString(table.View(styles))
	}

	if sum.HasFailures() {
		sb.WriteString("\n" + styles.Error.Render(fmt.Sprintf("%d failed", len(sum.Failures))) + "\n")
		for i, f := range sum.Failures {
			if i == maxListedFailures {
				sb.WriteString(styles.Muted.Render(fmt.Sprintf("  ... and %d more", len(sum.Failures)-maxListedFailures)) + "\n")
				break
			}
			sb.WriteString(fmt.Sprintf("  %s %s: %s\n", styles.Muted.Render(string(f.Kind)), f.Label, detail(f)))
		}
	}

	sb.WriteString(styles.Muted.Render(fmt.Sprintf("Elapsed %s", sum.Duration().Round(time.Millisecond))) + "\n")
	return sb.String()
}

// FetchView renders the item counts of a dump.
func FetchView(counts map[string]int, order []string, styles Styles) string {
	table := NewCountTable("Fetched", Column{Header: "Collection"}, Column{Header: "Items", Numeric: true})
	total := 0
	for _, name := range order {
		if n, ok := counts[name]; ok {
			table.AddRow(name, count(n))
			total += n
		}
	}
	if table.Len() > 1 {
		table.SetFooter("total", count(total))
	}
	return table.View(styles)
}

func share(c seed.Counts) float64 {
	if c.Total() == 0 {
		return 0
	}
	return float64(c.Created) / float64(c.Total())
}

func count(n int) string {
	return strconv.Itoa(n)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

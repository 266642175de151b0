package modbot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disgoorg/json"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// WriteReport renders everything a run produced as markdown.
func WriteReport(w io.Writer, result *Result, now time.Time) error {
	if err := RenderQuick(w, result.Quick); err != nil {
		return err
	}
	if result.Mode != ModeFull {
		return nil
	}
	if err := RenderChanges(w, result.Changes); err != nil {
		return err
	}
	return RenderFinal(w, result.Summaries, now)
}

func RenderQuick(w io.Writer, summaries []Summary) error {
	if _, err := fmt.Fprint(w, "\n\n### Quick Summary\n\n"); err != nil {
		return err
	}

	table := newMarkdownTable(w, "Bot", "Moderated Subreddits", "# Accounts", "User Subreddits")
	for _, summary := range summaries {
		table.Append([]string{
			fmt.Sprintf("**u/%s**", summary.Name),
			fmt.Sprintf("**%s**", humanize.Comma(int64(summary.TotalCount))),
			fmt.Sprint(summary.Accounts),
			fmt.Sprint(len(summary.UserSubreddits)),
		})
	}
	table.Render()
	return nil
}

func RenderChanges(w io.Writer, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("\n\n### Specific Changes\n\n")
	for _, change := range changes {
		all := append(append([]string{}, change.Additions...), change.Removals...)
		fmt.Fprintf(&sb, "* Changes for u/%s: r/%s\n", change.Bot, strings.Join(all, ", r/"))
		if len(change.Additions) > 0 {
			fmt.Fprintf(&sb, "    * Additions for u/%s: r/%s\n", change.Bot, strings.Join(change.Additions, ", r/"))
		}
		if len(change.Removals) > 0 {
			fmt.Fprintf(&sb, "    * Removals for u/%s: r/%s\n", change.Bot, strings.Join(change.Removals, ", r/"))
		}
		for _, note := range change.Notes {
			fmt.Fprintf(&sb, "        * Note: %s\n", note)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func RenderFinal(w io.Writer, summaries []Summary, now time.Time) error {
	if _, err := fmt.Fprint(w, "\n\n### Final Data Table\n\n"); err != nil {
		return err
	}

	table := newMarkdownTable(w,
		"Bot Name",
		"Age (Years)",
		"Total Moderated Subreddits",
		"NSFW Subreddits",
		"% NSFW",
		"Total Subscribers",
		"Average Subscribers / Subreddit",
		"Total Moderators",
		"User Subreddits",
	)
	for _, summary := range summaries {
		var age float64
		if summary.CreatedUTC > 0 {
			age = now.Sub(time.Unix(summary.CreatedUTC, 0)).Hours() / 24 / 365
		}
		var percentNSFW float64
		var average int
		if summary.TotalCount > 0 {
			percentNSFW = float64(summary.NSFWCount) / float64(summary.TotalCount) * 100
			average = summary.Subscribers / summary.TotalCount
		}

		table.Append([]string{
			"u/" + summary.Name,
			fmt.Sprintf("%.2f", age),
			humanize.Comma(int64(summary.TotalCount)),
			fmt.Sprint(summary.NSFWCount),
			fmt.Sprintf("%.2f%%", percentNSFW),
			humanize.Comma(int64(summary.Subscribers)),
			humanize.Comma(int64(average)),
			humanize.Comma(int64(summary.Moderators)),
			fmt.Sprint(len(summary.UserSubreddits)),
		})
	}
	table.Render()
	return nil
}

func newMarkdownTable(w io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// WriteJSON stores the summaries keyed by bot name.
func WriteJSON(path string, summaries []Summary) error {
	data := make(map[string]Summary, len(summaries))
	for _, summary := range summaries {
		data[summary.Name] = summary
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

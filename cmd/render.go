package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/codesnippets/pkg/browse"
	"github.com/rubiojr/codesnippets/pkg/client"
	"github.com/rubiojr/codesnippets/pkg/core"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	indexStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	itemTitleStyle = lipgloss.NewStyle().Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	tagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("32"))

	urlStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// printer formats counts with thousands separators.
var printer = message.NewPrinter(language.English)

// renderView formats the accumulated results of a search.
func renderView(v browse.View) string {
	var out strings.Builder

	shown := printer.Sprintf("%d", len(v.Entries))
	total := printer.Sprintf("%d", v.TotalCount)
	header := fmt.Sprintf("%s matching %q (%s of %s)", v.Kind.Label(), v.Query, shown, total)
	out.WriteString(titleStyle.Render(header))
	out.WriteString("\n\n")

	for i, e := range v.Entries {
		out.WriteString(renderEntry(i+1, e))
		out.WriteString("\n")
	}

	hint := "Pick a number to import, q to quit"
	if v.CanLoadMore {
		hint = "Pick a number to import, m to load more, q to quit"
	}
	out.WriteString("\n")
	out.WriteString(hintStyle.Render(hint))
	return out.String()
}

func renderEntry(n int, e client.Entry) string {
	title := e.Title
	if title == "" {
		title = "Untitled"
	}

	line := fmt.Sprintf("%s %s", indexStyle.Render(fmt.Sprintf("%3d.", n)), itemTitleStyle.Render(title))
	if e.Language != "" {
		line += " " + metaStyle.Render("["+e.Language+"]")
	}
	if len(e.Tags) > 0 {
		line += " " + tagStyle.Render("#"+strings.Join(e.Tags, " #"))
	}

	detail := fmt.Sprintf("     By: %s  |  Published-On: %s  |  id: %s",
		e.PublisherName, e.CreatedAt.Local().Format("2006-01-02"), e.ID)
	return line + "\n" + metaStyle.Render(detail)
}

// snippetHeader returns the comment block printed above imported code.
func snippetHeader(s *core.Snippet) string {
	return fmt.Sprintf(`/* ----- Snippet: '%s' (id: %s) -----
    * Language: %s
    * Publisher-Name: %s
    * Created On: %s
    * Last Modified On: %s
*/
`, s.Title, s.ID, s.Language, s.PublisherName, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02 03:04:05 PM")
}

// snapshotSummary describes a snapshot before it is written out.
func snapshotSummary(s *core.Snapshot, settings, keybindings int) string {
	return printer.Sprintf("Snapshot: %s\n  Extensions: %d\n  Settings: %d\n  Keybindings: %d",
		s.Title, len(s.Extensions), settings, keybindings)
}

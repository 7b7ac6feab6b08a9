package ui

import (
	"fmt"
	"strings"

	"github.com/adamavenir/hark/internal/paging"
	"github.com/adamavenir/hark/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

const (
	messageHeight   = 3
	maxContentLines = 8
	headerLines     = 2
	footerLines     = 2
)

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	view := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		"",
		m.viewport.View(),
		m.renderFooter(),
	)
	return m.zoneManager.Scan(view)
}

func (m *Model) resize() {
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-headerLines-footerLines, 1)
	m.refreshViewport()
}

func (m *Model) renderHeader() string {
	chips := []string{
		m.zoneManager.Mark(zoneRoles, chip("r", "roles", m.state.IncludeRoles)),
		m.zoneManager.Mark(zoneEveryone, chip("e", "@everyone", m.state.IncludeEveryone)),
		m.zoneManager.Mark(zoneServer, chip("s", "all servers", m.state.IncludeAllServers)),
	}
	guild := "no server selected"
	if m.state.CurrentGuildName != nil {
		guild = *m.state.CurrentGuildName
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(headerColor).Render("Mentions")
	guildLabel := lipgloss.NewStyle().Foreground(dimColor).Render(guild)
	line := title + "  " + strings.Join(chips, " ") + "  " + guildLabel
	return ansi.Truncate(line, max(m.width, 1), "…")
}

func chip(key, label string, on bool) string {
	bg := chipOffBg
	mark := " "
	if on {
		bg = chipOnBg
		mark = "✓"
	}
	return lipgloss.NewStyle().
		Background(bg).
		Foreground(lipgloss.Color("231")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s %s [%s]", mark, label, key))
}

func (m *Model) renderFooter() string {
	status := m.loadStatus()
	if m.status != "" {
		status = m.status + " · " + status
	}
	statusLine := lipgloss.NewStyle().Foreground(dimColor).Render(ansi.Truncate(status, max(m.width, 1), "…"))

	toastLine := ""
	if m.toasts != nil {
		active := m.toasts.Active(m.now())
		if len(active) > 0 {
			latest := active[len(active)-1]
			toastLine = lipgloss.NewStyle().
				Background(toastBg).
				Foreground(lipgloss.Color("231")).
				Padding(0, 1).
				Render(latest.Text)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, toastLine, statusLine)
}

func (m *Model) loadStatus() string {
	snap := m.snap
	switch {
	case snap.Refresh.Status == paging.Failed:
		return errorText(snap.Refresh.Err) + " · press R to retry"
	case snap.Append.Status == paging.Failed:
		return errorText(snap.Append.Err) + " · press R to retry"
	case snap.Loading():
		return "loading mentions..."
	case snap.EndReached && len(snap.Items) == 0:
		return "no mentions"
	case snap.EndReached:
		return fmt.Sprintf("%d mentions · end of mentions", len(snap.Items))
	default:
		return fmt.Sprintf("%d mentions · j/k to scroll", len(snap.Items))
	}
}

func errorText(err error) string {
	if err == nil {
		return "error"
	}
	return lipgloss.NewStyle().Foreground(errorColor).Render("error: " + err.Error())
}

func (m *Model) refreshViewport() {
	if m.viewport.Width <= 0 {
		return
	}
	var lines []string
	cursorTop, cursorBottom := 0, 0
	for i, msg := range m.snap.Items {
		block := m.renderMessage(msg, i == m.cursor)
		if i == m.cursor {
			cursorTop = len(lines)
			cursorBottom = cursorTop + len(block)
		}
		lines = append(lines, block...)
		lines = append(lines, "")
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))

	switch {
	case cursorTop < m.viewport.YOffset:
		m.viewport.SetYOffset(cursorTop)
	case cursorBottom > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(cursorBottom - m.viewport.Height)
	}
}

func (m *Model) renderMessage(msg types.Message, selected bool) []string {
	width := m.viewport.Width
	author := lipgloss.NewStyle().Bold(true).Foreground(colorForAuthor(msg.Author.ID.String())).Render(msg.Author.DisplayName)
	meta := lipgloss.NewStyle().Foreground(dimColor).Render(
		fmt.Sprintf("#%s · %s", msg.ChannelID, humanize.Time(msg.Timestamp)))
	byline := author + " " + meta
	if tag := m.kindTag(msg); tag != "" {
		byline += " " + lipgloss.NewStyle().Foreground(mentionFg).Render(tag)
	}
	if msg.EditedAt != nil {
		byline += lipgloss.NewStyle().Foreground(dimColor).Render(" (edited)")
	}

	lines := []string{byline}
	body := strings.Split(highlightContent(msg.Content), "\n")
	if len(body) > maxContentLines {
		body = append(body[:maxContentLines-1], lipgloss.NewStyle().Foreground(dimColor).Render(
			fmt.Sprintf("… %d more lines", len(body)-maxContentLines+1)))
	}
	lines = append(lines, body...)

	for i, line := range lines {
		line = ansi.Truncate(line, max(width-2, 1), "…")
		if selected {
			line = lipgloss.NewStyle().Background(cursorBg).Width(width).Render("▌ " + line)
		} else {
			line = "  " + line
		}
		lines[i] = line
	}
	return lines
}

func (m *Model) kindTag(msg types.Message) string {
	switch {
	case m.selfID.Valid() && msg.Kind(m.selfID) == types.MentionKindDirect:
		return "@you"
	case msg.MentionEveryone:
		return "@everyone"
	case len(msg.MentionRoles) > 0:
		return "@role"
	default:
		return ""
	}
}

package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"convocoach/internal/types"
)

const (
	minSidebarWidth = 24
	maxSidebarWidth = 40
)

type sidebarItemKind int

const (
	sidebarSession sidebarItemKind = iota
	sidebarLoadMore
)

type sidebarItem struct {
	kind    sidebarItemKind
	session *types.Session
	loading bool
}

func (s *sidebarItem) FilterValue() string {
	if s.session == nil {
		return ""
	}
	return s.session.DisplayTitle()
}

func (s *sidebarItem) isSession() bool {
	return s.kind == sidebarSession && s.session != nil
}

type sidebarDelegate struct {
	activeSessionID string
	now             func() time.Time
}

func (d *sidebarDelegate) Height() int {
	return 1
}

func (d *sidebarDelegate) Spacing() int {
	return 0
}

func (d *sidebarDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d *sidebarDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(*sidebarItem)
	if !ok {
		return
	}
	isSelected := index == m.Index()
	maxWidth := m.Width()
	if entry.kind == sidebarLoadMore {
		label := "  more…"
		if entry.loading {
			label = "  loading…"
		}
		style := loadMoreStyle
		if isSelected {
			style = selectedStyle
		}
		fmt.Fprint(w, style.Render(truncateToWidth(label, maxWidth)))
		return
	}
	if entry.session == nil {
		return
	}

	glyph, badgeStyle := statusBadge(entry.session.Status)
	prefix := " " + glyph + " "
	suffix := ""
	if since := formatSince(sessionLastActive(entry.session), d.clock()); since != "" {
		suffix = " • " + since
	}
	available := maxWidth - runewidth.StringWidth(prefix) - runewidth.StringWidth(suffix)
	title := strings.Join(strings.Fields(entry.session.DisplayTitle()), " ")
	switch {
	case available <= 0:
		title = ""
		suffix = truncateToWidth(suffix, max(0, maxWidth-runewidth.StringWidth(prefix)))
	case runewidth.StringWidth(title) > available:
		title = runewidth.Truncate(title, available, "…")
	}

	style := sessionStyle
	if entry.session.ID == d.activeSessionID {
		style = activeSessionStyle
	}
	if isSelected {
		style = selectedStyle
		badgeStyle = badgeStyle.Background(selectedStyle.GetBackground())
	}
	rendered := style.Render(" ") + badgeStyle.Render(glyph) + style.Render(" ")
	rendered += style.Render(title) + style.Render(suffix)
	fmt.Fprint(w, rendered)
}

func (d *sidebarDelegate) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

func statusBadge(status types.SessionStatus) (string, lipgloss.Style) {
	switch status {
	case types.SessionStatusCompleted:
		return "●", statusCompletedStyle
	case types.SessionStatusFailed:
		return "✕", statusFailedStyle
	case types.SessionStatusProcessing:
		return "◐", statusProcessStyle
	default:
		return "○", statusPendingStyle
	}
}

func statusLabel(status types.SessionStatus) string {
	switch status {
	case types.SessionStatusCompleted:
		return "completed"
	case types.SessionStatusFailed:
		return "failed"
	case types.SessionStatusProcessing:
		return "analyzing"
	default:
		return "pending"
	}
}

func buildSidebarItems(sessions []*types.Session, hasMore, loading bool) []list.Item {
	items := make([]list.Item, 0, len(sessions)+1)
	for _, session := range sessions {
		if session == nil {
			continue
		}
		items = append(items, &sidebarItem{kind: sidebarSession, session: session})
	}
	if hasMore || (loading && len(items) > 0) {
		items = append(items, &sidebarItem{kind: sidebarLoadMore, loading: loading})
	}
	return items
}

func newSidebarList(delegate *sidebarDelegate) list.Model {
	mlist := list.New(nil, delegate, minSidebarWidth, 10)
	mlist.Title = "Sessions"
	mlist.SetShowHelp(false)
	mlist.SetFilteringEnabled(false)
	mlist.SetShowPagination(false)
	mlist.SetShowStatusBar(false)
	mlist.Styles.Title = headerStyle
	return mlist
}

func sidebarWidthFor(total int) int {
	width := total / 3
	if width < minSidebarWidth {
		width = minSidebarWidth
	}
	if width > maxSidebarWidth {
		width = maxSidebarWidth
	}
	return width
}

func sessionLastActive(session *types.Session) *time.Time {
	if session == nil {
		return nil
	}
	if session.UpdatedAt != nil && !session.UpdatedAt.IsZero() {
		return session.UpdatedAt
	}
	if session.CreatedAt.IsZero() {
		return nil
	}
	created := session.CreatedAt
	return &created
}

func formatSince(last *time.Time, now time.Time) string {
	if last == nil {
		return ""
	}
	delta := now.Sub(*last)
	if delta < 0 {
		delta = 0
	}
	switch {
	case delta < time.Minute:
		return "just now"
	case delta < time.Hour:
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	case delta < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(delta.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(delta.Hours()/24))
	}
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	if ansi.StringWidth(text) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return ansi.Cut(text, 0, width-1) + "…"
}

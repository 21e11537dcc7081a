package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"convocoach/internal/chat"
	"convocoach/internal/types"
)

const helpText = "tab focus • enter open/send • / search • ctrl+n new analysis • ctrl+t analysis/chat • ctrl+y copy reply • ctrl+b sidebar • ctrl+r reload • ctrl+c quit"

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "loading…"
	}
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.headerLine(m.mainWidth()),
		m.activeViewport().View(),
		m.inputBox(m.mainWidth()),
	)
	body := main
	if sidebarWidth := m.sidebarWidth(); sidebarWidth > 0 {
		bodyHeight := max(1, m.height-footerHeight)
		sidebar := lipgloss.NewStyle().Width(sidebarWidth).Height(bodyHeight).MaxHeight(bodyHeight).Render(m.sidebar.View())
		divider := dividerStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", bodyHeight), "\n"))
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, divider, main)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.footerLine(m.width))
}

func (m *Model) activeViewport() *viewport.Model {
	if m.tab == tabChat {
		return &m.transcript
	}
	return &m.analysisView
}

func (m *Model) headerLine(width int) string {
	session := m.activeSession
	if session == nil {
		return headerStyle.Render(truncateToWidth("convocoach", width))
	}
	glyph, badge := statusBadge(session.Status)
	tabs := "[analysis] | chat"
	if m.tab == tabChat {
		tabs = "analysis | [chat]"
	}
	right := statusStyle.Render(fmt.Sprintf(" %s • %s • %s ", statusLabel(session.Status), tabs, m.channelState))
	available := max(0, width-lipgloss.Width(right)-4)
	title := truncateToWidth(session.DisplayTitle(), available)
	left := badge.Render(glyph) + " " + headerStyle.Render(title)
	gap := max(1, width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) inputBox(width int) string {
	frame := composeFrameStyle
	var content string
	switch m.mode {
	case modeSearch:
		frame = composeFocusedStyle
		content = m.search.View()
	case modeNewAnalysis:
		frame = composeFocusedStyle
		step := promptLabelStyle.Render(fmt.Sprintf("new analysis %d/2 (%s) ", m.analysisField+1, m.appState.Model))
		if m.analysisField == 0 {
			content = step + m.filesInput.View()
		} else {
			content = step + m.contextInput.View()
		}
	default:
		if m.focus == focusCompose {
			frame = composeFocusedStyle
		}
		content = m.compose.View()
	}
	inner := max(1, width-2-2*chatBubblePaddingHorizontal)
	return frame.Width(width - 2).Render(truncateToWidth(content, inner))
}

func (m *Model) footerLine(width int) string {
	if toast := m.toastLine(width); toast != "" {
		return toast
	}
	if m.uploading {
		return activityStyle.Render(truncateToWidth(fmt.Sprintf("%s uploading %3.0f%%", m.spinner.View(), m.uploadPercent), width))
	}
	return helpStyle.Render(truncateToWidth(helpText, width))
}

// renderAnalysis rebuilds the analysis pane for the active session.
func (m *Model) renderAnalysis() {
	width := max(20, m.analysisView.Width)
	m.analysisView.SetContent(m.analysisContent(width))
}

func (m *Model) analysisContent(width int) string {
	session := m.activeSession
	if session == nil {
		return statusStyle.Render("Select a session on the left, or press ctrl+n to analyze new screenshots.")
	}
	var blocks []string
	if session.ContextMessage != "" {
		blocks = append(blocks, chatMetaStyle.Render(truncateToWidth("context: "+session.ContextMessage, width)))
	}
	switch {
	case session.Status == types.SessionStatusFailed:
		blocks = append(blocks, systemBubbleStyle.Width(width-2).Render("The analysis failed. Press ctrl+n to try again with new screenshots."))
	case !session.Status.Terminal():
		blocks = append(blocks, activityStyle.Render(m.spinner.View()+" Analyzing your conversation…"))
	case session.Result == nil:
		blocks = append(blocks, statusStyle.Render("No analysis result yet."))
	default:
		inner := max(10, width-2-2*chatBubblePaddingHorizontal)
		blocks = append(blocks, analysisBubbleStyle.Width(width-2).Render(RenderAnalysis(session.Result, inner)))
	}
	return strings.Join(blocks, "\n\n")
}

// renderTranscript rebuilds the chat pane. It stays pinned to the bottom
// while the user is following the stream.
func (m *Model) renderTranscript() {
	width := max(20, m.transcript.Width)
	m.transcript.SetContent(m.transcriptContent(width))
	if m.follow {
		m.transcript.GotoBottom()
	}
}

func (m *Model) transcriptContent(width int) string {
	if m.conversation.SessionID() == "" {
		return ""
	}
	msgs := m.conversation.Messages()
	blocks := make([]string, 0, len(msgs)+1)
	if m.history.Loading() && m.history.NextPage() > 0 {
		blocks = append(blocks, chatMetaStyle.Render("loading earlier messages…"))
	}
	for _, msg := range msgs {
		blocks = append(blocks, renderChatMessage(msg, width))
	}
	return strings.Join(blocks, "\n\n")
}

func renderChatMessage(msg *types.Message, width int) string {
	inner := max(10, width-2-2*chatBubblePaddingHorizontal)
	label := "Coach"
	style := agentBubbleStyle
	body := renderMarkdown(msg.Content, inner)
	if msg.Role == types.MessageRoleUser {
		label = "You"
		style = userBubbleStyle
		body = renderMarkdown(escapeMarkdown(msg.Content), inner)
	}
	if body == "" {
		body = " "
	}
	meta := label
	if msg.CreatedAt != nil {
		meta += " • " + msg.CreatedAt.Local().Format("Jan 2 15:04")
	}
	metaLine := chatMetaStyle.Render(meta)
	if chat.IsLocal(msg.ID) {
		metaLine += " " + pendingMessageStyle.Render("sending…")
	}
	return metaLine + "\n" + style.Width(width-2).Render(body)
}

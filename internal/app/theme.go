package app

import "github.com/charmbracelet/lipgloss"

const (
	chatBubblePaddingVertical   = 0
	chatBubblePaddingHorizontal = 1
)

var (
	headerStyle          = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activityStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	sessionStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeSessionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	selectedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	dividerStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	loadMoreStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	promptLabelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	userBubbleStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	agentBubbleStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	analysisBubbleStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("69")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	systemBubbleStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("237")).Foreground(lipgloss.Color("245")).Padding(chatBubblePaddingVertical, chatBubblePaddingHorizontal)
	chatMetaStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	pendingMessageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	composeFrameStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	composeFocusedStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69")).Padding(0, 1)
	toastInfoStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	toastWarningStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("136")).Bold(true)
	toastErrorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
	statusPendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	statusProcessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	statusCompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	statusFailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

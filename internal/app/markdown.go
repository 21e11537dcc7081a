package app

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"
)

// markdownFlavor picks the glamour style: coach replies render as plain
// chat, analysis results get section headings and bulleted findings.
type markdownFlavor int

const (
	flavorChat markdownFlavor = iota
	flavorAnalysis
)

const defaultMarkdownWidth = 80

type markdownRendererKey struct {
	flavor markdownFlavor
	width  int
	dark   bool
}

var (
	rendererMu       sync.Mutex
	renderers        = map[markdownRendererKey]*glamour.TermRenderer{}
	markdownDarkMode = true
)

func renderMarkdown(input string, width int) string {
	return renderFlavored(flavorChat, input, width)
}

func renderAnalysisMarkdown(input string, width int) string {
	return renderFlavored(flavorAnalysis, input, width)
}

// renderFlavored falls back to the raw text when glamour cannot render it,
// so a bad reply never blanks the transcript.
func renderFlavored(flavor markdownFlavor, input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = defaultMarkdownWidth
	}
	r := rendererFor(markdownRendererKey{flavor: flavor, width: width, dark: markdownBackgroundDark()})
	if r == nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	out = xansi.Hardwrap(strings.TrimRight(out, "\n"), width, true)
	return strings.TrimRight(out, "\n")
}

func markdownBackgroundDark() bool {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	return markdownDarkMode
}

func setMarkdownBackgroundDark(dark bool) bool {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	changed := markdownDarkMode != dark
	markdownDarkMode = dark
	return changed
}

func rendererFor(key markdownRendererKey) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	if r, ok := renderers[key]; ok {
		return r
	}
	style := buildStyleConfig(key.dark)
	if key.flavor == flavorAnalysis {
		style = analysisStyleConfig(style, key.dark)
	}
	r, err := glamour.NewTermRenderer(glamour.WithStyles(style), glamour.WithWordWrap(key.width))
	if err != nil {
		return nil
	}
	renderers[key] = r
	return r
}

func buildStyleConfig(dark bool) glamouransi.StyleConfig {
	base := styles.LightStyleConfig
	if dark {
		base = styles.DarkStyleConfig
	}
	// Bubble spacing comes from lipgloss padding, not glamour margins.
	base.Document.StylePrimitive.BlockPrefix = ""
	base.Document.StylePrimitive.BlockSuffix = ""
	base.Document.Margin = uintPtr(0)
	base.BlockQuote.StylePrimitive.Faint = boolPtr(true)
	base.BlockQuote.StylePrimitive.Color = stringPtr("245")
	return base
}

// analysisStyleConfig drops the "## " markers from section titles in favor
// of a colored bar, and marks findings with an arrow instead of a dot.
func analysisStyleConfig(base glamouransi.StyleConfig, dark bool) glamouransi.StyleConfig {
	accent, label := "69", "252"
	if !dark {
		accent, label = "26", "236"
	}
	base.H2.StylePrimitive = glamouransi.StylePrimitive{
		Prefix: "▍ ",
		Color:  stringPtr(accent),
		Bold:   boolPtr(true),
	}
	base.Item.BlockPrefix = "→ "
	base.Strong = glamouransi.StylePrimitive{Color: stringPtr(label), Bold: boolPtr(true)}
	base.Emph = glamouransi.StylePrimitive{Faint: boolPtr(true), Italic: boolPtr(true)}
	return base
}

// escapeMarkdown keeps user-typed text literal when it goes through the
// renderer.
func escapeMarkdown(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.ReplaceAll(line, "`", "\\`")
		body := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(body)]
		if startsMarkdownBlock(body) {
			body = "\\" + body
		}
		lines[i] = indent + body
	}
	return strings.Join(lines, "\n")
}

func startsMarkdownBlock(line string) bool {
	for _, lead := range []string{"#", ">", "- ", "* ", "+ "} {
		if strings.HasPrefix(line, lead) {
			return true
		}
	}
	digits := len(line) - len(strings.TrimLeft(line, "0123456789"))
	return digits > 0 && strings.HasPrefix(line[digits:], ". ")
}

func boolPtr(v bool) *bool       { return &v }
func stringPtr(v string) *string { return &v }
func uintPtr(v uint) *uint       { return &v }

package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
)

type styleSet struct {
	title         lipgloss.Style
	label         lipgloss.Style
	value         lipgloss.Style
	logLabel      lipgloss.Style
	logBody       lipgloss.Style
	logLabelError lipgloss.Style
	logBodyError  lipgloss.Style
}

func buildStyles() styleSet {
	base := lipgloss.NewStyle()
	return styleSet{
		title:         base.Foreground(lipgloss.Color("13")).Bold(true),
		label:         base.Foreground(lipgloss.Color("8")),
		value:         base.Foreground(lipgloss.Color("15")),
		logLabel:      base.Foreground(lipgloss.Color("11")).Bold(true),
		logBody:       base.Foreground(lipgloss.Color("7")),
		logLabelError: base.Foreground(lipgloss.Color("9")).Bold(true),
		logBodyError:  base.Foreground(lipgloss.Color("9")),
	}
}

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	b.WriteString(a.input.View())
	b.WriteString("\n")
	b.WriteString(a.logLineView())
	b.WriteString("\n")
	b.WriteString(a.statusLine())
	return b.String()
}

func (a *App) resize() {
	const fixed = 3
	height := a.height - fixed
	if height < 3 {
		height = 3
	}
	a.viewport.Height = height
	a.viewport.Width = a.width

	usable := a.width - lipgloss.Width(a.input.Prompt) - 1
	if usable < 10 {
		usable = 10
	}
	a.input.Width = usable
}

func (a *App) statusLine() string {
	cookie := "-"
	if a.cookie != "" {
		cookie = "stored"
	}
	parts := []string{
		a.styles.title.Render("NDS Console"),
		a.styles.label.Render("Server") + ": " + a.styles.value.Render(a.cfg.ServerAddr),
		a.styles.label.Render("Cookie") + ": " + a.styles.value.Render(cookie),
		a.styles.label.Render("Exchanges") + ": " + a.styles.value.Render(fmt.Sprint(len(a.history))),
	}
	return strings.Join(parts, " | ")
}

func (a *App) logLineView() string {
	labelStyle := a.styles.logLabel
	bodyStyle := a.styles.logBody
	if a.logLine.err {
		labelStyle = a.styles.logLabelError
		bodyStyle = a.styles.logBodyError
	}
	return labelStyle.Render(a.logLine.label) + " " + bodyStyle.Render(a.logLine.body)
}

func (a *App) homeContent() string {
	fig := figure.NewColorFigure("NDS CORE", "3-d", "green", true)
	art := strings.TrimRight(fig.String(), "\n")
	info := []string{
		"Type get /index.html to fetch the front page.",
		"Type post /user/login.html user_name=alice password=secret to sign in.",
		"Set-Cookie headers are captured automatically and replayed on later requests.",
		"Type help to browse all commands.",
	}

	var b strings.Builder
	b.WriteString(art)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(info, "\n"))
	return b.String()
}

func (a *App) helpContent() string {
	var b strings.Builder
	b.WriteString("NDS Console Commands\n\n")
	for _, c := range a.commands {
		b.WriteString(fmt.Sprintf("%-24s %s\n", c.usage, c.description))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) historyContent() string {
	var b strings.Builder
	for i, exch := range a.history {
		header := fmt.Sprintf("[%d] %s %s -> %s (%s)",
			i+1, exch.Method, exch.Target, exch.StatusLine, exch.Elapsed.Round(1_000_000))
		b.WriteString(a.styles.label.Render(header))
		b.WriteString("\n")
		for _, h := range exch.Headers {
			b.WriteString(h.Name + ": " + h.Value + "\n")
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(exch.Body, "\n"))
		if i < len(a.history)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sdfgeoff/ndscore/internal/config"
	"github.com/sdfgeoff/ndscore/internal/httpd"
)

const requestTimeout = 10 * time.Second

// App implements the bubbletea tea.Model interface for the request console.
type App struct {
	cfg      config.ConsoleConfig
	input    textinput.Model
	viewport viewport.Model
	history  []Exchange
	cookie   string
	logLine  logLine
	styles   styleSet
	commands []command
	width    int
	height   int
	busy     bool
}

type command struct {
	trigger     string
	usage       string
	description string
}

type logLine struct {
	label string
	body  string
	err   bool
}

type exchangeMsg struct {
	exchange Exchange
	err      error
}

// NewApp returns a Bubble Tea model pre-populated with defaults.
func NewApp(cfg config.ConsoleConfig) tea.Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "get /index.html"
	input.Focus()

	app := &App{
		cfg:      cfg,
		input:    input,
		viewport: viewport.New(0, 0),
		commands: []command{
			{trigger: "get", usage: "get <path>", description: "fetch a page"},
			{trigger: "post", usage: "post <path> [k=v ...]", description: "submit a form"},
			{trigger: "delete", usage: "delete <path>", description: "send a DELETE"},
			{trigger: "cookie", usage: "cookie [value|-]", description: "show, set or clear the stored cookie"},
			{trigger: "clear", usage: "clear", description: "discard captured exchanges"},
			{trigger: "help", usage: "help", description: "list commands"},
			{trigger: "quit", usage: "quit", description: "leave the console"},
		},
		styles: buildStyles(),
	}
	app.viewport.SetContent(app.homeContent())
	return app
}

// Init is part of the tea.Model interface.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles user input and completed exchanges.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.height = m.Height
		a.resize()
		return a, nil
	case tea.KeyMsg:
		switch m.Type {
		case tea.KeyCtrlC:
			return a, tea.Quit
		case tea.KeyEnter:
			return a.submit()
		case tea.KeyPgUp:
			a.viewport.LineUp(a.viewport.Height)
			return a, nil
		case tea.KeyPgDown:
			a.viewport.LineDown(a.viewport.Height)
			return a, nil
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(m)
		return a, cmd
	case exchangeMsg:
		return a.handleExchange(m)
	default:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(m)
		return a, cmd
	}
}

func (a *App) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(a.input.Value())
	a.input.SetValue("")
	if line == "" {
		return a, nil
	}

	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "get":
		return a.request(httpd.MethodGet, fields[1:])
	case "post":
		return a.request(httpd.MethodPost, fields[1:])
	case "delete":
		return a.request(httpd.MethodDelete, fields[1:])
	case "cookie":
		return a.cookieCommand(fields[1:])
	case "clear":
		a.history = nil
		a.viewport.SetContent(a.homeContent())
		a.setLog("console", "history cleared", false)
		return a, nil
	case "help":
		a.viewport.SetContent(a.helpContent())
		return a, nil
	case "quit", "exit":
		return a, tea.Quit
	default:
		a.setLog("error", fmt.Sprintf("unknown command %q, try help", fields[0]), true)
		return a, nil
	}
}

func (a *App) request(method httpd.Method, args []string) (tea.Model, tea.Cmd) {
	if a.busy {
		a.setLog("error", "a request is already in flight", true)
		return a, nil
	}
	if len(args) == 0 {
		a.setLog("error", "missing path", true)
		return a, nil
	}
	target := args[0]
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}

	form := make(map[string]string, len(args)-1)
	for _, pair := range args[1:] {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			a.setLog("error", fmt.Sprintf("form field %q is not name=value", pair), true)
			return a, nil
		}
		form[name] = value
	}

	addr := a.cfg.ServerAddr
	cookie := a.cookie
	a.busy = true
	a.setLog("request", fmt.Sprintf("%s %s", method, target), false)
	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		exch, err := do(ctx, addr, method, target, form, cookie)
		return exchangeMsg{exchange: exch, err: err}
	}
}

func (a *App) cookieCommand(args []string) (tea.Model, tea.Cmd) {
	switch {
	case len(args) == 0:
		if a.cookie == "" {
			a.setLog("cookie", "none stored", false)
		} else {
			a.setLog("cookie", a.cookie, false)
		}
	case args[0] == "-":
		a.cookie = ""
		a.setLog("cookie", "cleared", false)
	default:
		a.cookie = args[0]
		a.setLog("cookie", "stored", false)
	}
	return a, nil
}

func (a *App) handleExchange(msg exchangeMsg) (tea.Model, tea.Cmd) {
	a.busy = false
	if msg.err != nil {
		a.setLog("error", msg.err.Error(), true)
		return a, nil
	}

	a.history = append(a.history, msg.exchange)
	if cookie := msg.exchange.SetCookie(); cookie != "" {
		a.cookie = cookie
		a.setLog("response", msg.exchange.StatusLine+" (cookie captured)", false)
	} else {
		a.setLog("response", msg.exchange.StatusLine, false)
	}
	a.viewport.SetContent(a.historyContent())
	a.viewport.GotoBottom()
	return a, nil
}

func (a *App) setLog(label, body string, isErr bool) {
	a.logLine = logLine{label: label, body: body, err: isErr}
}

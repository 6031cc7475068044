// Package ui is the terminal chat window. It never touches the network:
// inbound lines and connection states arrive as messages through the
// program's event queue, and submissions go out through a Sender.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/omochice/whisper-chat/internal/hangul"
	"github.com/omochice/whisper-chat/internal/identity"
	"github.com/omochice/whisper-chat/internal/session"
	"github.com/omochice/whisper-chat/pkg/protocol"
)

// TimestampLayout stamps transcript lines.
const TimestampLayout = "01-02 15:04:05"

// Submission commands typed in the entry line.
const (
	CommandClear = "clear"
	CommandExit  = "exit"
	CommandUsers = "users"
)

// Sender is the outbound side of the session.
type Sender interface {
	SendText(text string) error
	RequestUsers() error
}

// LineMsg carries one decrypted inbound frame.
type LineMsg struct {
	Plaintext string
}

// StateMsg reports a connection state transition.
type StateMsg struct {
	State session.State
}

// shapedMsg carries the composed text for the submission at the head of
// the queue.
type shapedMsg struct {
	res hangul.Result
}

// submission is one entry line waiting to go out.
type submission struct {
	text   string
	korean bool
	users  bool
}

// Options configures a Model.
type Options struct {
	Sender   Sender
	Identity identity.Identity

	// Shaper composes Korean input.
	// Default: hangul.Assembler{}
	Shaper hangul.Shaper

	// Location stamps transcript lines.
	// Default: time.Local
	Location *time.Location

	// Logger receives submission failures.
	// Default: slog.Default()
	Logger *slog.Logger

	// Now returns the current time.
	// Default: time.Now
	Now func() time.Time
}

// Model is the bubbletea model of the chat window.
type Model struct {
	keys     KeyMap
	sender   Sender
	identity identity.Identity
	shaper   hangul.Shaper
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time

	viewport viewport.Model
	input    textinput.Model

	lines  []string
	state  session.State

	// queue holds submissions in entry order. Only its head may be shaping.
	queue   []submission
	shaping bool

	method hangul.InputMethod
	unread bool

	status      string
	statusLevel slog.Level

	width  int
	height int
}

// New creates a Model.
func New(opts Options) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1024
	input.Focus()

	m := Model{
		keys:     DefaultKeyMap,
		sender:   opts.Sender,
		identity: opts.Identity,
		shaper:   opts.Shaper,
		location: opts.Location,
		logger:   opts.Logger,
		now:      opts.Now,
		viewport: viewport.New(80, 6),
		input:    input,
		state:    session.Disconnected,
		method:   hangul.English,
	}
	if m.shaper == nil {
		m.shaper = hangul.Assembler{}
	}
	if m.location == nil {
		m.location = time.Local
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-2, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case LineMsg:
		m.receive(msg.Plaintext)
		return m, nil

	case StateMsg:
		if m.state == session.Connected && msg.State == session.Disconnected {
			m.appendLine(systemLineStyle.Render("connection lost, reconnecting"))
		}
		m.state = msg.State
		return m, nil

	case shapedMsg:
		return m.sendShaped(msg.res)

	case logRecordMsg:
		m.status = msg.Summary
		m.statusLevel = msg.Level
		return m, fadeStatus(msg.Summary)

	case logRecordFadeMsg:
		if m.status == msg.Summary {
			m.status = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleInput):
		m.method = m.method.Toggle()
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		m.unread = false
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		m.input.Reset()
		return m.submit(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles one entry line. Sends leave in entry order; a Korean
// line holds back everything behind it until its shaping finishes.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	switch text {
	case "":
		return m, nil
	case CommandClear:
		m.lines = nil
		m.refresh()
		return m, nil
	case CommandExit:
		return m, tea.Quit
	case CommandUsers:
		m.queue = append(m.queue, submission{users: true})
	default:
		m.queue = append(m.queue, submission{text: text, korean: m.method == hangul.Korean})
	}
	cmd := m.drain()
	return m, cmd
}

// drain sends queued submissions until it reaches one that needs shaping,
// which it hands to a command. Sender calls do not block.
func (m *Model) drain() tea.Cmd {
	var cmds []tea.Cmd
	for len(m.queue) > 0 && !m.shaping {
		next := m.queue[0]
		if next.korean {
			m.shaping = true
			shaper := m.shaper
			cmds = append(cmds, func() tea.Msg {
				return shapedMsg{res: hangul.Shape(context.Background(), shaper, next.text)}
			})
			break
		}
		m.queue = m.queue[1:]

		var err error
		if next.users {
			err = m.sender.RequestUsers()
		} else {
			err = m.sender.SendText(next.text)
		}
		cmds = append(cmds, m.sent(err))
	}
	return tea.Batch(cmds...)
}

func (m Model) sendShaped(res hangul.Result) (tea.Model, tea.Cmd) {
	if !m.shaping || len(m.queue) == 0 {
		return m, nil
	}
	m.shaping = false
	m.queue = m.queue[1:]

	if res.Err != nil {
		m.logger.Warn("sending unshaped text", "error", res.Err)
	}
	sent := m.sent(m.sender.SendText(res.OrRaw()))
	return m, tea.Batch(sent, m.drain())
}

// sent surfaces a failed send on the status line.
func (m *Model) sent(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	m.status = "not sent: " + err.Error()
	m.statusLevel = slog.LevelWarn
	return fadeStatus(m.status)
}

// receive renders an inbound frame. Frames that parse as envelopes are
// stamped with the local receive time; anything else is a preformatted
// line from the relay and shown verbatim.
func (m *Model) receive(plaintext string) {
	line := plaintext
	owned := m.identity.OwnsLine(plaintext)

	if env, ok := protocol.ParseFrameText(plaintext); ok {
		stamp := m.now().In(m.location).Format(TimestampLayout)
		switch env.Code {
		case protocol.CodeUsers:
			line = fmt.Sprintf("[%s] online: %s", stamp, strings.ReplaceAll(env.Data, ",", ", "))
			owned = true
		default:
			line = fmt.Sprintf("[%s] %s: %s", stamp, env.UserID, env.Text)
			owned = env.UserID == m.identity.UserID
		}
	}

	m.appendLine(line)
	if !owned {
		m.unread = true
	}
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// Unread reports whether a line from someone else arrived since the last
// mark-read.
func (m Model) Unread() bool {
	return m.unread
}

// Lines returns the transcript.
func (m Model) Lines() []string {
	return append([]string(nil), m.lines...)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) statusLine() string {
	var state string
	switch m.state {
	case session.Connected:
		state = connectedStyle.Render("● " + m.state.String())
	case session.Connecting:
		state = connectingStyle.Render("◌ " + m.state.String())
	default:
		state = disconnectedStyle.Render("○ " + m.state.String())
	}

	parts := []string{state, methodStyle.Render(m.method.String())}
	if m.unread {
		parts = append(parts, unreadStyle.Render("✓ unread"))
	}
	if m.status != "" {
		style := statusStyle
		switch {
		case m.statusLevel >= slog.LevelError:
			style = errorStyle
		case m.statusLevel >= slog.LevelWarn:
			style = warnStyle
		}
		parts = append(parts, style.Render(m.status))
	}
	return strings.Join(parts, " ")
}

func fadeStatus(summary string) tea.Cmd {
	return tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
		return logRecordFadeMsg{Summary: summary}
	})
}

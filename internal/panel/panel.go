// Package panel renders a plugin panel as a terminal UI.
//
// The panel is the guest: it mounts over a bridge transport, announces
// readiness, waits for the host's capability injection, and then keeps a
// status section fresh while offering a configuration form. Everything
// degrades gracefully when the host is absent — the panel stays interactive
// and simply never leaves its pending states.
package panel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/panelkit-dev/panelkit/internal/bridge"
	"github.com/panelkit-dev/panelkit/internal/relay"
	"github.com/panelkit-dev/panelkit/internal/status"
	"github.com/panelkit-dev/panelkit/internal/view"
)

// Options configures a panel.
type Options struct {
	// PluginID identifies the plugin whose status the panel shows.
	PluginID string

	// Title and Subtitle are optional header text. An empty title falls
	// back to the plugin ID.
	Title    string
	Subtitle string

	// Transport is the outbound half of the bridge. Nil means no host.
	Transport bridge.Transport

	// Incoming delivers host-pushed envelopes. Nil means no host.
	Incoming <-chan bridge.Envelope

	// RefreshInterval is the auto-refresh cadence. Zero disables it.
	RefreshInterval time.Duration

	// AllowManualRefresh enables the manual refresh key.
	AllowManualRefresh bool

	Logger *slog.Logger
}

// configForm is the guest-authored configuration relayed on save.
type configForm struct {
	Enabled   bool   `json:"enabled"`
	ServerURL string `json:"server_url"`
	Notes     string `json:"notes"`
}

type keyMap struct {
	Config  key.Binding
	Refresh key.Binding
	Save    key.Binding
	Cancel  key.Binding
	Next    key.Binding
	ToggleF key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Config:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "config")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Save:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		ToggleF: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Messages delivered to the model.
type (
	envelopeMsg    struct{ env bridge.Envelope }
	snapshotMsg    struct{ snap status.Snapshot }
	refreshTickMsg struct{}
	incomingGone   struct{}
)

// Model is the bubbletea model for a mounted panel.
type Model struct {
	opts   Options
	logger *slog.Logger

	channel *bridge.Channel
	views   *view.Controller
	relay   *relay.Relay
	poller  *status.Poller
	updates chan status.Snapshot

	snap    status.Snapshot
	spin    spinner.Model
	keys    keyMap
	width   int
	height  int
	closing bool

	// Config form state.
	formEnabled bool
	inputs      []textinput.Model
	focusIndex  int
}

// New builds a panel model. The capability channel, view controller, relay,
// and status poller are wired here; the returned model owns them for the
// lifetime of the mount.
func New(opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &Model{
		opts:    opts,
		logger:  opts.Logger,
		updates: make(chan status.Snapshot, 8),
		keys:    newKeyMap(),
	}

	m.views = view.NewController()

	m.channel = bridge.NewChannel(opts.Transport,
		bridge.WithLogger(opts.Logger),
		bridge.OnShowConfig(m.views.ShowConfig),
	)

	m.relay = relay.New(opts.Transport, m.views, opts.Logger)

	m.poller = status.New(opts.PluginID, m.channel.Handle,
		status.WithLogger(opts.Logger),
		status.OnUpdate(func(s status.Snapshot) {
			select {
			case m.updates <- s:
			default:
				// The UI loop is behind; it will catch up on the next update.
			}
		}),
	)

	m.spin = spinner.New()
	m.spin.Spinner = spinner.Dot

	server := textinput.New()
	server.Placeholder = "https://media.example.net"
	server.Prompt = ""
	server.CharLimit = 200

	notes := textinput.New()
	notes.Placeholder = "optional notes"
	notes.Prompt = ""
	notes.CharLimit = 200

	m.inputs = []textinput.Model{server, notes}

	return m
}

// Poller exposes the status poller, mainly so callers can stop it on exit.
func (m *Model) Poller() *status.Poller {
	return m.poller
}

// Init mounts the panel: announce readiness, start listening for envelopes
// and status updates, and fire the initial refresh.
func (m *Model) Init() tea.Cmd {
	m.channel.AnnounceReady()
	m.poller.Start(context.Background(), 0)

	cmds := []tea.Cmd{
		m.spin.Tick,
		m.waitSnapshot(),
	}

	if m.opts.Incoming != nil {
		cmds = append(cmds, m.waitEnvelope())
	}

	if m.opts.RefreshInterval > 0 {
		cmds = append(cmds, m.scheduleRefresh())
	}

	return tea.Batch(cmds...)
}

func (m *Model) waitEnvelope() tea.Cmd {
	return func() tea.Msg {
		env, ok := <-m.opts.Incoming
		if !ok {
			return incomingGone{}
		}

		return envelopeMsg{env: env}
	}
}

func (m *Model) waitSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snap: <-m.updates}
	}
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		m.poller.Refresh(context.Background())
		return nil
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case envelopeMsg:
		hadHandle := m.hasHandle()
		m.channel.Dispatch(msg.env)

		cmds := []tea.Cmd{m.waitEnvelope()}
		if !hadHandle && m.hasHandle() {
			// Capability just arrived; fetch status immediately.
			cmds = append(cmds, m.refreshCmd())
		}

		return m, tea.Batch(cmds...)

	case incomingGone:
		// Host hung up. The panel stays interactive on last known state.
		return m, nil

	case snapshotMsg:
		m.snap = msg.snap
		return m, m.waitSnapshot()

	case refreshTickMsg:
		return m, tea.Batch(m.refreshCmd(), m.scheduleRefresh())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.views.Active() == view.Config {
			return m.updateConfig(msg)
		}

		return m.updatePrimary(msg)
	}

	return m, nil
}

func (m *Model) hasHandle() bool {
	_, ok := m.channel.Handle()
	return ok
}

func (m *Model) updatePrimary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Config):
		m.views.Toggle()
		m.focusForm()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		if m.opts.AllowManualRefresh {
			return m, m.refreshCmd()
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) updateConfig(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit) && msg.String() == "ctrl+c":
		return m.quit()
	case key.Matches(msg, m.keys.Cancel):
		m.views.ReturnToPrimary()
		return m, nil
	case key.Matches(msg, m.keys.Save):
		m.relay.Save(m.buildConfig())
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.focusIndex = (m.focusIndex + 1) % (len(m.inputs) + 1)
		m.focusForm()
		return m, nil
	case key.Matches(msg, m.keys.ToggleF) && m.focusIndex == 0:
		m.formEnabled = !m.formEnabled
		return m, nil
	}

	if m.focusIndex > 0 {
		idx := m.focusIndex - 1
		var cmd tea.Cmd
		m.inputs[idx], cmd = m.inputs[idx].Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.closing {
		return m, tea.Quit
	}

	m.closing = true
	m.poller.Stop()
	m.relay.Close()

	return m, tea.Quit
}

// focusForm moves textinput focus to match focusIndex. Index 0 is the
// enabled toggle; inputs follow.
func (m *Model) focusForm() {
	for i := range m.inputs {
		if i == m.focusIndex-1 {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *Model) buildConfig() configForm {
	return configForm{
		Enabled:   m.formEnabled,
		ServerURL: strings.TrimSpace(m.inputs[0].Value()),
		Notes:     strings.TrimSpace(m.inputs[1].Value()),
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.views.Active() == view.Config {
		b.WriteString(m.renderConfig())
	} else {
		b.WriteString(m.renderStatus())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderHeader() string {
	title := m.opts.Title
	if title == "" {
		title = m.opts.PluginID
	}

	width := m.width
	if width <= 0 {
		width = 80
	}

	line := titleStyle.Render(runewidth.Truncate(title, width-2, "…"))

	if m.opts.Subtitle != "" {
		line += "\n" + subtitleStyle.Render(runewidth.Truncate(m.opts.Subtitle, width-2, "…"))
	}

	return line
}

func (m *Model) renderStatus() string {
	switch m.snap.Display() {
	case status.DisplayInitialLoading:
		return boxStyle.Render(m.spin.View() + " Loading status…")

	case status.DisplayError:
		body := errorStyle.Render("✗ " + m.snap.Err)
		if m.snap.HasLoadedOnce {
			// Keep the last known values visible under the error line.
			body += "\n\n" + m.renderStatusRows()
		}
		return boxStyle.Render(body)

	case status.DisplayData:
		return boxStyle.Render(m.renderStatusRows())

	default:
		return boxStyle.Render(mutedStyle.Render("No status yet. Waiting for the host."))
	}
}

func (m *Model) renderStatusRows() string {
	rows := []string{
		m.renderRow("Enabled", m.snap.Enabled),
		m.renderRow("Client", m.snap.HasClient),
		m.renderRow("Running", m.snap.Running),
	}

	if !m.snap.LastRefreshedAt.IsZero() {
		rows = append(rows, statusStyle.Render(
			"Refreshed "+m.snap.LastRefreshedAt.Format("15:04:05")))
	}

	return strings.Join(rows, "\n")
}

func (m *Model) renderRow(label string, on bool) string {
	mark := errorStyle.Render("○ off")
	if on {
		mark = okStyle.Render("● on")
	}

	return labelStyle.Render(label) + mark
}

func (m *Model) renderConfig() string {
	toggle := "[ ]"
	if m.formEnabled {
		toggle = "[x]"
	}

	cursor := func(i int) string {
		if m.focusIndex == i {
			return "> "
		}
		return "  "
	}

	rows := []string{
		titleStyle.Render("Configuration"),
		"",
		cursor(0) + labelStyle.Render("Enabled") + toggle,
		cursor(1) + labelStyle.Render("Server URL") + m.inputs[0].View(),
		cursor(2) + labelStyle.Render("Notes") + m.inputs[1].View(),
	}

	return boxStyle.Render(strings.Join(rows, "\n"))
}

func (m *Model) renderFooter() string {
	var parts []string

	if m.views.Active() == view.Config {
		parts = []string{
			helpEntry(m.keys.Save),
			helpEntry(m.keys.Cancel),
			helpEntry(m.keys.Next),
		}
		if m.focusIndex == 0 {
			parts = append(parts, helpEntry(m.keys.ToggleF))
		}
	} else {
		parts = []string{helpEntry(m.keys.Config)}
		if m.opts.AllowManualRefresh {
			parts = append(parts, helpEntry(m.keys.Refresh))
		}
		parts = append(parts, helpEntry(m.keys.Quit))
	}

	text := strings.Join(parts, "  ")
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, footerStyle.Render(text))
	}

	return footerStyle.Render(text)
}

func helpEntry(b key.Binding) string {
	h := b.Help()
	return fmt.Sprintf("%s %s", h.Key, h.Desc)
}

package screen

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/solana-compressor/internal/logger"
	"github.com/rovshanmuradov/solana-compressor/internal/ui"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/component"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/router"
	"github.com/rovshanmuradov/solana-compressor/internal/ui/style"
)

const logsRefreshInterval = time.Second

// RefreshLogsMsg is sent to trigger a refresh
type RefreshLogsMsg struct {
	Timestamp time.Time
}

// LogsScreen shows the in-memory log buffer
type LogsScreen struct {
	buffer *logger.LogBuffer
	keyMap ui.KeyMap

	width  int
	height int

	helpBar  *component.HelpBar
	viewport viewport.Model

	lastUpdate time.Time
	tailMode   bool // Follow new logs
	closed     bool

	titleStyle     lipgloss.Style
	headerStyle    lipgloss.Style
	timestampStyle lipgloss.Style
	componentStyle lipgloss.Style
	fieldStyle     lipgloss.Style
}

// NewLogsScreen creates a new logs screen
func NewLogsScreen(buffer *logger.LogBuffer) *LogsScreen {
	palette := style.DefaultPalette()
	keyMap := ui.DefaultKeyMap()

	return &LogsScreen{
		buffer:   buffer,
		keyMap:   keyMap,
		helpBar:  component.NewHelpBar().SetKeyBindings(keyMap.ContextualHelp(ui.RouteLogs, false)),
		viewport: viewport.New(80, 20),
		tailMode: true,

		titleStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Margin(1, 0, 0, 0),

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true),

		timestampStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		componentStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary),

		fieldStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
	}
}

// Init loads the buffer and starts the refresh timer
func (s *LogsScreen) Init() tea.Cmd {
	s.refresh(time.Now())
	return s.tick()
}

func (s *LogsScreen) tick() tea.Cmd {
	return tea.Tick(logsRefreshInterval, func(t time.Time) tea.Msg {
		return RefreshLogsMsg{Timestamp: t}
	})
}

// Close stops the refresh loop once the screen is popped.
func (s *LogsScreen) Close() {
	s.closed = true
}

// Update handles screen updates
func (s *LogsScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keyMap.Quit):
			return s, tea.Quit
		case key.Matches(msg, s.keyMap.Top):
			s.viewport.GotoTop()
			s.tailMode = false
		case key.Matches(msg, s.keyMap.Bottom):
			s.viewport.GotoBottom()
			s.tailMode = true
		default:
			var cmd tea.Cmd
			s.viewport, cmd = s.viewport.Update(msg)
			s.tailMode = s.viewport.AtBottom()
			return s, cmd
		}

	case RefreshLogsMsg:
		if s.closed {
			return s, nil
		}
		s.refresh(msg.Timestamp)
		return s, s.tick()
	}

	return s, nil
}

func (s *LogsScreen) refresh(now time.Time) {
	s.lastUpdate = now
	if s.buffer == nil {
		return
	}

	entries := s.buffer.GetRecentLogs(0)
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, s.renderEntry(entry))
	}
	s.viewport.SetContent(strings.Join(lines, "\n"))
	if s.tailMode {
		s.viewport.GotoBottom()
	}
}

func (s *LogsScreen) renderEntry(entry logger.LogEntry) string {
	var b strings.Builder
	b.WriteString(s.timestampStyle.Render(entry.Timestamp.Format("15:04:05")))
	b.WriteString(" ")
	b.WriteString(style.LevelStyle(entry.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(entry.Level))))

	fields := make(map[string]interface{}, len(entry.Fields))
	for k, v := range entry.Fields {
		fields[k] = v
	}
	if name, ok := fields["logger"].(string); ok {
		b.WriteString(" ")
		b.WriteString(s.componentStyle.Render("[" + name + "]"))
		delete(fields, "logger")
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(s.fieldStyle.Render(fmt.Sprintf("%s=%v", k, fields[k])))
	}
	return b.String()
}

// View renders the logs screen
func (s *LogsScreen) View() string {
	var content strings.Builder

	content.WriteString(s.titleStyle.Render("Application Logs"))
	content.WriteString("\n")

	status := fmt.Sprintf("Updated: %s", s.lastUpdate.Format("15:04:05"))
	if s.buffer != nil {
		total, dropped := s.buffer.GetStats()
		status = fmt.Sprintf("Total: %d • Dropped: %d • %s", total, dropped, status)
	}
	if s.tailMode {
		status += " • Tail mode"
	}
	content.WriteString(s.headerStyle.Render(status))
	content.WriteString("\n\n")

	content.WriteString(s.viewport.View())
	content.WriteString("\n")
	content.WriteString(s.helpBar.SetWidth(s.width).View())
	return content.String()
}

// SetSize sets the screen dimensions
func (s *LogsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.viewport.Width = width
	s.viewport.Height = max(height-8, 3)
	s.helpBar.SetWidth(width)
}

// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/thermalworks/aquabridge/internal/bridge"
	"github.com/thermalworks/aquabridge/internal/uart"
	"github.com/thermalworks/aquabridge/pkg/aquarea"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live telemetry dashboard",
	Long: `Interactive terminal dashboard showing live heat pump telemetry.

Runs the full query schedule against the heat pump and displays decoded
field values as they arrive. Type a setting assignment (field=value) in the
input line and press Enter to send it; writes pass the same validation and
rate limiting as the run service.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// Messages
type monitorTickMsg time.Time
type telemetryMsg aquarea.Message

// Log entry
type monitorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// monitorModel is the Bubble Tea model for the live dashboard
type monitorModel struct {
	portName string
	baudRate int

	bridge *bridge.Bridge

	// Latest value per field name, merged across packet types
	fields       map[string]interface{}
	lastStandard time.Time
	lastExtra    time.Time

	setInput textinput.Model
	inputErr string

	log           []monitorLogEntry
	maxLogEntries int

	width    int
	height   int
	quitting bool
}

func initialMonitorModel(portName string, baudRate int, b *bridge.Bridge) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "dhw_target_temp=48"
	ti.CharLimit = 48
	ti.Width = 32
	ti.Focus()

	return monitorModel{
		portName:      portName,
		baudRate:      baudRate,
		bridge:        b,
		fields:        make(map[string]interface{}),
		setInput:      ti,
		log:           make([]monitorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		textinput.Blink,
		tea.EnterAltScreen,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			m.submitSetting()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		return m, monitorTickCmd()

	case telemetryMsg:
		for name, value := range msg.Fields {
			m.fields[name] = value
		}
		switch msg.PacketType {
		case aquarea.PacketTypeStandard:
			m.lastStandard = time.Now()
		case aquarea.PacketTypeExtra:
			m.lastExtra = time.Now()
		}
	}

	var cmd tea.Cmd
	m.setInput, cmd = m.setInput.Update(msg)
	return m, cmd
}

// submitSetting parses the input line and queues the write.
func (m *monitorModel) submitSetting() {
	text := strings.TrimSpace(m.setInput.Value())
	if text == "" {
		return
	}

	name, raw, ok := strings.Cut(text, "=")
	if !ok {
		m.inputErr = "expected field=value"
		return
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		m.inputErr = fmt.Sprintf("invalid value %q", raw)
		return
	}

	name = strings.TrimSpace(name)
	if err := m.bridge.Set(name, value); err != nil {
		m.inputErr = err.Error()
		m.addLogEntry(fmt.Sprintf("SET %s=%v rejected: %v", name, value, err), true)
		return
	}

	m.inputErr = ""
	m.setInput.SetValue("")
	m.addLogEntry(fmt.Sprintf("SET %s=%v queued", name, value), false)
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.log = append(m.log, monitorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.log) > m.maxLogEntries {
		m.log = m.log[len(m.log)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("AQUABRIDGE - LIVE TELEMETRY"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Port: %s @ %d baud | Press Esc to quit",
		m.portName, m.baudRate)))
	s.WriteString("\n\n")

	// Stream counters
	stats := m.bridge.Stats()
	s.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", stats.Frames)),
		labelStyle.Render("Checksum errors:"), errorStyle.Render(fmt.Sprintf("%d", stats.ChecksumErrors)),
		labelStyle.Render("Length errors:"), errorStyle.Render(fmt.Sprintf("%d", stats.LengthErrors)),
	))

	// Field table
	if len(m.fields) == 0 {
		s.WriteString(headerStyle.Render("Waiting for first report frame..."))
		s.WriteString("\n\n")
	} else {
		names := make([]string, 0, len(m.fields))
		for name := range m.fields {
			names = append(names, name)
		}
		sort.Strings(names)

		content := strings.Builder{}
		for _, name := range names {
			unit := ""
			if f, ok := aquarea.FieldByName(aquarea.StandardFields, name); ok && f.Unit != "" {
				unit = " " + f.Unit
			} else if f, ok := aquarea.FieldByName(aquarea.ExtraFields, name); ok && f.Unit != "" {
				unit = " " + f.Unit
			}
			content.WriteString(fmt.Sprintf("%s %s\n",
				labelStyle.Render(fmt.Sprintf("%-24s", name)),
				valueStyle.Render(aquarea.FormatValue(m.fields[name])+unit),
			))
		}
		ages := ""
		if !m.lastStandard.IsZero() {
			ages = fmt.Sprintf("standard %s ago", time.Since(m.lastStandard).Round(time.Second))
		}
		if !m.lastExtra.IsZero() {
			if ages != "" {
				ages += ", "
			}
			ages += fmt.Sprintf("power %s ago", time.Since(m.lastExtra).Round(time.Second))
		}
		if ages != "" {
			content.WriteString(headerStyle.Render(ages))
		}
		s.WriteString(boxStyle.Render(content.String()))
		s.WriteString("\n\n")
	}

	// Setting input
	s.WriteString(labelStyle.Render("Set:"))
	s.WriteString(" ")
	s.WriteString(m.setInput.View())
	if m.inputErr != "" {
		s.WriteString("  ")
		s.WriteString(errorStyle.Render(m.inputErr))
	}
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 20
	if logHeight < 3 {
		logHeight = 3
	}
	startIdx := len(m.log) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.log) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.log); i++ {
			entry := m.log[i]
			stamp := entry.timestamp.Format("15:04:05.000")
			style := valueStyle
			if entry.isError {
				style = errorStyle
			}
			logContent.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(stamp),
				style.Render(entry.message),
			))
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("--port is required")
	}

	conn, err := uart.Open(portName, baudRate)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bridge.New(conn, nil)
	p := tea.NewProgram(initialMonitorModel(portName, baudRate, b))

	b.Subscribe(func(msg aquarea.Message) {
		p.Send(telemetryMsg(msg))
	})
	b.Start(ctx)
	defer b.Close()

	_, err = p.Run()
	return err
}

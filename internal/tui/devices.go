package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"practice/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D7D7D"))
)

// ErrCancelled is returned by PickInputDevice when the user quits without
// choosing.
var ErrCancelled = errors.New("device selection cancelled")

// SampleRates offered on the configuration screen.
var SampleRates = []float64{44100, 48000, 88200, 96000}

// listDevices is replaced in tests.
var listDevices = audio.HostDevices

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

var (
	keyQuit   = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	keyUp     = key.NewBinding(key.WithKeys("up", "k"))
	keyDown   = key.NewBinding(key.WithKeys("down", "j"))
	keyEnter  = key.NewBinding(key.WithKeys("enter"))
	keyEscape = key.NewBinding(key.WithKeys("esc"))
)

// Selection is the confirmed capture device and sample rate.
type Selection struct {
	DeviceID   int
	Name       string
	SampleRate float64
}

// DeviceListModel lists capture-capable devices and lets the user pick one
// and a sample rate.
type DeviceListModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	sampleRateIndex int
	chosen          *Selection
}

func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{activeScreen: ListScreen}
}

func (m DeviceListModel) Init() tea.Cmd {
	return fetchDevices
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// fetchDevices keeps only devices that can capture.
func fetchDevices() tea.Msg {
	all, err := listDevices()
	if err != nil {
		return errMsg{err}
	}
	inputs := make([]audio.Device, 0, len(all))
	for _, d := range all {
		if d.CanCapture() {
			inputs = append(inputs, d)
		}
	}
	return devicesMsg{inputs}
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		for i, d := range m.devices {
			if d.IsDefaultInput {
				m.selectedIndex = i
			}
		}
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, keyQuit) {
			return m, tea.Quit
		}
		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, keyUp):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, keyDown):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, keyEnter):
				if len(m.devices) > 0 {
					m.activeScreen = ConfigScreen
					m.sampleRateIndex = rateIndex(m.devices[m.selectedIndex].DefaultSampleRate)
				}
			}
		case ConfigScreen:
			switch {
			case key.Matches(msg, keyEscape):
				m.activeScreen = ListScreen
			case key.Matches(msg, keyUp):
				if m.sampleRateIndex > 0 {
					m.sampleRateIndex--
				}
			case key.Matches(msg, keyDown):
				if m.sampleRateIndex < len(SampleRates)-1 {
					m.sampleRateIndex++
				}
			case key.Matches(msg, keyEnter):
				d := m.devices[m.selectedIndex]
				m.chosen = &Selection{DeviceID: d.ID, Name: d.Name, SampleRate: SampleRates[m.sampleRateIndex]}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// Selection returns the confirmed choice, if any.
func (m DeviceListModel) Selection() (Selection, bool) {
	if m.chosen == nil {
		return Selection{}, false
	}
	return *m.chosen, true
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
		return
	}
	m.viewport.SetContent(m.renderDevices())
}

func (m DeviceListModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Input Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Capture Settings")
		help = infoStyle.Render("↑/↓: Sample rate • Enter: Use device • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		marker := ""
		if d.IsDefaultInput {
			marker = " (default)"
		}
		line := fmt.Sprintf("[%d] %s%s\n", d.ID, d.Name, marker)
		detail := fmt.Sprintf("    %d in • %s • %.1f ms\n", d.MaxInputChannels, d.Rate(), d.LowInputLatency.Seconds()*1000)

		if i == m.selectedIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString(dimStyle.Render(detail))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	d := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Configure Device: %s\n\n", d.Name)
	sb.WriteString("Sample Rate:\n")
	for i, rate := range SampleRates {
		cursor := " "
		if i == m.sampleRateIndex {
			cursor = "▶"
		}
		line := fmt.Sprintf("  %s %s\n", cursor, humanize.SIWithDigits(rate, 1, "Hz"))
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func rateIndex(rate float64) int {
	for i, r := range SampleRates {
		if r == rate {
			return i
		}
	}
	return 0
}

// PickInputDevice runs the picker full screen and returns the choice.
func PickInputDevice() (Selection, error) {
	p := tea.NewProgram(NewDeviceListModel(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, err
	}
	m, _ := final.(DeviceListModel)
	if m.err != nil {
		return Selection{}, m.err
	}
	sel, ok := m.Selection()
	if !ok {
		return Selection{}, ErrCancelled
	}
	return sel, nil
}

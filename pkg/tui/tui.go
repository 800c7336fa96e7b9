// Package tui provides a terminal user interface for msq2midi
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/msq2midi/pkg/config"
	"github.com/james-see/msq2midi/pkg/converter"
	"github.com/james-see/msq2midi/pkg/converter/devices"
)

// MSQ-100 front panel colors
var (
	panelOrange = lipgloss.Color("#FF6A00")
	ledRed      = lipgloss.Color("#FF2A2A")
	labelWhite  = lipgloss.Color("#E8E8E8")
	caseBlack   = lipgloss.Color("#1A1A1A")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(caseBlack).
			Background(panelOrange).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(labelWhite).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(panelOrange).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(panelOrange).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(ledRed).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(panelOrange).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(panelOrange).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// MenuItem represents a menu option. An empty To means inspect, an empty
// From means exit.
type MenuItem struct {
	Title       string
	Description string
	From        converter.Format
	To          converter.Format
}

var menuItems = []MenuItem{
	{Title: "MIDI → SYX", Description: "Encode a MIDI file as an MSQ-100 bulk dump", From: converter.FormatMIDI, To: converter.FormatSyx},
	{Title: "SYX → MIDI", Description: "Decode an MSQ-100 bulk dump to a MIDI file", From: converter.FormatSyx, To: converter.FormatMIDI},
	{Title: "MIDI → Q1", Description: "Encode a MIDI file as a raw Q1 dump", From: converter.FormatMIDI, To: converter.FormatQ1},
	{Title: "Q1 → MIDI", Description: "Decode a raw Q1 dump to a MIDI file", From: converter.FormatQ1, To: converter.FormatMIDI},
	{Title: "Q1 → SYX", Description: "Wrap a raw Q1 dump in SysEx messages", From: converter.FormatQ1, To: converter.FormatSyx},
	{Title: "SYX → Q1", Description: "Unwrap a bulk dump into raw Q1 data", From: converter.FormatSyx, To: converter.FormatQ1},
	{Title: "Inspect", Description: "Show block layout and event counts of a file"},
	{Title: "Exit", Description: "Exit the application"},
}

var extensions = map[converter.Format][]string{
	converter.FormatMIDI: {".mid", ".midi"},
	converter.FormatQ1:   {".q1"},
	converter.FormatSyx:  {".syx"},
}

// Model represents the TUI model
type Model struct {
	cfg          *config.Config
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	outputFile   string
	info         *converter.Info
	conversion   MenuItem
	err          error
	width        int
	height       int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	info       *converter.Info
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model using cfg for filters and timebase
func New(cfg *config.Config) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi", ".q1", ".syx"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(panelOrange)

	return Model{
		cfg:        cfg,
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// the file picker needs to see every message while it is open
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.info = msg.info
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		item := menuItems[m.menuIndex]
		m.conversion = item
		m.state = StateFilePicker

		if exts, ok := extensions[item.From]; ok {
			m.filePicker.AllowedTypes = exts
		} else {
			m.filePicker.AllowedTypes = []string{".mid", ".midi", ".q1", ".syx"}
		}

		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.info = nil
		m.selectedFile = ""
		m.outputFile = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// newConverter applies the configured options to a fresh converter
func newConverter(cfg *config.Config) *converter.Converter {
	device := devices.NewMSQ100()
	device.Filter = cfg.Filter
	device.Truncate = cfg.Truncate
	if cfg.Name != "" {
		device.SequenceName = cfg.Name
	}

	conv := converter.New(device)
	conv.MIDI().Track = cfg.Track
	conv.MIDI().Timebase = converter.NormalizeTimebase(cfg.Timebase)
	return conv
}

func (m Model) performConversion() tea.Cmd {
	cfg, item, input := m.cfg, m.conversion, m.selectedFile
	return func() tea.Msg {
		return convert(cfg, item, input)
	}
}

func convert(cfg *config.Config, item MenuItem, input string) conversionDoneMsg {
	conv := newConverter(cfg)

	data, err := os.ReadFile(input)
	if err != nil {
		return conversionDoneMsg{err: err}
	}

	if item.To == "" {
		info, err := conv.Inspect(data, converter.DetectFormat(input))
		return conversionDoneMsg{info: info, err: err}
	}

	result, err := conv.Convert(data, item.From, item.To)
	if err != nil {
		return conversionDoneMsg{err: err}
	}

	outputExt := extensions[item.To][0]
	outputFile := strings.TrimSuffix(input, filepath.Ext(input)) + outputExt

	if err := os.WriteFile(outputFile, result, 0644); err != nil {
		return conversionDoneMsg{err: err}
	}
	return conversionDoneMsg{outputFile: outputFile}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(logo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT JOB "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(labelWhite).Faint(true).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	what := "ANY"
	if m.conversion.From != "" {
		what = strings.ToUpper(string(m.conversion.From))
	}
	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s FILE ", what)))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Reading %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	if m.conversion.To != "" {
		s.WriteString(statusStyle.Render(fmt.Sprintf("  %s → %s", m.conversion.From, m.conversion.To)))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	switch {
	case m.err != nil:
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	case m.info != nil:
		s.WriteString(titleStyle.Render(" INFO "))
		s.WriteString("\n\n")
		s.WriteString(formatInfo(m.info))
	default:
		s.WriteString(titleStyle.Render(" DONE "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s", filepath.Base(m.outputFile)))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func formatInfo(info *converter.Info) string {
	var s strings.Builder
	fmt.Fprintf(&s, "Format:  %s\n", info.Format)
	if info.Manufacturer != "" {
		fmt.Fprintf(&s, "Maker:   %s\n", info.Manufacturer)
	}
	fmt.Fprintf(&s, "Name:    %s\n", info.Name)
	fmt.Fprintf(&s, "Blocks:  %d / 127\n", info.Blocks)
	fmt.Fprintf(&s, "Size:    %d bytes\n", info.RawSize)
	fmt.Fprintf(&s, "Length:  %d ticks\n", info.Ticks)

	kinds := make([]string, 0, len(info.Events))
	for k := range info.Events {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&s, "  %-16s %d\n", k, info.Events[k])
	}
	return strings.TrimRight(s.String(), "\n")
}

func logo() string {
	logo := `
  __  __  ___   ___   ___ __  __ ___ ___ ___
 |  \/  |/ __| / _ \ |_  )  \/  |_ _|   \_ _|
 | |\/| |\__ \| (_) | / /| |\/| || || |) | |
 |_|  |_||___/ \__\_\/___|_|  |_|___|___/___|
`
	return lipgloss.NewStyle().Foreground(panelOrange).Render(logo)
}

// Run starts the TUI application
func Run(cfg *config.Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/james-see/msq2midi/pkg/config"
	"github.com/james-see/msq2midi/pkg/converter"
	"gitlab.com/gomidi/midi/v2/smf"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestMenuNavigation(t *testing.T) {
	var m tea.Model = New(nil)

	m, _ = m.Update(key("up"))
	if got := m.(Model).menuIndex; got != 0 {
		t.Errorf("menuIndex after up = %d, want 0", got)
	}

	for i := 0; i < len(menuItems)+2; i++ {
		m, _ = m.Update(key("down"))
	}
	if got := m.(Model).menuIndex; got != len(menuItems)-1 {
		t.Errorf("menuIndex after scrolling = %d, want %d", got, len(menuItems)-1)
	}

	_, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Fatal("Exit should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Exit command did not quit")
	}
}

func TestMenuSelectsFileTypes(t *testing.T) {
	tests := []struct {
		index int
		want  []string
	}{
		{0, []string{".mid", ".midi"}},
		{1, []string{".syx"}},
		{3, []string{".q1"}},
		{6, []string{".mid", ".midi", ".q1", ".syx"}},
	}

	for _, tt := range tests {
		t.Run(menuItems[tt.index].Title, func(t *testing.T) {
			m := New(nil)
			m.menuIndex = tt.index
			next, _ := m.Update(key("enter"))
			got := next.(Model)

			if got.state != StateFilePicker {
				t.Errorf("state = %v, want %v", got.state, StateFilePicker)
			}
			if strings.Join(got.filePicker.AllowedTypes, ",") != strings.Join(tt.want, ",") {
				t.Errorf("AllowedTypes = %v, want %v", got.filePicker.AllowedTypes, tt.want)
			}
		})
	}
}

func TestFilePickerEscape(t *testing.T) {
	m := New(nil)
	m.state = StateFilePicker
	next, _ := m.Update(key("esc"))
	if got := next.(Model).state; got != StateMenu {
		t.Errorf("state = %v, want %v", got, StateMenu)
	}
}

func TestResultReturnsToMenu(t *testing.T) {
	m := New(nil)
	next, _ := m.Update(conversionDoneMsg{err: errors.New("boom")})
	got := next.(Model)
	if got.state != StateResult {
		t.Fatalf("state = %v, want %v", got.state, StateResult)
	}
	if !strings.Contains(got.View(), "boom") {
		t.Error("View() does not show the error")
	}

	next, _ = got.Update(key("enter"))
	got = next.(Model)
	if got.state != StateMenu || got.err != nil {
		t.Errorf("after enter: state = %v, err = %v", got.state, got.err)
	}
}

func writeMIDI(t *testing.T, dir string) string {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(converter.Timebase)
	var tr smf.Track
	tr.Add(0, []byte{0x90, 0x3C, 0x64})
	tr.Add(120, []byte{0x80, 0x3C, 0x00})
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "song.mid")
	if err := s.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	input := writeMIDI(t, dir)
	cfg := config.DefaultConfig()

	msg := convert(cfg, menuItems[0], input)
	if msg.err != nil {
		t.Fatalf("convert() error = %v", msg.err)
	}
	if want := filepath.Join(dir, "song.syx"); msg.outputFile != want {
		t.Errorf("outputFile = %q, want %q", msg.outputFile, want)
	}
	data, err := os.ReadFile(msg.outputFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 || data[0] != 0xF0 {
		t.Errorf("output does not start with F0: % X", data[:min(4, len(data))])
	}

	inspect := convert(cfg, menuItems[6], input)
	if inspect.err != nil {
		t.Fatalf("inspect error = %v", inspect.err)
	}
	if inspect.info == nil || inspect.info.Blocks != 2 {
		t.Errorf("info = %+v, want 2 blocks", inspect.info)
	}
	if got := inspect.info.Events[converter.KindNoteOn.String()]; got != 1 {
		t.Errorf("NoteOn count = %d, want 1", got)
	}
}

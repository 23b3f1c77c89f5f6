package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/cogtask/internal/engine"
	"github.com/roach88/cogtask/internal/ir"
)

var (
	formTitleStyle    = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	formLabelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	formSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	formErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#D62828"))
	formHelpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// Form asks the operator for the participant ID and type.
type Form struct {
	title string
	opts  options
}

var _ engine.ParticipantForm = (*Form)(nil)

// NewForm creates a form headed by title.
func NewForm(title string, opts ...Option) *Form {
	return &Form{title: title, opts: newOptions(opts)}
}

// Collect shows the form and blocks until it is submitted or cancelled.
// Esc and ctrl+c return engine.ErrParticipantEntryCancelled.
func (f *Form) Collect(ctx context.Context) (ir.Participant, error) {
	prog := tea.NewProgram(newFormModel(f.title), f.opts.program(ctx)...)
	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return ir.Participant{}, ctx.Err()
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return ir.Participant{}, engine.ErrParticipantEntryCancelled
		}
		return ir.Participant{}, fmt.Errorf("participant form: %w", err)
	}
	m, ok := final.(formModel)
	if !ok || m.cancelled || !m.submitted {
		return ir.Participant{}, engine.ErrParticipantEntryCancelled
	}
	return m.participant(), nil
}

const (
	fieldID = iota
	fieldType
)

type formModel struct {
	title     string
	id        textinput.Model
	typeIdx   int
	focus     int
	errMsg    string
	cancelled bool
	submitted bool
}

func newFormModel(title string) formModel {
	ti := textinput.New()
	ti.Placeholder = "participant ID"
	ti.CharLimit = 64
	ti.Width = 32
	ti.Focus()
	return formModel{title: title, id: ti}
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.id, cmd = m.id.Update(msg)
		return m, cmd
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.cancelled = true
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		return m.toggleFocus(), nil
	case tea.KeyEnter:
		if m.focus == fieldID {
			return m.toggleFocus(), nil
		}
		if strings.TrimSpace(m.id.Value()) == "" {
			m.errMsg = "participant ID is required"
			return m, nil
		}
		m.submitted = true
		return m, tea.Quit
	}

	if m.focus == fieldType {
		switch key.Type {
		case tea.KeyLeft, tea.KeyRight:
			m.typeIdx = (m.typeIdx + 1) % len(ir.ParticipantTypes)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.id, cmd = m.id.Update(msg)
	m.errMsg = ""
	return m, cmd
}

func (m formModel) toggleFocus() formModel {
	if m.focus == fieldID {
		m.focus = fieldType
		m.id.Blur()
	} else {
		m.focus = fieldID
		m.id.Focus()
	}
	return m
}

func (m formModel) participant() ir.Participant {
	return ir.Participant{
		ID:   strings.TrimSpace(m.id.Value()),
		Type: ir.ParticipantTypes[m.typeIdx],
	}
}

func (m formModel) View() string {
	var b strings.Builder
	b.WriteString(formTitleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(formLabelStyle.Render("Participant ID"))
	b.WriteString("\n")
	b.WriteString(m.id.View())
	b.WriteString("\n\n")
	b.WriteString(formLabelStyle.Render("Participant type"))
	b.WriteString("\n")

	choices := make([]string, len(ir.ParticipantTypes))
	for i, pt := range ir.ParticipantTypes {
		label := "  " + string(pt)
		if i == m.typeIdx {
			label = "> " + string(pt)
			if m.focus == fieldType {
				label = formSelectedStyle.Render(label)
			}
		}
		choices[i] = label
	}
	b.WriteString(strings.Join(choices, "   "))

	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(formErrorStyle.Render(m.errMsg))
	}
	b.WriteString(formHelpStyle.Render("tab: switch field  \u2190/\u2192: change type  enter: confirm  esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

package terminal

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cogtask/internal/ir"
)

func formStep(t *testing.T, m formModel, msgs ...tea.Msg) formModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		fm, ok := next.(formModel)
		require.True(t, ok)
		m = fm
	}
	return m
}

func TestForm_SubmitMain(t *testing.T) {
	m := formStep(t, newFormModel("Session"),
		runes("p"), runes("0"), runes("7"),
		tea.KeyMsg{Type: tea.KeyEnter},
		tea.KeyMsg{Type: tea.KeyEnter},
	)

	require.True(t, m.submitted)
	assert.Equal(t, ir.Participant{ID: "p07", Type: ir.ParticipantMain}, m.participant())
}

func TestForm_SelectPilot(t *testing.T) {
	m := formStep(t, newFormModel("Session"),
		runes("x"),
		tea.KeyMsg{Type: tea.KeyTab},
		tea.KeyMsg{Type: tea.KeyRight},
		tea.KeyMsg{Type: tea.KeyEnter},
	)

	require.True(t, m.submitted)
	assert.Equal(t, ir.ParticipantPilot, m.participant().Type)
}

func TestForm_TypeFieldIgnoresText(t *testing.T) {
	m := formStep(t, newFormModel("Session"),
		runes("a"),
		tea.KeyMsg{Type: tea.KeyTab},
		runes("b"),
	)
	assert.Equal(t, "a", m.id.Value())
}

func TestForm_RequiresID(t *testing.T) {
	m := formStep(t, newFormModel("Session"),
		tea.KeyMsg{Type: tea.KeyTab},
		tea.KeyMsg{Type: tea.KeyEnter},
	)

	assert.False(t, m.submitted)
	assert.NotEmpty(t, m.errMsg)
	assert.Contains(t, m.View(), "participant ID is required")
}

func TestForm_Cancel(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		next, cmd := newFormModel("Session").Update(tea.KeyMsg{Type: key})
		m := next.(formModel)
		assert.True(t, m.cancelled)
		assert.False(t, m.submitted)
		assert.NotNil(t, cmd)
	}
}

func TestForm_View(t *testing.T) {
	view := newFormModel("Flanker and Stroop").View()
	assert.Contains(t, view, "Flanker and Stroop")
	assert.Contains(t, view, "> main")
	assert.Contains(t, view, "pilot")
}

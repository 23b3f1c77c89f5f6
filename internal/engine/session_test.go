package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cogtask/internal/engine"
	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/present"
)

func TestNormalizeParticipant(t *testing.T) {
	p, err := engine.NormalizeParticipant(ir.Participant{ID: "  P01 ", Type: " main"})
	require.NoError(t, err)
	assert.Equal(t, ir.Participant{ID: "P01", Type: ir.ParticipantMain}, p)

	// Decomposed and precomposed forms normalise to the same id.
	a, err := engine.NormalizeParticipant(ir.Participant{ID: "Jose\u0301", Type: "pilot"})
	require.NoError(t, err)
	assert.Equal(t, "Jos\u00e9", a.ID)

	_, err = engine.NormalizeParticipant(ir.Participant{ID: "   ", Type: "main"})
	assert.Error(t, err)

	_, err = engine.NormalizeParticipant(ir.Participant{ID: "P01", Type: "control"})
	assert.Error(t, err)
}

func TestCollectParticipant(t *testing.T) {
	form := present.StaticForm{Participant: ir.Participant{ID: "P02", Type: "pilot"}}
	p, err := engine.CollectParticipant(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "P02", p.ID)
	assert.Equal(t, ir.ParticipantPilot, p.Type)
}

func TestCollectParticipant_Cancelled(t *testing.T) {
	_, err := engine.CollectParticipant(context.Background(), present.StaticForm{Cancelled: true})
	require.Error(t, err)
	assert.True(t, engine.IsEntryCancelled(err))
	assert.ErrorIs(t, err, engine.ErrParticipantEntryCancelled)
}

func TestNewSession_DefaultLogger(t *testing.T) {
	s := engine.NewSession(nil, nil, 0, nil)
	assert.NotNil(t, s.Logger)
}

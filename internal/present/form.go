package present

import (
	"context"

	"github.com/roach88/cogtask/internal/engine"
	"github.com/roach88/cogtask/internal/ir"
)

// StaticForm is an engine.ParticipantForm that returns fixed metadata.
// It backs non-interactive runs where the participant comes from flags.
type StaticForm struct {
	Participant ir.Participant
	Cancelled   bool
}

var _ engine.ParticipantForm = StaticForm{}

// Collect returns the participant, or ErrParticipantEntryCancelled when the
// form is marked cancelled.
func (f StaticForm) Collect(ctx context.Context) (ir.Participant, error) {
	if err := ctx.Err(); err != nil {
		return ir.Participant{}, err
	}
	if f.Cancelled {
		return ir.Participant{}, engine.ErrParticipantEntryCancelled
	}
	return f.Participant, nil
}

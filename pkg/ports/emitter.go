package ports

import (
	"context"

	"github.com/aretw0/scribe/pkg/domain"
)

// ChecklistEmitter delivers a checklist through the host platform.
// The workflow emits requests, and the host implements this interface to handle them.
// EmitChecklist returns the ID the host gave the delivered message, or "" when it has none.
type ChecklistEmitter interface {
	EmitChecklist(ctx context.Context, req domain.ChecklistRequest) (string, error)
}

// EmitterFunc adapts a function to the ChecklistEmitter interface.
type EmitterFunc func(ctx context.Context, req domain.ChecklistRequest) (string, error)

// EmitChecklist calls f.
func (f EmitterFunc) EmitChecklist(ctx context.Context, req domain.ChecklistRequest) (string, error) {
	return f(ctx, req)
}

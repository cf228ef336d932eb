package services

import (
	"context"
	"fmt"
	"time"

	"rental-backend/internal/utils"
)

const undoTimeout = 10 * time.Second

type undoStep struct {
	name string
	fn   func(context.Context) error
}

// undoStack records compensating actions for a multi-step write that spans
// the database and the payment gateway.
type undoStack struct {
	module    string
	requestID string
	steps     []undoStep
}

func newUndoStack(module, requestID string) *undoStack {
	return &undoStack{module: module, requestID: requestID}
}

func (u *undoStack) Push(name string, fn func(context.Context) error) {
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

func (u *undoStack) Len() int { return len(u.steps) }

// Rollback runs the recorded steps newest first. It survives a canceled
// request context and never returns an error; failures are logged.
func (u *undoStack) Rollback(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), undoTimeout)
	defer cancel()

	ran := make([]string, 0, len(u.steps))
	for i := len(u.steps) - 1; i >= 0; i-- {
		step := u.steps[i]
		ran = append(ran, step.name)
		if err := step.fn(ctx); err != nil {
			utils.LogEvent(u.requestID, u.module, "rollback", fmt.Sprintf("step=%s failed: %v", step.name, err))
		}
	}
	u.steps = nil
	return ran
}

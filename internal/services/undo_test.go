package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRollbackRunsNewestFirstAndSurvivesFailures(t *testing.T) {
	var order []string
	u := newUndoStack("test", "req-1")
	for _, name := range []string{"booking", "driver", "session"} {
		name := name
		u.Push(name, func(ctx context.Context) error {
			if ctx.Err() != nil {
				t.Fatalf("rollback context must not inherit cancellation")
			}
			order = append(order, name)
			if name == "driver" {
				return errors.New("delete failed")
			}
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := u.Rollback(ctx)

	want := []string{"session", "driver", "booking"}
	if !reflect.DeepEqual(order, want) || !reflect.DeepEqual(ran, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	if u.Len() != 0 {
		t.Fatalf("stack should be empty after rollback")
	}
}

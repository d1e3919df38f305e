package avatar

import (
	"sync"
	"testing"

	"github.com/zhouzirui/homebot/backend/internal/model/expression"
)

func TestStateLifecycle(t *testing.T) {
	state := NewState()
	if snap := state.Snapshot(); snap.Expression != expression.Neutral || snap.Speaking {
		t.Fatalf("unexpected initial state %+v", snap)
	}

	snap := state.React(expression.Happy)
	if snap.Expression != expression.Happy || snap.Face != expression.FaceFor(expression.Happy) {
		t.Fatalf("unexpected reaction %+v", snap)
	}

	if snap := state.StartSpeaking(); !snap.Speaking || snap.Expression != expression.Happy {
		t.Fatalf("unexpected speaking state %+v", snap)
	}

	if snap := state.FinishSpeaking(); snap.Speaking || snap.Expression != expression.Neutral {
		t.Fatalf("expected neutral after speaking, got %+v", snap)
	}
}

func TestStateUnknownExpressionIsNeutral(t *testing.T) {
	state := NewState()
	if snap := state.React("smug"); snap.Expression != expression.Neutral {
		t.Fatalf("expected neutral, got %s", snap.Expression)
	}
}

func TestStateConcurrentCallbacks(t *testing.T) {
	state := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			state.React(expression.Surprised)
			state.StartSpeaking()
		}()
		go func() {
			defer wg.Done()
			state.FinishSpeaking()
		}()
	}
	wg.Wait()
	_ = state.Snapshot()
}

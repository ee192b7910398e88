// session_test.go
package protocore

import "testing"

func Test_Session_WatchListAndFrames(t *testing.T) {
	a := NewWatchSession()
	b := NewWatchSession()
	if a.ID == b.ID {
		t.Fatal("sessions must get distinct ids")
	}

	a.Watch("x")
	a.Watch("y")
	a.Watch("x") // duplicates are allowed; they render twice
	if got := a.Watches(); len(got) != 3 || got[0].Name != "x" || got[1].Name != "y" {
		t.Fatalf("watches = %v", got)
	}

	a.Unwatch("x")
	if got := a.Watches(); len(got) != 1 || got[0].Name != "y" {
		t.Fatalf("watches after unwatch = %v", got)
	}

	// Sessions do not share state.
	if len(b.Watches()) != 0 {
		t.Fatal("watch leaked across sessions")
	}

	frame := StackFrame{ClassScope: 2, FunctionScope: 3, FunctionBlock: 4}
	a.PushFrame(frame)
	a.Watch("member")
	if got := a.Watches()[1].Frame; got != frame {
		t.Fatalf("watch frame = %+v, want %+v", got, frame)
	}
	a.PopFrame()
	if got := a.CurrentFrame(); got.ClassScope != GlobalScope {
		t.Fatalf("frame after pop = %+v, want global", got)
	}
	a.PopFrame() // popping an empty stack is a no-op
}

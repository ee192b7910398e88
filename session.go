// session.go
//
// Per-debug-session watch state. Each interactive session gets its own
// WatchSession passed into watch-related mirror calls; sessions never share
// mutable state, so two sessions (or two tests) cannot interfere.
package protocore

import "github.com/google/uuid"

// WatchEntry is one watched name together with the frame context it was
// added under.
type WatchEntry struct {
	Name  string
	Frame StackFrame
}

// WatchSession identifies one debugging session and carries its watch list
// and frame stack.
type WatchSession struct {
	ID      uuid.UUID
	watches []WatchEntry
	frames  []StackFrame
}

func NewWatchSession() *WatchSession {
	return &WatchSession{ID: uuid.New()}
}

// Watch adds a name to the session's watch list under the current frame.
func (ws *WatchSession) Watch(name string) {
	ws.watches = append(ws.watches, WatchEntry{Name: name, Frame: ws.CurrentFrame()})
}

// Unwatch removes every entry for the given name.
func (ws *WatchSession) Unwatch(name string) {
	out := ws.watches[:0]
	for _, w := range ws.watches {
		if w.Name != name {
			out = append(out, w)
		}
	}
	ws.watches = out
}

// Watches returns the live watch list in insertion order.
func (ws *WatchSession) Watches() []WatchEntry {
	return append([]WatchEntry(nil), ws.watches...)
}

// PushFrame records entry into a function frame for subsequent watches.
func (ws *WatchSession) PushFrame(f StackFrame) { ws.frames = append(ws.frames, f) }

// PopFrame leaves the innermost recorded frame; popping an empty stack is a
// no-op.
func (ws *WatchSession) PopFrame() {
	if len(ws.frames) > 0 {
		ws.frames = ws.frames[:len(ws.frames)-1]
	}
}

// CurrentFrame is the innermost recorded frame, or the global frame when
// none was pushed.
func (ws *WatchSession) CurrentFrame() StackFrame {
	if len(ws.frames) == 0 {
		return StackFrame{ClassScope: GlobalScope, FunctionScope: GlobalScope, FunctionBlock: 0}
	}
	return ws.frames[len(ws.frames)-1]
}

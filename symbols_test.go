// symbols_test.go
package protocore

import "testing"

func newTable(t *testing.T) *SymbolTable {
	t.Helper()
	return NewSymbolTable("test", 0)
}

func appendSym(t *testing.T, st *SymbolTable, name string, classScope, functionScope int) *SymbolNode {
	t.Helper()
	sn := &SymbolNode{Name: name, ClassScope: classScope, FunctionScope: functionScope}
	if _, ok := st.Append(sn); !ok {
		t.Fatalf("Append(%q, %d, %d) deduped unexpectedly", name, classScope, functionScope)
	}
	return sn
}

func Test_Symbols_Append_AssignsSequentialIndices(t *testing.T) {
	st := newTable(t)
	a := appendSym(t, st, "a", GlobalScope, GlobalScope)
	b := appendSym(t, st, "b", GlobalScope, GlobalScope)
	if a.StorageIndex != 0 || b.StorageIndex != 1 {
		t.Fatalf("expected indices 0 and 1, got %d and %d", a.StorageIndex, b.StorageIndex)
	}
	if st.Len() != 2 {
		t.Fatalf("Len = %d, want 2", st.Len())
	}
}

func Test_Symbols_Append_DedupeOnFullKey(t *testing.T) {
	st := newTable(t)
	a := appendSym(t, st, "a", GlobalScope, GlobalScope)

	// Same full key: no-op returning the original index.
	dup := &SymbolNode{Name: "a", ClassScope: GlobalScope, FunctionScope: GlobalScope}
	idx, appended := st.Append(dup)
	if appended || idx != a.StorageIndex {
		t.Fatalf("duplicate append: got (%d, %v), want (%d, false)", idx, appended, a.StorageIndex)
	}

	// Same name, different function scope: a distinct symbol.
	local := &SymbolNode{Name: "a", ClassScope: GlobalScope, FunctionScope: 3}
	idx, appended = st.Append(local)
	if !appended || idx != 1 {
		t.Fatalf("scoped append: got (%d, %v), want (1, true)", idx, appended)
	}
}

func Test_Symbols_GlobalSize_CountsOnlyGlobalScope(t *testing.T) {
	st := newTable(t)
	appendSym(t, st, "g1", GlobalScope, GlobalScope)
	appendSym(t, st, "g2", GlobalScope, GlobalScope)
	appendSym(t, st, "local", GlobalScope, 5)
	if st.GlobalSize() != 2 {
		t.Fatalf("GlobalSize = %d, want 2", st.GlobalSize())
	}
}

func Test_Symbols_IndexOfExact_Disambiguates(t *testing.T) {
	st := newTable(t)
	appendSym(t, st, "x", GlobalScope, GlobalScope)
	local := appendSym(t, st, "x", GlobalScope, 7)
	member := appendSym(t, st, "x", 2, GlobalScope)

	if got := st.IndexOfExact("x", GlobalScope, 7); got != local.StorageIndex {
		t.Fatalf("IndexOfExact(x, global, 7) = %d, want %d", got, local.StorageIndex)
	}
	if got := st.IndexOfExact("x", 2, GlobalScope); got != member.StorageIndex {
		t.Fatalf("IndexOfExact(x, 2, global) = %d, want %d", got, member.StorageIndex)
	}
	if got := st.IndexOfExact("x", 9, 9); got != InvalidIndex {
		t.Fatalf("IndexOfExact miss = %d, want InvalidIndex", got)
	}
}

func Test_Symbols_IndexOfClass_FieldBeatsMethodLocal(t *testing.T) {
	st := newTable(t)
	// Declaration order puts the method local first; the class-level field
	// must still win for any function scope.
	local := appendSym(t, st, "x", 1, 4)
	field := appendSym(t, st, "x", 1, GlobalScope)

	if got := st.IndexOfClass("x", 1, 4); got != field.StorageIndex {
		t.Fatalf("IndexOfClass = %d, want field index %d", got, field.StorageIndex)
	}

	// With the field gone only the exact method local matches.
	if !st.UndefineSymbol(field) {
		t.Fatal("UndefineSymbol(field) failed")
	}
	if got := st.IndexOfClass("x", 1, 4); got != local.StorageIndex {
		t.Fatalf("IndexOfClass after undefine = %d, want local index %d", got, local.StorageIndex)
	}
	if got := st.IndexOfClass("x", 1, 9); got != InvalidIndex {
		t.Fatalf("IndexOfClass wrong function = %d, want InvalidIndex", got)
	}
}

func Test_Symbols_Undefine_KeepsIndicesStable(t *testing.T) {
	st := newTable(t)
	a := appendSym(t, st, "a", GlobalScope, GlobalScope)
	b := appendSym(t, st, "b", GlobalScope, GlobalScope)
	c := appendSym(t, st, "c", GlobalScope, GlobalScope)

	if !st.UndefineSymbol(b) {
		t.Fatal("UndefineSymbol(b) failed")
	}

	// Neighbors keep their indices; the slot reads as empty.
	if a.StorageIndex != 0 || c.StorageIndex != 2 {
		t.Fatalf("indices shifted: a=%d c=%d", a.StorageIndex, c.StorageIndex)
	}
	if st.Node(1) != nil {
		t.Fatal("tombstoned slot should read as nil")
	}
	if got := st.IndexOf("b"); got != InvalidIndex {
		t.Fatalf("IndexOf(b) after undefine = %d, want InvalidIndex", got)
	}
	if st.GlobalSize() != 2 {
		t.Fatalf("GlobalSize after undefine = %d, want 2", st.GlobalSize())
	}

	// Redefinition appends at a fresh index, never reuses the tombstone.
	b2 := appendSym(t, st, "b", GlobalScope, GlobalScope)
	if b2.StorageIndex != 3 {
		t.Fatalf("redefined b at index %d, want 3", b2.StorageIndex)
	}

	// Undefining a node that is no longer at its slot is a refused no-op.
	if st.UndefineSymbol(b) {
		t.Fatal("second UndefineSymbol(b) should fail")
	}
}

func Test_Symbols_Symbols_SkipsTombstones(t *testing.T) {
	st := newTable(t)
	appendSym(t, st, "a", GlobalScope, GlobalScope)
	b := appendSym(t, st, "b", GlobalScope, GlobalScope)
	appendSym(t, st, "c", GlobalScope, GlobalScope)
	st.UndefineSymbol(b)

	live := st.Symbols()
	if len(live) != 2 || live[0].Name != "a" || live[1].Name != "c" {
		t.Fatalf("Symbols() = %v, want [a c]", names(live))
	}
}

func names(sns []*SymbolNode) []string {
	out := make([]string, 0, len(sns))
	for _, sn := range sns {
		out = append(out, sn.Name)
	}
	return out
}

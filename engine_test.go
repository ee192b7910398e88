// engine_test.go
package protocore

import (
	"errors"
	"strings"
	"testing"
)

func wantInt(t *testing.T, m *ExecutionMirror, name string, want int64) {
	t.Helper()
	obj, err := m.GetValue(name)
	if err != nil {
		t.Fatalf("GetValue(%q): %v", name, err)
	}
	if obj.Payload != want {
		t.Fatalf("%s = %#v, want %d", name, obj.Payload, want)
	}
}

func Test_Engine_Arithmetic(t *testing.T) {
	_, m := newTestMirror(t, `
a = 2 + 3 * 4
b = (2 + 3) * 4
c = -a + 1
d = 10 / 4
`)
	wantInt(t, m, "a", 14)
	wantInt(t, m, "b", 20)
	wantInt(t, m, "c", -13)
	wantInt(t, m, "d", 2) // integer division

	obj, err := m.GetValue("d")
	if err != nil || obj.Kind != TypeInt {
		t.Fatalf("d kind = %s, want int", obj.Kind)
	}
}

func Test_Engine_MixedNumericPromotes(t *testing.T) {
	_, m := newTestMirror(t, `x = 1 + 2.5`)
	obj, err := m.GetValue("x")
	if err != nil || obj.Kind != TypeDouble || obj.Payload != 3.5 {
		t.Fatalf("x = (%s, %#v, %v), want double 3.5", obj.Kind, obj.Payload, err)
	}
}

func Test_Engine_StringConcat(t *testing.T) {
	_, m := newTestMirror(t, `greeting = "hello " + "world"`)
	obj, err := m.GetValue("greeting")
	if err != nil || obj.Payload != "hello world" {
		t.Fatalf("greeting = (%#v, %v)", obj.Payload, err)
	}
}

func Test_Engine_ArrayIndexing(t *testing.T) {
	_, m := newTestMirror(t, `
xs = { 10, 20, 30 }
second = xs[1]
`)
	wantInt(t, m, "second", 20)
}

func Test_Engine_DivisionByZeroFails(t *testing.T) {
	exe := NewExecutable()
	en := NewEngine(exe, NewRuntimeMemory(exe))
	err := en.RunSource(`x = 1 / 0`)
	if err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Fatalf("expected division by zero, got %v", err)
	}
}

func Test_Engine_DependencyPropagation(t *testing.T) {
	en, m := newTestMirror(t, `
a = 5
b = a + 1
c = b * 2
`)
	wantInt(t, m, "b", 6)
	wantInt(t, m, "c", 12)

	set, err := m.SetValueAndExecute("a", IntValue(10))
	if err != nil {
		t.Fatalf("SetValueAndExecute: %v", err)
	}
	if !set {
		t.Fatal("a should be settable")
	}
	wantInt(t, m, "a", 10)
	wantInt(t, m, "b", 11)
	wantInt(t, m, "c", 22)

	// The injected value survives a later full re-execution.
	if err := en.Execute(false); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	wantInt(t, m, "a", 10)
	wantInt(t, m, "b", 11)
}

func Test_Engine_DeltaSkipsCleanNodes(t *testing.T) {
	en, m := newTestMirror(t, `
a = 1
b = a + 1
unrelated = 100
`)
	// Dirty bookkeeping: after the initial run everything is clean; setting a
	// dirties only a and its dependents.
	set, err := m.SetValue("a", IntValue(2))
	if err != nil || !set {
		t.Fatalf("SetValue: (%v, %v)", set, err)
	}
	var unrelatedNode *GraphNode
	for _, n := range en.Nodes() {
		switch n.Symbol.Name {
		case "a", "b":
			if !n.Dirty {
				t.Fatalf("%s should be dirty after SetValue", n.Symbol.Name)
			}
		case "unrelated":
			unrelatedNode = n
			if n.Dirty {
				t.Fatal("unrelated should stay clean")
			}
		}
	}
	if unrelatedNode == nil {
		t.Fatal("missing node for unrelated")
	}
	if err := en.Execute(true); err != nil {
		t.Fatalf("Execute(delta): %v", err)
	}
	wantInt(t, m, "b", 3)
	wantInt(t, m, "unrelated", 100)
}

func Test_Engine_SetValue_NonAssociativeIsNoOp(t *testing.T) {
	en, m := newTestMirror(t, `a = 1`)
	// A symbol declared outside the engine has no graph node.
	declare(t, en.Executable().TopBlock(), "manual", GlobalScope, GlobalScope)

	set, err := m.SetValue("manual", IntValue(5))
	if err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if set {
		t.Fatal("setting a non-associative symbol must report false")
	}
}

func Test_Engine_SetValue_NestedBlockIndexCollisionIsNoOp(t *testing.T) {
	en, m := newTestMirror(t, `a = 1`)
	exe := en.Executable()
	child := exe.NewChildBlock(exe.TopBlock(), BlockLanguage)

	// x gets StorageIndex 0 in its own table, colliding with a's index in
	// the top block. It has no graph node, so setting it must not touch a.
	x := declare(t, child, "x", GlobalScope, GlobalScope)
	if x.StorageIndex != 0 {
		t.Fatalf("x index = %d, want 0 to collide with a", x.StorageIndex)
	}
	en.Memory().SetAt(child.ID, x.StorageIndex, IntValue(7))
	en.Memory().Debug.CurrentBlock = child.ID

	set, err := m.SetValueAndExecute("x", IntValue(42))
	if err != nil {
		t.Fatalf("SetValueAndExecute: %v", err)
	}
	if set {
		t.Fatal("x has no dependency node and must not be settable")
	}

	obj, err := m.GetValue("x")
	if err != nil || obj.Payload != int64(7) {
		t.Fatalf("x = (%#v, %v), want untouched 7", obj.Payload, err)
	}
	en.Memory().Debug.CurrentBlock = exe.TopBlock().ID
	wantInt(t, m, "a", 1)
}

func Test_Engine_ForwardReference(t *testing.T) {
	_, m := newTestMirror(t, `
b = a + 1
a = 2
`)
	wantInt(t, m, "a", 2)
	wantInt(t, m, "b", 3)
}

func Test_Engine_UninitializedReadSurfacesName(t *testing.T) {
	en, _ := newTestMirror(t, "")
	declare(t, en.Executable().TopBlock(), "manual", GlobalScope, GlobalScope)

	err := en.RunSource(`b = manual + 1`)
	var ue *UninitializedVariableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UninitializedVariableError, got %v", err)
	}
	if ue.Name != "manual" {
		t.Fatalf("error names %q, want manual", ue.Name)
	}
}

func Test_Engine_SetValue_UnknownNameFails(t *testing.T) {
	_, m := newTestMirror(t, `a = 1`)
	if _, err := m.SetValue("doesNotExist", IntValue(5)); err == nil {
		t.Fatal("expected resolution error")
	}
}

func Test_Engine_Redefinition_ReplacesNode(t *testing.T) {
	en, m := newTestMirror(t, `
a = 1
b = a + 1
`)
	if err := en.RunSource(`a = 40`); err != nil {
		t.Fatalf("redefinition: %v", err)
	}
	wantInt(t, m, "a", 40)
	wantInt(t, m, "b", 41)

	// The symbol table gained no duplicate entry for a.
	top := en.Executable().TopBlock()
	count := 0
	for _, sn := range top.Symbols.Symbols() {
		if sn.Name == "a" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("found %d symbols named a, want 1", count)
	}
}

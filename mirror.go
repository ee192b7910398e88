// mirror.go
//
// ExecutionMirror is the reflective front end over one paused executive:
// it resolves variable names against the compiled executable's scope
// metadata, reads raw values out of the executive's memory, unpacks them
// into Obj snapshots (unpack.go), renders them as bounded text (trace.go),
// and supports mutating a single associative variable followed by
// dependency-driven re-execution (engine.go).
//
// One mirror binds to exactly one executive's memory and heap for its
// lifetime. Nothing here is safe for concurrent use against a running
// executive: every call assumes a quiescent state, entered at a breakpoint
// or between top-level statements.
package protocore

import (
	"strconv"
	"strings"
)

// coreDumpWrapWidth is the hard-wrap column for GetCoreDump lines.
const coreDumpWrapWidth = 1020

// ExecutionMirror reflects one executive's live state.
type ExecutionMirror struct {
	exe    *Executable
	mem    *RuntimeMemory
	engine *Engine

	opts      MirrorOptions
	filter    *PropertyFilter
	marshaler ForeignMarshaler
}

// NewExecutionMirror binds a mirror to an engine's executable and memory
// with default options.
func NewExecutionMirror(engine *Engine) *ExecutionMirror {
	return NewExecutionMirrorWithOptions(engine, DefaultOptions())
}

// NewExecutionMirrorWithOptions binds with explicit options.
func NewExecutionMirrorWithOptions(engine *Engine, opts MirrorOptions) *ExecutionMirror {
	return &ExecutionMirror{
		exe:    engine.Executable(),
		mem:    engine.Memory(),
		engine: engine,
		opts:   opts,
		filter: NewPropertyFilter(opts.Filter.PropertyFile),
	}
}

// Executable exposes the bound compiled program (read-only use).
func (m *ExecutionMirror) Executable() *Executable { return m.exe }

// Memory exposes the bound runtime memory (read-only use outside SetValue).
func (m *ExecutionMirror) Memory() *RuntimeMemory { return m.mem }

func (m *ExecutionMirror) newFormat() *OutputFormatParameters {
	return NewOutputFormatParameters(m.opts.Output.MaxArraySize, m.opts.Output.MaxOutputDepth)
}

// ---------- symbol resolution ----------

// symbolLocation says where a resolved symbol's storage lives.
type symbolLocation int

const (
	locBlock       symbolLocation = iota // a code block's slot array
	locClassMember                       // an instance member slot (needs this-pointer)
	locClassStatic                       // class static storage
	locClassLocal                        // a method local (resolvable, storage not mirrored)
)

type resolvedSymbol struct {
	node    *SymbolNode
	loc     symbolLocation
	blockID int        // valid for locBlock
	class   *ClassNode // valid for class locations
}

// GetSymbolIndex resolves a bare name against the current execution
// context: if the executive is paused inside a method-dispatch frame, that
// frame's class/function/block override the static notion of "current
// block"; otherwise resolution is global, walking the lexical block chain.
func (m *ExecutionMirror) GetSymbolIndex(name string) (*SymbolNode, error) {
	rs, err := m.resolveCurrent(name)
	if err != nil {
		return nil, err
	}
	return rs.node, nil
}

func (m *ExecutionMirror) resolveCurrent(name string) (resolvedSymbol, error) {
	classScope, functionScope := GlobalScope, GlobalScope
	functionBlock := m.mem.Debug.CurrentBlock
	if m.mem.Debug.InFunction {
		fr := m.mem.Debug.CurrentFrame
		classScope, functionScope, functionBlock = fr.ClassScope, fr.FunctionScope, fr.FunctionBlock
	}
	return m.resolve(name, classScope, functionScope, functionBlock)
}

// resolve implements the scoping precedence. Ties are impossible by
// construction: (class, function, block) triples are unique table keys.
func (m *ExecutionMirror) resolve(name string, classScope, functionScope, functionBlock int) (resolvedSymbol, error) {
	if classScope != GlobalScope {
		return m.resolveInClass(name, classScope, functionScope, functionBlock)
	}
	return m.resolveGlobal(name, functionScope, functionBlock)
}

// resolveInClass handles names seen from inside a method: first an
// exact-block lookup in the method's own body block, so a method local
// shadows a same-named field, then the class table's field-over-any-method
// precedence.
func (m *ExecutionMirror) resolveInClass(name string, classScope, functionScope, functionBlock int) (resolvedSymbol, error) {
	cn := m.exe.Classes.Class(classScope)
	if cn == nil {
		return resolvedSymbol{}, &NameNotFoundError{Name: name}
	}

	if blk := m.exe.Block(functionBlock); blk != nil {
		if idx := blk.Symbols.IndexOfExact(name, classScope, functionScope); idx != InvalidIndex {
			return m.found(blk.Symbols.Node(idx), locBlock, functionBlock, nil)
		}
	}

	if idx := cn.Symbols.IndexOfClass(name, classScope, functionScope); idx != InvalidIndex {
		sn := cn.Symbols.Node(idx)
		switch {
		case sn.FunctionScope != GlobalScope:
			return m.found(sn, locClassLocal, InvalidIndex, cn)
		case sn.IsStatic:
			return m.found(sn, locClassStatic, InvalidIndex, cn)
		default:
			return m.found(sn, locClassMember, InvalidIndex, cn)
		}
	}

	// Fields exhausted: fall through to the enclosing global chain.
	return m.resolveGlobal(name, functionScope, functionBlock)
}

// resolveGlobal walks the lexical block chain twice. The first pass starts
// at the function's own block and tries the scoped lookup then the
// global-function lookup at each level; once the function's chain is
// exhausted, local shadowing no longer applies, so the second pass restarts
// at the currently running block's parent trying only global-function
// lookups up to the program's top-level block.
func (m *ExecutionMirror) resolveGlobal(name string, functionScope, functionBlock int) (resolvedSymbol, error) {
	for blk := m.exe.Block(functionBlock); blk != nil; blk = blk.Parent {
		if idx := blk.Symbols.IndexOfExact(name, GlobalScope, functionScope); idx != InvalidIndex {
			return m.found(blk.Symbols.Node(idx), locBlock, blk.ID, nil)
		}
		if idx := blk.Symbols.IndexOfExact(name, GlobalScope, GlobalScope); idx != InvalidIndex {
			return m.found(blk.Symbols.Node(idx), locBlock, blk.ID, nil)
		}
	}
	if current := m.exe.Block(m.mem.Debug.CurrentBlock); current != nil {
		for blk := current.Parent; blk != nil; blk = blk.Parent {
			if idx := blk.Symbols.IndexOfExact(name, GlobalScope, GlobalScope); idx != InvalidIndex {
				return m.found(blk.Symbols.Node(idx), locBlock, blk.ID, nil)
			}
		}
	}
	return resolvedSymbol{}, &NameNotFoundError{Name: name}
}

func (m *ExecutionMirror) found(sn *SymbolNode, loc symbolLocation, blockID int, cn *ClassNode) (resolvedSymbol, error) {
	if sn.ArraySizes != nil {
		return resolvedSymbol{}, &UnsupportedFeatureError{
			Feature: "resolution of fixed-size array symbol " + sn.Name,
		}
	}
	return resolvedSymbol{node: sn, loc: loc, blockID: blockID, class: cn}, nil
}

// ---------- value access ----------

func (m *ExecutionMirror) fetch(rs resolvedSymbol) (StackValue, error) {
	switch rs.loc {
	case locBlock:
		return m.mem.At(rs.blockID, rs.node.StorageIndex), nil
	case locClassStatic:
		return rs.class.StaticValue(rs.node), nil
	case locClassMember:
		this := m.mem.Debug.CurrentFrame.ThisPointer
		if this.Kind != TypePointer {
			return InvalidValue, &UninitializedVariableError{Name: rs.node.Name}
		}
		obj, err := m.mem.Heap.Object(this.Handle())
		if err != nil {
			return InvalidValue, err
		}
		slot := rs.class.FieldSlot(rs.node)
		if slot == InvalidIndex || slot >= len(obj.Fields) {
			return InvalidValue, &UninitializedVariableError{Name: rs.node.Name}
		}
		return obj.Fields[slot], nil
	case locClassLocal:
		return InvalidValue, &UnsupportedFeatureError{
			Feature: "storage access for method local " + rs.node.Name,
		}
	default:
		return InvalidValue, &UnsupportedFeatureError{Feature: "unknown symbol location"}
	}
}

// GetRawValue resolves a name in the current context and returns the raw
// stack value. A slot still holding the invalid sentinel is an
// UninitializedVariableError.
func (m *ExecutionMirror) GetRawValue(name string) (StackValue, error) {
	rs, err := m.resolveCurrent(name)
	if err != nil {
		return InvalidValue, err
	}
	v, err := m.fetch(rs)
	if err != nil {
		return InvalidValue, err
	}
	if v.Kind == TypeInvalid {
		return InvalidValue, &UninitializedVariableError{Name: name}
	}
	return v, nil
}

// GetValue resolves a name in the current context and unpacks its value.
func (m *ExecutionMirror) GetValue(name string) (Obj, error) {
	v, err := m.GetRawValue(name)
	if err != nil {
		return Obj{}, err
	}
	return m.Unpack(v)
}

// GetValueInScope resolves with an explicit static scope override instead
// of the executive's live frame: the given block and class scope stand in
// for the current context (function scope stays global).
func (m *ExecutionMirror) GetValueInScope(name string, blockID, classScope int) (Obj, error) {
	rs, err := m.resolve(name, classScope, GlobalScope, blockID)
	if err != nil {
		return Obj{}, err
	}
	v, err := m.fetch(rs)
	if err != nil {
		return Obj{}, err
	}
	if v.Kind == TypeInvalid {
		return Obj{}, &UninitializedVariableError{Name: name}
	}
	return m.Unpack(v)
}

// GetType reports the user-visible type name of a variable's current
// value; class instances report their class name.
func (m *ExecutionMirror) GetType(name string) (string, error) {
	v, err := m.GetRawValue(name)
	if err != nil {
		return "", err
	}
	if v.Kind == TypePointer {
		if obj, err := m.mem.Heap.Object(v.Handle()); err == nil {
			if cn := m.exe.Classes.Class(obj.Class); cn != nil {
				return cn.Name, nil
			}
		}
	}
	return v.Kind.String(), nil
}

// GetProperties maps a class instance's declared fields to their unpacked
// values, in declaration order of the class symbol table. The property
// filter does not apply here; it is render-only.
func (m *ExecutionMirror) GetProperties(obj Obj) (map[string]Obj, []string, error) {
	if obj.Kind != TypePointer {
		return nil, nil, &UnsupportedFeatureError{Feature: "properties of non-pointer value " + obj.Kind.String()}
	}
	elem, err := m.mem.Heap.Object(obj.Payload.(int))
	if err != nil {
		return nil, nil, err
	}
	cn := m.exe.Classes.Class(elem.Class)
	if cn == nil {
		return nil, nil, &NameNotFoundError{Name: "class #" + strconv.Itoa(elem.Class)}
	}
	props := map[string]Obj{}
	var order []string
	slot := 0
	for _, sn := range cn.Symbols.Symbols() {
		if sn.FunctionScope != GlobalScope || sn.IsStatic {
			continue
		}
		var fv StackValue = InvalidValue
		if slot < len(elem.Fields) {
			fv = elem.Fields[slot]
		}
		slot++
		child, err := m.Unpack(fv)
		if err != nil {
			return nil, nil, err
		}
		props[sn.Name] = child
		order = append(order, sn.Name)
	}
	return props, order, nil
}

// GetArrayElements returns the unpacked members of an array Obj.
func (m *ExecutionMirror) GetArrayElements(obj Obj) ([]Obj, error) {
	if obj.Kind != TypeArrayPointer {
		return nil, &UnsupportedFeatureError{Feature: "array elements of " + obj.Kind.String()}
	}
	arr, ok := obj.Payload.(*DsasmArray)
	if !ok {
		return nil, &UnsupportedFeatureError{Feature: "array elements of cyclic array stub"}
	}
	return append([]Obj(nil), arr.Members...), nil
}

// ---------- core dump ----------

// GetCoreDump renders every top-level global's final value, one "name =
// value" line per symbol in declaration order, temporaries skipped. Each
// line hard-wraps at 1020 characters with bare continuation lines.
func (m *ExecutionMirror) GetCoreDump() string {
	top := m.exe.TopBlock()
	var b strings.Builder
	for _, sn := range top.Symbols.Symbols() {
		if sn.IsTemporary || sn.FunctionScope != GlobalScope {
			continue
		}
		v := m.mem.At(top.ID, sn.StorageIndex)
		line := sn.Name + " = " + m.GetStringValue(v, m.mem.Heap, top.ID, false)
		for _, wrapped := range hardWrap(line, coreDumpWrapWidth) {
			b.WriteString(wrapped)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func hardWrap(line string, width int) []string {
	runes := []rune(line)
	if len(runes) <= width {
		return []string{line}
	}
	var out []string
	for len(runes) > width {
		out = append(out, string(runes[:width]))
		runes = runes[width:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// ---------- mutate and re-execute ----------

// SetValue writes a new value into an associative global's slot and marks
// its dependency-graph node, plus the transitive closure of dependents,
// dirty. Only variables declared through the associative engine can be set;
// anything else is a documented no-op returning false (imperative locals
// have no dependency tracking to propagate through).
func (m *ExecutionMirror) SetValue(name string, v StackValue) (bool, error) {
	rs, err := m.resolveCurrent(name)
	if err != nil {
		return false, err
	}
	node := m.engine.NodeForSymbol(rs.node)
	if node == nil || rs.loc != locBlock {
		return false, nil
	}
	m.mem.SetAt(rs.blockID, rs.node.StorageIndex, v)
	m.engine.SetNodeValue(node, v)
	return true, nil
}

// SetValueAndExecute performs SetValue and then replays every top-level
// block in delta-execution mode, relying on the engine's dirty-node
// skipping to leave unaffected work untouched. A re-execution failure
// propagates to the caller unwrapped.
func (m *ExecutionMirror) SetValueAndExecute(name string, v StackValue) (bool, error) {
	set, err := m.SetValue(name, v)
	if err != nil || !set {
		return set, err
	}
	if err := m.engine.Execute(true); err != nil {
		return true, err
	}
	return true, nil
}

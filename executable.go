// executable.go
//
// Compiled-program metadata the mirror resolves names against: the code
// block tree (static parent chain), the class table (an explicit static
// registration table — no runtime reflection), and the runtime memory one
// executive owns (global stack + heap).
package protocore

import "fmt"

// CodeBlockType distinguishes the top-level program block, nested language
// blocks, and function bodies.
type CodeBlockType int

const (
	BlockLanguage CodeBlockType = iota // top-level or nested associative block
	BlockFunction                      // a function body
	BlockConstruct                     // inline construct block (if/for bodies)
)

// CodeBlock is one lexical region of compiled code. Blocks form a tree via
// static Parent metadata recorded at compile time; the mirror reconstructs
// lexical scoping by walking this chain, since it runs post-compilation with
// no compiler symbol stack available.
type CodeBlock struct {
	ID       int
	Type     CodeBlockType
	Parent   *CodeBlock
	Children []*CodeBlock
	Symbols  *SymbolTable
}

// NewChildBlock creates a block nested inside cb and registers it in the
// executable's block list.
func (exe *Executable) NewChildBlock(parent *CodeBlock, typ CodeBlockType) *CodeBlock {
	cb := &CodeBlock{
		ID:     len(exe.CodeBlocks),
		Type:   typ,
		Parent: parent,
	}
	cb.Symbols = NewSymbolTable(fmt.Sprintf("block-%d", cb.ID), cb.ID)
	if parent != nil {
		parent.Children = append(parent.Children, cb)
	}
	exe.CodeBlocks = append(exe.CodeBlocks, cb)
	return cb
}

// ClassNode is the static descriptor of one class: its member symbol table
// (instance fields use FunctionScope == GlobalScope, method locals use the
// method's function id) and an imported flag for foreign classes whose
// string form is delegated to a ForeignMarshaler.
type ClassNode struct {
	Name       string
	ID         int
	Symbols    *SymbolTable
	IsImported bool

	statics map[int]StackValue // storage index -> static member value
}

// FieldCount reports the number of instance fields (class-level, non-static
// symbols); new instances allocate this many member slots.
func (cn *ClassNode) FieldCount() int {
	n := 0
	for _, sn := range cn.Symbols.Symbols() {
		if sn.FunctionScope == GlobalScope && !sn.IsStatic {
			n++
		}
	}
	return n
}

// FieldSlot maps a class-level instance field to its position among the
// instance's member slots, or InvalidIndex for non-fields.
func (cn *ClassNode) FieldSlot(sn *SymbolNode) int {
	slot := 0
	for _, cand := range cn.Symbols.Symbols() {
		if cand.FunctionScope != GlobalScope || cand.IsStatic {
			continue
		}
		if cand == sn {
			return slot
		}
		slot++
	}
	return InvalidIndex
}

// StaticValue reads a static member's storage; unassigned statics read as
// the invalid sentinel.
func (cn *ClassNode) StaticValue(sn *SymbolNode) StackValue {
	if v, ok := cn.statics[sn.StorageIndex]; ok {
		return v
	}
	return InvalidValue
}

// SetStaticValue writes a static member's storage.
func (cn *ClassNode) SetStaticValue(sn *SymbolNode, v StackValue) {
	if cn.statics == nil {
		cn.statics = map[int]StackValue{}
	}
	cn.statics[sn.StorageIndex] = v
}

// ClassTable registers every class by id and name.
type ClassTable struct {
	classes []*ClassNode
	byName  map[string]int
}

func NewClassTable() *ClassTable { return &ClassTable{byName: map[string]int{}} }

// Declare registers a new class and returns its node. Redeclaring a name
// returns the existing node.
func (ct *ClassTable) Declare(name string) *ClassNode {
	if id, ok := ct.byName[name]; ok {
		return ct.classes[id]
	}
	cn := &ClassNode{Name: name, ID: len(ct.classes)}
	cn.Symbols = NewSymbolTable(name, cn.ID)
	ct.classes = append(ct.classes, cn)
	ct.byName[name] = cn.ID
	return cn
}

// Class resolves a class id, or nil when out of range.
func (ct *ClassTable) Class(id int) *ClassNode {
	if id < 0 || id >= len(ct.classes) {
		return nil
	}
	return ct.classes[id]
}

// ClassByName resolves a class name, or nil.
func (ct *ClassTable) ClassByName(name string) *ClassNode {
	if id, ok := ct.byName[name]; ok {
		return ct.classes[id]
	}
	return nil
}

func (ct *ClassTable) Len() int { return len(ct.classes) }

// Executable is the compiled-program object: the block tree and class
// table, owned for the life of the program. Symbol tables inside it are
// logically append-only after compilation, aside from the undefine
// affordance used for interactive redefinition.
type Executable struct {
	CodeBlocks []*CodeBlock // indexed by block id; CodeBlocks[0] is top level
	Classes    *ClassTable
}

// NewExecutable creates an executable with an empty top-level block.
func NewExecutable() *Executable {
	exe := &Executable{Classes: NewClassTable()}
	exe.NewChildBlock(nil, BlockLanguage)
	return exe
}

// TopBlock is the program's top-level code block.
func (exe *Executable) TopBlock() *CodeBlock { return exe.CodeBlocks[0] }

// Block resolves a block id, or nil when out of range.
func (exe *Executable) Block(id int) *CodeBlock {
	if id < 0 || id >= len(exe.CodeBlocks) {
		return nil
	}
	return exe.CodeBlocks[id]
}

// StackFrame records the identity of the currently executing function: its
// class scope, function scope, the block its body compiles into, and the
// instance it was dispatched on. The mirror consults a live frame in
// preference to statically supplied scope.
type StackFrame struct {
	ClassScope    int
	FunctionScope int
	FunctionBlock int
	ThisPointer   StackValue // TypePointer for method frames, invalid otherwise
}

// DebugProperties tracks where the executive is paused: the block currently
// executing, and whether execution sits inside a method-dispatch frame.
type DebugProperties struct {
	CurrentBlock int
	InFunction   bool
	CurrentFrame StackFrame
}

// RuntimeMemory is the mirror-visible memory of one executive: one slot
// array per code block (indexed by SymbolNode.StorageIndex) plus the heap.
type RuntimeMemory struct {
	frames map[int][]StackValue
	Heap   *Heap
	Debug  DebugProperties
}

// NewRuntimeMemory sizes the top block's slots from its GlobalSize.
func NewRuntimeMemory(exe *Executable) *RuntimeMemory {
	mem := &RuntimeMemory{frames: map[int][]StackValue{}, Heap: NewHeap()}
	mem.Reserve(exe.TopBlock().ID, exe.TopBlock().Symbols.GlobalSize())
	return mem
}

// Reserve grows a block's slot array to at least n entries, initializing
// new slots to the invalid sentinel. It never shrinks.
func (mem *RuntimeMemory) Reserve(blockID, n int) {
	slots := mem.frames[blockID]
	for len(slots) < n {
		slots = append(slots, InvalidValue)
	}
	mem.frames[blockID] = slots
}

// At reads a block's slot for a storage index, reserving on demand so a
// freshly appended symbol always has a slot.
func (mem *RuntimeMemory) At(blockID, storageIndex int) StackValue {
	if storageIndex < 0 {
		return InvalidValue
	}
	mem.Reserve(blockID, storageIndex+1)
	return mem.frames[blockID][storageIndex]
}

// SetAt writes a block's slot. This is the mirror's single write path into
// executive memory and must run only while the executive is paused.
func (mem *RuntimeMemory) SetAt(blockID, storageIndex int, v StackValue) {
	if storageIndex < 0 {
		return
	}
	mem.Reserve(blockID, storageIndex+1)
	mem.frames[blockID][storageIndex] = v
}

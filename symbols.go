// symbols.go
//
// Per-scope symbol tables. One SymbolTable owns the named storage slots of
// exactly one lexical scope — one function, one class's members, or one
// global block — and answers name→storage-index queries under the language's
// shadowing and static/instance rules.
//
// Lookup misses are expected outcomes of speculative resolution: every
// IndexOf variant returns InvalidIndex rather than an error. Promotion to a
// NameNotFoundError is the mirror's job, not the table's.
//
// Removal policy: once appended, a node's StorageIndex never changes. The
// only removal affordance is UndefineSymbol, which tombstones the slot in
// place so indices captured elsewhere stay valid. There is deliberately no
// index-shifting remove.
package protocore

const (
	// GlobalScope is the reserved scope id meaning "no enclosing class" or
	// "no enclosing function" depending on which field carries it.
	GlobalScope = -1

	// InvalidIndex is the not-found sentinel returned by all lookups.
	InvalidIndex = -1
)

// SymbolNode describes one named storage slot: a variable, parameter,
// member field, or compiler temporary. Name is not unique across scopes;
// the (Name, ClassScope, FunctionScope, CodeBlockID) tuple is.
type SymbolNode struct {
	Name          string
	StorageIndex  int // position within the owning table, immutable once assigned
	ClassScope    int // owning class id, or GlobalScope
	FunctionScope int // owning function id, or GlobalScope
	CodeBlockID   int // owning lexical block
	Size          int // stack slots occupied (1 for everything supported)

	IsStatic    bool
	IsArgument  bool
	IsTemporary bool

	DeclaredType AddressType
	StaticType   AddressType // statically narrowed type, TypeInvalid if unknown

	// ArraySizes is non-nil only for fixed-size-array declarations, which the
	// mirror does not support; any resolution reaching such a node fails fast.
	ArraySizes []int
}

func (sn *SymbolNode) equals(o *SymbolNode) bool {
	return sn.Name == o.Name &&
		sn.ClassScope == o.ClassScope &&
		sn.FunctionScope == o.FunctionScope &&
		sn.CodeBlockID == o.CodeBlockID
}

// tombstone marks the reusable blank placeholder left by UndefineSymbol.
func (sn *SymbolNode) tombstone() bool { return sn.Name == "" }

// SymbolTable is the ordered symbol collection of one scope. The primary
// store grows append-only and iterates in declaration order; a secondary
// name index serves disambiguated lookups without scanning.
type SymbolTable struct {
	Name  string
	Index int // runtime table index assigned by the executable

	symbols []*SymbolNode            // storageIndex -> node (or tombstone)
	byName  map[string][]*SymbolNode // secondary index for scoped lookups

	globalSize int
}

func NewSymbolTable(name string, index int) *SymbolTable {
	return &SymbolTable{
		Name:   name,
		Index:  index,
		byName: map[string][]*SymbolNode{},
	}
}

// Append adds a node and assigns its StorageIndex. If an equal node (same
// name, class, function and code block) is already present, Append is a
// no-op returning the existing index and false. It never panics and never
// silently duplicates.
func (st *SymbolTable) Append(sn *SymbolNode) (int, bool) {
	for _, existing := range st.byName[sn.Name] {
		if existing.equals(sn) {
			return existing.StorageIndex, false
		}
	}
	if sn.Size == 0 {
		sn.Size = 1
	}
	sn.StorageIndex = len(st.symbols)
	st.symbols = append(st.symbols, sn)
	st.byName[sn.Name] = append(st.byName[sn.Name], sn)
	if sn.FunctionScope == GlobalScope {
		st.globalSize += sn.Size
	}
	return sn.StorageIndex, true
}

// IndexOf returns the first declared node matching name, ignoring scope.
// Usable only where scope is already known not to matter; with shadowing in
// play it can pick the wrong symbol, so new call sites should prefer the
// disambiguated variants.
func (st *SymbolTable) IndexOf(name string) int {
	for _, sn := range st.symbols {
		if !sn.tombstone() && sn.Name == name {
			return sn.StorageIndex
		}
	}
	return InvalidIndex
}

// IndexOfByClass returns the first node matching name and class scope,
// ignoring function scope. Used for member-field lookups.
func (st *SymbolTable) IndexOfByClass(name string, classScope int) int {
	for _, sn := range st.symbols {
		if !sn.tombstone() && sn.Name == name && sn.ClassScope == classScope {
			return sn.StorageIndex
		}
	}
	return InvalidIndex
}

// IndexOfExact is the primary disambiguated lookup: exact match on name,
// class scope and function scope via the secondary index.
func (st *SymbolTable) IndexOfExact(name string, classScope, functionScope int) int {
	for _, sn := range st.byName[name] {
		if !sn.tombstone() && sn.ClassScope == classScope && sn.FunctionScope == functionScope {
			return sn.StorageIndex
		}
	}
	return InvalidIndex
}

// IndexOfClass resolves name as seen from inside a class member function:
// a symbol whose FunctionScope is GlobalScope is a class-level field visible
// from any method and matches regardless of the caller's function scope.
// Only when no such field exists does it fall back to an exact
// class+function match (a method local).
func (st *SymbolTable) IndexOfClass(name string, classScope, functionScope int) int {
	for _, sn := range st.byName[name] {
		if !sn.tombstone() && sn.ClassScope == classScope && sn.FunctionScope == GlobalScope {
			return sn.StorageIndex
		}
	}
	return st.IndexOfExact(name, classScope, functionScope)
}

// Node returns the node at a storage index, or nil for out-of-range or
// tombstoned slots.
func (st *SymbolTable) Node(storageIndex int) *SymbolNode {
	if storageIndex < 0 || storageIndex >= len(st.symbols) {
		return nil
	}
	sn := st.symbols[storageIndex]
	if sn.tombstone() {
		return nil
	}
	return sn
}

// Symbols returns the live nodes in declaration order (tombstones skipped).
func (st *SymbolTable) Symbols() []*SymbolNode {
	out := make([]*SymbolNode, 0, len(st.symbols))
	for _, sn := range st.symbols {
		if !sn.tombstone() {
			out = append(out, sn)
		}
	}
	return out
}

// UndefineSymbol tombstones the slot holding sn, keeping every other node's
// StorageIndex intact. Used for interactive redefinition; the slot is not
// reused. Returns false if sn is not present at its recorded index.
func (st *SymbolTable) UndefineSymbol(sn *SymbolNode) bool {
	idx := sn.StorageIndex
	if idx < 0 || idx >= len(st.symbols) || st.symbols[idx] != sn {
		return false
	}
	if sn.FunctionScope == GlobalScope {
		st.globalSize -= sn.Size
	}
	list := st.byName[sn.Name]
	for i, cand := range list {
		if cand == sn {
			st.byName[sn.Name] = append(list[:i], list[i+1:]...)
			break
		}
	}
	st.symbols[idx] = &SymbolNode{StorageIndex: idx, ClassScope: GlobalScope, FunctionScope: GlobalScope}
	return true
}

// Len reports the number of slots ever appended, tombstones included, which
// is also the next StorageIndex to be assigned.
func (st *SymbolTable) Len() int { return len(st.symbols) }

// GlobalSize is the summed size of global-scope (non-function-local)
// symbols. It drives stack frame allocation sizing and must stay exact
// across append/undefine.
func (st *SymbolTable) GlobalSize() int { return st.globalSize }

// trace.go
//
// Bounded textual tracing of runtime values: one shared traversal serving
// both the terse "print" form and the verbose "watch" form, so the two modes
// can only ever differ in formatting, never in which values get shown.
//
// Bounding is mandatory and symmetric. Every recursive entry point first
// asks the OutputFormatParameters whether it may descend; a refusal renders
// the literal "..." and the depth counter always returns to its pre-call
// value on the way out. Arrays longer than the configured maximum render the
// first half, a ", ..." marker, then the tail half — the middle is elided.
// A visited-handle set threads through nested arrays so self-references
// render "{ ... }" instead of recursing.
package protocore

import (
	"strconv"
	"strings"
)

// Unbounded disables a traversal limit when used for either maximum.
const Unbounded = -1

// Default traversal budgets shared by rendering and tracing calls.
const (
	DefaultMaxArraySize   = 4
	DefaultMaxOutputDepth = 16
)

// OutputFormatParameters is the per-render-call traversal budget. The depth
// counter decrements on entry and increments on exit of each recursive
// render; it is not shared across concurrent calls.
type OutputFormatParameters struct {
	maxArraySize   int
	maxOutputDepth int
	currentDepth   int
}

// NewOutputFormatParameters builds a budget; Unbounded (-1) for either limit
// disables it.
func NewOutputFormatParameters(maxArraySize, maxOutputDepth int) *OutputFormatParameters {
	return &OutputFormatParameters{
		maxArraySize:   maxArraySize,
		maxOutputDepth: maxOutputDepth,
		currentDepth:   maxOutputDepth,
	}
}

// DefaultFormat returns the budget used when a caller passes none.
func DefaultFormat() *OutputFormatParameters {
	return NewOutputFormatParameters(DefaultMaxArraySize, DefaultMaxOutputDepth)
}

// MaxArraySize reports the configured element budget (Unbounded when off).
func (p *OutputFormatParameters) MaxArraySize() int { return p.maxArraySize }

// CurrentOutputDepth exposes the live counter; tests assert its symmetry.
func (p *OutputFormatParameters) CurrentOutputDepth() int { return p.currentDepth }

// ContinueOutputTrace consumes one level of depth budget. A false return
// means the caller must render "..." and not descend; in that case no budget
// was consumed and no restore is owed.
func (p *OutputFormatParameters) ContinueOutputTrace() bool {
	if p.maxOutputDepth == Unbounded {
		return true
	}
	if p.currentDepth <= 0 {
		return false
	}
	p.currentDepth--
	return true
}

// RestoreOutputTraceDepth gives back the level consumed by a successful
// ContinueOutputTrace. Callers pair the two on every path.
func (p *OutputFormatParameters) RestoreOutputTraceDepth() {
	if p.maxOutputDepth == Unbounded {
		return
	}
	p.currentDepth++
}

// ellipsis is the truncation token for both depth and size bounding.
const ellipsis = "..."

// GetStringValue renders a value with the mirror's default traversal budget.
// forPrint selects the terse print form (bare strings and chars); the watch
// form quotes them. Rendering never fails for well-formed data; malformed
// handles render "<invalid>".
func (m *ExecutionMirror) GetStringValue(v StackValue, heap *Heap, blockID int, forPrint bool) string {
	return m.GetStringValueUsingFormat(v, heap, blockID, m.newFormat(), forPrint)
}

// GetStringValueUsingFormat renders with an explicit traversal budget.
func (m *ExecutionMirror) GetStringValueUsingFormat(v StackValue, heap *Heap, blockID int, format *OutputFormatParameters, forPrint bool) string {
	return m.trace(v, heap, blockID, format, forPrint, map[int]bool{})
}

func (m *ExecutionMirror) trace(v StackValue, heap *Heap, blockID int, format *OutputFormatParameters, forPrint bool, visited map[int]bool) string {
	switch v.Kind {
	case TypeInvalid:
		return "<invalid>"
	case TypeNull:
		return "null"
	case TypeBool:
		return strconv.FormatBool(v.Data.(bool))
	case TypeInt:
		return strconv.FormatInt(v.Data.(int64), 10)
	case TypeDouble:
		return formatDouble(v.Data.(float64))
	case TypeChar:
		if forPrint {
			return string(v.Data.(rune))
		}
		return "'" + string(v.Data.(rune)) + "'"
	case TypeString:
		if forPrint {
			return v.Data.(string)
		}
		return strconv.Quote(v.Data.(string))
	case TypeFunctionPointer:
		return "<function pointer #" + strconv.Itoa(v.Data.(int)) + ">"
	case TypeArrayPointer:
		return m.GetArrayTrace(v, heap, blockID, format, forPrint, visited)
	case TypePointer:
		return m.GetClassTrace(v, heap, blockID, format, forPrint, visited)
	default:
		return "<unknown>"
	}
}

// GetArrayTrace renders one array level: "{ e1, e2, ..., e9, e10 }".
// Handles already being rendered further up the call chain short-circuit to
// "{ ... }" so self-referential arrays terminate.
func (m *ExecutionMirror) GetArrayTrace(v StackValue, heap *Heap, blockID int, format *OutputFormatParameters, forPrint bool, visited map[int]bool) string {
	if !format.ContinueOutputTrace() {
		return ellipsis
	}
	defer format.RestoreOutputTraceDepth()

	handle := v.Handle()
	if visited[handle] {
		return "{ " + ellipsis + " }"
	}
	visited[handle] = true
	defer delete(visited, handle)

	arr, err := heap.Array(handle)
	if err != nil {
		return "<invalid>"
	}
	values := arr.Values
	if len(values) == 0 {
		return "{}"
	}

	var parts []string
	limit := format.MaxArraySize()
	if limit != Unbounded && len(values) > limit {
		halfSize := limit / 2
		for i := 0; i < halfSize; i++ {
			parts = append(parts, m.trace(values[i], heap, blockID, format, forPrint, visited))
		}
		parts = append(parts, ellipsis)
		for i := len(values) - halfSize; i < len(values); i++ {
			parts = append(parts, m.trace(values[i], heap, blockID, format, forPrint, visited))
		}
	} else {
		for _, elem := range values {
			parts = append(parts, m.trace(elem, heap, blockID, format, forPrint, visited))
		}
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// GetClassTrace renders a class instance. The optional property filter
// restricts which fields appear (order still follows the class's declared
// symbol order); a class with no declared members falls back to rendering
// its positional values comma-joined with no name prefix. Imported classes
// delegate their whole string form to the foreign marshaler.
func (m *ExecutionMirror) GetClassTrace(v StackValue, heap *Heap, blockID int, format *OutputFormatParameters, forPrint bool, visited map[int]bool) string {
	if !format.ContinueOutputTrace() {
		return ellipsis
	}
	defer format.RestoreOutputTraceDepth()

	obj, err := heap.Object(v.Handle())
	if err != nil {
		return "<invalid>"
	}
	cn := m.exe.Classes.Class(obj.Class)
	if cn == nil {
		return "<invalid>"
	}
	if cn.IsImported && m.marshaler != nil {
		return m.marshaler.MarshalToString(cn, obj, heap)
	}

	lparen, rparen := "(", ")"
	if forPrint {
		lparen, rparen = "{", "}"
	}

	fields := cn.Symbols.Symbols()
	var members []*SymbolNode
	for _, sn := range fields {
		if sn.FunctionScope != GlobalScope || sn.IsStatic {
			continue // method locals and statics are not part of the instance
		}
		members = append(members, sn)
	}

	if len(members) == 0 {
		// Primitive/native wrappers with no declared symbols: render positional
		// values directly.
		parts := make([]string, 0, len(obj.Fields))
		for _, fv := range obj.Fields {
			parts = append(parts, m.trace(fv, heap, blockID, format, forPrint, visited))
		}
		return cn.Name + lparen + strings.Join(parts, ", ") + rparen
	}

	allowed := m.filter.Allowed(cn.Name)
	var parts []string
	slot := 0
	for _, sn := range members {
		idx := slot
		slot++
		if allowed != nil && !allowed[sn.Name] {
			continue
		}
		var fv StackValue = InvalidValue
		if idx < len(obj.Fields) {
			fv = obj.Fields[idx]
		}
		parts = append(parts, sn.Name+" = "+m.trace(fv, heap, blockID, format, forPrint, visited))
	}
	return cn.Name + lparen + strings.Join(parts, ", ") + rparen
}

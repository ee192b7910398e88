// values.go
//
// Runtime value model for the DesignScript mirror subsystem.
//
// Two value layers live here:
//
//   - StackValue — the raw tagged value the executive keeps in stack slots
//     and heap elements. Compound values (arrays, class instances) hold an
//     opaque integer handle into the Heap; scalars are immediate.
//   - Obj / DsasmArray — the mirror's structured snapshot of a StackValue,
//     produced by Unpack. Obj trees are freshly allocated per inspection call
//     and never alias the live heap, so a displayed snapshot survives later
//     heap mutation.
//
// AddressType is a closed enum: every operation over values (unpack, render,
// type naming) switches exhaustively over it and fails hard on anything it
// does not know, so a newly added kind cannot silently fall through.
package protocore

import (
	"fmt"
	"strconv"
	"strings"
)

// AddressType enumerates all runtime kinds a StackValue may hold.
// The tag determines which Go type StackValue.Data carries.
type AddressType int

const (
	TypeInvalid         AddressType = iota // uninitialized slot sentinel (no payload)
	TypeNull                               // null (no payload)
	TypeBool                               // bool
	TypeInt                                // int64
	TypeDouble                             // float64
	TypeChar                               // rune
	TypeString                             // string
	TypeArrayPointer                       // int heap handle to an array element
	TypePointer                            // int heap handle to a class instance
	TypeFunctionPointer                    // int procedure index
)

// String returns the user-visible type name, as shown by GetType and traces.
func (t AddressType) String() string {
	switch t {
	case TypeInvalid:
		return "invalid"
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeDouble:
		return "double"
	case TypeChar:
		return "char"
	case TypeString:
		return "string"
	case TypeArrayPointer:
		return "array"
	case TypePointer:
		return "pointer"
	case TypeFunctionPointer:
		return "function pointer"
	default:
		return fmt.Sprintf("addresstype(%d)", int(t))
	}
}

// StackValue is the universal raw carrier used by the executive's stack and
// heap. Kind selects the active case; Data holds the Go payload for that
// case (nil for TypeNull and TypeInvalid).
type StackValue struct {
	Kind AddressType
	Data interface{}
}

// InvalidValue is the "declared but never assigned" slot sentinel.
var InvalidValue = StackValue{Kind: TypeInvalid}

// NullValue is the singleton null.
var NullValue = StackValue{Kind: TypeNull}

// Scalar constructors.
func BoolValue(b bool) StackValue      { return StackValue{Kind: TypeBool, Data: b} }
func IntValue(n int64) StackValue      { return StackValue{Kind: TypeInt, Data: n} }
func DoubleValue(f float64) StackValue { return StackValue{Kind: TypeDouble, Data: f} }
func CharValue(r rune) StackValue      { return StackValue{Kind: TypeChar, Data: r} }
func StringValue(s string) StackValue  { return StackValue{Kind: TypeString, Data: s} }

// Handle constructors. The handle is an index into the owning Heap.
func ArrayPointerValue(handle int) StackValue {
	return StackValue{Kind: TypeArrayPointer, Data: handle}
}
func PointerValue(handle int) StackValue { return StackValue{Kind: TypePointer, Data: handle} }
func FunctionPointerValue(proc int) StackValue {
	return StackValue{Kind: TypeFunctionPointer, Data: proc}
}

// Handle returns the heap handle of a compound value, or -1 if v is not
// array- or pointer-kinded.
func (v StackValue) Handle() int {
	switch v.Kind {
	case TypeArrayPointer, TypePointer:
		return v.Data.(int)
	default:
		return -1
	}
}

// String renders a short debug form (not the user-facing trace; see trace.go).
func (v StackValue) String() string {
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
		return "'" + string(v.Data.(rune)) + "'"
	case TypeString:
		return strconv.Quote(v.Data.(string))
	case TypeArrayPointer:
		return fmt.Sprintf("<array:%d>", v.Data.(int))
	case TypePointer:
		return fmt.Sprintf("<pointer:%d>", v.Data.(int))
	case TypeFunctionPointer:
		return fmt.Sprintf("<fptr:%d>", v.Data.(int))
	default:
		return "<unknown>"
	}
}

// ValuesEqual compares two stack values structurally through the given heap.
// Handles compare by content, not identity; a nil heap compares handles raw.
// The same visited-handle guard used by tracing and unpacking threads
// through nested arrays, so comparing self-referential arrays terminates; a
// revisited handle pair counts as equal.
func ValuesEqual(a, b StackValue, heap *Heap) bool {
	return valuesEqual(a, b, heap, map[[2]int]bool{})
}

func valuesEqual(a, b StackValue, heap *Heap, visited map[[2]int]bool) bool {
	if a.Kind != b.Kind {
		// int/double cross-compare, matching the engine's numeric semantics
		if isNumeric(a) && isNumeric(b) {
			return toDouble(a) == toDouble(b)
		}
		return false
	}
	switch a.Kind {
	case TypeInvalid, TypeNull:
		return true
	case TypeBool:
		return a.Data.(bool) == b.Data.(bool)
	case TypeInt:
		return a.Data.(int64) == b.Data.(int64)
	case TypeDouble:
		return a.Data.(float64) == b.Data.(float64)
	case TypeChar:
		return a.Data.(rune) == b.Data.(rune)
	case TypeString:
		return a.Data.(string) == b.Data.(string)
	case TypeFunctionPointer:
		return a.Data.(int) == b.Data.(int)
	case TypeArrayPointer:
		if heap == nil {
			return a.Data.(int) == b.Data.(int)
		}
		key := [2]int{a.Data.(int), b.Data.(int)}
		if visited[key] {
			return true
		}
		visited[key] = true
		defer delete(visited, key)
		xs, err1 := heap.Array(a.Data.(int))
		ys, err2 := heap.Array(b.Data.(int))
		if err1 != nil || err2 != nil || len(xs.Values) != len(ys.Values) {
			return false
		}
		for i := range xs.Values {
			if !valuesEqual(xs.Values[i], ys.Values[i], heap, visited) {
				return false
			}
		}
		return true
	case TypePointer:
		return a.Data.(int) == b.Data.(int)
	default:
		return false
	}
}

func isNumeric(v StackValue) bool { return v.Kind == TypeInt || v.Kind == TypeDouble }

func toDouble(v StackValue) float64 {
	if v.Kind == TypeInt {
		return float64(v.Data.(int64))
	}
	return v.Data.(float64)
}

func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Obj is the mirror's structured snapshot of one runtime value: the raw
// value it came from, its resolved semantic kind, and for compound values a
// Payload (scalar, opaque handle, or *DsasmArray of recursively unpacked
// children). Kind is always populated; Payload is nil only for null/invalid.
type Obj struct {
	Raw     StackValue
	Kind    AddressType
	Payload interface{}
}

// DsasmArray holds the recursively unpacked members of an array value.
// Members are copies, never live views of the heap.
type DsasmArray struct {
	Members []Obj
}

// NullObj builds the snapshot of the null value.
func NullObj() Obj { return Obj{Raw: NullValue, Kind: TypeNull} }

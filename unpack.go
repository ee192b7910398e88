// unpack.go
//
// Conversion between raw stack values and the mirror's Obj snapshots.
//
// Unpack materializes eagerly: an array handle becomes a DsasmArray whose
// members are recursively unpacked copies. The same visited-handle cycle
// guard used by the textual tracer threads through here, so a
// self-referential array unpacks to an Obj holding the raw handle at the
// point of the cycle instead of recursing forever.
//
// Two entry points exist with different fidelity: UnpackWithHeap resolves
// array elements against an explicitly supplied heap (cross-executive or
// harness inspection); Unpack uses the bound executive's own heap. Scalar
// payload representation is identical in both.
//
// An unknown value tag is a hard stop carrying the tag name — silently
// returning null for unknown tags would mask executive bugs mid-debug.
package protocore

// Unpack converts one raw value into a structured Obj using the mirror's
// own bound heap.
func (m *ExecutionMirror) Unpack(v StackValue) (Obj, error) {
	return m.unpack(v, m.mem.Heap, map[int]bool{})
}

// UnpackWithHeap converts using an explicitly supplied heap, for values
// belonging to a different execution context than the mirror's own.
func (m *ExecutionMirror) UnpackWithHeap(v StackValue, heap *Heap) (Obj, error) {
	return m.unpack(v, heap, map[int]bool{})
}

func (m *ExecutionMirror) unpack(v StackValue, heap *Heap, visited map[int]bool) (Obj, error) {
	switch v.Kind {
	case TypeInvalid, TypeNull:
		return Obj{Raw: v, Kind: v.Kind}, nil

	case TypeBool, TypeInt, TypeDouble, TypeChar, TypeString:
		return Obj{Raw: v, Kind: v.Kind, Payload: v.Data}, nil

	case TypeFunctionPointer:
		return Obj{Raw: v, Kind: v.Kind, Payload: v.Data.(int)}, nil

	case TypePointer:
		// Payload is the opaque handle; callers needing fields use
		// GetProperties separately.
		return Obj{Raw: v, Kind: v.Kind, Payload: v.Data.(int)}, nil

	case TypeArrayPointer:
		handle := v.Handle()
		if visited[handle] {
			// Cycle: keep the raw handle, do not descend again.
			return Obj{Raw: v, Kind: TypeArrayPointer, Payload: handle}, nil
		}
		visited[handle] = true
		defer delete(visited, handle)

		arr, err := heap.Array(handle)
		if err != nil {
			return Obj{}, err
		}
		members := make([]Obj, 0, len(arr.Values))
		for _, elem := range arr.Values {
			child, err := m.unpack(elem, heap, visited)
			if err != nil {
				return Obj{}, err
			}
			members = append(members, child)
		}
		return Obj{Raw: v, Kind: TypeArrayPointer, Payload: &DsasmArray{Members: members}}, nil

	default:
		return Obj{}, &UnsupportedFeatureError{Feature: "unpack of value tag " + v.Kind.String()}
	}
}

// Repack converts an Obj snapshot back into a raw value against the given
// heap, allocating fresh heap elements for arrays. Round-tripping a scalar
// array preserves element count and values.
func (m *ExecutionMirror) Repack(obj Obj, heap *Heap) (StackValue, error) {
	switch obj.Kind {
	case TypeInvalid:
		return InvalidValue, nil
	case TypeNull:
		return NullValue, nil
	case TypeBool, TypeInt, TypeDouble, TypeChar, TypeString:
		return StackValue{Kind: obj.Kind, Data: obj.Payload}, nil
	case TypeFunctionPointer:
		return FunctionPointerValue(obj.Payload.(int)), nil
	case TypePointer:
		return PointerValue(obj.Payload.(int)), nil
	case TypeArrayPointer:
		arr, ok := obj.Payload.(*DsasmArray)
		if !ok {
			// A cycle stub repacks as the raw handle it preserved.
			return obj.Raw, nil
		}
		values := make([]StackValue, 0, len(arr.Members))
		for _, member := range arr.Members {
			v, err := m.Repack(member, heap)
			if err != nil {
				return InvalidValue, err
			}
			values = append(values, v)
		}
		return heap.AllocateArray(values), nil
	default:
		return InvalidValue, &UnsupportedFeatureError{Feature: "repack of value tag " + obj.Kind.String()}
	}
}

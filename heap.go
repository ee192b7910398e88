// heap.go
//
// The executive's boxed heap. Arrays and class instances live here behind
// opaque integer handles; stack slots carry only the handle. The mirror is a
// read-only client except for the single write path in SetValue, which runs
// only while the executive is paused.
package protocore

import "fmt"

// ArrayElement is a boxed, growable array of stack values.
type ArrayElement struct {
	Values []StackValue
}

// ObjectElement is a boxed class instance: its class id plus one stack value
// per declared member, in the class symbol table's declaration order.
type ObjectElement struct {
	Class  int
	Fields []StackValue
}

// Heap owns every boxed element for one executive. Handles are indices into
// the element list and stay valid for the life of the heap; elements are
// never compacted.
type Heap struct {
	elements []interface{} // *ArrayElement or *ObjectElement
}

func NewHeap() *Heap { return &Heap{} }

// AllocateArray boxes the given values and returns an array-pointer value.
func (h *Heap) AllocateArray(values []StackValue) StackValue {
	elem := &ArrayElement{Values: append([]StackValue(nil), values...)}
	h.elements = append(h.elements, elem)
	return ArrayPointerValue(len(h.elements) - 1)
}

// AllocateObject boxes a class instance with fieldCount invalid-initialized
// members and returns a pointer value.
func (h *Heap) AllocateObject(classIndex, fieldCount int) StackValue {
	fields := make([]StackValue, fieldCount)
	for i := range fields {
		fields[i] = InvalidValue
	}
	h.elements = append(h.elements, &ObjectElement{Class: classIndex, Fields: fields})
	return PointerValue(len(h.elements) - 1)
}

// Array resolves an array handle. The handle must come from a
// TypeArrayPointer stack value belonging to this heap.
func (h *Heap) Array(handle int) (*ArrayElement, error) {
	e, err := h.element(handle)
	if err != nil {
		return nil, err
	}
	arr, ok := e.(*ArrayElement)
	if !ok {
		return nil, fmt.Errorf("heap handle %d is not an array", handle)
	}
	return arr, nil
}

// Object resolves a class-instance handle.
func (h *Heap) Object(handle int) (*ObjectElement, error) {
	e, err := h.element(handle)
	if err != nil {
		return nil, err
	}
	obj, ok := e.(*ObjectElement)
	if !ok {
		return nil, fmt.Errorf("heap handle %d is not a class instance", handle)
	}
	return obj, nil
}

func (h *Heap) element(handle int) (interface{}, error) {
	if handle < 0 || handle >= len(h.elements) {
		return nil, fmt.Errorf("heap handle %d out of range", handle)
	}
	return h.elements[handle], nil
}

// Size reports the number of live elements (handles ever allocated).
func (h *Heap) Size() int { return len(h.elements) }

// values_test.go
package protocore

import "testing"

func Test_Values_Equal_Scalars(t *testing.T) {
	heap := NewHeap()
	cases := []struct {
		a, b StackValue
		want bool
	}{
		{IntValue(1), IntValue(1), true},
		{IntValue(1), IntValue(2), false},
		{IntValue(2), DoubleValue(2.0), true}, // numeric cross-compare
		{DoubleValue(2.5), IntValue(2), false},
		{StringValue("a"), StringValue("a"), true},
		{StringValue("a"), IntValue(1), false},
		{NullValue, NullValue, true},
		{InvalidValue, InvalidValue, true},
	}
	for _, tc := range cases {
		if got := ValuesEqual(tc.a, tc.b, heap); got != tc.want {
			t.Fatalf("ValuesEqual(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func Test_Values_Equal_ArraysByContent(t *testing.T) {
	heap := NewHeap()
	a := heap.AllocateArray([]StackValue{IntValue(1), IntValue(2)})
	b := heap.AllocateArray([]StackValue{IntValue(1), IntValue(2)})
	c := heap.AllocateArray([]StackValue{IntValue(1), IntValue(3)})

	if !ValuesEqual(a, b, heap) {
		t.Fatal("structurally equal arrays must compare equal")
	}
	if ValuesEqual(a, c, heap) {
		t.Fatal("arrays with different members must not compare equal")
	}
	// Without a heap only the handles can be compared.
	if ValuesEqual(a, b, nil) {
		t.Fatal("nil heap must fall back to raw handle comparison")
	}
}

func selfRefArray(heap *Heap, n int64) StackValue {
	v := heap.AllocateArray([]StackValue{IntValue(n)})
	arr, _ := heap.Array(v.Handle())
	arr.Values = append(arr.Values, v)
	return v
}

func Test_Values_Equal_CyclicArraysTerminate(t *testing.T) {
	heap := NewHeap()
	a := selfRefArray(heap, 1)

	// Identity: the comparison must terminate, not recurse forever.
	if !ValuesEqual(a, a, heap) {
		t.Fatal("a self-referential array must equal itself")
	}

	// Two distinct but structurally identical cycles compare equal.
	b := selfRefArray(heap, 1)
	if !ValuesEqual(a, b, heap) {
		t.Fatal("structurally identical cycles must compare equal")
	}

	// Differing scalar members still distinguish cyclic arrays.
	c := selfRefArray(heap, 2)
	if ValuesEqual(a, c, heap) {
		t.Fatal("cycles with different members must not compare equal")
	}

	// Cyclic vs acyclic of the same length differ on the nested member.
	flat := heap.AllocateArray([]StackValue{IntValue(1), IntValue(1)})
	if ValuesEqual(a, flat, heap) {
		t.Fatal("cyclic array must not equal a flat array")
	}
}

// unpack_test.go
package protocore

import (
	"errors"
	"testing"
)

func Test_Unpack_Scalars(t *testing.T) {
	_, m := newTestMirror(t, "")
	cases := []struct {
		v    StackValue
		want interface{}
	}{
		{IntValue(7), int64(7)},
		{DoubleValue(1.5), 1.5},
		{BoolValue(false), false},
		{StringValue("s"), "s"},
		{CharValue('q'), 'q'},
		{FunctionPointerValue(3), 3},
		{NullValue, nil},
	}
	for _, tc := range cases {
		obj, err := m.Unpack(tc.v)
		if err != nil {
			t.Fatalf("Unpack(%v): %v", tc.v, err)
		}
		if obj.Kind != tc.v.Kind {
			t.Fatalf("Unpack(%v).Kind = %s, want %s", tc.v, obj.Kind, tc.v.Kind)
		}
		if obj.Payload != tc.want {
			t.Fatalf("Unpack(%v).Payload = %#v, want %#v", tc.v, obj.Payload, tc.want)
		}
		if obj.Raw != tc.v {
			t.Fatalf("Unpack(%v) lost the raw value: %v", tc.v, obj.Raw)
		}
	}
}

func Test_Unpack_NestedArray(t *testing.T) {
	_, m := newTestMirror(t, "")
	heap := m.Memory().Heap
	inner := intArray(heap, 2, 3)
	outer := heap.AllocateArray([]StackValue{IntValue(1), inner})

	obj, err := m.Unpack(outer)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	arr, ok := obj.Payload.(*DsasmArray)
	if !ok {
		t.Fatalf("payload is %T, want *DsasmArray", obj.Payload)
	}
	if len(arr.Members) != 2 || arr.Members[0].Payload != int64(1) {
		t.Fatalf("outer members = %#v", arr.Members)
	}
	nested, ok := arr.Members[1].Payload.(*DsasmArray)
	if !ok || len(nested.Members) != 2 || nested.Members[1].Payload != int64(3) {
		t.Fatalf("nested members = %#v", arr.Members[1].Payload)
	}
}

func Test_Unpack_SnapshotDoesNotAliasHeap(t *testing.T) {
	_, m := newTestMirror(t, "")
	heap := m.Memory().Heap
	v := intArray(heap, 1, 2, 3)

	obj, err := m.Unpack(v)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	// Mutate the live array after unpacking; the snapshot must not move.
	live, _ := heap.Array(v.Handle())
	live.Values[0] = IntValue(99)

	arr := obj.Payload.(*DsasmArray)
	if arr.Members[0].Payload != int64(1) {
		t.Fatalf("snapshot changed under heap mutation: %#v", arr.Members[0].Payload)
	}
}

func Test_Unpack_CycleYieldsHandleStub(t *testing.T) {
	_, m := newTestMirror(t, "")
	heap := m.Memory().Heap
	self := intArray(heap, 1)
	live, _ := heap.Array(self.Handle())
	live.Values = append(live.Values, self)

	obj, err := m.Unpack(self)
	if err != nil {
		t.Fatalf("Unpack of cyclic array: %v", err)
	}
	arr := obj.Payload.(*DsasmArray)
	if len(arr.Members) != 2 {
		t.Fatalf("members = %#v", arr.Members)
	}
	stub := arr.Members[1]
	if stub.Kind != TypeArrayPointer {
		t.Fatalf("cycle stub kind = %s", stub.Kind)
	}
	if handle, ok := stub.Payload.(int); !ok || handle != self.Handle() {
		t.Fatalf("cycle stub payload = %#v, want handle %d", stub.Payload, self.Handle())
	}
}

func Test_Unpack_UnknownTagFails(t *testing.T) {
	_, m := newTestMirror(t, "")
	bogus := StackValue{Kind: AddressType(99)}
	_, err := m.Unpack(bogus)
	var uf *UnsupportedFeatureError
	if !errors.As(err, &uf) {
		t.Fatalf("expected UnsupportedFeatureError, got %v", err)
	}
}

func Test_Unpack_Repack_RoundTrip(t *testing.T) {
	_, m := newTestMirror(t, "")
	heap := m.Memory().Heap
	original := intArray(heap, 1, 2, 3)

	obj, err := m.Unpack(original)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	back, err := m.Repack(obj, heap)
	if err != nil {
		t.Fatalf("Repack: %v", err)
	}
	if back.Kind != TypeArrayPointer {
		t.Fatalf("repacked kind = %s", back.Kind)
	}
	if back.Handle() == original.Handle() {
		t.Fatal("Repack must allocate a fresh array, not reuse the handle")
	}
	if !ValuesEqual(original, back, heap) {
		t.Fatal("round trip lost values")
	}
}

// marshal.go
//
// Boundary to the foreign-language interop layer. Instances of imported
// classes do not expose their fields through the class symbol table; their
// entire string form is delegated to the host's marshaler.
package protocore

// ForeignMarshaler renders instances of imported classes. Implementations
// live outside this package (the interop layer); the mirror only calls
// MarshalToString while the executive is paused.
type ForeignMarshaler interface {
	MarshalToString(class *ClassNode, obj *ObjectElement, heap *Heap) string
}

// SetForeignMarshaler installs the marshaler used for imported-class traces.
// A nil marshaler makes imported instances render like ordinary classes.
func (m *ExecutionMirror) SetForeignMarshaler(fm ForeignMarshaler) { m.marshaler = fm }

package scripthost

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// HostCallback is a Go function registered against a name and capability.
// It receives the call's arguments and returns a single value. Any
// application state it needs should be captured in its closure, the same
// way a registered callback would close over host state in any other
// embedding of this protocol; a registration-time error belongs to
// Builder.Register/Done, a call-time error belongs in the returned Param
// via HostErrorParam.
type HostCallback func(params *Params) Param

// BindingKind is the guest-visible calling convention derived from how a
// function's name was written at registration time.
type BindingKind int

const (
	// BindingFree is a plain function, e.g. "log".
	BindingFree BindingKind = iota
	// BindingStatic is "Class::method": guest sees it as a static member
	// with no implicit receiver.
	BindingStatic
	// BindingInstance is "Class:method": guest sees it as an instance
	// method, and the trampoline prepends an implicit Object parameter
	// carrying the receiver's opaque handle.
	BindingInstance
)

// ScriptFnParameter describes one formal parameter of a registered
// function, in registration order.
type ScriptFnParameter struct {
	Name        string
	Type        DataType
	TypeDisplay string // human-facing type name for DumpSpecs; defaults to Type.String()
}

// ScriptFnMetadata fully describes a function a host has registered:
// its name, owning capability, callback, declared parameters and return
// type, and an optional doc comment surfaced only by DumpSpecs.
type ScriptFnMetadata struct {
	Name       string
	Capability string
	Callback   HostCallback
	Params     []ScriptFnParameter
	Return     DataType
	Doc        string

	Binding    BindingKind
	ClassName  string
	MethodName string
}

// newScriptFnMetadata derives Binding/ClassName/MethodName from name and
// returns the populated metadata. name conventions:
//
//	"log"              -> BindingFree,     MethodName "log"
//	"Vec3::length"     -> BindingStatic,   ClassName "Vec3", MethodName "length"
//	"Entity:position"  -> BindingInstance, ClassName "Entity", MethodName "position"
func newScriptFnMetadata(name, capability string, callback HostCallback, doc string) (*ScriptFnMetadata, error) {
	m := &ScriptFnMetadata{Name: name, Capability: capability, Callback: callback, Doc: doc, Return: DataTypeVoid}

	switch {
	case strings.Contains(name, "::"):
		parts := strings.SplitN(name, "::", 2)
		m.Binding = BindingStatic
		m.ClassName, m.MethodName = parts[0], parts[1]
	case strings.Contains(name, ":"):
		parts := strings.SplitN(name, ":", 2)
		m.Binding = BindingInstance
		m.ClassName, m.MethodName = parts[0], parts[1]
	default:
		m.Binding = BindingFree
		m.MethodName = name
	}

	if m.MethodName == "" {
		return nil, fmt.Errorf("function name %q has no method part", name)
	}
	if callback == nil {
		return nil, fmt.Errorf("function %q was registered with a nil callback", name)
	}
	return m, nil
}

// EffectiveParams returns Params with an implicit leading "self" Object
// parameter when Binding is BindingInstance, matching what both engine
// adapters actually reconstruct before invoking Callback.
func (m *ScriptFnMetadata) EffectiveParams() []ScriptFnParameter {
	if m.Binding != BindingInstance {
		return m.Params
	}
	out := make([]ScriptFnParameter, 0, len(m.Params)+1)
	out = append(out, ScriptFnParameter{Name: "self", Type: DataTypeObject, TypeDisplay: m.ClassName})
	out = append(out, m.Params...)
	return out
}

// InternalName is the Wasm import name this function is bound under:
// _{snake(capability)}_{snake(flattened name)}.
func (m *ScriptFnMetadata) InternalName() string {
	flat := m.MethodName
	if m.ClassName != "" {
		flat = m.ClassName + "_" + m.MethodName
	}
	return "_" + strcase.ToSnake(m.Capability) + "_" + strcase.ToSnake(flat)
}

// IsWasmSimple reports whether every parameter and the return type are
// wire-scalar. Neither engine adapter branches on it: the Wasm adapter has
// no typed fast-call path and sends every call through the general
// dynamic dispatch path.
func (m *ScriptFnMetadata) IsWasmSimple() bool {
	if !m.Return.IsSimple() && m.Return != DataTypeVoid {
		return false
	}
	for _, p := range m.EffectiveParams() {
		if !p.Type.IsSimple() {
			return false
		}
	}
	return true
}

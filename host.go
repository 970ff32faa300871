package scripthost

import (
	"fmt"
	"unsafe"
)

// Host is one loaded guest script plus everything it needs to call back
// into the registered Go functions: the shared engine-data state, the
// function table, and the required API version constraints. Construct one
// via Builder.Build.
type Host struct {
	// Engine is the concrete guest runtime. Assign a constructed
	// engines/wazero or engines/lua engine here before LoadScript; it
	// defaults to an engine under which LoadScript, CallFn,
	// FastCallUpdate and FastCallFixedUpdate fail with "no active engine"
	// so a Host is never left silently inert.
	Engine Engine

	state    *EngineDataState
	fns      map[string]*ScriptFnMetadata
	versions VersionTable
	hooks    HostHooks
}

// LoadScript installs capabilities as the active set and asks Engine to
// compile/instantiate source against the registered function table. If
// the guest advertises API versions for any capability, they're checked
// against the Host's required VersionTable before returning success.
func (h *Host) LoadScript(source []byte, capabilities []string) error {
	h.state.SetActiveCapabilities(capabilities)
	if err := h.Engine.LoadScript(source, h.state, h.fns); err != nil {
		return fmt.Errorf("loading script: %w", err)
	}
	for capability, guestVersion := range h.Engine.APIVersions() {
		ok, err := h.versions.Satisfies(capability, guestVersion)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("capability %q guest API version %s does not satisfy required constraint %q",
				capability, guestVersion, h.versions[capability])
		}
	}
	return nil
}

// CallFn invokes the guest export named name. A guest that doesn't export
// it, a reentrant guest→host→guest attempt, or any call-time failure all
// come back as an in-band Param carrying DataTypeHostError — CallFn itself
// never returns a Go error, per the error-handling design in
// SPEC_FULL.md §7.
func (h *Host) CallFn(name string, params *Params, ret DataType) Param {
	if _, none := h.Engine.(noEngine); none {
		return HostErrorParam(errNoActiveEngine)
	}
	key, ok := h.Engine.GetFnKey(name)
	if !ok {
		return HostErrorParam(fmt.Sprintf("guest does not export function %q", name))
	}

	leave, ok := h.state.EnterCall()
	if !ok {
		return HostErrorParam("reentrant guest call refused: a host callback is already dispatching into the guest")
	}
	defer leave()

	result := h.Engine.CallFn(key, params, ret)
	if leaked := h.state.ClearFrameQueues(); leaked {
		h.hooks.logCritical("bulk-value queues were not fully drained by end of call; clearing to avoid leaking into the next frame")
	}
	return result
}

// RegisterObject returns the stable Object handle for ptr through the
// opaque pointer registry (C3 in SPEC_FULL.md), the canonical way a
// HostCallback exposes a raw Go pointer to a guest without letting it
// dereference anything. Calling it twice with the same pointer returns
// the same handle; ptr == nil maps to NullHandle.
func (h *Host) RegisterObject(ptr unsafe.Pointer) Param {
	return ObjectParam(h.state.Pointers.GetOrInsert(uintptr(ptr)))
}

// ResolveObject reverses RegisterObject: given an Object Param a guest
// passed into a HostCallback, it returns the original pointer, or false
// if p isn't an Object or its handle is stale.
func (h *Host) ResolveObject(p Param) (unsafe.Pointer, bool) {
	handle, ok := p.Object()
	if !ok {
		return nil, false
	}
	ptr, ok := h.state.Pointers.Resolve(handle)
	return unsafe.Pointer(ptr), ok
}

// FastCallUpdate invokes the guest's optional on_update export, if any.
func (h *Host) FastCallUpdate(deltaTime float32) error {
	return h.Engine.FastCallUpdate(deltaTime)
}

// FastCallFixedUpdate invokes the guest's optional on_fixed_update
// export, if any.
func (h *Host) FastCallFixedUpdate(deltaTime float32) error {
	return h.Engine.FastCallFixedUpdate(deltaTime)
}

// DumpSpecs writes one `<capability>.json` file per registered capability
// describing every function registered under it.
func (h *Host) DumpSpecs(dir string) error {
	return DumpSpecs(dir, h.fns, h.versions)
}

// Close releases the active engine's resources, if any.
func (h *Host) Close() error {
	return h.Engine.Close()
}

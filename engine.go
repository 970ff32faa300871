package scripthost

import "fmt"

// errNoActiveEngine is returned (wrapped in a Param, or as a plain error
// where the call site returns one) whenever a Host operation needs a
// loaded guest engine and none is active yet.
const errNoActiveEngine = "no active engine"

// Engine is implemented by a concrete guest runtime adapter — one per
// guest language, living in its own Go module under engines/ so this
// package never has to import wazero or a Lua binding directly. This
// mirrors the Engine/Module/Instance split the teacher uses to support
// multiple Wasm backends behind one interface, generalized here to
// multiple guest *languages* behind one interface instead.
type Engine interface {
	// LoadScript compiles/instantiates source against the given function
	// table and shared state, replacing whatever was previously loaded.
	LoadScript(source []byte, state *EngineDataState, fns map[string]*ScriptFnMetadata) error

	// CallFn invokes the guest export previously resolved to key.
	CallFn(key FnKey, params *Params, ret DataType) Param

	// GetFnKey resolves name to a cached key, compiling the lookup once
	// per load. ok is false if the guest doesn't export name.
	GetFnKey(name string) (FnKey, bool)

	// FastCallUpdate/FastCallFixedUpdate invoke the guest's optional
	// `on_update`/`on_fixed_update` exports, if present, as a no-op
	// otherwise.
	FastCallUpdate(deltaTime float32) error
	FastCallFixedUpdate(deltaTime float32) error

	// APIVersions returns the semver each `_<capability>_semver` export
	// reported at load time, keyed by capability.
	APIVersions() map[string]Semver

	Close() error
}

// noEngine is the Engine Build installs, in effect until the embedder
// assigns a real one to Host.Engine. LoadScript, CallFn, FastCallUpdate
// and FastCallFixedUpdate fail with the "no active engine" message;
// GetFnKey finds no export, APIVersions is empty and Close does nothing.
type noEngine struct{}

func (noEngine) LoadScript([]byte, *EngineDataState, map[string]*ScriptFnMetadata) error {
	return fmt.Errorf(errNoActiveEngine)
}

func (noEngine) CallFn(FnKey, *Params, DataType) Param { return HostErrorParam(errNoActiveEngine) }

func (noEngine) GetFnKey(string) (FnKey, bool) { return 0, false }

func (noEngine) FastCallUpdate(float32) error      { return fmt.Errorf(errNoActiveEngine) }
func (noEngine) FastCallFixedUpdate(float32) error { return fmt.Errorf(errNoActiveEngine) }

func (noEngine) APIVersions() map[string]Semver { return nil }

func (noEngine) Close() error { return nil }

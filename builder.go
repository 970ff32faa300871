package scripthost

import "fmt"

// Builder accumulates function registrations and host configuration, then
// produces a Host ready to load a guest script. A function name already
// registered under a Builder is rejected, matching the "already
// registered" check a host setup step always needs.
type Builder struct {
	fns      map[string]*ScriptFnMetadata
	versions VersionTable
	hooks    HostHooks
	err      error
}

// NewBuilder returns an empty Builder with default (no-op) host hooks.
func NewBuilder() *Builder {
	return &Builder{
		fns:      make(map[string]*ScriptFnMetadata),
		versions: VersionTable{},
		hooks:    DefaultHostHooks(),
	}
}

// WithHooks overrides the logging/abort hooks used by the resulting Host.
func (b *Builder) WithHooks(hooks HostHooks) *Builder {
	b.hooks = hooks
	return b
}

// RequireAPIVersion registers a minimum semver constraint a guest must
// advertise for capability via its `_<capability>_semver` export, if it
// has one. Capabilities with no constraint registered are never rejected.
func (b *Builder) RequireAPIVersion(capability, constraint string) *Builder {
	b.versions[capability] = constraint
	return b
}

// Register starts describing a new function named name, under
// capability, backed by callback. name determines its guest-visible
// binding convention: "log" is free, "Vec3::length" is static,
// "Entity:position" is an instance method with an implicit receiver.
func (b *Builder) Register(name, capability string, callback HostCallback, doc string) *FnBuilder {
	if b.err != nil {
		return &FnBuilder{builder: b, err: b.err}
	}
	if _, exists := b.fns[name]; exists {
		err := fmt.Errorf("a function named %q has already been registered", name)
		b.err = err
		return &FnBuilder{builder: b, err: err}
	}
	meta, err := newScriptFnMetadata(name, capability, callback, doc)
	if err != nil {
		b.err = err
		return &FnBuilder{builder: b, err: err}
	}
	return &FnBuilder{builder: b, meta: meta}
}

// Build finalizes registration and returns a Host with no engine
// installed yet (see Host.Engine) and no script loaded. It fails if any
// earlier Register/Param/Return/Done call failed.
func (b *Builder) Build() (*Host, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Host{
		Engine:   noEngine{},
		state:    NewEngineDataState(),
		fns:      b.fns,
		versions: b.versions,
		hooks:    b.hooks,
	}, nil
}

// FnBuilder describes one function's parameter list and return type. Call
// Param for each parameter in order, then Done to commit the
// registration (or Return first, if the function returns a value).
type FnBuilder struct {
	builder *Builder
	meta    *ScriptFnMetadata
	err     error
}

// Param appends a parameter. typeDisplay optionally overrides the
// human-facing type name DumpSpecs reports (e.g. an enum's Go type name
// instead of the underlying DataTypeU32).
func (f *FnBuilder) Param(dt DataType, name string, typeDisplay ...string) *FnBuilder {
	if f.err != nil {
		return f
	}
	if !dt.IsValidParamType() {
		f.err = fmt.Errorf("invalid parameter type for %q at position %d: %s", f.meta.Name, len(f.meta.Params), dt)
		return f
	}
	display := dt.String()
	if len(typeDisplay) > 0 {
		display = typeDisplay[0]
	}
	f.meta.Params = append(f.meta.Params, ScriptFnParameter{Name: name, Type: dt, TypeDisplay: display})
	return f
}

// Return sets the function's single return type. Functions that return
// nothing should omit this call; Return defaults to DataTypeVoid.
func (f *FnBuilder) Return(dt DataType) *FnBuilder {
	if f.err != nil {
		return f
	}
	if !dt.IsValidReturnType() {
		f.err = fmt.Errorf("invalid return type for %q: %s", f.meta.Name, dt)
		return f
	}
	f.meta.Return = dt
	return f
}

// Done commits the registration to the owning Builder. A Param/Return
// error surfaces here too (not just from Done's own return value): it's
// latched onto the owning Builder so a later Build() call also fails,
// matching the duplicate-name failure Register already latches.
func (f *FnBuilder) Done() error {
	if f.err != nil {
		f.builder.err = f.err
		return f.err
	}
	f.builder.fns[f.meta.Name] = f.meta
	return nil
}

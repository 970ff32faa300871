package scripthost

import "sync"

// HostHooks are the handful of host-provided effects a guest callback may
// trigger that aren't themselves part of the typed value protocol:
// logging and an unrecoverable abort. A zero-value HostHooks is valid and
// backed by a no-op logger (see logging.go's DefaultHostHooks).
type HostHooks struct {
	LogInfo     func(msg string)
	LogWarn     func(msg string)
	LogDebug    func(msg string)
	LogCritical func(msg string)
	// Abort is the hook for an error the protocol can't recover from
	// in-band. No code path in this package calls it: InstallPanicHook
	// logs and re-panics without it, and both engine adapters recover
	// callback panics themselves. When Abort is nil, the internal abort
	// helper panics instead.
	Abort func(kind, message string)
}

func (h HostHooks) logInfo(msg string) {
	if h.LogInfo != nil {
		h.LogInfo(msg)
	}
}

func (h HostHooks) logWarn(msg string) {
	if h.LogWarn != nil {
		h.LogWarn(msg)
	}
}

func (h HostHooks) logDebug(msg string) {
	if h.LogDebug != nil {
		h.LogDebug(msg)
	}
}

func (h HostHooks) logCritical(msg string) {
	if h.LogCritical != nil {
		h.LogCritical(msg)
	}
}

func (h HostHooks) abort(kind, message string) {
	if h.Abort != nil {
		h.Abort(kind, message)
		return
	}
	panic(kind + ": " + message)
}

// EngineDataState holds everything shared between a Host and whichever
// engine adapter is currently loaded: the opaque pointer registry, the
// bulk-value queues, and the set of capabilities the current script was
// loaded with. Builder.Build creates one per Host and it lives as long as
// the Host; each LoadScript replaces only its active capability set.
type EngineDataState struct {
	mu sync.RWMutex

	Pointers PointerRegistry[uintptr]
	Strings  StringCache
	Floats   F32Queue
	Buffers  U32BufferQueue

	activeCapabilities map[string]struct{}
	reentrant          bool
}

// NewEngineDataState returns a ready-to-use, empty state.
func NewEngineDataState() *EngineDataState {
	return &EngineDataState{activeCapabilities: make(map[string]struct{})}
}

// SetActiveCapabilities replaces the active capability set wholesale, as
// happens on every LoadScript.
func (s *EngineDataState) SetActiveCapabilities(caps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCapabilities = make(map[string]struct{}, len(caps))
	for _, c := range caps {
		s.activeCapabilities[c] = struct{}{}
	}
}

// CapabilityActive reports whether capability is in the current active
// set. Checked by both engine adapters before every host-callback
// invocation (C9 in SPEC_FULL.md).
func (s *EngineDataState) CapabilityActive(capability string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.activeCapabilities[capability]
	return ok
}

// EnterCall marks reentrancy depth for the duration of one host→guest
// call, returning false (refusing entry) if a guest→host→guest call would
// otherwise be made. Callers must call the returned leave func exactly
// once, typically via defer.
func (s *EngineDataState) EnterCall() (leave func(), ok bool) {
	s.mu.Lock()
	if s.reentrant {
		s.mu.Unlock()
		return func() {}, false
	}
	s.reentrant = true
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.reentrant = false
		s.mu.Unlock()
	}, true
}

// ClearFrameQueues empties the bulk-value queues and reports whether any
// of them still held entries before being cleared. Called at the end of
// each top-level CallFn as the leak check described in SPEC_FULL.md §8:
// a call that marshals exactly as many aggregates/strings/buffers as it
// enqueued must leave every queue empty on its own; a non-empty queue at
// this point means some call along the way left traffic undrained, and
// it's cleared here so it doesn't bleed into the next frame.
func (s *EngineDataState) ClearFrameQueues() (leaked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	leaked = s.Strings.Len() != 0 || s.Floats.Len() != 0 || s.Buffers.Len() != 0
	s.Strings.Clear()
	s.Floats.Clear()
	s.Buffers.Clear()
	return leaked
}

package scripthost

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Semver is a guest-advertised API version for one capability. A guest
// module exports a nullary `_<capability>_semver` function returning a
// packed uint64; Host.LoadScript checks it against the constraint a host
// registered for that capability in VersionTable.
type Semver struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// PackedSemver unpacks the wire format used by guest `_<capability>_semver`
// exports: (major<<32)|(minor<<16)|patch.
func PackedSemver(bits uint64) Semver {
	return Semver{
		Major: uint32(bits >> 32),
		Minor: uint32((bits >> 16) & 0xFFFF),
		Patch: uint32(bits & 0xFFFF),
	}
}

// Pack returns the wire encoding read by PackedSemver.
func (v Semver) Pack() uint64 {
	return uint64(v.Major)<<32 | uint64(v.Minor&0xFFFF)<<16 | uint64(v.Patch&0xFFFF)
}

func (v Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AsSemverVersion converts to *semver.Version for constraint matching.
func (v Semver) AsSemverVersion() (*semver.Version, error) {
	return semver.NewVersion(v.String())
}

// VersionTable maps a capability name to the minimum guest API version a
// host requires for it. Satisfies checks whether a guest-advertised
// version meets the constraint registered for its capability.
type VersionTable map[string]string

// Satisfies reports whether guestVersion meets the semver constraint this
// table registered for capability. A capability with no entry is always
// satisfied (the host didn't ask for a minimum).
func (t VersionTable) Satisfies(capability string, guestVersion Semver) (bool, error) {
	constraintStr, ok := t[capability]
	if !ok {
		return true, nil
	}
	constraint, err := semver.NewConstraint(constraintStr)
	if err != nil {
		return false, fmt.Errorf("invalid version constraint for capability %q: %w", capability, err)
	}
	v, err := guestVersion.AsSemverVersion()
	if err != nil {
		return false, fmt.Errorf("guest reported invalid semver for capability %q: %w", capability, err)
	}
	return constraint.Check(v), nil
}

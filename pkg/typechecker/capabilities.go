package typechecker

import "strings"

// Capability names a trait whose presence the checker tracks per type.
type Capability string

const (
	CapSend       Capability = "Send"
	CapSync       Capability = "Sync"
	CapCopy       Capability = "Copy"
	CapClone      Capability = "Clone"
	CapPartialEq  Capability = "PartialEq"
	CapEq         Capability = "Eq"
	CapPartialOrd Capability = "PartialOrd"
	CapOrd        Capability = "Ord"
	CapHash       Capability = "Hash"
	CapDebug      Capability = "Debug"
	CapDefault    Capability = "Default"
)

var capabilityOrder = []Capability{
	CapSend, CapSync, CapCopy, CapClone, CapPartialEq, CapEq,
	CapPartialOrd, CapOrd, CapHash, CapDebug, CapDefault,
}

var capabilityBits = func() map[Capability]CapabilitySet {
	bits := make(map[Capability]CapabilitySet, len(capabilityOrder))
	for i, c := range capabilityOrder {
		bits[c] = 1 << uint(i)
	}
	return bits
}()

// LookupCapability resolves a trait name to a tracked capability.
func LookupCapability(name string) (Capability, bool) {
	c := Capability(name)
	_, ok := capabilityBits[c]
	return c, ok
}

// CapabilitySet is a set of capabilities stored as a bit mask.
type CapabilitySet uint32

func CapabilitiesOf(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= capabilityBits[c]
	}
	return s
}

// AllCapabilities contains every tracked capability.
var AllCapabilities = CapabilitiesOf(capabilityOrder...)

var (
	autoTraits       = CapabilitiesOf(CapSend, CapSync)
	comparisonTraits = CapabilitiesOf(CapPartialEq, CapEq, CapPartialOrd, CapOrd, CapHash)
)

func (s CapabilitySet) Has(c Capability) bool {
	bit, ok := capabilityBits[c]
	return ok && s&bit != 0
}

func (s CapabilitySet) With(caps ...Capability) CapabilitySet {
	return s | CapabilitiesOf(caps...)
}

func (s CapabilitySet) Without(caps ...Capability) CapabilitySet {
	return s &^ CapabilitiesOf(caps...)
}

func (s CapabilitySet) Intersect(other CapabilitySet) CapabilitySet {
	return s & other
}

func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	return s | other
}

// Names lists the set members in a stable order.
func (s CapabilitySet) Names() []string {
	var out []string
	for _, c := range capabilityOrder {
		if s.Has(c) {
			out = append(out, string(c))
		}
	}
	return out
}

func (s CapabilitySet) String() string {
	return "{" + strings.Join(s.Names(), ", ") + "}"
}

// intersectAll folds the intersection over every member; the empty fold is AllCapabilities.
func intersectAll(sets ...CapabilitySet) CapabilitySet {
	out := AllCapabilities
	for _, s := range sets {
		out &= s
	}
	return out
}

// variantAgnostic lists capabilities that can be derived for an untagged union:
// their implementation never needs to know which variant is active.
var variantAgnostic = CapabilitiesOf(CapSend, CapSync, CapCopy)

// requiresActiveVariant lists derivable traits whose generated code would
// have to inspect the active variant.
var requiresActiveVariant = CapabilitiesOf(
	CapPartialEq, CapEq, CapPartialOrd, CapOrd, CapHash, CapDebug, CapDefault,
)

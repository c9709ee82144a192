package typechecker

import (
	"fmt"

	"untagged/checker-go/pkg/ast"
)

// DeriveVerdict records the outcome of one derive request on a union.
type DeriveVerdict struct {
	Union      string
	Capability string
	Accepted   bool
	Reason     string
}

// ensureDerives checks the union's derive list once per module.
func (c *Checker) ensureDerives(u *UnionType) []Diagnostic {
	if !c.localUnions[u] || c.derivesChecked[u] {
		return nil
	}
	c.derivesChecked[u] = true
	return c.checkDerives(u)
}

// checkDerives accepts a derive only for variant-agnostic capabilities that
// every payload type already provides.
func (c *Checker) checkDerives(u *UnionType) []Diagnostic {
	var diags []Diagnostic
	node := deriveNode(u)
	requested := derivedSet(u.Derives)
	var accepted CapabilitySet

	for _, name := range u.Derives {
		reject := func(reason string, msg string) {
			c.derives = append(c.derives, DeriveVerdict{Union: u.UnionName, Capability: name, Reason: reason})
			diags = append(diags, Diagnostic{Message: msg, Node: node})
		}
		if name == "Drop" {
			reject("drop glue is never generated", fmt.Sprintf("typechecker: cannot derive Drop for untagged union %s: drop glue is never generated; implement Drop by hand", u.UnionName))
			continue
		}
		capability, ok := LookupCapability(name)
		if !ok {
			reject("unknown capability", fmt.Sprintf("typechecker: unknown derivable capability '%s' on %s", name, u.UnionName))
			continue
		}
		if requiresActiveVariant.Has(capability) || (capability == CapClone && !requested.Has(CapCopy)) {
			reject("cannot determine active variant", fmt.Sprintf("typechecker: cannot derive %s for untagged union %s: cannot determine active variant", name, u.UnionName))
			continue
		}
		if capability == CapCopy && u.CustomDrop() {
			reject("conflicts with Drop", fmt.Sprintf("typechecker: untagged union %s cannot derive Copy because it implements Drop", u.UnionName))
			continue
		}
		check := capability
		if capability == CapClone {
			check = CapCopy
		}
		if missing, variant, ok := c.firstPayloadLacking(u, check); ok {
			reject(fmt.Sprintf("payload lacks %s", check), fmt.Sprintf("typechecker: cannot derive %s for untagged union %s: payload type %s of variant %s does not implement %s", name, u.UnionName, typeName(missing), variant, check))
			continue
		}
		accepted = accepted.With(capability)
		c.derives = append(c.derives, DeriveVerdict{Union: u.UnionName, Capability: name, Accepted: true})
	}
	u.derived = accepted
	delete(c.capCache, u)
	return diags
}

func (c *Checker) firstPayloadLacking(u *UnionType, capability Capability) (Type, string, bool) {
	for _, v := range u.Variants {
		for _, f := range v.Fields {
			if !c.capabilitiesOf(f.Type).Has(capability) {
				return f.Type, v.VariantName, true
			}
		}
	}
	return nil, "", false
}

func deriveNode(u *UnionType) ast.Node {
	if u.Decl == nil {
		return nil
	}
	for _, attr := range u.Decl.Attributes {
		if attr != nil && attr.Name == "derive" {
			return attr
		}
	}
	return u.Decl
}

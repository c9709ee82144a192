package typechecker

import (
	"fmt"
	"strings"
)

// PayloadPolicy decides which payload types an untagged union may hold.
// Unions never get drop glue, so a payload that owns resources would leak.
type PayloadPolicy string

const (
	// PolicyNoDrop rejects payloads that need drop unless wrapped in ManuallyDrop.
	PolicyNoDrop PayloadPolicy = "no-drop"
	// PolicyCopyOnly requires every payload to be Copy.
	PolicyCopyOnly PayloadPolicy = "copy-only"
	// PolicyPermissive only warns about payloads that need drop.
	PolicyPermissive PayloadPolicy = "permissive"
)

// ParsePayloadPolicy validates a policy name; the empty string selects the default.
func ParsePayloadPolicy(raw string) (PayloadPolicy, error) {
	switch PayloadPolicy(strings.TrimSpace(raw)) {
	case "", PolicyNoDrop:
		return PolicyNoDrop, nil
	case PolicyCopyOnly:
		return PolicyCopyOnly, nil
	case PolicyPermissive:
		return PolicyPermissive, nil
	default:
		return "", fmt.Errorf("typechecker: unknown payload policy %q (expected no-drop, copy-only or permissive)", raw)
	}
}

func (c *Checker) checkPayloadPolicy(u *UnionType) []Diagnostic {
	var diags []Diagnostic
	if u.impls.drop && u.impls.positive[CapCopy] {
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("typechecker: untagged union %s cannot implement both Copy and Drop", u.UnionName),
			Node:    u.Decl,
		})
	}
	for _, v := range u.Variants {
		for _, f := range v.Fields {
			if isUnknown(f.Type) {
				continue
			}
			node := fieldNode(f, v)
			switch c.opts.Policy {
			case PolicyCopyOnly:
				if !c.capabilitiesOf(f.Type).Has(CapCopy) {
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf("typechecker: payload type %s of variant %s::%s is not Copy (payload policy copy-only)", typeName(f.Type), u.UnionName, v.VariantName),
						Node:    node,
					})
				}
			case PolicyPermissive:
				if c.needsDrop(f.Type) {
					diags = append(diags, Diagnostic{
						Severity: SeverityWarning,
						Message:  fmt.Sprintf("typechecker: payload type %s of variant %s::%s needs drop but untagged unions never run drop glue", typeName(f.Type), u.UnionName, v.VariantName),
						Node:     node,
					})
				}
			default:
				if c.needsDrop(f.Type) {
					diags = append(diags, Diagnostic{
						Message: fmt.Sprintf("typechecker: payload type %s of variant %s::%s needs drop; wrap it in ManuallyDrop<%s>", typeName(f.Type), u.UnionName, v.VariantName, typeName(f.Type)),
						Node:    node,
					})
				}
			}
		}
	}
	return diags
}

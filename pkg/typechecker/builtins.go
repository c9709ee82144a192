package typechecker

// capabilitiesOf returns the capabilities type t provides.
func (c *Checker) capabilitiesOf(t Type) CapabilitySet {
	switch ty := t.(type) {
	case PrimitiveType:
		switch {
		case ty.IsFloat():
			return AllCapabilities.Without(CapEq, CapOrd, CapHash)
		case ty.Kind == PrimitiveStr:
			return AllCapabilities.Without(CapCopy, CapClone, CapDefault)
		case ty.Kind == PrimitiveNever:
			return AllCapabilities.Without(CapDefault)
		}
		return AllCapabilities
	case PointerType:
		return AllCapabilities.Without(CapSend, CapSync, CapDefault)
	case ReferenceType:
		elem := c.capabilitiesOf(ty.Elem)
		out := elem & (comparisonTraits | CapabilitiesOf(CapDebug))
		if elem.Has(CapSync) {
			out = out.With(CapSync)
			if !ty.Mutable {
				out = out.With(CapSend)
			}
		}
		if ty.Mutable {
			if elem.Has(CapSend) {
				out = out.With(CapSend)
			}
		} else {
			out = out.With(CapCopy, CapClone)
		}
		return out
	case ArrayType:
		return c.capabilitiesOf(ty.Elem)
	case SliceType:
		return c.capabilitiesOf(ty.Elem).Without(CapCopy, CapClone, CapDefault)
	case TupleType:
		sets := make([]CapabilitySet, len(ty.Elements))
		for i, el := range ty.Elements {
			sets[i] = c.capabilitiesOf(el)
		}
		return intersectAll(sets...)
	case BuiltinType:
		return c.builtinCapabilities(ty)
	case *StructType:
		return c.namedCapabilities(ty, func() CapabilitySet {
			return c.structCapabilities(ty)
		})
	case *EnumType:
		return c.namedCapabilities(ty, func() CapabilitySet {
			return c.enumCapabilities(ty)
		})
	case *UnionType:
		return c.namedCapabilities(ty, func() CapabilitySet {
			return c.unionCapabilities(ty)
		})
	default:
		return AllCapabilities
	}
}

func (c *Checker) builtinCapabilities(t BuiltinType) CapabilitySet {
	if t.Kind == BuiltinString {
		return AllCapabilities.Without(CapCopy)
	}
	elem := c.capabilitiesOf(t.Arg())
	switch t.Kind {
	case BuiltinVec:
		return elem&(autoTraits|comparisonTraits|CapabilitiesOf(CapClone, CapDebug)) | CapabilitiesOf(CapDefault)
	case BuiltinBox:
		return elem.Without(CapCopy)
	case BuiltinRc:
		return elem&(comparisonTraits|CapabilitiesOf(CapDebug, CapDefault)) | CapabilitiesOf(CapClone)
	case BuiltinArc:
		out := elem&(comparisonTraits|CapabilitiesOf(CapDebug, CapDefault)) | CapabilitiesOf(CapClone)
		if elem.Has(CapSend) && elem.Has(CapSync) {
			out = out.With(CapSend, CapSync)
		}
		return out
	case BuiltinCell:
		out := elem & CapabilitiesOf(CapSend, CapDefault)
		if elem.Has(CapCopy) {
			out |= elem & CapabilitiesOf(CapClone, CapPartialEq, CapEq, CapPartialOrd, CapOrd, CapDebug)
		}
		return out
	case BuiltinRefCell:
		return elem & CapabilitiesOf(CapSend, CapClone, CapPartialEq, CapEq, CapPartialOrd, CapOrd, CapDebug, CapDefault)
	case BuiltinManuallyDrop:
		return elem
	case BuiltinOption:
		return elem.With(CapDefault)
	default:
		return AllCapabilities
	}
}

// namedCapabilities memoizes capability sets of user types. A type that
// refers to itself is assumed to have every capability while in progress.
func (c *Checker) namedCapabilities(t Type, compute func() CapabilitySet) CapabilitySet {
	if caps, ok := c.capCache[t]; ok {
		return caps
	}
	if c.capInProgress[t] {
		return AllCapabilities
	}
	c.capInProgress[t] = true
	caps := compute()
	delete(c.capInProgress, t)
	c.capCache[t] = caps
	return caps
}

func (c *Checker) fieldCapabilities(fields []FieldType) CapabilitySet {
	sets := make([]CapabilitySet, len(fields))
	for i, f := range fields {
		sets[i] = c.capabilitiesOf(f.Type)
	}
	return intersectAll(sets...)
}

func derivedSet(names []string) CapabilitySet {
	var out CapabilitySet
	for _, name := range names {
		if capability, ok := LookupCapability(name); ok {
			out = out.With(capability)
		}
	}
	return out
}

// applyImpls folds explicit and negative impls into a computed set.
func applyImpls(caps CapabilitySet, impls declaredImpls) CapabilitySet {
	for capability := range impls.positive {
		caps = caps.With(capability)
	}
	for capability := range impls.negative {
		caps = caps.Without(capability)
	}
	if impls.drop {
		caps = caps.Without(CapCopy)
	}
	return caps
}

func (c *Checker) structCapabilities(t *StructType) CapabilitySet {
	fields := c.fieldCapabilities(t.Fields)
	caps := fields&autoTraits | derivedSet(t.Derives)&fields&^autoTraits
	return applyImpls(caps, t.impls)
}

func (c *Checker) enumCapabilities(t *EnumType) CapabilitySet {
	var all []FieldType
	for _, v := range t.Variants {
		all = append(all, v.Fields...)
	}
	fields := c.fieldCapabilities(all)
	caps := fields&autoTraits | derivedSet(t.Derives)&fields&^autoTraits
	return applyImpls(caps, t.impls)
}

// unionCapabilities keeps auto traits structural; everything else comes from
// the derives accepted by checkDerives and from explicit impls.
func (c *Checker) unionCapabilities(t *UnionType) CapabilitySet {
	c.pendingDiagnostics = append(c.pendingDiagnostics, c.ensureDerives(t)...)
	var all []FieldType
	for _, v := range t.Variants {
		all = append(all, v.Fields...)
	}
	caps := c.fieldCapabilities(all)&autoTraits | t.derived
	return applyImpls(caps, t.impls)
}

// needsDrop reports whether dropping a value of type t runs code.
func (c *Checker) needsDrop(t Type) bool {
	switch ty := t.(type) {
	case ArrayType:
		return ty.Length > 0 && c.needsDrop(ty.Elem)
	case SliceType:
		return c.needsDrop(ty.Elem)
	case TupleType:
		for _, el := range ty.Elements {
			if c.needsDrop(el) {
				return true
			}
		}
		return false
	case BuiltinType:
		switch ty.Kind {
		case BuiltinString, BuiltinVec, BuiltinBox, BuiltinRc, BuiltinArc:
			return true
		case BuiltinManuallyDrop:
			return false
		default:
			return c.needsDrop(ty.Arg())
		}
	case *StructType:
		return c.namedNeedsDrop(ty, ty.impls.drop, ty.Fields)
	case *EnumType:
		var all []FieldType
		for _, v := range ty.Variants {
			all = append(all, v.Fields...)
		}
		return c.namedNeedsDrop(ty, ty.impls.drop, all)
	case *UnionType:
		return ty.impls.drop
	default:
		return false
	}
}

func (c *Checker) namedNeedsDrop(t Type, customDrop bool, fields []FieldType) bool {
	if customDrop {
		return true
	}
	if c.dropInProgress[t] {
		return false
	}
	c.dropInProgress[t] = true
	defer delete(c.dropInProgress, t)
	for _, f := range fields {
		if c.needsDrop(f.Type) {
			return true
		}
	}
	return false
}

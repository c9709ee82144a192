package typechecker

import (
	"fmt"

	"untagged/checker-go/pkg/ast"
)

// Options configures a Checker.
type Options struct {
	Target TargetDataModel
	Policy PayloadPolicy
}

// DefaultOptions targets a 64-bit platform with the no-drop payload policy.
func DefaultOptions() Options {
	return Options{Target: DefaultTarget, Policy: PolicyNoDrop}
}

// Checker traverses one module and records diagnostics, layout descriptors
// and pattern verdicts. A Checker is not safe for concurrent use.
type Checker struct {
	opts        Options
	infer       InferenceMap
	global      *Environment
	nodeOrigins map[ast.Node]string
	selfType    Type
	unsafeDepth int

	types         map[string]Type
	preludeTypes  map[string]Type
	unionVariants map[string][]*UnionType
	enumVariants  map[string][]*EnumType
	localUnions   map[*UnionType]bool

	descriptors      map[*UnionType]*LayoutDescriptor
	layoutCache      map[Type]typeLayout
	layoutInProgress map[Type]bool
	capCache         map[Type]CapabilitySet
	capInProgress    map[Type]bool
	dropInProgress   map[Type]bool
	derivesChecked   map[*UnionType]bool

	layouts  []*LayoutDescriptor
	verdicts []PatternVerdict
	derives  []DeriveVerdict

	pendingDiagnostics []Diagnostic
}

// DiagnosticSeverity conveys the diagnostic level.
type DiagnosticSeverity string

const (
	SeverityError   DiagnosticSeverity = "error"
	SeverityWarning DiagnosticSeverity = "warning"
)

// DiagnosticNote captures secondary context for a diagnostic.
type DiagnosticNote struct {
	Message string
	Node    ast.Node
}

// Diagnostic represents a checking error or warning. The zero severity is an error.
type Diagnostic struct {
	Severity DiagnosticSeverity
	Message  string
	Node     ast.Node
	Notes    []DiagnosticNote
}

// IsError reports whether the diagnostic fails the check.
func (d Diagnostic) IsError() bool {
	return d.Severity != SeverityWarning
}

// New returns a checker with default options.
func New() *Checker {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions returns a checker for the given target and payload policy.
// Invalid options fall back to the defaults; validate them with
// TargetDataModel.Validate and ParsePayloadPolicy first.
func NewWithOptions(opts Options) *Checker {
	if opts.Target.Validate() != nil {
		opts.Target = DefaultTarget
	}
	if _, err := ParsePayloadPolicy(string(opts.Policy)); err != nil || opts.Policy == "" {
		opts.Policy = PolicyNoDrop
	}
	c := &Checker{opts: opts}
	c.reset()
	return c
}

// Options returns the options in effect.
func (c *Checker) Options() Options {
	return c.opts
}

// SetNodeOrigins attaches origin metadata for diagnostics.
func (c *Checker) SetNodeOrigins(origins map[ast.Node]string) {
	c.nodeOrigins = origins
}

// SetPrelude makes types declared by dependency modules visible to the next
// CheckModule call.
func (c *Checker) SetPrelude(types map[string]Type) {
	c.preludeTypes = make(map[string]Type, len(types))
	for name, typ := range types {
		c.preludeTypes[name] = typ
	}
}

func (c *Checker) reset() {
	c.infer = make(InferenceMap)
	c.global = NewEnvironment(nil)
	c.selfType = nil
	c.unsafeDepth = 0
	c.types = make(map[string]Type)
	c.unionVariants = make(map[string][]*UnionType)
	c.enumVariants = make(map[string][]*EnumType)
	c.localUnions = make(map[*UnionType]bool)
	c.descriptors = make(map[*UnionType]*LayoutDescriptor)
	c.layoutCache = make(map[Type]typeLayout)
	c.layoutInProgress = make(map[Type]bool)
	c.capCache = make(map[Type]CapabilitySet)
	c.capInProgress = make(map[Type]bool)
	c.dropInProgress = make(map[Type]bool)
	c.derivesChecked = make(map[*UnionType]bool)
	c.layouts = nil
	c.verdicts = nil
	c.derives = nil
	c.pendingDiagnostics = nil
}

// CheckModule validates the module's declarations and checks every pattern,
// construction and field access in it.
func (c *Checker) CheckModule(module *ast.Module) ([]Diagnostic, error) {
	if module == nil {
		return nil, fmt.Errorf("typechecker: module is nil")
	}
	c.reset()
	for name, typ := range c.preludeTypes {
		c.types[name] = typ
		switch ty := typ.(type) {
		case *UnionType:
			if !ty.Native {
				for _, v := range ty.Variants {
					c.unionVariants[v.VariantName] = append(c.unionVariants[v.VariantName], ty)
				}
			}
		case *EnumType:
			for _, v := range ty.Variants {
				c.enumVariants[v.VariantName] = append(c.enumVariants[v.VariantName], ty)
			}
		}
	}

	var diagnostics []Diagnostic
	diagnostics = append(diagnostics, c.collectDeclarations(module)...)
	for _, stmt := range module.Body {
		diagnostics = append(diagnostics, c.checkStatement(c.global, stmt)...)
	}
	diagnostics = append(diagnostics, c.pendingDiagnostics...)
	c.pendingDiagnostics = nil
	return diagnostics, nil
}

// Layouts returns the descriptors of the unions declared by the last module, in declaration order.
func (c *Checker) Layouts() []*LayoutDescriptor {
	out := make([]*LayoutDescriptor, len(c.layouts))
	copy(out, c.layouts)
	return out
}

// Layout returns the descriptor of a union declared by the last module.
func (c *Checker) Layout(name string) (*LayoutDescriptor, bool) {
	for _, desc := range c.layouts {
		if desc.Union == name {
			return desc, true
		}
	}
	return nil, false
}

// Verdicts returns the pattern classifications recorded by the last module.
func (c *Checker) Verdicts() []PatternVerdict {
	out := make([]PatternVerdict, len(c.verdicts))
	copy(out, c.verdicts)
	return out
}

// DeriveVerdicts returns the outcome of every derive request of the last module.
func (c *Checker) DeriveVerdicts() []DeriveVerdict {
	out := make([]DeriveVerdict, len(c.derives))
	copy(out, c.derives)
	return out
}

// TypeOf returns the type recorded for a node.
func (c *Checker) TypeOf(node ast.Node) (Type, bool) {
	return c.infer.get(node)
}

// CapabilitiesOf returns the capability set of a type known to the checker.
func (c *Checker) CapabilitiesOf(t Type) CapabilitySet {
	return c.capabilitiesOf(t)
}

// LookupType returns a declared or prelude type by name.
func (c *Checker) LookupType(name string) (Type, bool) {
	typ, ok := c.types[name]
	return typ, ok
}

// Exports returns the public types declared by the last module.
func (c *Checker) Exports() map[string]Type {
	out := make(map[string]Type)
	for name, typ := range c.types {
		if _, inherited := c.preludeTypes[name]; inherited && c.preludeTypes[name] == typ {
			continue
		}
		if isPublicType(typ) {
			out[name] = typ
		}
	}
	return out
}

func isPublicType(t Type) bool {
	switch ty := t.(type) {
	case *UnionType:
		return ty.Decl != nil && ty.Decl.IsPublic
	case *StructType:
		return ty.Decl != nil && ty.Decl.IsPublic
	case *EnumType:
		return ty.Decl != nil && ty.Decl.IsPublic
	}
	return false
}

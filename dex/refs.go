package dex

import "fmt"

// refKind names the pool an index points into.
type refKind uint8

const (
	refString refKind = iota
	refType
	refTypeList
	refProto
	refField
	refMethod
	refMethodHandle
)

func (k refKind) String() string {
	switch k {
	case refString:
		return "string"
	case refType:
		return "type"
	case refTypeList:
		return "type list"
	case refProto:
		return "proto"
	case refField:
		return "field"
	case refMethod:
		return "method"
	case refMethodHandle:
		return "method handle"
	default:
		return "unknown"
	}
}

// refFunc maps one reference. It returns the (possibly rewritten) index or an error.
type refFunc func(kind refKind, idx uint32) (uint32, error)

// refWalker visits every pool index held by the structural model and stores
// the value returned by fn back in place. Optional references holding NoIndex
// are skipped.
//
// A walker with a non-nil seen set visits each storage slot once, so a
// structure reachable from several owners is rewritten exactly once.
type refWalker struct {
	fn   refFunc
	seen map[any]struct{}
}

// newRewriteWalker returns a walker that rewrites shared structures once.
func newRewriteWalker(fn refFunc) *refWalker {
	return &refWalker{fn: fn, seen: make(map[any]struct{})}
}

// first reports whether slot has not been visited yet and marks it. It always
// returns true for walkers without a seen set.
func (w *refWalker) first(slot any) bool {
	if w.seen == nil {
		return true
	}
	if _, ok := w.seen[slot]; ok {
		return false
	}
	w.seen[slot] = struct{}{}

	return true
}

func (w *refWalker) ref(kind refKind, idx *uint32, where string) error {
	if !w.first(idx) {
		return nil
	}
	v, err := w.fn(kind, *idx)
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	*idx = v

	return nil
}

func (w *refWalker) optional(kind refKind, idx *uint32, where string) error {
	if *idx == NoIndex {
		return nil
	}

	return w.ref(kind, idx, where)
}

func (w *refWalker) container(c *Container) error {
	for i, cs := range c.callSites {
		if err := w.array(cs, fmt.Sprintf("call site %d", i)); err != nil {
			return err
		}
	}
	for i, cd := range c.classes {
		if err := w.class(cd, fmt.Sprintf("class %d", i)); err != nil {
			return err
		}
	}

	return nil
}

func (w *refWalker) class(cd *ClassDef, where string) error {
	if err := w.ref(refType, &cd.Class, where+" type"); err != nil {
		return err
	}
	if err := w.optional(refType, &cd.Superclass, where+" superclass"); err != nil {
		return err
	}
	if err := w.optional(refTypeList, &cd.Interfaces, where+" interfaces"); err != nil {
		return err
	}
	if err := w.optional(refString, &cd.SourceFile, where+" source file"); err != nil {
		return err
	}
	for _, list := range [][]EncodedField{cd.StaticFields, cd.InstanceFields} {
		for i := range list {
			if err := w.ref(refField, &list[i].Field, where+" field"); err != nil {
				return err
			}
		}
	}
	for _, m := range cd.Methods() {
		if err := w.ref(refMethod, &m.Method, where+" method"); err != nil {
			return err
		}
		if m.Code != nil {
			if err := w.code(m.Code, where+" code"); err != nil {
				return err
			}
		}
	}
	if cd.Annotations != nil {
		if err := w.directory(cd.Annotations, where+" annotations"); err != nil {
			return err
		}
	}
	if cd.StaticValues != nil {
		return w.array(cd.StaticValues, where+" static values")
	}

	return nil
}

func (w *refWalker) code(code *Code, where string) error {
	for i := range code.Tries {
		hs := code.Tries[i].Handler.Handlers
		for j := range hs {
			if err := w.ref(refType, &hs[j].Type, where+" catch type"); err != nil {
				return err
			}
		}
	}
	if code.Debug != nil {
		return w.debug(code.Debug, where+" debug info")
	}

	return nil
}

func (w *refWalker) debug(d *DebugInfo, where string) error {
	for i := range d.ParameterNames {
		if err := w.optional(refString, &d.ParameterNames[i], where+" parameter name"); err != nil {
			return err
		}
	}
	for i, op := range d.Ops {
		if !w.first(&d.Ops[i]) {
			continue
		}
		var err error
		switch o := op.(type) {
		case StartLocal:
			err = w.locals(&o.Name, &o.Type, nil, where)
			d.Ops[i] = o
		case StartLocalExtended:
			err = w.locals(&o.Name, &o.Type, &o.Signature, where)
			d.Ops[i] = o
		case SetFile:
			err = w.optional(refString, &o.Name, where+" file")
			d.Ops[i] = o
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (w *refWalker) locals(name, typ, sig *uint32, where string) error {
	if err := w.optional(refString, name, where+" local name"); err != nil {
		return err
	}
	if err := w.optional(refType, typ, where+" local type"); err != nil {
		return err
	}
	if sig != nil {
		return w.optional(refString, sig, where+" local signature")
	}

	return nil
}

func (w *refWalker) directory(d *AnnotationsDirectory, where string) error {
	if d.Class != nil {
		if err := w.set(d.Class, where); err != nil {
			return err
		}
	}
	for i := range d.Fields {
		if err := w.ref(refField, &d.Fields[i].Field, where+" field"); err != nil {
			return err
		}
		if err := w.set(&d.Fields[i].Set, where); err != nil {
			return err
		}
	}
	for i := range d.Methods {
		if err := w.ref(refMethod, &d.Methods[i].Method, where+" method"); err != nil {
			return err
		}
		if err := w.set(&d.Methods[i].Set, where); err != nil {
			return err
		}
	}
	for i := range d.Parameters {
		if err := w.ref(refMethod, &d.Parameters[i].Method, where+" parameter method"); err != nil {
			return err
		}
		for _, s := range d.Parameters[i].Sets {
			if s == nil {
				continue
			}
			if err := w.set(s, where); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *refWalker) set(s *AnnotationSet, where string) error {
	for i := range s.Items {
		if err := w.annotation(&s.Items[i].Value, where); err != nil {
			return err
		}
	}

	return nil
}

func (w *refWalker) annotation(a *EncodedAnnotation, where string) error {
	if err := w.ref(refType, &a.Type, where+" annotation type"); err != nil {
		return err
	}
	for i := range a.Elements {
		if err := w.ref(refString, &a.Elements[i].Name, where+" element name"); err != nil {
			return err
		}
		if !w.first(&a.Elements[i].Value) {
			continue
		}
		v, err := w.value(a.Elements[i].Value, where)
		if err != nil {
			return err
		}
		a.Elements[i].Value = v
	}

	return nil
}

func (w *refWalker) array(arr *EncodedArray, where string) error {
	for i, v := range arr.Values {
		if !w.first(&arr.Values[i]) {
			continue
		}
		nv, err := w.value(v, where)
		if err != nil {
			return err
		}
		arr.Values[i] = nv
	}

	return nil
}

// value returns the rewritten value; index-carrying variants are immutable
// scalars, so they are replaced rather than updated.
func (w *refWalker) value(v Value, where string) (Value, error) {
	mapped := func(kind refKind, idx uint32) (uint32, error) {
		err := w.ref(kind, &idx, where+" value")
		return idx, err
	}

	switch tv := v.(type) {
	case nil:
		return nil, fmt.Errorf("%s: nil encoded value", where)
	case MethodTypeValue:
		idx, err := mapped(refProto, uint32(tv))
		return MethodTypeValue(idx), err
	case MethodHandleValue:
		idx, err := mapped(refMethodHandle, uint32(tv))
		return MethodHandleValue(idx), err
	case StringValue:
		idx, err := mapped(refString, uint32(tv))
		return StringValue(idx), err
	case TypeValue:
		idx, err := mapped(refType, uint32(tv))
		return TypeValue(idx), err
	case FieldValue:
		idx, err := mapped(refField, uint32(tv))
		return FieldValue(idx), err
	case MethodValue:
		idx, err := mapped(refMethod, uint32(tv))
		return MethodValue(idx), err
	case EnumValue:
		idx, err := mapped(refField, uint32(tv))
		return EnumValue(idx), err
	case ArrayValue:
		for i := range tv {
			if !w.first(&tv[i]) {
				continue
			}
			nv, err := w.value(tv[i], where)
			if err != nil {
				return nil, err
			}
			tv[i] = nv
		}

		return tv, nil
	case AnnotationValue:
		ea := EncodedAnnotation(tv)
		if err := w.annotation(&ea, where); err != nil {
			return nil, err
		}

		return AnnotationValue(ea), nil
	default:
		return v, nil
	}
}

package dex

import (
	"fmt"

	"github.com/arloliu/dexkit/encoding"
	"github.com/arloliu/dexkit/errs"
	"github.com/arloliu/dexkit/format"
)

// Validate checks that every index held by the pools and the structural model
// addresses an existing entry, that indices stored as 16-bit wire fields fit,
// that try blocks lie inside their instruction stream, that every string has
// a lossless MUTF-8 form, and that no class type is defined twice. Access
// flags are not checked.
//
// Returns:
//   - error: ErrIndexOutOfRange describing the first bad reference,
//     ErrMalformedString for a string that is not valid UTF-8,
//     ErrDuplicateEntry for a repeated class, ErrMalformedSection for a
//     structure that has no wire form, nil otherwise
func (c *Container) Validate() error {
	if err := c.validatePools(); err != nil {
		return err
	}

	w := &refWalker{fn: c.checkRef}
	if err := w.container(c); err != nil {
		return err
	}

	return c.validateClasses()
}

func (c *Container) poolLen(kind refKind) int {
	switch kind {
	case refString:
		return c.strings.Len()
	case refType:
		return c.types.Len()
	case refTypeList:
		return c.typeLists.Len()
	case refProto:
		return c.protos.Len()
	case refField:
		return c.fields.Len()
	case refMethod:
		return c.methods.Len()
	case refMethodHandle:
		return c.methodHandles.Len()
	default:
		return 0
	}
}

func (c *Container) checkRef(kind refKind, idx uint32) (uint32, error) {
	if n := c.poolLen(kind); uint64(idx) >= uint64(n) {
		return idx, fmt.Errorf("%w: %s index %d >= %d", errs.ErrIndexOutOfRange, kind, idx, n)
	}

	return idx, nil
}

func (c *Container) checkShortRef(kind refKind, idx uint32, where string) error {
	if _, err := c.checkRef(kind, idx); err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	if idx > 0xFFFF {
		return fmt.Errorf("%w: %s: %s index %d does not fit 16 bits", errs.ErrIndexOutOfRange, where, kind, idx)
	}

	return nil
}

func (c *Container) validatePools() error {
	for i, str := range c.strings.items {
		if err := encoding.ValidateString(str); err != nil {
			return fmt.Errorf("string %d: %w", i, err)
		}
	}
	for i, t := range c.types.items {
		if _, err := c.checkRef(refString, t.Descriptor); err != nil {
			return fmt.Errorf("type %d: %w", i, err)
		}
	}
	for i, l := range c.typeLists.items {
		for j := range l.Len() {
			if err := c.checkShortRef(refType, l.At(j), fmt.Sprintf("type list %d", i)); err != nil {
				return err
			}
		}
	}
	for i, p := range c.protos.items {
		where := fmt.Sprintf("proto %d", i)
		if _, err := c.checkRef(refString, p.Shorty); err != nil {
			return fmt.Errorf("%s shorty: %w", where, err)
		}
		if _, err := c.checkRef(refType, p.Return); err != nil {
			return fmt.Errorf("%s return: %w", where, err)
		}
		if p.Parameters != NoIndex {
			if _, err := c.checkRef(refTypeList, p.Parameters); err != nil {
				return fmt.Errorf("%s parameters: %w", where, err)
			}
		}
	}
	for i, f := range c.fields.items {
		where := fmt.Sprintf("field %d", i)
		if err := c.checkShortRef(refType, f.Class, where+" class"); err != nil {
			return err
		}
		if err := c.checkShortRef(refType, f.Type, where+" type"); err != nil {
			return err
		}
		if _, err := c.checkRef(refString, f.Name); err != nil {
			return fmt.Errorf("%s name: %w", where, err)
		}
	}
	for i, m := range c.methods.items {
		where := fmt.Sprintf("method %d", i)
		if err := c.checkShortRef(refType, m.Class, where+" class"); err != nil {
			return err
		}
		if err := c.checkShortRef(refProto, m.Proto, where+" proto"); err != nil {
			return err
		}
		if _, err := c.checkRef(refString, m.Name); err != nil {
			return fmt.Errorf("%s name: %w", where, err)
		}
	}
	for i, h := range c.methodHandles.items {
		kind := refMethod
		if h.Kind.IsField() {
			kind = refField
		}
		if err := c.checkShortRef(kind, h.Member, fmt.Sprintf("method handle %d", i)); err != nil {
			return err
		}
	}

	return nil
}

func (c *Container) validateClasses() error {
	seen := make(map[uint32]int, len(c.classes))
	for i, cd := range c.classes {
		if prev, ok := seen[cd.Class]; ok {
			return fmt.Errorf("%w: classes %d and %d define type %d", errs.ErrDuplicateEntry, prev, i, cd.Class)
		}
		seen[cd.Class] = i

		for _, m := range cd.Methods() {
			if m.Code == nil {
				continue
			}
			n := uint32(len(m.Code.Insns)) //nolint: gosec
			for j, t := range m.Code.Tries {
				if t.StartAddr > n || t.EndAddr() > n {
					return fmt.Errorf("%w: class %d method %d try %d covers [%d,%d) past %d code units",
						errs.ErrIndexOutOfRange, i, m.Method, j, t.StartAddr, t.EndAddr(), n)
				}
				// a handler without typed clauses is only encodable as a catch-all
				if len(t.Handler.Handlers) == 0 && !t.Handler.HasCatchAll {
					return fmt.Errorf("%w: class %d method %d try %d has an empty handler",
						errs.ErrMalformedSection, i, m.Method, j)
				}
			}
			if err := validateDebugOps(m.Code.Debug); err != nil {
				return fmt.Errorf("class %d method %d: %w", i, m.Method, err)
			}
		}
		if cd.StaticValues != nil && len(cd.StaticValues.Values) > len(cd.StaticFields) {
			return fmt.Errorf("%w: class %d has %d static values for %d static fields",
				errs.ErrIndexOutOfRange, i, len(cd.StaticValues.Values), len(cd.StaticFields))
		}
	}

	return nil
}

func validateDebugOps(d *DebugInfo) error {
	if d == nil {
		return nil
	}
	for i, op := range d.Ops {
		switch o := op.(type) {
		case nil:
			return fmt.Errorf("%w: debug op %d is nil", errs.ErrMalformedSection, i)
		case SpecialOp:
			if format.DebugOpcode(o.Value) < format.DbgFirstSpecial {
				return fmt.Errorf("%w: special debug op %d has value 0x%02x", errs.ErrMalformedSection, i, o.Value)
			}
		}
	}

	return nil
}

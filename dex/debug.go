package dex

import (
	"slices"

	"github.com/arloliu/dexkit/format"
)

// DebugInfo is a debug_info_item: the header plus the state machine program.
// The terminating END_SEQUENCE is implied and not stored in Ops.
type DebugInfo struct {
	LineStart uint32
	// ParameterNames holds one string index per parameter, NoIndex when unnamed.
	ParameterNames []uint32
	Ops            []DebugOp
}

// Clone returns a copy that shares nothing with d.
func (d *DebugInfo) Clone() *DebugInfo {
	if d == nil {
		return nil
	}

	return &DebugInfo{
		LineStart:      d.LineStart,
		ParameterNames: slices.Clone(d.ParameterNames),
		Ops:            slices.Clone(d.Ops),
	}
}

// DebugOp is one debug state machine instruction. The set of implementations
// is closed; each variant is one opcode shape.
type DebugOp interface {
	Opcode() format.DebugOpcode
	isDebugOp()
}

type (
	// AdvancePC moves the address register forward.
	AdvancePC struct{ AddrDiff uint32 }
	// AdvanceLine moves the line register.
	AdvanceLine struct{ LineDiff int32 }
	// StartLocal introduces a local variable. Name and Type may be NoIndex.
	StartLocal struct{ Register, Name, Type uint32 }
	// StartLocalExtended introduces a local variable with a generic signature.
	StartLocalExtended struct{ Register, Name, Type, Signature uint32 }
	EndLocal           struct{ Register uint32 }
	RestartLocal       struct{ Register uint32 }
	SetPrologueEnd     struct{}
	SetEpilogueBegin   struct{}
	// SetFile switches the source file; Name may be NoIndex.
	SetFile struct{ Name uint32 }
	// SpecialOp advances address and line together and emits a position entry.
	SpecialOp struct{ Value uint8 }
)

func (AdvancePC) Opcode() format.DebugOpcode          { return format.DbgAdvancePC }
func (AdvanceLine) Opcode() format.DebugOpcode        { return format.DbgAdvanceLine }
func (StartLocal) Opcode() format.DebugOpcode         { return format.DbgStartLocal }
func (StartLocalExtended) Opcode() format.DebugOpcode { return format.DbgStartLocalExt }
func (EndLocal) Opcode() format.DebugOpcode           { return format.DbgEndLocal }
func (RestartLocal) Opcode() format.DebugOpcode       { return format.DbgRestartLocal }
func (SetPrologueEnd) Opcode() format.DebugOpcode     { return format.DbgSetPrologueEnd }
func (SetEpilogueBegin) Opcode() format.DebugOpcode   { return format.DbgSetEpilogueBegin }
func (SetFile) Opcode() format.DebugOpcode            { return format.DbgSetFile }
func (s SpecialOp) Opcode() format.DebugOpcode        { return format.DebugOpcode(s.Value) }

func (AdvancePC) isDebugOp()          {}
func (AdvanceLine) isDebugOp()        {}
func (StartLocal) isDebugOp()         {}
func (StartLocalExtended) isDebugOp() {}
func (EndLocal) isDebugOp()           {}
func (RestartLocal) isDebugOp()       {}
func (SetPrologueEnd) isDebugOp()     {}
func (SetEpilogueBegin) isDebugOp()   {}
func (SetFile) isDebugOp()            {}
func (SpecialOp) isDebugOp()          {}

// NewSpecialOp returns the special opcode that advances by addrDiff and lineDiff,
// if one exists.
func NewSpecialOp(addrDiff uint32, lineDiff int32) (SpecialOp, bool) {
	if lineDiff < format.DbgLineBase || lineDiff >= format.DbgLineBase+format.DbgLineRange {
		return SpecialOp{}, false
	}
	v := uint64(lineDiff-format.DbgLineBase) + uint64(addrDiff)*format.DbgLineRange + uint64(format.DbgFirstSpecial)
	if v > 0xff {
		return SpecialOp{}, false
	}

	return SpecialOp{Value: uint8(v)}, true
}

// Deltas returns the address and line adjustments applied by the special opcode.
func (s SpecialOp) Deltas() (uint32, int32) {
	adjusted := int32(s.Value) - int32(format.DbgFirstSpecial)
	return uint32(adjusted / format.DbgLineRange), format.DbgLineBase + adjusted%format.DbgLineRange
}

// Position is one entry of the decoded line table.
type Position struct {
	Addr uint32
	Line int64
	File uint32 // string index, NoIndex for the class source file
}

// Positions runs the state machine and returns the emitted line table.
func (d *DebugInfo) Positions() []Position {
	var out []Position
	addr := uint32(0)
	line := int64(d.LineStart)
	file := NoIndex
	for _, op := range d.Ops {
		switch o := op.(type) {
		case AdvancePC:
			addr += o.AddrDiff
		case AdvanceLine:
			line += int64(o.LineDiff)
		case SetFile:
			file = o.Name
		case SpecialOp:
			da, dl := o.Deltas()
			addr += da
			line += int64(dl)
			out = append(out, Position{Addr: addr, Line: line, File: file})
		}
	}

	return out
}

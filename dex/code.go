package dex

import "slices"

// TypeAddrPair is one typed catch clause: the exception type and handler address.
type TypeAddrPair struct {
	Type uint32
	Addr uint32
}

// CatchHandler is an encoded_catch_handler.
type CatchHandler struct {
	Handlers     []TypeAddrPair
	CatchAllAddr uint32
	HasCatchAll  bool
}

// TryBlock is a try_item with its handler resolved. Addresses are in 16-bit code units.
type TryBlock struct {
	StartAddr uint32
	InsnCount uint16
	Handler   CatchHandler
}

// EndAddr returns the first address past the covered range.
func (t TryBlock) EndAddr() uint32 {
	return t.StartAddr + uint32(t.InsnCount)
}

// Code is a code_item. Insns holds the raw 16-bit instruction units; they are
// never decoded into operations.
type Code struct {
	Registers uint16
	Ins       uint16
	Outs      uint16
	Insns     []uint16
	Tries     []TryBlock
	Debug     *DebugInfo
}

// Clone returns a copy that shares nothing with c.
func (c *Code) Clone() *Code {
	if c == nil {
		return nil
	}
	out := &Code{
		Registers: c.Registers,
		Ins:       c.Ins,
		Outs:      c.Outs,
		Insns:     slices.Clone(c.Insns),
		Debug:     c.Debug.Clone(),
	}
	if c.Tries != nil {
		out.Tries = make([]TryBlock, len(c.Tries))
		for i, t := range c.Tries {
			t.Handler.Handlers = slices.Clone(t.Handler.Handlers)
			out.Tries[i] = t
		}
	}

	return out
}

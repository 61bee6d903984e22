package wasm

import "github.com/wippyai/wasm-loader/wasm/internal/binary"

// Code accumulates an instruction sequence for a function body or a
// constant expression.
type Code struct {
	w binary.Writer
}

// NewCode creates an empty instruction sequence.
func NewCode() *Code {
	return &Code{}
}

// Bytes returns the encoded instructions.
func (c *Code) Bytes() []byte {
	return c.w.Bytes()
}

// Op emits opcodes without immediates.
func (c *Code) Op(ops ...byte) *Code {
	for _, op := range ops {
		c.w.Byte(op)
	}
	return c
}

func (c *Code) I32Const(v int32) *Code {
	c.w.Byte(OpI32Const)
	c.w.WriteS32(v)
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.w.Byte(OpI64Const)
	c.w.WriteS64(v)
	return c
}

func (c *Code) LocalGet(idx uint32) *Code { return c.indexed(OpLocalGet, idx) }
func (c *Code) LocalSet(idx uint32) *Code { return c.indexed(OpLocalSet, idx) }
func (c *Code) LocalTee(idx uint32) *Code { return c.indexed(OpLocalTee, idx) }

func (c *Code) GlobalGet(idx uint32) *Code { return c.indexed(OpGlobalGet, idx) }
func (c *Code) GlobalSet(idx uint32) *Code { return c.indexed(OpGlobalSet, idx) }

func (c *Code) Call(funcIdx uint32) *Code { return c.indexed(OpCall, funcIdx) }

func (c *Code) Br(depth uint32) *Code   { return c.indexed(OpBr, depth) }
func (c *Code) BrIf(depth uint32) *Code { return c.indexed(OpBrIf, depth) }

// Mem emits a load or store with its alignment exponent and static offset.
func (c *Code) Mem(op byte, align, offset uint32) *Code {
	c.w.Byte(op)
	c.w.WriteU32(align)
	c.w.WriteU32(offset)
	return c
}

// If opens an if block without results.
func (c *Code) If() *Code { return c.Op(OpIf, BlockVoid) }

// Block opens a block without results.
func (c *Code) Block() *Code { return c.Op(OpBlock, BlockVoid) }

// Loop opens a loop without results.
func (c *Code) Loop() *Code { return c.Op(OpLoop, BlockVoid) }

// End closes the innermost block.
func (c *Code) End() *Code { return c.Op(OpEnd) }

func (c *Code) MemorySize() *Code { return c.Op(OpMemorySize, 0x00) }
func (c *Code) MemoryGrow() *Code { return c.Op(OpMemoryGrow, 0x00) }

// MemoryFill emits memory.fill on memory 0 (bulk memory).
func (c *Code) MemoryFill() *Code {
	c.w.Byte(OpPrefixFC)
	c.w.WriteU32(OpMemoryFill)
	c.w.Byte(0x00)
	return c
}

func (c *Code) indexed(op byte, idx uint32) *Code {
	c.w.Byte(op)
	c.w.WriteU32(idx)
	return c
}

package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Builder is the instruction builder of a single native function.  It tracks
// the block instructions are appended to and keeps every stack slot in the
// function's entry block.
type Builder struct {
	// Func is the function being built.
	Func *ir.Func

	// Block is the block currently being built.
	Block *ir.Block

	// entry is the block holding all the allocas.  It always branches to the
	// first body block.
	entry *ir.Block

	// names counts the blocks created for each name hint.
	names map[string]int
}

// NewBuilder creates a builder for f positioned at the start of its body.
func NewBuilder(f *ir.Func) *Builder {
	b := &Builder{Func: f, names: make(map[string]int)}

	b.entry = f.NewBlock("entry")
	b.Block = b.NewBlock("body")
	b.entry.NewBr(b.Block)

	return b
}

// NewBlock appends a new block to the function.  It does *not* set the current
// block to this new block.
func (b *Builder) NewBlock(hint string) *ir.Block {
	n := b.names[hint]
	b.names[hint]++

	if n == 0 {
		return b.Func.NewBlock(hint)
	}

	return b.Func.NewBlock(fmt.Sprintf("%s.%d", hint, n))
}

// SetBlock makes block the current block.
func (b *Builder) SetBlock(block *ir.Block) {
	b.Block = block
}

// Terminated returns whether the current block already has a terminator.
func (b *Builder) Terminated() bool {
	return b.Block.Term != nil
}

// Alloca reserves a stack slot of type t in the entry block.  If init is not
// nil, the slot is initialized to it on entry.
func (b *Builder) Alloca(t types.Type, init value.Value) *ir.InstAlloca {
	slot := b.entry.NewAlloca(t)
	if init != nil {
		b.entry.NewStore(init, slot)
	}

	return slot
}

// Br branches to target if the current block is not already terminated.
func (b *Builder) Br(target *ir.Block) {
	if !b.Terminated() {
		b.Block.NewBr(target)
	}
}

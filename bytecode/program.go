package bytecode

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/babellang/babel/value"
)

// Instruction is a single decoded bytecode instruction. Operand's
// meaning depends on Op: a constant-pool index, a variable slot
// index, an absolute jump-target instruction index, or an argument
// count. Opcodes that take no operand leave it zero.
type Instruction struct {
	Op      Opcode `cbor:"op"`
	Operand int    `cbor:"operand,omitempty"`
}

// Program is the compiler's output and the VM's input: a flat
// instruction array and a deduplicated constant pool. There is no
// separate function table; a compiled function is represented as a
// value.KindFunction constant whose Entry field is the instruction
// index its body starts at. Every jump target is an index into
// Instructions, never a byte offset, so PC arithmetic is always in
// units of one instruction.
type Program struct {
	Instructions []Instruction `cbor:"instructions"`
	Constants    []value.Value `cbor:"constants"`
}

// New returns an empty Program.
func New() *Program {
	return &Program{}
}

// Emit appends an operand-less instruction, returning its index.
func (p *Program) Emit(op Opcode) int {
	p.Instructions = append(p.Instructions, Instruction{Op: op})
	return len(p.Instructions) - 1
}

// EmitOperand appends an instruction carrying operand, returning its index.
func (p *Program) EmitOperand(op Opcode, operand int) int {
	p.Instructions = append(p.Instructions, Instruction{Op: op, Operand: operand})
	return len(p.Instructions) - 1
}

// Len is the index the next-emitted instruction will occupy.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// PatchOperand overwrites the operand of the instruction at idx. Used
// to back-patch a placeholder jump once its target address is known.
func (p *Program) PatchOperand(idx, operand int) {
	p.Instructions[idx].Operand = operand
}

// AddConstant interns v into the constant pool, returning its index.
// Equal constants (per value.Value.Equal, within the same Kind) are
// deduplicated.
func (p *Program) AddConstant(v value.Value) int {
	for i, existing := range p.Constants {
		if existing.Kind == v.Kind && existing.Equal(v) {
			return i
		}
	}
	p.Constants = append(p.Constants, v)
	return len(p.Constants) - 1
}

// Disassemble renders the program's instructions as text, annotating
// constant-pool and jump-target references.
func (p *Program) Disassemble() string {
	var b strings.Builder
	for i, ins := range p.Instructions {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.disassembleAt(i, ins))
	}
	return b.String()
}

func (p *Program) disassembleAt(idx int, ins Instruction) string {
	info := ins.Op.Info()
	switch {
	case ins.Op == OpLoadConst:
		var repr string
		if ins.Operand < len(p.Constants) {
			repr = p.Constants[ins.Operand].Stringify()
		}
		return fmt.Sprintf("%04d  %-14s %d (%q)", idx, info.Name, ins.Operand, repr)
	case ins.Op.IsJump():
		return fmt.Sprintf("%04d  %-14s -> %04d", idx, info.Name, ins.Operand)
	case info.HasOperand:
		return fmt.Sprintf("%04d  %-14s %d", idx, info.Name, ins.Operand)
	default:
		return fmt.Sprintf("%04d  %s", idx, info.Name)
	}
}

// Marshal serializes p to a portable CBOR-encoded byte slice.
func (p *Program) Marshal() ([]byte, error) {
	return cbor.Marshal(p)
}

// Unmarshal decodes a Program previously produced by Marshal.
func Unmarshal(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("bytecode: decode program: %w", err)
	}
	return &p, nil
}

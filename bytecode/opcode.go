// Package bytecode defines the stack-machine instruction set that the
// compiler emits and the VM executes: a flat array of Instructions
// (jump targets are indices into this array, not byte offsets) plus a
// deduplicated constant pool.
package bytecode

import "fmt"

// Opcode is a single bytecode instruction's operation.
type Opcode byte

const (
	OpLoadConst Opcode = iota // operand: constant pool index
	OpLoadVar                 // operand: variable slot index
	OpStoreVar                // operand: variable slot index
	OpPop

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpNegate

	OpEqual
	OpNotEqual
	OpLessThan
	OpGreaterThan
	OpLessEqual
	OpGreaterEqual

	OpAnd
	OpOr
	OpNot

	OpJump        // operand: target instruction index
	OpJumpIfFalse // operand: target instruction index
	OpJumpIfTrue  // operand: target instruction index

	OpCall   // operand: argument count
	OpReturn

	OpPrint // operand: argument count
	OpInput
	OpHalt
)

// OpcodeInfo is metadata about an opcode used for disassembly.
// StackEffect is the net change in stack depth. -1 is the literal
// effect of POP and the binary operators, and is also used for the
// count-dependent or otherwise variable effects of CALL, RETURN and
// PRINT.
type OpcodeInfo struct {
	Name        string
	HasOperand  bool
	StackEffect int
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpLoadConst: {"LOAD_CONST", true, 1},
	OpLoadVar:   {"LOAD_VAR", true, 1},
	OpStoreVar:  {"STORE_VAR", true, 0},
	OpPop:       {"POP", false, -1},

	OpAdd:      {"ADD", false, -1},
	OpSubtract: {"SUBTRACT", false, -1},
	OpMultiply: {"MULTIPLY", false, -1},
	OpDivide:   {"DIVIDE", false, -1},
	OpModulo:   {"MODULO", false, -1},
	OpNegate:   {"NEGATE", false, 0},

	OpEqual:        {"EQUAL", false, -1},
	OpNotEqual:     {"NOT_EQUAL", false, -1},
	OpLessThan:     {"LESS_THAN", false, -1},
	OpGreaterThan:  {"GREATER_THAN", false, -1},
	OpLessEqual:    {"LESS_EQUAL", false, -1},
	OpGreaterEqual: {"GREATER_EQUAL", false, -1},

	OpAnd: {"AND", false, -1},
	OpOr:  {"OR", false, -1},
	OpNot: {"NOT", false, 0},

	OpJump:        {"JUMP", true, 0},
	OpJumpIfFalse: {"JUMP_IF_FALSE", true, -1},
	OpJumpIfTrue:  {"JUMP_IF_TRUE", true, -1},

	OpCall:   {"CALL", true, -1},
	OpReturn: {"RETURN", false, -1},

	OpPrint: {"PRINT", true, -1},
	OpInput: {"INPUT", false, 1},
	OpHalt:  {"HALT", false, 0},
}

func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}
}

func (op Opcode) String() string { return op.Info().Name }

func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse || op == OpJumpIfTrue
}

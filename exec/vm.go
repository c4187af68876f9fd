// Package exec implements the stack-based virtual machine that
// executes a bytecode.Program: an operand stack, a flat variable
// table grown on demand, a call-frame stack, and an output line
// buffer.
package exec

import (
	"math"
	"strings"

	"github.com/babellang/babel/bytecode"
	"github.com/babellang/babel/diagnostics"
	"github.com/babellang/babel/value"
)

// InputProvider supplies the lines the INPUT instruction reads. ReadLine
// returns ok=false once no more input is available.
type InputProvider interface {
	ReadLine() (line string, ok bool)
}

// NoInput is an InputProvider that always reports EOF, for programs
// that never call input().
type NoInput struct{}

func (NoInput) ReadLine() (string, bool) { return "", false }

// frame is a call-frame: where to resume the caller, and a snapshot
// of the variable table to restore on return.
//
// The variable table is one flat, compile-time-numbered slot space
// shared by every function (see the compiler's scope discussion) — a
// parameter's slot number is fixed once at compile time, so a
// recursive call reuses the exact same slot its caller is still
// using. Truncating the table to a call-time length, as a literal
// reading of "frame_base = vars.len() - argc" suggests, does not
// survive that reuse: the second recursive call would truncate away
// the slot the first call's suspended frame still needs once it
// resumes. Snapshotting and restoring the whole table on return does.
type frame struct {
	returnPC int
	saved    []value.Value
}

// VM executes one bytecode.Program. Its state (stack, variables,
// frames, output) is reset at the start of every Run, so one VM value
// can be reused across repeated executions of the same program.
type VM struct {
	prog  *bytecode.Program
	input InputProvider

	// budget caps the number of instructions Run will execute before
	// failing with ExecutionLimitExceeded. Zero means unlimited.
	budget int

	stack  []value.Value
	vars   []value.Value
	frames []frame
	output []string

	// counts tallies how many times Run executed each opcode, for an
	// optional caller-side profiling sink (see store.Profile). Left
	// nil (and never populated) unless EnableProfiling is called.
	counts map[bytecode.Opcode]int64
}

// EnableProfiling turns on per-opcode execution counting for the next
// Run and returns vm for chaining. Counting has a small per-instruction
// cost, so it defaults to off.
func (vm *VM) EnableProfiling() *VM {
	vm.counts = make(map[bytecode.Opcode]int64)
	return vm
}

// OpcodeCounts returns how many times each opcode executed during the
// most recent Run, keyed by opcode name. Empty unless EnableProfiling
// was called first.
func (vm *VM) OpcodeCounts() map[string]int64 {
	if vm.counts == nil {
		return nil
	}
	out := make(map[string]int64, len(vm.counts))
	for op, n := range vm.counts {
		out[op.String()] = n
	}
	return out
}

// New creates a VM for prog. A nil input reports EOF on every read.
func New(prog *bytecode.Program, input InputProvider) *VM {
	if input == nil {
		input = NoInput{}
	}
	return &VM{prog: prog, input: input}
}

// WithBudget sets an instruction-count execution limit and returns vm
// for chaining. A budget of 0 (the default) means unlimited.
func (vm *VM) WithBudget(n int) *VM {
	vm.budget = n
	return vm
}

func badInstruction(format string, args ...any) diagnostics.Diagnostic {
	return diagnostics.New(diagnostics.BadInstruction, 0, 0, format, args...)
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, diagnostics.New(diagnostics.StackUnderflow, 0, 0, "pop from empty operand stack")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) constant(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(vm.prog.Constants) {
		return value.Value{}, badInstruction("constant index %d out of range", idx)
	}
	return vm.prog.Constants[idx], nil
}

func (vm *VM) storeVar(idx int, v value.Value) error {
	if idx < 0 {
		return badInstruction("negative variable index %d", idx)
	}
	for idx >= len(vm.vars) {
		vm.vars = append(vm.vars, value.Null())
	}
	vm.vars[idx] = v
	return nil
}

func (vm *VM) loadVar(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(vm.vars) {
		return value.Value{}, badInstruction("variable index %d out of range", idx)
	}
	return vm.vars[idx], nil
}

// Output returns the lines produced by the most recent Run.
func (vm *VM) Output() []string { return vm.output }

// Run executes the program from instruction 0 until HALT or the
// program counter runs past the end of the instruction list, and
// returns the accumulated output lines.
func (vm *VM) Run() ([]string, error) {
	vm.stack = vm.stack[:0]
	vm.vars = vm.vars[:0]
	vm.frames = vm.frames[:0]
	vm.output = nil
	if vm.counts != nil {
		vm.counts = make(map[bytecode.Opcode]int64)
	}

	pc := 0
	steps := 0
	for pc >= 0 && pc < len(vm.prog.Instructions) {
		if vm.budget > 0 {
			steps++
			if steps > vm.budget {
				return vm.output, diagnostics.New(diagnostics.ExecutionLimitExceeded, 0, 0,
					"execution exceeded %d instructions", vm.budget)
			}
		}

		ins := vm.prog.Instructions[pc]
		next := pc + 1
		if vm.counts != nil {
			vm.counts[ins.Op]++
		}

		switch ins.Op {
		case bytecode.OpHalt:
			return vm.output, nil

		case bytecode.OpLoadConst:
			c, err := vm.constant(ins.Operand)
			if err != nil {
				return vm.output, err
			}
			vm.push(c)

		case bytecode.OpLoadVar:
			v, err := vm.loadVar(ins.Operand)
			if err != nil {
				return vm.output, err
			}
			vm.push(v)

		case bytecode.OpStoreVar:
			v, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			if err := vm.storeVar(ins.Operand, v); err != nil {
				return vm.output, err
			}
			vm.push(v)

		case bytecode.OpPop:
			if _, err := vm.pop(); err != nil {
				return vm.output, err
			}

		case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide, bytecode.OpModulo:
			if err := vm.binaryArith(ins.Op); err != nil {
				return vm.output, err
			}

		case bytecode.OpNegate:
			v, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			if !v.IsNumber() {
				return vm.output, badInstruction("cannot negate a %s", v.Kind)
			}
			vm.push(value.Number(-v.Num))

		case bytecode.OpEqual, bytecode.OpNotEqual:
			b, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			a, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			eq := a.Equal(b)
			if ins.Op == bytecode.OpNotEqual {
				eq = !eq
			}
			vm.push(value.Boolean(eq))

		case bytecode.OpLessThan, bytecode.OpGreaterThan, bytecode.OpLessEqual, bytecode.OpGreaterEqual:
			if err := vm.compare(ins.Op); err != nil {
				return vm.output, err
			}

		case bytecode.OpAnd:
			b, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			a, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			if !a.IsTruthy() {
				vm.push(a)
			} else {
				vm.push(b)
			}

		case bytecode.OpOr:
			b, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			a, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			if a.IsTruthy() {
				vm.push(a)
			} else {
				vm.push(b)
			}

		case bytecode.OpNot:
			v, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			vm.push(value.Boolean(!v.IsTruthy()))

		case bytecode.OpJump:
			next = ins.Operand

		case bytecode.OpJumpIfFalse:
			v, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			if !v.IsTruthy() {
				next = ins.Operand
			}

		case bytecode.OpJumpIfTrue:
			v, err := vm.pop()
			if err != nil {
				return vm.output, err
			}
			if v.IsTruthy() {
				next = ins.Operand
			}

		case bytecode.OpCall:
			target, err := vm.call(ins.Operand, pc)
			if err != nil {
				return vm.output, err
			}
			next = target

		case bytecode.OpReturn:
			target, err := vm.doReturn()
			if err != nil {
				return vm.output, err
			}
			next = target

		case bytecode.OpPrint:
			if err := vm.doPrint(ins.Operand); err != nil {
				return vm.output, err
			}

		case bytecode.OpInput:
			line, ok := vm.input.ReadLine()
			if !ok {
				vm.push(value.String(""))
			} else {
				vm.push(value.String(line))
			}

		default:
			return vm.output, badInstruction("unrecognized opcode %d", ins.Op)
		}

		pc = next
	}
	return vm.output, nil
}

func (vm *VM) binaryArith(op bytecode.Opcode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}

	if op == bytecode.OpAdd && (a.IsString() || b.IsString()) {
		vm.push(value.String(a.Stringify() + b.Stringify()))
		return nil
	}
	if !a.IsNumber() || !b.IsNumber() {
		return badInstruction("arithmetic on non-numeric operands (%s, %s)", a.Kind, b.Kind)
	}

	switch op {
	case bytecode.OpAdd:
		vm.push(value.Number(a.Num + b.Num))
	case bytecode.OpSubtract:
		vm.push(value.Number(a.Num - b.Num))
	case bytecode.OpMultiply:
		vm.push(value.Number(a.Num * b.Num))
	case bytecode.OpDivide:
		if b.Num == 0 {
			return diagnostics.New(diagnostics.DivisionByZero, 0, 0, "division by zero")
		}
		vm.push(value.Number(a.Num / b.Num))
	case bytecode.OpModulo:
		if b.Num == 0 {
			return diagnostics.New(diagnostics.DivisionByZero, 0, 0, "modulo by zero")
		}
		vm.push(value.Number(math.Mod(a.Num, b.Num)))
	}
	return nil
}

func (vm *VM) compare(op bytecode.Opcode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}

	var less, equal bool
	switch {
	case a.IsNumber() && b.IsNumber():
		less, equal = a.Num < b.Num, a.Num == b.Num
	case a.IsString() && b.IsString():
		less, equal = a.Str < b.Str, a.Str == b.Str
	default:
		return badInstruction("cannot order-compare %s and %s", a.Kind, b.Kind)
	}

	var result bool
	switch op {
	case bytecode.OpLessThan:
		result = less
	case bytecode.OpGreaterThan:
		result = !less && !equal
	case bytecode.OpLessEqual:
		result = less || equal
	case bytecode.OpGreaterEqual:
		result = !less
	}
	vm.push(value.Boolean(result))
	return nil
}

// call implements the CALL convention: pop the function reference,
// push a frame recording where to resume and where the variable
// table stood before this call's arguments were bound, then jump to
// the function's entry.
func (vm *VM) call(argc, pc int) (int, error) {
	fn, err := vm.pop()
	if err != nil {
		return 0, err
	}
	if !fn.IsFunction() {
		return 0, badInstruction("call target is a %s, not a function", fn.Kind)
	}
	saved := append([]value.Value(nil), vm.vars...)
	vm.frames = append(vm.frames, frame{returnPC: pc + 1, saved: saved})
	return fn.Fn.Entry, nil
}

func (vm *VM) doReturn() (int, error) {
	retVal, err := vm.pop()
	if err != nil {
		return 0, err
	}
	if len(vm.frames) == 0 {
		return 0, diagnostics.New(diagnostics.StackUnderflow, 0, 0, "return with no active call frame")
	}
	top := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.vars = top.saved
	vm.push(retVal)
	return top.returnPC, nil
}

func (vm *VM) doPrint(argc int) error {
	vals := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vals[i] = v
	}
	parts := make([]string, argc)
	for i, v := range vals {
		parts[i] = v.Stringify()
	}
	vm.output = append(vm.output, strings.Join(parts, " "))
	return nil
}

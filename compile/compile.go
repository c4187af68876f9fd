// Package compile lowers an ast.Program to a bytecode.Program: a flat
// instruction list, a constant pool, and a monotonically-growing
// variable slot space shared by every scope. There is exactly one
// scope; a var declaration inside a block or function body aliases
// the same flat name space top-level code uses, by design (see the
// scope discussion this codebase's language toolchain settled on).
package compile

import (
	"github.com/babellang/babel/ast"
	"github.com/babellang/babel/bytecode"
	"github.com/babellang/babel/diagnostics"
	"github.com/babellang/babel/lang"
	"github.com/babellang/babel/lexer"
	"github.com/babellang/babel/value"
)

// pendingFuncRef records a LOAD_CONST that will hold a function
// reference once every FunctionDecl in the program has been
// compiled and its address is known — this is what lets a call
// reference a function declared later in the source.
type pendingFuncRef struct {
	constIdx int
	name     string
}

type compiler struct {
	lang lang.Language
	prog *bytecode.Program

	symtab   map[string]int
	nextSlot int

	functab map[string]value.FunctionRef
	pending []pendingFuncRef

	diags []diagnostics.Diagnostic
}

// Program compiles ast into a bytecode.Program using language's
// print/input spellings to recognize the two built-ins. It returns
// whatever bytecode it produced (possibly partial) alongside every
// diagnostic hit along the way; callers should refuse to run a
// program that produced any diagnostics.
func Program(prog *ast.Program, language lang.Language) (*bytecode.Program, []diagnostics.Diagnostic) {
	c := &compiler{
		lang:    language,
		prog:    bytecode.New(),
		symtab:  make(map[string]int),
		functab: make(map[string]value.FunctionRef),
	}

	for _, stmt := range prog.Statements {
		if fd, ok := stmt.(*ast.FunctionDecl); ok {
			c.functab[fd.Name] = value.FunctionRef{Name: fd.Name, Arity: len(fd.Params)}
		}
	}

	for _, stmt := range prog.Statements {
		c.compileStmt(stmt)
	}
	c.prog.Emit(bytecode.OpHalt)

	for _, ref := range c.pending {
		c.prog.Constants[ref.constIdx] = value.Function(c.functab[ref.name])
	}

	return c.prog, c.diags
}

func (c *compiler) errorf(kind diagnostics.Kind, pos ast.Position, format string, args ...any) {
	c.diags = append(c.diags, diagnostics.New(kind, pos.Line, pos.Column, format, args...))
}

func (c *compiler) declareVar(name string) int {
	slot := c.nextSlot
	c.nextSlot++
	c.symtab[name] = slot
	return slot
}

func (c *compiler) emitConst(v value.Value) {
	c.prog.EmitOperand(bytecode.OpLoadConst, c.prog.AddConstant(v))
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *compiler) compileStmt(stmt ast.Stmt) {
	switch n := stmt.(type) {
	case *ast.ExprStmt:
		c.compileExprStmt(n)
	case *ast.VarDecl:
		c.compileVarDecl(n)
	case *ast.Block:
		for _, s := range n.Statements {
			c.compileStmt(s)
		}
	case *ast.If:
		c.compileIf(n)
	case *ast.While:
		c.compileWhile(n)
	case *ast.For:
		c.compileFor(n)
	case *ast.Return:
		c.compileReturn(n)
	case *ast.FunctionDecl:
		c.compileFunctionDecl(n)
	}
}

func (c *compiler) compileExprStmt(n *ast.ExprStmt) {
	if c.compileExpr(n.Expr) {
		c.prog.Emit(bytecode.OpPop)
	}
}

func (c *compiler) compileVarDecl(n *ast.VarDecl) {
	if n.Init != nil {
		c.compileExpr(n.Init)
	} else {
		c.emitConst(value.Null())
	}
	slot := c.declareVar(n.Name)
	c.prog.EmitOperand(bytecode.OpStoreVar, slot)
	c.prog.Emit(bytecode.OpPop)
}

func (c *compiler) compileIf(n *ast.If) {
	c.compileExpr(n.Cond)
	jf := c.prog.EmitOperand(bytecode.OpJumpIfFalse, -1)
	c.compileStmt(n.Then)
	if n.Else != nil {
		jmp := c.prog.EmitOperand(bytecode.OpJump, -1)
		c.prog.PatchOperand(jf, c.prog.Len())
		c.compileStmt(n.Else)
		c.prog.PatchOperand(jmp, c.prog.Len())
	} else {
		c.prog.PatchOperand(jf, c.prog.Len())
	}
}

func (c *compiler) compileWhile(n *ast.While) {
	loopStart := c.prog.Len()
	c.compileExpr(n.Cond)
	jf := c.prog.EmitOperand(bytecode.OpJumpIfFalse, -1)
	c.compileStmt(n.Body)
	c.prog.EmitOperand(bytecode.OpJump, loopStart)
	c.prog.PatchOperand(jf, c.prog.Len())
}

func (c *compiler) compileFor(n *ast.For) {
	if n.Init != nil {
		c.compileStmt(n.Init)
	}
	loopStart := c.prog.Len()
	if n.Cond != nil {
		c.compileExpr(n.Cond)
	} else {
		c.emitConst(value.Boolean(true))
	}
	jf := c.prog.EmitOperand(bytecode.OpJumpIfFalse, -1)
	c.compileStmt(n.Body)
	if n.Post != nil {
		c.compileStmt(n.Post)
	}
	c.prog.EmitOperand(bytecode.OpJump, loopStart)
	c.prog.PatchOperand(jf, c.prog.Len())
}

func (c *compiler) compileReturn(n *ast.Return) {
	if n.Value != nil {
		c.compileExpr(n.Value)
	} else {
		c.emitConst(value.Null())
	}
	c.prog.Emit(bytecode.OpReturn)
}

// compileFunctionDecl lays the function body out inline, wrapped in
// an unconditional jump so ordinary control flow never falls into
// it. Parameters are declared in source order but the STORE_VAR
// instructions that bind them at entry are emitted in reverse, since
// CALL leaves the last-pushed (last) argument on top of the stack.
// STORE_VAR pushes the stored value back (assignment is an
// expression), so each binding needs its own POP to actually
// consume the argument beneath it, exactly like compileVarDecl.
func (c *compiler) compileFunctionDecl(n *ast.FunctionDecl) {
	skip := c.prog.EmitOperand(bytecode.OpJump, -1)
	entry := c.prog.Len()
	c.functab[n.Name] = value.FunctionRef{Name: n.Name, Arity: len(n.Params), Entry: entry}

	slots := make([]int, len(n.Params))
	for i, p := range n.Params {
		slots[i] = c.declareVar(p)
	}
	for i := len(slots) - 1; i >= 0; i-- {
		c.prog.EmitOperand(bytecode.OpStoreVar, slots[i])
		c.prog.Emit(bytecode.OpPop)
	}

	for _, s := range n.Body.Statements {
		c.compileStmt(s)
	}
	c.emitConst(value.Null())
	c.prog.Emit(bytecode.OpReturn)

	c.prog.PatchOperand(skip, c.prog.Len())
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// compileExpr emits n and reports whether it left exactly one new
// value on the stack. Every expression does except a call to print,
// which the language treats as a statement-shaped builtin with no
// result — callers (compileExprStmt in particular) use this to know
// whether a trailing POP is needed.
func (c *compiler) compileExpr(expr ast.Expr) bool {
	switch n := expr.(type) {
	case *ast.NumberLiteral:
		c.emitConst(value.Number(n.Value))
	case *ast.StringLiteral:
		c.emitConst(value.String(n.Value))
	case *ast.BoolLiteral:
		c.emitConst(value.Boolean(n.Value))
	case *ast.NullLiteral:
		c.emitConst(value.Null())
	case *ast.Identifier:
		c.compileIdentifier(n)
	case *ast.Assignment:
		c.compileExpr(n.Value)
		slot, ok := c.symtab[n.Name]
		if !ok {
			slot = c.declareVar(n.Name)
		}
		c.prog.EmitOperand(bytecode.OpStoreVar, slot)
	case *ast.BinaryExpr:
		c.compileBinary(n)
	case *ast.UnaryExpr:
		c.compileExpr(n.Right)
		if n.Op == lexer.MINUS {
			c.prog.Emit(bytecode.OpNegate)
		} else {
			c.prog.Emit(bytecode.OpNot)
		}
	case *ast.CallExpr:
		return c.compileCall(n)
	}
	return true
}

func (c *compiler) compileIdentifier(n *ast.Identifier) {
	if slot, ok := c.symtab[n.Name]; ok {
		c.prog.EmitOperand(bytecode.OpLoadVar, slot)
		return
	}
	if _, ok := c.functab[n.Name]; ok {
		idx := len(c.prog.Constants)
		c.prog.Constants = append(c.prog.Constants, value.Value{})
		c.pending = append(c.pending, pendingFuncRef{constIdx: idx, name: n.Name})
		c.prog.EmitOperand(bytecode.OpLoadConst, idx)
		return
	}
	c.errorf(diagnostics.UndefinedName, n.Position, "undefined name %q", n.Name)
	c.emitConst(value.Null())
}

var binaryOps = map[lexer.Kind]bytecode.Opcode{
	lexer.PLUS:    bytecode.OpAdd,
	lexer.MINUS:   bytecode.OpSubtract,
	lexer.STAR:    bytecode.OpMultiply,
	lexer.SLASH:   bytecode.OpDivide,
	lexer.PERCENT: bytecode.OpModulo,
	lexer.EQ:      bytecode.OpEqual,
	lexer.NOTEQ:   bytecode.OpNotEqual,
	lexer.LT:      bytecode.OpLessThan,
	lexer.GT:      bytecode.OpGreaterThan,
	lexer.LE:      bytecode.OpLessEqual,
	lexer.GE:      bytecode.OpGreaterEqual,
}

func (c *compiler) compileBinary(n *ast.BinaryExpr) {
	c.compileExpr(n.Left)
	c.compileExpr(n.Right)
	switch n.Op {
	case lexer.AND:
		c.prog.Emit(bytecode.OpAnd)
	case lexer.OR:
		c.prog.Emit(bytecode.OpOr)
	default:
		c.prog.Emit(binaryOps[n.Op])
	}
}

// compileCall handles the two built-ins (print, input — spelled per
// the active language table) specially; everything else goes through
// the general CALL convention: arguments, then the callee expression,
// then CALL n.
func (c *compiler) compileCall(n *ast.CallExpr) bool {
	if ident, ok := n.Callee.(*ast.Identifier); ok {
		if c.lang.IsPrint(ident.Name) {
			for _, a := range n.Args {
				c.compileExpr(a)
			}
			c.prog.EmitOperand(bytecode.OpPrint, len(n.Args))
			return false
		}
		if c.lang.IsInput(ident.Name) {
			c.prog.Emit(bytecode.OpInput)
			return true
		}
	}
	for _, a := range n.Args {
		c.compileExpr(a)
	}
	c.compileExpr(n.Callee)
	c.prog.EmitOperand(bytecode.OpCall, len(n.Args))
	return true
}

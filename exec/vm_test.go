package exec

import (
	"strings"
	"testing"

	"github.com/babellang/babel/compile"
	"github.com/babellang/babel/diagnostics"
	"github.com/babellang/babel/lang"
	"github.com/babellang/babel/parser"
)

func english(t *testing.T) lang.Language {
	t.Helper()
	l, ok := lang.Lookup("english")
	if !ok {
		t.Fatal("english language table not registered")
	}
	return l
}

func run(t *testing.T, src string) ([]string, error) {
	t.Helper()
	lg := english(t)
	prog, diags := parser.Parse(src, lg)
	if len(diags) != 0 {
		t.Fatalf("parse diagnostics: %v", diags)
	}
	bc, diags := compile.Program(prog, lg)
	if len(diags) != 0 {
		t.Fatalf("compile diagnostics: %v", diags)
	}
	return New(bc, nil).Run()
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, "print(1 + 2 * 3);")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != "7" {
		t.Errorf("output = %v, want [7]", out)
	}
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print("a" + "b" + 1);`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != "ab1" {
		t.Errorf("output = %v, want [ab1]", out)
	}
}

func TestWhileLoop(t *testing.T) {
	out, err := run(t, `
var i = 0;
while (i < 3) {
    print(i);
    i = i + 1;
}`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"0", "1", "2"}
	if strings.Join(out, ",") != strings.Join(want, ",") {
		t.Errorf("output = %v, want %v", out, want)
	}
}

func TestForLoop(t *testing.T) {
	out, err := run(t, `for (var i = 0; i < 3; i = i + 1) { print(i * i); }`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"0", "1", "4"}
	if strings.Join(out, ",") != strings.Join(want, ",") {
		t.Errorf("output = %v, want %v", out, want)
	}
}

func TestIfElse(t *testing.T) {
	out, err := run(t, `if (1 < 2) { print("yes"); } else { print("no"); }`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != "yes" {
		t.Errorf("output = %v, want [yes]", out)
	}
}

func TestAndDoesNotShortCircuitAndPreservesValue(t *testing.T) {
	// AND: first operand if falsy else second. Side effects on both
	// operands always happen since neither is skipped.
	out, err := run(t, `
var calls = 0;
function bump() { calls = calls + 1; return calls; }
print(0 && bump());
print(calls);
print(5 && "second");
`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"0", "1", "second"}
	if strings.Join(out, ",") != strings.Join(want, ",") {
		t.Errorf("output = %v, want %v (AND must evaluate both operands and preserve the winning value)", out, want)
	}
}

func TestOrDoesNotShortCircuitAndPreservesValue(t *testing.T) {
	out, err := run(t, `
var calls = 0;
function bump() { calls = calls + 1; return calls; }
print(5 || bump());
print(calls);
print(0 || "second");
`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"5", "1", "second"}
	if strings.Join(out, ",") != strings.Join(want, ",") {
		t.Errorf("output = %v, want %v (OR must evaluate both operands and preserve the winning value)", out, want)
	}
}

func TestRecursiveFactorial(t *testing.T) {
	out, err := run(t, `
function fact(n) {
    if (n <= 1) {
        return 1;
    } else {
        return n * fact(n - 1);
    }
}
print(fact(5));
`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != "120" {
		t.Errorf("output = %v, want [120] (fact(5) via recursion)", out)
	}
}

func TestRecursionDoesNotCorruptCallerLocals(t *testing.T) {
	// A recursive fibonacci exercises multiple live frames sharing the
	// same compile-time slot numbers; if frame save/restore were
	// wrong, an outer call's "n" would be clobbered by an inner one.
	out, err := run(t, `
function fib(n) {
    if (n <= 1) {
        return n;
    } else {
        return fib(n - 1) + fib(n - 2);
    }
}
print(fib(10));
`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != "55" {
		t.Errorf("output = %v, want [55] (fib(10))", out)
	}
}

func TestMultiParamCallBindsArgumentsInCallOrder(t *testing.T) {
	// Regression test: the entry prologue binds parameters via
	// reverse-order STORE_VAR, one per argument on the stack. Each
	// binding must consume its argument (STORE_VAR alone leaves it
	// behind for expression chaining), or a second parameter in the
	// same prologue re-reads the first one's value instead of the
	// next argument beneath it.
	out, err := run(t, `
function sub(a, b) {
    return a - b;
}
print(sub(10, 3));
`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != "7" {
		t.Errorf("output = %v, want [7] (a=10, b=3, a-b=7)", out)
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := run(t, "print(1 / 0);")
	diag, ok := err.(diagnostics.Diagnostic)
	if !ok || diag.Kind != diagnostics.DivisionByZero {
		t.Fatalf("err = %v, want a DivisionByZero diagnostic", err)
	}
}

func TestModuloByZero(t *testing.T) {
	_, err := run(t, "print(1 % 0);")
	diag, ok := err.(diagnostics.Diagnostic)
	if !ok || diag.Kind != diagnostics.DivisionByZero {
		t.Fatalf("err = %v, want a DivisionByZero diagnostic", err)
	}
}

func TestBadInstructionOnTypeMismatch(t *testing.T) {
	_, err := run(t, `print(true + false);`)
	// true/false stringify oddly under "+" only if one side is a
	// string; both booleans here are non-numeric non-string operands,
	// which is a type error mapped to BadInstruction.
	diag, ok := err.(diagnostics.Diagnostic)
	if !ok || diag.Kind != diagnostics.BadInstruction {
		t.Fatalf("err = %v, want a BadInstruction diagnostic", err)
	}
}

func TestCallOnNonFunctionIsBadInstruction(t *testing.T) {
	_, err := run(t, `var x = 1; x();`)
	diag, ok := err.(diagnostics.Diagnostic)
	if !ok || diag.Kind != diagnostics.BadInstruction {
		t.Fatalf("err = %v, want a BadInstruction diagnostic", err)
	}
}

func TestBareReturnAtTopLevelIsStackUnderflow(t *testing.T) {
	_, err := run(t, `return;`)
	diag, ok := err.(diagnostics.Diagnostic)
	if !ok || diag.Kind != diagnostics.StackUnderflow {
		t.Fatalf("err = %v, want a StackUnderflow diagnostic", err)
	}
}

func TestStringOrderedComparison(t *testing.T) {
	out, err := run(t, `print("apple" < "banana"); print("banana" < "apple");`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"true", "false"}
	if strings.Join(out, ",") != strings.Join(want, ",") {
		t.Errorf("output = %v, want %v", out, want)
	}
}

func TestExecutionBudgetExceeded(t *testing.T) {
	lg := english(t)
	prog, diags := parser.Parse(`while (true) { var x = 1; }`, lg)
	if len(diags) != 0 {
		t.Fatalf("parse diagnostics: %v", diags)
	}
	bc, diags := compile.Program(prog, lg)
	if len(diags) != 0 {
		t.Fatalf("compile diagnostics: %v", diags)
	}
	_, err := New(bc, nil).WithBudget(100).Run()
	diag, ok := err.(diagnostics.Diagnostic)
	if !ok || diag.Kind != diagnostics.ExecutionLimitExceeded {
		t.Fatalf("err = %v, want an ExecutionLimitExceeded diagnostic", err)
	}
}

type fixedInput struct {
	lines []string
	pos   int
}

func (f *fixedInput) ReadLine() (string, bool) {
	if f.pos >= len(f.lines) {
		return "", false
	}
	line := f.lines[f.pos]
	f.pos++
	return line, true
}

func TestInputReadsProvidedLines(t *testing.T) {
	lg := english(t)
	prog, diags := parser.Parse(`print(input());`, lg)
	if len(diags) != 0 {
		t.Fatalf("parse diagnostics: %v", diags)
	}
	bc, diags := compile.Program(prog, lg)
	if len(diags) != 0 {
		t.Fatalf("compile diagnostics: %v", diags)
	}
	out, err := New(bc, &fixedInput{lines: []string{"hello"}}).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != "hello" {
		t.Errorf("output = %v, want [hello]", out)
	}
}

func TestInputExhaustedYieldsEmptyString(t *testing.T) {
	lg := english(t)
	prog, diags := parser.Parse(`print("x" + input());`, lg)
	if len(diags) != 0 {
		t.Fatalf("parse diagnostics: %v", diags)
	}
	bc, diags := compile.Program(prog, lg)
	if len(diags) != 0 {
		t.Fatalf("compile diagnostics: %v", diags)
	}
	out, err := New(bc, &fixedInput{}).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != "x" {
		t.Errorf("output = %v, want [x] (INPUT yields the empty string on exhaustion)", out)
	}
}

func TestVMIsReusableAcrossRuns(t *testing.T) {
	lg := english(t)
	prog, diags := parser.Parse(`print(1);`, lg)
	if len(diags) != 0 {
		t.Fatalf("parse diagnostics: %v", diags)
	}
	bc, diags := compile.Program(prog, lg)
	if len(diags) != 0 {
		t.Fatalf("compile diagnostics: %v", diags)
	}
	vm := New(bc, nil)
	first, err := vm.Run()
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := vm.Run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("first run = %v, second run = %v; state should reset between Runs", first, second)
	}
}

func TestProfilingCountsOpcodes(t *testing.T) {
	lg := english(t)
	prog, diags := parser.Parse(`print(1 + 2);`, lg)
	if len(diags) != 0 {
		t.Fatalf("parse diagnostics: %v", diags)
	}
	bc, diags := compile.Program(prog, lg)
	if len(diags) != 0 {
		t.Fatalf("compile diagnostics: %v", diags)
	}
	vm := New(bc, nil).EnableProfiling()
	if _, err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	counts := vm.OpcodeCounts()
	if counts["ADD"] != 1 {
		t.Errorf("ADD count = %d, want 1", counts["ADD"])
	}
	if counts["HALT"] != 1 {
		t.Errorf("HALT count = %d, want 1", counts["HALT"])
	}
}

func TestProfilingOffByDefault(t *testing.T) {
	lg := english(t)
	prog, diags := parser.Parse(`print(1);`, lg)
	if len(diags) != 0 {
		t.Fatalf("parse diagnostics: %v", diags)
	}
	bc, diags := compile.Program(prog, lg)
	if len(diags) != 0 {
		t.Fatalf("compile diagnostics: %v", diags)
	}
	vm := New(bc, nil)
	if _, err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vm.OpcodeCounts() != nil {
		t.Error("OpcodeCounts should be nil when EnableProfiling was never called")
	}
}

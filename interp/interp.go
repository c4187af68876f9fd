// Package interp is the host-facing facade over the language
// toolchain: compile source to bytecode, run bytecode against an
// input provider, and enumerate the supported languages. Everything
// else in this module (lexer, parser, compile, exec) is an
// implementation detail behind this API.
package interp

import (
	"github.com/babellang/babel/bytecode"
	"github.com/babellang/babel/compile"
	"github.com/babellang/babel/diagnostics"
	"github.com/babellang/babel/examples"
	"github.com/babellang/babel/exec"
	"github.com/babellang/babel/lang"
	"github.com/babellang/babel/parser"
)

// Compile lexes, parses and compiles source under the language
// registered as langCode. It returns the first diagnostic hit, if
// any; a program with diagnostics should not be run.
func Compile(source, langCode string) (*bytecode.Program, diagnostics.Diagnostic, bool) {
	language, ok := lang.Lookup(langCode)
	if !ok {
		return nil, diagnostics.New(diagnostics.SyntaxError, 0, 0, "unknown language %q", langCode), true
	}

	program, diags := parser.Parse(source, language)
	if len(diags) > 0 {
		return nil, diags[0], true
	}

	prog, diags := compile.Program(program, language)
	if len(diags) > 0 {
		return nil, diags[0], true
	}
	return prog, diagnostics.Diagnostic{}, false
}

// Run executes prog against io, optionally bounding execution to
// budget instructions (0 means unlimited), and returns the output
// lines produced before HALT, an error, or budget exhaustion.
func Run(prog *bytecode.Program, io exec.InputProvider, budget int) ([]string, error) {
	vm := exec.New(prog, io).WithBudget(budget)
	return vm.Run()
}

// RunProfiled behaves like Run but also returns a per-opcode
// execution count, for callers writing to a store.Profile.
func RunProfiled(prog *bytecode.Program, io exec.InputProvider, budget int) ([]string, map[string]int64, error) {
	vm := exec.New(prog, io).WithBudget(budget).EnableProfiling()
	lines, err := vm.Run()
	return lines, vm.OpcodeCounts(), err
}

// ListLanguages returns every registered language, sorted by code.
func ListLanguages() []lang.Language {
	return lang.List()
}

// ExampleFor returns a canonical demo program for langCode, or false
// if no example is registered for that language.
func ExampleFor(langCode string) (string, bool) {
	return examples.For(langCode)
}

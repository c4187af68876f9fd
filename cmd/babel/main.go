// Babel CLI - the main entry point for compiling and running babel programs.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/babellang/babel/bytecode"
	"github.com/babellang/babel/interp"
	"github.com/babellang/babel/store"
)

func main() {
	langCode := flag.String("lang", "english", "Language table to compile against (see -list-languages)")
	verbose := flag.Bool("v", false, "Verbose output (print disassembly before running)")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	budget := flag.Int("budget", 0, "Maximum instructions to execute before failing (0 means unlimited)")
	listLanguages := flag.Bool("list-languages", false, "List registered languages and exit")
	example := flag.Bool("example", false, "Run the canonical example program for -lang and exit")
	profilePath := flag.String("profile", "", "Record a per-opcode execution profile to this DuckDB file")
	historyPath := flag.String("history", "", "sqlite file to record REPL statements to (REPL mode only)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: babel [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a babel program written in the language selected by -lang.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  babel -lang=hindi ./greet.babel   # Run a hindi-keyword program\n")
		fmt.Fprintf(os.Stderr, "  babel -example -lang=spanish      # Run the built-in spanish example\n")
		fmt.Fprintf(os.Stderr, "  babel -i -lang=english            # Start an interactive REPL\n")
		fmt.Fprintf(os.Stderr, "  babel -list-languages             # Show every registered language code\n")
	}
	flag.Parse()

	if *listLanguages {
		for _, l := range interp.ListLanguages() {
			fmt.Println(l.Name)
		}
		return
	}

	if *example {
		src, ok := interp.ExampleFor(*langCode)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: no example registered for language %q\n", *langCode)
			os.Exit(1)
		}
		runSource(src, *langCode, *verbose, *budget, *profilePath)
		return
	}

	paths := flag.Args()
	if len(paths) == 0 {
		if *interactive {
			runREPL(*langCode, *historyPath)
			return
		}
		flag.Usage()
		os.Exit(2)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		runSource(string(data), *langCode, *verbose, *budget, *profilePath)
	}

	if *interactive {
		runREPL(*langCode, *historyPath)
	}
}

// runSource compiles and runs one program, printing its output and
// exiting non-zero on the first diagnostic or execution error. When
// profilePath is set, per-opcode execution counts are recorded there
// instead of being discarded.
func runSource(source, langCode string, verbose bool, budget int, profilePath string) {
	prog, diag, hasErr := interp.Compile(source, langCode)
	if hasErr {
		fmt.Fprintf(os.Stderr, "%s\n", diag.Error())
		os.Exit(1)
	}

	if verbose {
		fmt.Fprint(os.Stderr, disassemble(prog))
	}

	var (
		lines  []string
		err    error
		counts map[string]int64
	)
	if profilePath != "" {
		lines, counts, err = interp.RunProfiled(prog, nil, budget)
	} else {
		lines, err = interp.Run(prog, nil, budget)
	}

	for _, line := range lines {
		fmt.Println(line)
	}

	if profilePath != "" && err == nil {
		if recErr := recordProfile(profilePath, langCode, counts); recErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", recErr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func recordProfile(path, langCode string, counts map[string]int64) error {
	profile, err := store.OpenProfile(path)
	if err != nil {
		return err
	}
	defer profile.Close()
	return profile.Record(context.Background(), time.Now().UnixNano(), langCode, counts)
}

func disassemble(prog *bytecode.Program) string {
	if prog == nil {
		return ""
	}
	return prog.Disassemble()
}

// stdinInput adapts a bufio.Scanner to exec.InputProvider for the
// REPL's input() builtin.
type stdinInput struct {
	scanner *bufio.Scanner
}

func (s stdinInput) ReadLine() (string, bool) {
	if !s.scanner.Scan() {
		return "", false
	}
	return s.scanner.Text(), true
}

// runREPL starts an interactive read-eval-print loop. Each accumulated
// statement block is compiled and run as its own program, since the
// toolchain has no notion of an incremental session.
func runREPL(langCode, historyPath string) {
	found := false
	for _, l := range interp.ListLanguages() {
		if l.Name == langCode {
			found = true
			break
		}
	}
	if !found {
		fmt.Fprintf(os.Stderr, "Error: unknown language %q\n", langCode)
		os.Exit(1)
	}

	var history *store.History
	if historyPath != "" {
		h, err := store.OpenHistory(historyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer h.Close()
		history = h
	}

	fmt.Printf("babel REPL (%s) - type 'exit' to quit, blank line to run\n", langCode)

	scanner := bufio.NewScanner(os.Stdin)
	input := stdinInput{scanner: scanner}
	var buf strings.Builder

	for {
		if buf.Len() == 0 {
			fmt.Print(">> ")
		} else {
			fmt.Print(".. ")
		}

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		if buf.Len() == 0 && (line == "exit" || line == "quit") {
			break
		}

		if line == "" && buf.Len() > 0 {
			source := buf.String()
			buf.Reset()
			evalAndPrint(source, langCode, input, history)
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)
	}
	fmt.Println()
}

func evalAndPrint(source, langCode string, input stdinInput, history *store.History) {
	prog, diag, hasErr := interp.Compile(source, langCode)
	if hasErr {
		fmt.Println(diag.Error())
		if history != nil {
			history.Record(context.Background(), langCode, source, false)
		}
		return
	}
	lines, err := interp.Run(prog, input, 0)
	for _, l := range lines {
		fmt.Println(l)
	}
	if err != nil {
		fmt.Println(err.Error())
	}
	if history != nil {
		history.Record(context.Background(), langCode, source, err == nil)
	}
}

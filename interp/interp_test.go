package interp

import (
	"strings"
	"testing"
)

func TestCompileAndRunRoundTrip(t *testing.T) {
	prog, diag, hasErr := Compile(`print("hi");`, "english")
	if hasErr {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	out, err := Run(prog, nil, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != "hi" {
		t.Errorf("output = %v, want [hi]", out)
	}
}

func TestCompileUnknownLanguage(t *testing.T) {
	_, diag, hasErr := Compile(`print(1);`, "klingon")
	if !hasErr {
		t.Fatal("expected a diagnostic for an unregistered language")
	}
	if !strings.Contains(diag.Error(), "klingon") {
		t.Errorf("diagnostic = %q, want it to mention the unknown language", diag.Error())
	}
}

func TestCompileReportsFirstDiagnosticOnly(t *testing.T) {
	_, diag, hasErr := Compile(`var x = @; var y = @;`, "english")
	if !hasErr {
		t.Fatal("expected a diagnostic")
	}
	if diag.Line == 0 {
		t.Error("expected a positioned diagnostic")
	}
	// The first '@' is at column 9; the second one is at column 20.
	if diag.Line != 1 || diag.Column != 9 {
		t.Errorf("diagnostic at %d:%d, want the first one at 1:9", diag.Line, diag.Column)
	}
}

func TestRunProfiledReturnsCounts(t *testing.T) {
	prog, diag, hasErr := Compile(`print(1 + 1);`, "english")
	if hasErr {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	out, counts, err := RunProfiled(prog, nil, 0)
	if err != nil {
		t.Fatalf("RunProfiled: %v", err)
	}
	if len(out) != 1 || out[0] != "2" {
		t.Errorf("output = %v, want [2]", out)
	}
	if counts["ADD"] != 1 {
		t.Errorf("ADD count = %d, want 1", counts["ADD"])
	}
}

func TestListLanguagesIncludesRegisteredCodes(t *testing.T) {
	names := map[string]bool{}
	for _, l := range ListLanguages() {
		names[l.Name] = true
	}
	for _, want := range []string{"english", "hindi", "spanish"} {
		if !names[want] {
			t.Errorf("ListLanguages() missing %q", want)
		}
	}
}

func TestExampleForEveryRegisteredLanguage(t *testing.T) {
	for _, l := range ListLanguages() {
		src, ok := ExampleFor(l.Name)
		if !ok {
			t.Errorf("no example registered for %q", l.Name)
			continue
		}
		prog, diag, hasErr := Compile(src, l.Name)
		if hasErr {
			t.Errorf("%s example failed to compile: %v", l.Name, diag)
			continue
		}
		if _, err := Run(prog, nil, 100000); err != nil {
			t.Errorf("%s example failed to run: %v", l.Name, err)
		}
	}
}

func TestExampleForUnknownLanguage(t *testing.T) {
	if _, ok := ExampleFor("klingon"); ok {
		t.Error("expected no example for an unregistered language")
	}
}

func TestBudgetIsRespectedThroughFacade(t *testing.T) {
	prog, diag, hasErr := Compile(`while (true) { var x = 1; }`, "english")
	if hasErr {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	if _, err := Run(prog, nil, 50); err == nil {
		t.Fatal("expected an execution-limit error")
	}
}

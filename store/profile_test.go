package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestProfileRecordAndTopOpcodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.duckdb")
	p, err := OpenProfile(path)
	if err != nil {
		t.Fatalf("OpenProfile: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	if err := p.Record(ctx, 1, "english", map[string]int64{"ADD": 5, "HALT": 1}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := p.Record(ctx, 2, "english", map[string]int64{"ADD": 3, "PRINT": 2}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	top, err := p.TopOpcodes(ctx, "english", 5)
	if err != nil {
		t.Fatalf("TopOpcodes: %v", err)
	}
	if top["ADD"] != 8 {
		t.Errorf("ADD total = %d, want 8 (summed across both runs)", top["ADD"])
	}
	if top["HALT"] != 1 {
		t.Errorf("HALT total = %d, want 1", top["HALT"])
	}
	if top["PRINT"] != 2 {
		t.Errorf("PRINT total = %d, want 2", top["PRINT"])
	}
}

func TestProfileTopOpcodesLimitsResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.duckdb")
	p, err := OpenProfile(path)
	if err != nil {
		t.Fatalf("OpenProfile: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	counts := map[string]int64{"ADD": 1, "SUB": 2, "MUL": 3, "DIV": 4}
	if err := p.Record(ctx, 1, "english", counts); err != nil {
		t.Fatalf("Record: %v", err)
	}

	top, err := p.TopOpcodes(ctx, "english", 2)
	if err != nil {
		t.Fatalf("TopOpcodes: %v", err)
	}
	if len(top) != 2 {
		t.Errorf("got %d opcodes, want 2 (limit applied)", len(top))
	}
}

func TestProfileTopOpcodesEmptyForUnknownLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.duckdb")
	p, err := OpenProfile(path)
	if err != nil {
		t.Fatalf("OpenProfile: %v", err)
	}
	defer p.Close()

	top, err := p.TopOpcodes(context.Background(), "klingon", 5)
	if err != nil {
		t.Fatalf("TopOpcodes: %v", err)
	}
	if len(top) != 0 {
		t.Errorf("got %d opcodes, want 0", len(top))
	}
}

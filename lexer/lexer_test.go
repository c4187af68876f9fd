package lexer

import (
	"testing"

	"github.com/babellang/babel/lang"
)

func englishOrFail(t *testing.T) lang.Language {
	t.Helper()
	l, ok := lang.Lookup("english")
	if !ok {
		t.Fatal("english language table not registered")
	}
	return l
}

func allTokens(t *testing.T, src string) []Token {
	t.Helper()
	lx := New(src, englishOrFail(t))
	var out []Token
	for {
		tok := lx.NextToken()
		out = append(out, tok)
		if tok.Kind == EOF {
			return out
		}
	}
}

func TestKeywordsResolveAgainstLanguageTable(t *testing.T) {
	toks := allTokens(t, "if else while for function return var true false null")
	want := []Kind{IF, ELSE, WHILE, FOR, FUNCTION, RETURN, VAR, TRUE, FALSE, NULL, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d = %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestIdentifierNotAKeyword(t *testing.T) {
	toks := allTokens(t, "iffy")
	if toks[0].Kind != IDENTIFIER || toks[0].Lexeme != "iffy" {
		t.Errorf("got %v, want IDENTIFIER(iffy)", toks[0])
	}
}

func TestOperators(t *testing.T) {
	toks := allTokens(t, "+ - * / % = == != < <= > >= && || !")
	want := []Kind{PLUS, MINUS, STAR, SLASH, PERCENT, ASSIGN, EQ, NOTEQ, LT, LE, GT, GE, AND, OR, NOT, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d = %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestNumberMaximalRun(t *testing.T) {
	toks := allTokens(t, "123 3.14 1.2.3")
	if toks[0].Kind != NUMBER || toks[0].Lexeme != "123" {
		t.Errorf("token 0 = %v, want NUMBER(123)", toks[0])
	}
	if toks[1].Kind != NUMBER || toks[1].Lexeme != "3.14" {
		t.Errorf("token 1 = %v, want NUMBER(3.14)", toks[1])
	}
	if toks[2].Kind != NUMBER || toks[2].Lexeme != "1.2.3" {
		t.Errorf("token 2 = %v, want NUMBER(1.2.3) (malformed literals are still lexed, rejected later)", toks[2])
	}
}

func TestStringDoubleAndSingleQuoted(t *testing.T) {
	toks := allTokens(t, `"hello" 'world'`)
	if toks[0].Kind != STRING || toks[0].Lexeme != "hello" {
		t.Errorf("token 0 = %v, want STRING(hello)", toks[0])
	}
	if toks[1].Kind != STRING || toks[1].Lexeme != "world" {
		t.Errorf("token 1 = %v, want STRING(world)", toks[1])
	}
}

func TestStringEscapes(t *testing.T) {
	toks := allTokens(t, `"a\nb\tc\\d\"e"`)
	want := "a\nb\tc\\d\"e"
	if toks[0].Kind != STRING || toks[0].Lexeme != want {
		t.Errorf("token 0 = %q, want %q", toks[0].Lexeme, want)
	}
}

func TestUnterminatedStringIsUnknown(t *testing.T) {
	toks := allTokens(t, `"never closes`)
	if toks[0].Kind != UNKNOWN {
		t.Errorf("unterminated string should lex as UNKNOWN, got %v", toks[0])
	}
}

func TestBadCharacterNeverAborts(t *testing.T) {
	toks := allTokens(t, "1 @ 2")
	if toks[0].Kind != NUMBER || toks[1].Kind != UNKNOWN || toks[2].Kind != NUMBER {
		t.Fatalf("got %v, want NUMBER, UNKNOWN, NUMBER", toks[:3])
	}
	if toks[len(toks)-1].Kind != EOF {
		t.Error("lexer should keep scanning to EOF after an UNKNOWN token")
	}
}

func TestEOFIsSticky(t *testing.T) {
	lx := New("", englishOrFail(t))
	first := lx.NextToken()
	second := lx.NextToken()
	if first.Kind != EOF || second.Kind != EOF {
		t.Error("NextToken should keep returning EOF forever at end of input")
	}
}

func TestPositionsTrackLinesAndColumns(t *testing.T) {
	toks := allTokens(t, "var x = 1;\nvar y = 2;")
	// find the second 'var'
	var second Token
	count := 0
	for _, tok := range toks {
		if tok.Kind == VAR {
			count++
			if count == 2 {
				second = tok
			}
		}
	}
	if second.Line != 2 {
		t.Errorf("second var keyword at line %d, want 2", second.Line)
	}
	if second.Column != 1 {
		t.Errorf("second var keyword at column %d, want 1", second.Column)
	}
}

func TestNoCommentSyntax(t *testing.T) {
	// This language has no comment syntax; '#' and a bare '/' followed
	// by '/' are ordinary/unknown tokens, not skipped.
	toks := allTokens(t, "# 1")
	if toks[0].Kind != UNKNOWN {
		t.Errorf("'#' should lex as UNKNOWN (no comment support), got %v", toks[0])
	}
}

func TestDifferentLanguageKeywords(t *testing.T) {
	hindi, ok := lang.Lookup("hindi")
	if !ok {
		t.Fatal("hindi language table not registered")
	}
	lx := New("agar warna jabtak", hindi)
	kinds := []Kind{IF, ELSE, WHILE, EOF}
	for _, want := range kinds {
		if got := lx.NextToken().Kind; got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	}
}

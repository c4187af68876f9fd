// Package lang implements the Language Table: a registry of named
// human languages, each supplying the keyword spellings a program
// written in that language uses for control flow, literals and the
// built-in print/input operations.
//
// Adding a language means dropping a new tables/*.toml file into this
// package and re-embedding; nothing in the lexer changes.
package lang

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

//go:embed tables/*.toml
var tableFS embed.FS

//go:embed schema.cue
var schemaSource string

// Language is one entry in the table: the keyword and literal
// spellings a lexer should recognize when this language is active.
type Language struct {
	Name string `toml:"name"`

	IfKeyword       string `toml:"if_keyword"`
	ElseKeyword     string `toml:"else_keyword"`
	WhileKeyword    string `toml:"while_keyword"`
	ForKeyword      string `toml:"for_keyword"`
	FunctionKeyword string `toml:"function_keyword"`
	ReturnKeyword   string `toml:"return_keyword"`
	VarKeyword      string `toml:"var_keyword"`

	TrueLiteral  string `toml:"true_literal"`
	FalseLiteral string `toml:"false_literal"`
	NullLiteral  string `toml:"null_literal"`

	PrintName string `toml:"print_name"`
	InputName string `toml:"input_name"`
}

// keywords returns every keyword/literal/builtin spelling in l,
// labeled by field name, for distinctness checking.
func (l Language) keywords() map[string]string {
	return map[string]string{
		"if_keyword":       l.IfKeyword,
		"else_keyword":     l.ElseKeyword,
		"while_keyword":    l.WhileKeyword,
		"for_keyword":      l.ForKeyword,
		"function_keyword": l.FunctionKeyword,
		"return_keyword":   l.ReturnKeyword,
		"var_keyword":      l.VarKeyword,
		"true_literal":     l.TrueLiteral,
		"false_literal":    l.FalseLiteral,
		"null_literal":     l.NullLiteral,
		"print_name":       l.PrintName,
		"input_name":       l.InputName,
	}
}

// IsPrint reports whether name is this language's spelling of print.
func (l Language) IsPrint(name string) bool { return name == l.PrintName }

// IsInput reports whether name is this language's spelling of input.
func (l Language) IsInput(name string) bool { return name == l.InputName }

var (
	registry     map[string]Language
	registryList []Language
)

func init() {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		panic(fmt.Sprintf("lang: invalid schema.cue: %v", err))
	}
	def := schema.LookupPath(cue.ParsePath("#Language"))

	entries, err := tableFS.ReadDir("tables")
	if err != nil {
		panic(fmt.Sprintf("lang: cannot read embedded tables: %v", err))
	}

	registry = make(map[string]Language, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := tableFS.ReadFile("tables/" + entry.Name())
		if err != nil {
			panic(fmt.Sprintf("lang: cannot read %s: %v", entry.Name(), err))
		}

		var l Language
		if _, err := toml.Decode(string(data), &l); err != nil {
			panic(fmt.Sprintf("lang: cannot decode %s: %v", entry.Name(), err))
		}

		if err := validate(ctx, def, l); err != nil {
			panic(fmt.Sprintf("lang: %s failed schema validation: %v", entry.Name(), err))
		}
		if err := checkDistinct(l); err != nil {
			panic(fmt.Sprintf("lang: %s: %v", entry.Name(), err))
		}

		if _, dup := registry[l.Name]; dup {
			panic(fmt.Sprintf("lang: duplicate language name %q", l.Name))
		}
		registry[l.Name] = l
		registryList = append(registryList, l)
	}

	sort.Slice(registryList, func(i, j int) bool { return registryList[i].Name < registryList[j].Name })
}

func validate(ctx *cue.Context, def cue.Value, l Language) error {
	// Encode by schema field name: Language carries only toml tags, and
	// cue's Encode would otherwise key fields by their Go names.
	fields := l.keywords()
	fields["name"] = l.Name
	unified := def.Unify(ctx.Encode(fields))
	return unified.Validate(cue.Concrete(true))
}

func checkDistinct(l Language) error {
	seen := make(map[string]string)
	for field, spelling := range l.keywords() {
		if other, ok := seen[spelling]; ok {
			return fmt.Errorf("keyword %q used by both %s and %s", spelling, other, field)
		}
		seen[spelling] = field
	}
	return nil
}

// Lookup returns the language registered under name.
func Lookup(name string) (Language, bool) {
	l, ok := registry[name]
	return l, ok
}

// List returns every registered language, sorted by name.
func List() []Language {
	out := make([]Language, len(registryList))
	copy(out, registryList)
	return out
}

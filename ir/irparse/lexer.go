package irparse

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// irLexer tokenizes the textual IR form produced by ir.Fprint. Newlines
// terminate statements and are significant; a newline run together with
// any following blank lines and indentation collapses into one EOL token.
var irLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Comment", Pattern: `//[^\n]*`, Action: nil},

		// Value and symbol references carry their sigil.
		{Name: "Local", Pattern: `%[a-zA-Z0-9_]+`, Action: nil},
		{Name: "At", Pattern: `@[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},

		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "Int", Pattern: `-?[0-9]+`, Action: nil},

		{Name: "Punct", Pattern: `[{}(),:=<>]`, Action: nil},

		{Name: "EOL", Pattern: `[\r\n][\r\n\t ]*`, Action: nil},
		{Name: "Whitespace", Pattern: `[ \t]+`, Action: nil},
	},
})

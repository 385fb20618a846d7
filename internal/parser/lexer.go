package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer maps raw expression text into tokens for the AST definitions.
// Order matters: Number must win over the "." operator so ".5" lexes as a number.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$]*`},
	{Name: "Operator", Pattern: `===|!==|==|!=|<=|>=|&&|\|\||[-+*/%<>!?:.(),]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// Build creates the expression parser based on the struct tags in `ast.go`.
// The returned parser holds no per-parse state and may be shared between goroutines.
func Build() *participle.Parser[Expression] {
	return participle.MustBuild[Expression](
		participle.Lexer(Lexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
}

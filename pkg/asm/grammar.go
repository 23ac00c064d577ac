// Package asm assembles wordvm text into images.
// The grammar is defined as Go structs with participle tags.
package asm

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Source layout:
//
//	; comment
//	label:
//	        pushconst 'h'        ; operands: 42, 0x2A, 0b101, 'c', label
//	        jnz label
//	        .text "hi\n"         ; pushes the bytes last-first for sysout

type program struct {
	Lines []*line `parser:"@@*"`
}

// line: label* instruction? EOL
type line struct {
	Pos    lexer.Position
	Labels []string `parser:"@Label*"`
	Instr  *instr   `parser:"@@? EOL"`
}

type instr struct {
	Pos      lexer.Position
	Name     string     `parser:"@Ident"`
	Operands []*operand `parser:"( @@ ( \",\" @@ )* )?"`
}

type operand struct {
	Pos    lexer.Position
	Number *string `parser:"  @Number"`
	Char   *string `parser:"| @Char"`
	String *string `parser:"| @String"`
	Ref    *string `parser:"| @Ident"`
}

var asmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "EOL", Pattern: `\n`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},

	// labels carry their colon so they never collide with operand refs
	{Name: "Label", Pattern: `[A-Za-z_][A-Za-z0-9_]*:`},

	{Name: "Number", Pattern: `0[xX][0-9a-fA-F_]+|0[bB][01_]+|0[oO][0-7_]+|[0-9][0-9_]*`},
	{Name: "Char", Pattern: `'(\\.[^']*|[^'\\])'`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_.][A-Za-z0-9_.]*`},
	{Name: "Punct", Pattern: `,`},
})

var parser = participle.MustBuild[program](
	participle.Lexer(asmLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

package asm

import "github.com/alecthomas/participle/v2/lexer"

// Lexer tokenizes the §6 textual assembly format: func/proc/entity/declare
// units, %local and @global names, integer and SI time literals, and the
// small fixed punctuation set the grammar needs.
//
// Grounded on the teacher's grammar.KansoLexer (participle/v2's stateful
// lexer, one "Root" state, ordered rules, comments/identifiers/operators/
// punctuation/whitespace in that priority order); the rule set below is
// this format's instead of Kanso's source-language tokens.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "TimeLit", Pattern: `[0-9]+(\.[0-9]+)?(fs|ps|ns|us|ms|s)`},
	{Name: "DeltaLit", Pattern: `[0-9]+d`},
	{Name: "EpsilonLit", Pattern: `[0-9]+e`},
	{Name: "GlobalIdent", Pattern: `@([A-Za-z_][A-Za-z0-9_]*|\\[0-9a-fA-F]{2})+`},
	{Name: "LocalIdent", Pattern: `%([A-Za-z_][A-Za-z0-9_.]*|[0-9]+|\\[0-9a-fA-F]{2})+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Integer", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[(){}\[\],:=*$-]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

package sandbox

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/Open-MBEE/flexo-mms-layer1-service-sub001/pkg/apperror"
)

// Rules are tried in order; the first match wins.
var sparqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "IRIRef", Pattern: "<[^<>\"{}|^`\\\\\\x00-\\x20]*>"},
	{Name: "LongString", Pattern: `"""(?:[^\\]|\\.)*?"""|'''(?:[^\\]|\\.)*?'''`},
	{Name: "String", Pattern: `"(?:[^"\\\n\r]|\\.)*"|'(?:[^'\\\n\r]|\\.)*'`},
	{Name: "LangTag", Pattern: `@[a-zA-Z]+(?:-[a-zA-Z0-9]+)*`},
	{Name: "Var", Pattern: `[?$][\p{L}\p{N}_]+`},
	{Name: "Blank", Pattern: `_:[\p{L}\p{N}_](?:[\p{L}\p{N}_.\-]*[\p{L}\p{N}_\-])?`},
	{Name: "PName", Pattern: `(?:\p{L}(?:[\p{L}\p{N}_.\-]*[\p{L}\p{N}_\-])?)?:(?:(?:[\p{L}\p{N}_:%\-]|\\[_~.\-!$&'()*+,;=/?#@%])(?:(?:[\p{L}\p{N}_:%\-.]|\\[_~.\-!$&'()*+,;=/?#@%])*(?:[\p{L}\p{N}_:%\-]|\\[_~.\-!$&'()*+,;=/?#@%]))?)?`},
	{Name: "Number", Pattern: `[+\-]?(?:\d*\.\d+(?:[eE][+\-]?\d+)?|\d+\.\d*[eE][+\-]?\d+|\d+(?:[eE][+\-]?\d+)?)`},
	{Name: "DoubleCaret", Pattern: `\^\^`},
	{Name: "Op", Pattern: `\|\||&&|!=|<=|>=|[=<>!+\-*/|^?]`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[{}()\[\];,.]`},
})

type kind int

const (
	kEOF kind = iota
	kIRI
	kString
	kLangTag
	kVar
	kBlank
	kPName
	kNumber
	kDoubleCaret
	kOp
	kIdent
	kPunct
)

type token struct {
	kind  kind
	value string
	line  int
	col   int
}

func (t token) is(k kind, v string) bool { return t.kind == k && t.value == v }

func (t token) keyword(kw string) bool { return t.kind == kIdent && strings.EqualFold(t.value, kw) }

func (t token) punct(v string) bool { return t.kind == kPunct && t.value == v }

// tokenize splits text into tokens, dropping whitespace and comments.
func tokenize(text string) ([]token, error) {
	symbols := sparqlLexer.Symbols()
	names := make(map[lexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		names[tt] = name
	}

	lex, err := sparqlLexer.LexString("", text)
	if err != nil {
		return nil, syntaxError(err.Error())
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, syntaxError(err.Error())
	}

	out := make([]token, 0, len(raw))
	for _, r := range raw {
		t := token{value: r.Value, line: r.Pos.Line, col: r.Pos.Column}
		if r.EOF() {
			t.kind = kEOF
			out = append(out, t)
			break
		}
		switch names[r.Type] {
		case "Comment", "Whitespace":
			continue
		case "IRIRef":
			t.kind = kIRI
		case "LongString", "String":
			t.kind = kString
		case "LangTag":
			t.kind = kLangTag
		case "Var":
			t.kind = kVar
		case "Blank":
			t.kind = kBlank
		case "PName":
			t.kind = kPName
		case "Number":
			t.kind = kNumber
		case "DoubleCaret":
			t.kind = kDoubleCaret
		case "Op":
			t.kind = kOp
		case "Ident":
			t.kind = kIdent
		case "Punct":
			t.kind = kPunct
		default:
			return nil, syntaxError("unexpected input " + r.Value)
		}
		out = append(out, t)
	}
	if len(out) == 0 || out[len(out)-1].kind != kEOF {
		out = append(out, token{kind: kEOF})
	}
	return out, nil
}

func syntaxError(msg string) *apperror.Error {
	return apperror.ErrSyntax.WithMessage("Invalid SPARQL: " + msg)
}

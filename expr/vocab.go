// Package expr holds the filter expression model: token vocabulary, validation,
// compilation to query conditions and auto-completion.
package expr

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	nt "opgateway/entity"
)

const (
	AndOp      = "and"
	OrOp       = "or"
	NotOp      = "not"
	OpenParen  = "("
	CloseParen = ")"
)

type operator struct {
	symbol string
	mongo  string
	unary  bool
}

var operators = []operator{
	{symbol: "=", mongo: "$eq"},
	{symbol: "!=", mongo: "$ne"},
	{symbol: "<", mongo: "$lt"},
	{symbol: "<=", mongo: "$lte"},
	{symbol: ">", mongo: "$gt"},
	{symbol: ">=", mongo: "$gte"},
	{symbol: "is null", mongo: "$eq", unary: true},
	{symbol: "is not null", mongo: "$ne", unary: true},
}

func lookupOperator(symbol string) (operator, bool) {
	for _, op := range operators {
		if op.symbol == symbol {
			return op, true
		}
	}
	return operator{}, false
}

// Channel returns a token referencing ch.
func Channel(ch nt.Channel) nt.Token {
	return nt.Token{Type: nt.ChannelToken, Value: ch.Name, Label: ch.Display()}
}

// Op returns a comparison operator token, panicking on an unknown symbol.
func Op(symbol string) nt.Token {
	if _, ok := lookupOperator(symbol); !ok {
		panic("unknown comparison operator: " + symbol)
	}
	return nt.Token{Type: nt.CompOpToken, Value: symbol, Label: symbol}
}

// Operators returns a token for each comparison operator.
func Operators() []nt.Token {
	tokens := make([]nt.Token, len(operators))
	for i, op := range operators {
		tokens[i] = Op(op.symbol)
	}
	return tokens
}

func And() nt.Token   { return logic(AndOp) }
func Or() nt.Token    { return logic(OrOp) }
func Not() nt.Token   { return logic(NotOp) }
func Open() nt.Token  { return paren(OpenParen) }
func Close() nt.Token { return paren(CloseParen) }

// String returns a string literal token.
func String(val string) nt.Token {
	return nt.Token{Type: nt.StringToken, Value: val, Label: strconv.Quote(val)}
}

// Number returns a number literal token.
func Number(val string) (tkn nt.Token, err error) {

	val = strings.TrimSpace(val)
	_, err = strconv.ParseFloat(val, 64)
	if err != nil {
		err = errors.Wrapf(err, "not a number: %q", val)
		return
	}

	tkn = nt.Token{Type: nt.NumberToken, Value: val, Label: val}
	return
}

// Literal returns a number token when text parses as one, otherwise a string token.
// Surrounding quotes are stripped from strings.
func Literal(text string) nt.Token {

	if tkn, err := Number(text); err == nil {
		return tkn
	}

	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' || first == '\'') && first == last {
			text = text[1 : len(text)-1]
		}
	}
	return String(text)
}

// unexported

func logic(val string) nt.Token {
	return nt.Token{Type: nt.LogicToken, Value: val, Label: val}
}

func paren(val string) nt.Token {
	return nt.Token{Type: nt.ParenthesisToken, Value: val, Label: val}
}

func isConnective(tkn nt.Token) bool {
	return tkn.Is(nt.LogicToken, AndOp) || tkn.Is(nt.LogicToken, OrOp)
}

func isNot(tkn nt.Token) bool {
	return tkn.Is(nt.LogicToken, NotOp)
}

func isOpen(tkn nt.Token) bool {
	return tkn.Is(nt.ParenthesisToken, OpenParen)
}

func isClose(tkn nt.Token) bool {
	return tkn.Is(nt.ParenthesisToken, CloseParen)
}

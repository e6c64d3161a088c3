package expr

import (
	"github.com/pkg/errors"

	nt "opgateway/entity"
)

// Reason identifies why a token sequence is malformed.
type Reason int

const (
	None Reason = iota
	MissingOperand
	UnbalancedParenthesis
	DanglingConnective
	UnexpectedToken
)

var reasonText = map[Reason]string{
	None:                  "",
	MissingOperand:        "Missing operand",
	UnbalancedParenthesis: "Unbalanced parenthesis",
	DanglingConnective:    "Dangling connective",
	UnexpectedToken:       "Unexpected token",
}

func (reason Reason) String() string {
	return reasonText[reason]
}

// Status is the outcome of a validation.
type Status int

const (
	Valid Status = iota
	Empty
	Invalid
)

// Result reports validity and, for an invalid sequence, the first error and its token index.
type Result struct {
	Status   Status
	Reason   Reason
	Position int
}

// Ok is true for a valid or empty sequence; either may be applied.
func (res Result) Ok() bool {
	return res.Status != Invalid
}

// Message returns the text shown to the user, empty unless invalid.
func (res Result) Message() string {
	if res.Status != Invalid {
		return ""
	}
	return res.Reason.String()
}

// Err returns the result as an error, nil unless invalid.
func (res Result) Err() error {
	if res.Status != Invalid {
		return nil
	}
	return errors.Errorf("%s at token %d", res.Reason, res.Position)
}

// Validate checks that tokens form a complete boolean expression.
func Validate(tokens []nt.Token) Result {

	if len(tokens) == 0 {
		return Result{Status: Empty}
	}

	sc := &scanner{}
	for i, tkn := range tokens {
		reason := sc.step(i, tkn)
		if reason != None {
			return Result{Status: Invalid, Reason: reason, Position: i}
		}
	}

	if sc.pos != ConnectivePos {
		return Result{Status: Invalid, Reason: MissingOperand, Position: len(tokens)}
	}
	if len(sc.opens) > 0 {
		return Result{Status: Invalid, Reason: UnbalancedParenthesis, Position: sc.opens[0]}
	}

	return Result{Status: Valid}
}

// Applicable reports whether every enabled filter may be applied.
func Applicable(filters []nt.Filter) bool {

	for _, filter := range filters {
		if !filter.Enabled {
			continue
		}
		if !Validate(filter.Tokens).Ok() {
			return false
		}
	}
	return true
}

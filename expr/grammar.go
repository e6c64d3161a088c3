package expr

import nt "opgateway/entity"

// Position is the grammatical slot the next token fills.
type Position int

const (
	OperandPos    Position = iota // start of a sub-expression: channel, "(" or "not"
	OperatorPos                   // after a channel: comparison operator
	ValuePos                      // after a binary comparison operator: literal
	ConnectivePos                 // after a complete comparison or ")": "and", "or", ")"
)

// scanner walks a token sequence left to right, tracking the grammar position.
type scanner struct {
	pos     Position
	negated bool  // channel already carries an infix "not"
	opens   []int // indices of unmatched "("
}

// step consumes one token, returning the reason it is not acceptable.
func (sc *scanner) step(idx int, tkn nt.Token) Reason {

	switch sc.pos {
	case OperandPos:
		switch {
		case tkn.Type == nt.ChannelToken:
			sc.pos = OperatorPos
			sc.negated = false
		case isOpen(tkn):
			sc.opens = append(sc.opens, idx)
		case isNot(tkn):
		case isConnective(tkn):
			// nothing complete on its left
			return DanglingConnective
		case isClose(tkn):
			if len(sc.opens) == 0 {
				return UnbalancedParenthesis
			}
			return MissingOperand
		case tkn.Type == nt.CompOpToken:
			return MissingOperand
		default:
			return UnexpectedToken
		}

	case OperatorPos:
		switch {
		case tkn.Type == nt.CompOpToken:
			op, ok := lookupOperator(tkn.Value)
			if !ok {
				return UnexpectedToken
			}
			sc.pos = ValuePos
			if op.unary {
				sc.pos = ConnectivePos
			}
		case isNot(tkn) && !sc.negated:
			sc.negated = true
		case isConnective(tkn), isClose(tkn):
			return MissingOperand
		default:
			return UnexpectedToken
		}

	case ValuePos:
		switch {
		case tkn.IsValue():
			sc.pos = ConnectivePos
		case isConnective(tkn), isClose(tkn):
			return MissingOperand
		default:
			return UnexpectedToken
		}

	case ConnectivePos:
		switch {
		case isConnective(tkn):
			sc.pos = OperandPos
		case isClose(tkn):
			if len(sc.opens) == 0 {
				return UnbalancedParenthesis
			}
			sc.opens = sc.opens[:len(sc.opens)-1]
		default:
			return UnexpectedToken
		}
	}

	return None
}

// Expectation describes what may follow a token sequence.
type Expectation struct {
	Position Position
	Depth    int  // unmatched open parentheses
	Negated  bool // the channel awaiting an operator already carries "not"
	Broken   bool // the sequence is already malformed
}

// Expect reports the grammar position reached after tokens.
func Expect(tokens []nt.Token) Expectation {

	sc := &scanner{}
	for i, tkn := range tokens {
		if sc.step(i, tkn) != None {
			return Expectation{Position: sc.pos, Depth: len(sc.opens), Broken: true}
		}
	}

	return Expectation{
		Position: sc.pos,
		Depth:    len(sc.opens),
		Negated:  sc.pos == OperatorPos && sc.negated,
	}
}

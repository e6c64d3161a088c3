package expr

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	nt "opgateway/entity"
)

const (
	andKey = "$and"
	orKey  = "$or"
	notKey = "$not"
)

// Compile converts a valid token sequence into a query condition.
//
// Grammar, with "and" and "or" sharing one precedence level, left to right:
//
//	expr       → unary (("and" | "or") unary)*
//	unary      → "not" unary | primary
//	primary    → "(" expr ")" | comparison
//	comparison → channel ["not"] compop [literal]
func Compile(tokens []nt.Token) (cond nt.Condition, err error) {

	res := Validate(tokens)
	if res.Status != Valid {
		err = errors.Errorf("cannot compile: %s", res.Message())
		if res.Status == Empty {
			err = errors.New("cannot compile: empty filter")
		}
		return
	}

	psr := &parser{tokens: tokens}
	root, err := psr.parseExpr()
	if err != nil {
		return
	}
	if psr.pos != len(tokens) {
		err = errors.Errorf("unexpected token %q at %d", psr.current(), psr.pos)
		return
	}

	cond = root.lower(false)
	return
}

// Conditions combines the enabled, non-empty filters into one condition.
// It returns false when no filter applies, in which case no conditions should be sent.
func Conditions(filters []nt.Filter) (cond nt.Condition, ok bool, err error) {

	var conds []nt.Condition
	for i, filter := range filters {
		if !filter.Enabled || len(filter.Tokens) == 0 {
			continue
		}

		var compiled nt.Condition
		compiled, err = Compile(filter.Tokens)
		if err != nil {
			err = errors.Wrapf(err, "filter %d", i)
			return
		}
		conds = append(conds, compiled)
	}

	if len(conds) == 0 {
		return
	}

	cond = nt.Condition{andKey: conds}
	ok = true
	return
}

// Encode renders a condition as the JSON text of the conditions parameter.
func Encode(cond nt.Condition) (string, error) {

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(cond)
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode conditions")
	}

	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unexported

type nodeKind int

const (
	leafNode nodeKind = iota
	andNode
	orNode
	notNode
)

type node struct {
	kind     nodeKind
	children []*node

	// leaf only
	path    string
	op      operator
	value   any
	negated bool
}

// lower renders the node as a condition, pushing negation down to the leaves.
func (nd *node) lower(negate bool) nt.Condition {

	switch nd.kind {
	case notNode:
		return nd.children[0].lower(!negate)

	case andNode, orNode:
		key := andKey
		if (nd.kind == orNode) != negate {
			key = orKey
		}

		conds := make([]nt.Condition, len(nd.children))
		for i, child := range nd.children {
			conds[i] = child.lower(negate)
		}
		return nt.Condition{key: conds}
	}

	cmp := nt.Condition{nd.op.mongo: nd.value}
	if nd.negated != negate {
		cmp = nt.Condition{notKey: cmp}
	}
	return nt.Condition{nd.path: cmp}
}

type parser struct {
	tokens []nt.Token
	pos    int
}

func (psr *parser) current() nt.Token {
	if psr.pos >= len(psr.tokens) {
		return nt.Token{}
	}
	return psr.tokens[psr.pos]
}

func (psr *parser) advance() nt.Token {
	tkn := psr.current()
	psr.pos++
	return tkn
}

// parseExpr parses: unary (("and" | "or") unary)*
func (psr *parser) parseExpr() (*node, error) {

	left, err := psr.parseUnary()
	if err != nil {
		return nil, err
	}

	// run is the connective node built by this loop, extended while the connective repeats
	var run *node
	for isConnective(psr.current()) {
		kind := andNode
		if psr.advance().Value == OrOp {
			kind = orNode
		}

		right, err := psr.parseUnary()
		if err != nil {
			return nil, err
		}

		if run != nil && run.kind == kind {
			run.children = append(run.children, right)
			continue
		}
		run = &node{kind: kind, children: []*node{left, right}}
		left = run
	}

	return left, nil
}

// parseUnary parses: "not" unary | primary
func (psr *parser) parseUnary() (*node, error) {

	if isNot(psr.current()) {
		psr.advance()
		child, err := psr.parseUnary()
		if err != nil {
			return nil, err
		}
		return &node{kind: notNode, children: []*node{child}}, nil
	}

	return psr.parsePrimary()
}

// parsePrimary parses: "(" expr ")" | comparison
func (psr *parser) parsePrimary() (*node, error) {

	tkn := psr.current()

	if isOpen(tkn) {
		psr.advance()
		nd, err := psr.parseExpr()
		if err != nil {
			return nil, err
		}
		if !isClose(psr.current()) {
			return nil, errors.Errorf("expected %q at %d", CloseParen, psr.pos)
		}
		psr.advance()
		return nd, nil
	}

	if tkn.Type != nt.ChannelToken {
		return nil, errors.Errorf("expected channel at %d, got %q", psr.pos, tkn)
	}
	return psr.parseComparison()
}

// parseComparison parses: channel ["not"] compop [literal]
func (psr *parser) parseComparison() (*node, error) {

	channel := psr.advance()
	nd := &node{
		kind: leafNode,
		path: nt.RecordPath(channel.Value, nt.IsMetadata(channel.Value)),
	}

	if isNot(psr.current()) {
		psr.advance()
		nd.negated = true
	}

	opTkn := psr.advance()
	op, ok := lookupOperator(opTkn.Value)
	if opTkn.Type != nt.CompOpToken || !ok {
		return nil, errors.Errorf("expected comparison operator at %d, got %q", psr.pos-1, opTkn)
	}
	nd.op = op

	if op.unary {
		return nd, nil
	}

	literal := psr.advance()
	value, err := coerce(literal)
	if err != nil {
		return nil, err
	}
	nd.value = value

	return nd, nil
}

func coerce(tkn nt.Token) (any, error) {

	switch tkn.Type {
	case nt.NumberToken:
		num, err := strconv.ParseFloat(tkn.Value, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad number literal %q", tkn.Value)
		}
		return num, nil
	case nt.StringToken:
		return tkn.Value, nil
	}

	return nil, errors.Errorf("expected literal, got %q", tkn)
}

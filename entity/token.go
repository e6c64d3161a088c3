package entity

// TokenType classifies a filter token.
type TokenType string

const (
	ChannelToken     TokenType = "channel"
	CompOpToken      TokenType = "compop"
	LogicToken       TokenType = "logic"
	ParenthesisToken TokenType = "parenthesis"
	StringToken      TokenType = "string"
	NumberToken      TokenType = "number"
)

// Token is the atomic unit of a filter expression.
// Value carries the machine form (a channel's system name, an operator symbol, a literal)
// and Label the form shown to the user.
type Token struct {
	Type  TokenType `json:"type" yaml:"type"`
	Value string    `json:"value" yaml:"value"`
	Label string    `json:"label" yaml:"label"`
}

// String returns the label, falling back to the value.
func (tkn Token) String() string {
	if tkn.Label != "" {
		return tkn.Label
	}
	return tkn.Value
}

// IsValue reports whether the token is a literal operand.
func (tkn Token) IsValue() bool {
	return tkn.Type == StringToken || tkn.Type == NumberToken
}

// Is reports whether the token has the given type and value.
func (tkn Token) Is(typ TokenType, value string) bool {
	return tkn.Type == typ && tkn.Value == value
}

package expr

import (
	"slices"
	"sort"
	"strings"

	nt "opgateway/entity"
)

// Completion is the editor state after a completion trigger.
type Completion struct {
	Tokens   []nt.Token
	Cursor   int    // insertion index for the next token
	Text     string // raw text left uncommitted
	Inserted bool
	Invalid  bool // Text matches nothing the grammar allows here
}

// Matcher offers grammar-valid tokens for free-text input.
type Matcher struct {
	channels []nt.Token
}

// NewMatcher creates a matcher over the known channels.
func NewMatcher(channels []nt.Channel) *Matcher {

	tokens := make([]nt.Token, len(channels))
	for i, ch := range channels {
		tokens[i] = Channel(ch)
	}

	return &Matcher{channels: tokens}
}

// Vocabulary returns the tokens allowed at index, before any text matching.
func (mtc *Matcher) Vocabulary(tokens []nt.Token, index int) []nt.Token {

	exp := Expect(tokens[:clamp(index, len(tokens))])
	if exp.Broken {
		return nil
	}

	switch exp.Position {
	case OperandPos:
		vocab := slices.Clone(mtc.channels)
		return append(vocab, Open(), Not())
	case OperatorPos:
		vocab := Operators()
		if !exp.Negated {
			vocab = append(vocab, Not())
		}
		return vocab
	case ConnectivePos:
		vocab := []nt.Token{And(), Or()}
		if exp.Depth > 0 {
			vocab = append(vocab, Close())
		}
		return vocab
	}

	// values are free literals
	return nil
}

// Candidates lists the tokens allowed at index that match text, best first.
// Exact matches rank ahead of prefix matches, which rank ahead of substring matches.
func (mtc *Matcher) Candidates(tokens []nt.Token, index int, text string) []nt.Token {

	vocab := mtc.Vocabulary(tokens, index)
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return vocab
	}

	type scored struct {
		tkn   nt.Token
		score int
	}

	var matched []scored
	for _, tkn := range vocab {
		score := matchScore(tkn, needle)
		if score < 0 {
			continue
		}
		matched = append(matched, scored{tkn: tkn, score: score})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].score < matched[j].score
	})

	candidates := make([]nt.Token, len(matched))
	for i, sc := range matched {
		candidates[i] = sc.tkn
	}
	return candidates
}

// Accept tries to turn text into a token inserted at index.
// A token is inserted only on an unambiguous match; otherwise text stays as typed.
func (mtc *Matcher) Accept(tokens []nt.Token, index int, text string) Completion {

	index = clamp(index, len(tokens))
	cmp := Completion{Tokens: tokens, Cursor: index, Text: text}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		cmp.Text = ""
		return cmp
	}

	exp := Expect(tokens[:index])
	if exp.Broken {
		cmp.Invalid = true
		return cmp
	}

	if exp.Position == ValuePos {
		return insert(cmp, Literal(trimmed))
	}

	candidates := mtc.Candidates(tokens, index, trimmed)
	if len(candidates) == 0 {
		cmp.Invalid = true
		return cmp
	}

	var exact []nt.Token
	for _, tkn := range candidates {
		if matchScore(tkn, strings.ToLower(trimmed)) == 0 {
			exact = append(exact, tkn)
		}
	}

	switch {
	case len(exact) == 1:
		return insert(cmp, exact[0])
	case len(candidates) == 1:
		return insert(cmp, candidates[0])
	}

	return cmp
}

// unexported

func insert(cmp Completion, tkn nt.Token) Completion {

	cmp.Tokens = slices.Insert(slices.Clone(cmp.Tokens), cmp.Cursor, tkn)
	cmp.Cursor++
	cmp.Text = ""
	cmp.Inserted = true
	cmp.Invalid = false
	return cmp
}

// matchScore returns 0 for an exact, 1 for a prefix and 2 for a substring match, -1 for none.
func matchScore(tkn nt.Token, needle string) int {

	best := -1
	for _, hay := range []string{strings.ToLower(tkn.Label), strings.ToLower(tkn.Value)} {
		score := -1
		switch {
		case hay == needle:
			score = 0
		case strings.HasPrefix(hay, needle):
			score = 1
		case strings.Contains(hay, needle):
			score = 2
		}
		if score >= 0 && (best < 0 || score < best) {
			best = score
		}
	}
	return best
}

func clamp(idx, length int) int {
	return max(0, min(idx, length))
}

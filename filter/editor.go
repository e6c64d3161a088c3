package filter

import (
	"slices"
	"strings"

	nt "opgateway/entity"
	"opgateway/expr"
	"opgateway/style"
)

const cursorMark = "│"

// Editor edits one filter: its tokens, an insertion cursor between tokens
// and raw text not yet committed to a token.
type Editor struct {
	filter  nt.Filter
	cursor  int
	text    string
	invalid bool
}

// NewEditor returns an editor with the cursor after the last token.
func NewEditor(flt nt.Filter) Editor {
	return Editor{
		filter: nt.Filter{Tokens: slices.Clone(flt.Tokens), Enabled: flt.Enabled},
		cursor: len(flt.Tokens),
	}
}

// Filter returns the edited filter.
func (ed Editor) Filter() nt.Filter {
	return ed.filter
}

// Text returns the uncommitted raw text.
func (ed Editor) Text() string {
	return ed.text
}

// Invalid reports whether the raw text matches nothing allowed at the cursor.
func (ed Editor) Invalid() bool {
	return ed.invalid
}

// Cursor returns the token index new tokens are inserted at.
func (ed Editor) Cursor() int {
	return ed.cursor
}

// Type adds input to the raw text.
func (ed Editor) Type(input string) Editor {
	ed.text += input
	ed.invalid = false
	return ed
}

// Space commits the raw text, or keeps the space as text when nothing was committed.
// Text opened with a quote is kept whole until the quote closes.
func (ed Editor) Space(mtc *expr.Matcher) Editor {

	if ed.text == "" {
		return ed
	}
	if openQuote(ed.text) {
		return ed.Type(" ")
	}

	committed := ed.Commit(mtc)
	if committed.text != "" && !committed.invalid {
		committed.text += " "
	}
	return committed
}

// Commit turns the raw text into a token when it matches unambiguously.
func (ed Editor) Commit(mtc *expr.Matcher) Editor {

	cmp := mtc.Accept(ed.filter.Tokens, ed.cursor, ed.text)

	ed.filter.Tokens = cmp.Tokens
	ed.cursor = cmp.Cursor
	ed.text = strings.TrimRight(cmp.Text, " ")
	ed.invalid = cmp.Invalid
	return ed
}

// Backspace removes a character of raw text, or the token before the cursor.
func (ed Editor) Backspace() Editor {

	if ed.text != "" {
		runes := []rune(ed.text)
		ed.text = string(runes[:len(runes)-1])
		ed.invalid = false
		return ed
	}

	if ed.cursor == 0 {
		return ed
	}

	ed.filter.Tokens = slices.Delete(slices.Clone(ed.filter.Tokens), ed.cursor-1, ed.cursor)
	ed.cursor--
	return ed
}

// Left moves the cursor one token boundary left; ignored while text is pending.
func (ed Editor) Left() Editor {
	if ed.text == "" && ed.cursor > 0 {
		ed.cursor--
	}
	return ed
}

// Right moves the cursor one token boundary right; ignored while text is pending.
func (ed Editor) Right() Editor {
	if ed.text == "" && ed.cursor < len(ed.filter.Tokens) {
		ed.cursor++
	}
	return ed
}

// Toggle flips the enabled flag.
func (ed Editor) Toggle() Editor {
	ed.filter.Enabled = !ed.filter.Enabled
	return ed
}

// Validate validates the committed tokens.
func (ed Editor) Validate() expr.Result {
	return expr.Validate(ed.filter.Tokens)
}

// Suggestions lists up to limit candidates for the raw text at the cursor.
func (ed Editor) Suggestions(mtc *expr.Matcher, limit int) []nt.Token {

	candidates := mtc.Candidates(ed.filter.Tokens, ed.cursor, ed.text)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Render renders the tokens with the cursor and raw text at the insertion point.
func (ed Editor) Render(focused bool) string {

	var parts []string
	for i, tkn := range ed.filter.Tokens {
		if i == ed.cursor {
			parts = append(parts, ed.renderInput(focused)...)
		}
		parts = append(parts, style.Token(tkn))
	}
	if ed.cursor == len(ed.filter.Tokens) {
		parts = append(parts, ed.renderInput(focused)...)
	}

	return strings.Join(parts, " ")
}

func (ed Editor) renderInput(focused bool) []string {

	var parts []string
	if ed.text != "" {
		text := ed.text
		if ed.invalid {
			text = style.Invalid(text)
		}
		parts = append(parts, text)
	}
	if focused {
		parts = append(parts, cursorMark)
	}
	return parts
}

func openQuote(text string) bool {

	for _, quote := range []string{`"`, `'`} {
		if strings.HasPrefix(text, quote) {
			return len(text) == 1 || !strings.HasSuffix(text, quote)
		}
	}
	return false
}

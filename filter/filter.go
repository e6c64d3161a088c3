package filter

import (
	"context"
	"fmt"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	nt "opgateway/entity"
	"opgateway/expr"
	"opgateway/message"
	"opgateway/style"
)

const (
	dialogWidth = 72
	suggestions = 6
)

type mode int

const (
	editing mode = iota
	naming
	browsing
)

// FilterPanel is a modal dialog for editing the filters applied to the view
type FilterPanel struct {
	editors  []Editor
	selected int

	matcher  *expr.Matcher
	channels map[string]nt.Channel

	mode       mode
	name       string
	favourites []nt.Favourite
	favIndex   int
	status     string

	width  int
	height int

	ctx    context.Context
	logger nt.Logger
}

func NewFilterPanel(ctx context.Context, channels []nt.Channel, lgr nt.Logger) FilterPanel {

	byName := map[string]nt.Channel{}
	for _, ch := range channels {
		byName[ch.Name] = ch
	}

	return FilterPanel{
		editors:  []Editor{NewEditor(nt.Filter{Enabled: true})},
		matcher:  expr.NewMatcher(channels),
		channels: byName,
		ctx:      ctx,
		logger:   lgr,
	}
}

func (pnl FilterPanel) Init() tea.Cmd {
	return nil
}

// Filters returns the filters being edited, committed tokens only
func (pnl FilterPanel) Filters() []nt.Filter {
	filters := make([]nt.Filter, len(pnl.editors))
	for i, ed := range pnl.editors {
		filters[i] = ed.Filter()
	}
	return filters
}

// SetFilters replaces the filters being edited
func (pnl FilterPanel) SetFilters(filters []nt.Filter) FilterPanel {

	pnl.editors = nil
	for _, flt := range filters {
		pnl.editors = append(pnl.editors, NewEditor(flt))
	}
	if len(pnl.editors) == 0 {
		pnl.editors = []Editor{NewEditor(nt.Filter{Enabled: true})}
	}

	pnl.selected = 0
	pnl.mode = editing
	pnl.status = ""
	return pnl
}

func (pnl FilterPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case SizeMsg:
		pnl.width = msg.Width
		pnl.height = msg.Height

	case message.OpenFilterMsg:
		pnl = pnl.openOn(msg.Channel, msg.Value)

	case message.FavouritesMsg:
		pnl.favourites = msg.Favourites
		pnl.favIndex = 0
		pnl.mode = browsing
		if len(pnl.favourites) == 0 {
			pnl.mode = editing
			pnl.status = "No favourites saved"
		}

	case tea.KeyPressMsg:
		switch pnl.mode {
		case naming:
			return pnl.handleNaming(msg)
		case browsing:
			return pnl.handleBrowsing(msg)
		}
		return pnl.handleKey(msg)
	}

	return pnl, nil
}

func (pnl FilterPanel) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {

	pnl.status = ""
	ed := pnl.editors[pnl.selected]

	switch msg.String() {
	case "esc":
		return pnl, message.CloseCmd

	case "ctrl+p":
		return pnl.apply()

	case "enter":
		ed = ed.Commit(pnl.matcher)

	case "space":
		ed = ed.Space(pnl.matcher)

	case "backspace":
		ed = ed.Backspace()

	case "left":
		ed = ed.Left()

	case "right":
		ed = ed.Right()

	case "tab":
		ed = ed.Toggle()

	case "up":
		pnl.selected = max(pnl.selected-1, 0)
		return pnl, nil

	case "down":
		pnl.selected = min(pnl.selected+1, len(pnl.editors)-1)
		return pnl, nil

	case "ctrl+n":
		pnl.editors = append(pnl.editors, NewEditor(nt.Filter{Enabled: true}))
		pnl.selected = len(pnl.editors) - 1
		return pnl, nil

	case "ctrl+d":
		pnl.editors = slices.Delete(pnl.editors, pnl.selected, pnl.selected+1)
		if len(pnl.editors) == 0 {
			pnl.editors = []Editor{NewEditor(nt.Filter{Enabled: true})}
		}
		pnl.selected = min(pnl.selected, len(pnl.editors)-1)
		return pnl, nil

	case "ctrl+s":
		res := ed.Validate()
		if res.Status != expr.Valid {
			pnl.status = "Only a complete filter can be saved"
			return pnl, nil
		}
		pnl.mode = naming
		pnl.name = ""
		return pnl, nil

	case "ctrl+f":
		return pnl, func() tea.Msg { return message.GetFavouritesMsg{} }

	default:
		if msg.Text == "" {
			return pnl, nil
		}
		ed = ed.Type(msg.Text)
	}

	pnl.editors[pnl.selected] = ed
	return pnl, nil
}

func (pnl FilterPanel) handleNaming(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {

	switch msg.String() {
	case "esc":
		pnl.mode = editing

	case "enter":
		name := strings.TrimSpace(pnl.name)
		if name == "" {
			pnl.status = "A favourite needs a name"
			return pnl, nil
		}

		tokens := pnl.editors[pnl.selected].Filter().Tokens
		pnl.mode = editing
		pnl.status = fmt.Sprintf("Saved %q", name)
		return pnl, func() tea.Msg {
			return message.SaveFavouriteMsg{Name: name, Tokens: tokens}
		}

	case "backspace":
		runes := []rune(pnl.name)
		if len(runes) > 0 {
			pnl.name = string(runes[:len(runes)-1])
		}

	case "space":
		pnl.name += " "

	default:
		pnl.name += msg.Text
	}

	return pnl, nil
}

func (pnl FilterPanel) handleBrowsing(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {

	switch msg.String() {
	case "esc":
		pnl.mode = editing

	case "up":
		pnl.favIndex = max(pnl.favIndex-1, 0)

	case "down":
		pnl.favIndex = min(pnl.favIndex+1, len(pnl.favourites)-1)

	case "enter":
		fav := pnl.favourites[pnl.favIndex]
		pnl = pnl.addEditor(NewEditor(nt.Filter{Tokens: fav.Tokens, Enabled: true}))
		pnl.mode = editing
	}

	return pnl, nil
}

// apply sends the filters for applying when every enabled one is complete
func (pnl FilterPanel) apply() (tea.Model, tea.Cmd) {

	filters := pnl.Filters()

	for i, ed := range pnl.editors {
		if ed.Filter().Enabled && ed.Text() != "" {
			pnl.selected = i
			pnl.status = "Uncommitted text in filter " + fmt.Sprint(i+1)
			return pnl, nil
		}
	}

	if !expr.Applicable(filters) {
		for i, ed := range pnl.editors {
			res := ed.Validate()
			if ed.Filter().Enabled && !res.Ok() {
				pnl.selected = i
				pnl.status = res.Message()
				break
			}
		}
		return pnl, nil
	}

	pnl.logger.Info(pnl.ctx, "applying filters", "count", len(filters))
	return pnl, tea.Sequence(message.SetFiltersCmd(filters), message.CloseCmd)
}

// openOn starts a filter comparing a channel with a value, replacing an empty selected filter
func (pnl FilterPanel) openOn(channel, value string) FilterPanel {

	ch, ok := pnl.channels[channel]
	if !ok {
		ch = nt.Channel{Name: channel, Metadata: nt.IsMetadata(channel)}
	}

	tokens := []nt.Token{expr.Channel(ch)}
	if value != "" {
		tokens = append(tokens, expr.Op("="), expr.Literal(value))
	}

	return pnl.addEditor(NewEditor(nt.Filter{Tokens: tokens, Enabled: true}))
}

func (pnl FilterPanel) addEditor(ed Editor) FilterPanel {

	last := len(pnl.editors) - 1
	if last >= 0 && len(pnl.editors[last].Filter().Tokens) == 0 && pnl.editors[last].Text() == "" {
		pnl.editors[last] = ed
	} else {
		pnl.editors = append(pnl.editors, ed)
	}
	pnl.selected = len(pnl.editors) - 1
	return pnl
}

// Render renders the dialog box
func (pnl FilterPanel) Render() string {

	var content strings.Builder

	switch pnl.mode {
	case browsing:
		content.WriteString("Favourites:\n")
		for i, fav := range pnl.favourites {
			prefix := "  "
			if i == pnl.favIndex {
				prefix = "> "
			}
			content.WriteString(prefix + fav.Name + "  " + style.MutedStyle.Render(tokenText(fav.Tokens)) + "\n")
		}
		content.WriteString("\n" + style.MutedStyle.Render("↑↓: choose  Enter: add filter  Esc: back"))

	default:
		content.WriteString("Filters:\n")
		for i, ed := range pnl.editors {
			focused := i == pnl.selected && pnl.mode == editing

			prefix := "  "
			if i == pnl.selected {
				prefix = "> "
			}
			enabled := "[ ]"
			if ed.Filter().Enabled {
				enabled = "[x]"
			}
			content.WriteString(prefix + enabled + " " + ed.Render(focused) + "\n")

			if focused {
				var offered []string
				for _, tkn := range ed.Suggestions(pnl.matcher, suggestions) {
					offered = append(offered, tkn.String())
				}
				if len(offered) > 0 {
					content.WriteString("      " + style.MutedStyle.Render(strings.Join(offered, " · ")) + "\n")
				}
			}
		}

		if pnl.mode == naming {
			content.WriteString("\nName: " + pnl.name + cursorMark + "\n")
		}

		status := pnl.status
		if status == "" {
			status = pnl.editors[pnl.selected].Validate().Message()
		}
		if status != "" {
			content.WriteString("\n" + style.ErrorStyle.Render(status) + "\n")
		}

		help := "Space/Enter: accept  Tab: toggle  ^N: new  ^D: delete  ^S: save  ^F: favourites  ^P: apply  Esc: close"
		if pnl.mode == naming {
			help = "Enter: save  Esc: cancel"
		}
		content.WriteString("\n" + style.MutedStyle.Render(help))
	}

	return style.DialogStyle.Width(dialogWidth).Render(content.String())
}

// Layer positions the dialog in the middle of the panel
func (pnl FilterPanel) Layer() *lipgloss.Layer {

	dialog := pnl.Render()

	hPad := max((pnl.width-lipgloss.Width(dialog))/2, 0)
	vPad := max((pnl.height-lipgloss.Height(dialog))/2, 0)

	return lipgloss.NewLayer("filter", dialog).X(hPad).Y(vPad)
}

func (pnl FilterPanel) View() tea.View {
	return tea.NewView(pnl.Layer())
}

func tokenText(tokens []nt.Token) string {
	words := make([]string, len(tokens))
	for i, tkn := range tokens {
		words[i] = tkn.String()
	}
	return strings.Join(words, " ")
}

package detail

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/pkg/errors"

	nt "opgateway/entity"
)

// arrays longer than this are summarised, waveform and image data mostly
const maxArray = 8

// DetailPanel shows a full experiment record
type DetailPanel struct {
	columns []nt.Column // For JSON field parsing

	line         map[string]any
	contentLines []string

	Width        int
	height       int
	Focused      bool
	ScrollOffset int
}

func NewDetailPanel(columns []nt.Column) DetailPanel {
	return DetailPanel{
		columns: columns,
	}
}

func (pnl DetailPanel) Init() tea.Cmd {
	return nil
}

func (pnl DetailPanel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {

	switch msg := msg.(type) {

	case RecordMsg:
		pnl.line = msg.Record
		pnl.computeContentLines()
		pnl.ScrollOffset = 0

	case SizeMsg:
		pnl.Width = msg.Width
		pnl.height = msg.Height
		pnl.ScrollOffset = min(pnl.ScrollOffset, pnl.maxScroll())

	case ColumnsMsg:
		pnl.columns = msg.Columns
		if pnl.line != nil {
			pnl.computeContentLines()
		}

	case tea.KeyPressMsg:
		if !pnl.Focused {
			return pnl, nil
		}

		switch msg.String() {
		case "up", "k":
			pnl.ScrollOffset = max(pnl.ScrollOffset-1, 0)

		case "down", "j":
			pnl.ScrollOffset = min(pnl.ScrollOffset+1, pnl.maxScroll())

		case "pgup", "ctrl+u":
			pnl.ScrollOffset = max(pnl.ScrollOffset-pnl.height, 0)

		case "pgdown", "ctrl+d":
			pnl.ScrollOffset = min(pnl.ScrollOffset+pnl.height, pnl.maxScroll())
		}
	}

	return pnl, nil
}

// Render renders the visible portion of the record
func (pnl DetailPanel) Render() string {
	if pnl.contentLines == nil {
		return "Loading full record..."
	}

	visibleLines := pnl.contentLines[pnl.ScrollOffset:]
	if pnl.height > 0 && len(visibleLines) > pnl.height {
		visibleLines = visibleLines[:pnl.height]
	}

	return strings.Join(visibleLines, "\n")
}

func (pnl DetailPanel) View() tea.View {
	return tea.NewView(pnl.Render())
}

// unexported

func (pnl DetailPanel) maxScroll() int {
	if pnl.height <= 0 {
		return 0
	}
	return max(len(pnl.contentLines)-pnl.height, 0)
}

// computeContentLines renders the record as indented JSON split into lines
func (pnl *DetailPanel) computeContentLines() {

	if pnl.line == nil {
		pnl.contentLines = nil
		return
	}

	data, err := parseJsonFields(pnl.line, pnl.columns)
	if err != nil {
		pnl.contentLines = []string{"Error parsing JSON fields: " + err.Error()}
		return
	}

	var buf strings.Builder
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	err = encoder.Encode(summarise(data))
	if err != nil {
		pnl.contentLines = []string{"Error pretty-printing JSON: " + err.Error()}
		return
	}

	content := strings.TrimSuffix(buf.String(), "\n")
	pnl.contentLines = strings.Split(content, "\n")
}

// summarise replaces long arrays with a count so waveforms do not swamp the view
func summarise(val any) any {

	switch val := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, item := range val {
			out[key] = summarise(item)
		}
		return out
	case []any:
		if len(val) > maxArray {
			return fmt.Sprintf("[%d values]", len(val))
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = summarise(item)
		}
		return out
	}
	return val
}

// parseJsonFields parses JSON-escaped strings in configured metadata fields
func parseJsonFields(data map[string]any, columns []nt.Column) (map[string]any, error) {

	jsonFields := make(map[string]bool)
	for _, col := range columns {
		if col.Json {
			jsonFields[col.Field] = true
		}
	}
	if len(jsonFields) == 0 {
		return data, nil
	}

	result := make(map[string]any, len(data))
	maps.Copy(result, data)

	meta, ok := data["metadata"].(map[string]any)
	if !ok {
		return result, nil
	}
	meta = maps.Clone(meta)
	result["metadata"] = meta

	for key, val := range meta {
		if !jsonFields[key] {
			continue
		}

		str, ok := val.(string)
		if !ok {
			return nil, errors.Errorf("field %q marked as JSON but is not a string", key)
		}
		if str == "" {
			continue
		}

		var parsed any
		err := json.Unmarshal([]byte(str), &parsed)
		if err == nil {
			meta[key] = parsed
		}
	}

	return result, nil
}

package detail

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	nt "opgateway/entity"
)

func record() map[string]any {
	wave := make([]any, 20)
	for i := range wave {
		wave[i] = float64(i)
	}

	return map[string]any{
		"_id": "a",
		"metadata": map[string]any{
			"shotnum":    1.0,
			"activeArea": `{"name":"ea1"}`,
		},
		"channels": map[string]any{
			"WAVE": map[string]any{"data": wave},
		},
	}
}

func TestRenderSummarisesAndParses(t *testing.T) {
	pnl := NewDetailPanel([]nt.Column{{Field: "activeArea", Json: true}})

	model, _ := pnl.Update(RecordMsg{Record: record()})
	pnl = model.(DetailPanel)

	out := pnl.Render()
	if !strings.Contains(out, `"[20 values]"`) {
		t.Errorf("expected summarised waveform in:\n%s", out)
	}
	if !strings.Contains(out, `"name": "ea1"`) {
		t.Errorf("expected parsed json field in:\n%s", out)
	}
}

func TestParseJsonFieldsRejectsNonString(t *testing.T) {
	_, err := parseJsonFields(record(), []nt.Column{{Field: "shotnum", Json: true}})
	if err == nil {
		t.Error("expected error for non-string json field")
	}
}

func TestScroll(t *testing.T) {
	pnl := NewDetailPanel(nil)
	pnl.Focused = true

	model, _ := pnl.Update(RecordMsg{Record: record()})
	model, _ = model.Update(SizeMsg{Width: 40, Height: 3})
	pnl = model.(DetailPanel)

	total := len(pnl.contentLines)
	if total <= 3 {
		t.Fatalf("need more content lines, got %d", total)
	}

	for range total + 5 {
		model, _ = pnl.Update(tea.KeyPressMsg{Code: tea.KeyDown})
		pnl = model.(DetailPanel)
	}
	if pnl.ScrollOffset != total-3 {
		t.Errorf("offset = %d, want %d", pnl.ScrollOffset, total-3)
	}
	if lines := strings.Split(pnl.Render(), "\n"); len(lines) != 3 {
		t.Errorf("rendered %d lines, want 3", len(lines))
	}

	model, _ = pnl.Update(tea.KeyPressMsg{Code: tea.KeyPgUp})
	if model.(DetailPanel).ScrollOffset != max(total-6, 0) {
		t.Errorf("unexpected offset after page up: %d", model.(DetailPanel).ScrollOffset)
	}
}

func TestLoadingPlaceholder(t *testing.T) {
	if NewDetailPanel(nil).Render() != "Loading full record..." {
		t.Error("expected loading placeholder")
	}
}

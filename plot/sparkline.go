package plot

import (
	"math"
	"strings"

	nt "opgateway/entity"
)

var bars = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders numeric values as a line of block characters at most width wide.
// Missing and non-numeric values render as blanks; ok is false when nothing is numeric.
func Sparkline(values []nt.Value, width int) (line string, lo, hi float64, ok bool) {

	if width < 1 || len(values) == 0 {
		return
	}

	nums := make([]float64, len(values))
	present := make([]bool, len(values))
	lo, hi = math.Inf(1), math.Inf(-1)

	for i, val := range values {
		num, err := val.Number()
		if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
			continue
		}
		nums[i], present[i] = num, true
		lo, hi = min(lo, num), max(hi, num)
		ok = true
	}
	if !ok {
		lo, hi = 0, 0
		return
	}

	count := min(len(values), width)

	var sb strings.Builder
	for col := range count {
		idx := col * len(values) / count
		if !present[idx] {
			sb.WriteRune(' ')
			continue
		}
		sb.WriteRune(bars[level(nums[idx], lo, hi)])
	}

	line = sb.String()
	return
}

func level(num, lo, hi float64) int {
	if hi == lo {
		return len(bars) / 2
	}
	return int(math.Round((num - lo) / (hi - lo) * float64(len(bars)-1)))
}

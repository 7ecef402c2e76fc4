package receipt

import "strings"

// Traditional "big" (financial) numerals, used on receipts so amounts cannot
// be altered by adding strokes.
var (
	bigDigits  = []string{"零", "壹", "貳", "參", "肆", "伍", "陸", "柒", "捌", "玖"}
	smallUnits = []string{"", "拾", "佰", "仟"}
	groupUnits = []string{"", "萬", "億", "兆", "京"}
)

// NumberToChinese renders a non-negative whole-unit amount as a Traditional
// Chinese financial numeral string: groups of four digits carry 萬/億/兆/京
// suffixes, digits within a group carry 拾/佰/仟 markers, any run of internal
// zeros collapses to a single 零, wholly-zero groups are dropped together
// with their unit, and the terminal 整 marks the amount as exact.
//
//	0       -> 零元整
//	1000    -> 壹仟元整
//	100000  -> 壹拾萬元整
//	1000001 -> 壹佰萬零壹元整
func NumberToChinese(n uint64) string {
	if n == 0 {
		return "零元整"
	}

	// Split into 4-digit groups, lowest first. uint64 needs at most five
	// groups (up to the 京 position).
	var groups [5]uint64
	count := 0
	for v := n; v > 0; v /= 10000 {
		groups[count] = v % 10000
		count++
	}

	var b strings.Builder
	emitted := false
	gapBefore := false // zero digits sit between the last emitted digit and the next one
	for i := count - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			// Wholly-zero group: dropped with its unit, but it widens the
			// zero run in front of whatever comes next.
			gapBefore = emitted
			continue
		}
		if emitted && (gapBefore || g < 1000) {
			b.WriteString(bigDigits[0])
		}
		writeGroup(&b, g)
		b.WriteString(groupUnits[i])
		emitted = true
		gapBefore = g%10 == 0
	}
	b.WriteString("元整")
	return b.String()
}

// writeGroup renders a value in [1,9999] with 仟/佰/拾 markers, collapsing
// internal zero runs to one 零.
func writeGroup(b *strings.Builder, g uint64) {
	zeroPending := false
	started := false
	for pos := 3; pos >= 0; pos-- {
		div := uint64(1)
		for i := 0; i < pos; i++ {
			div *= 10
		}
		d := (g / div) % 10
		if d == 0 {
			if started {
				zeroPending = true
			}
			continue
		}
		if zeroPending {
			b.WriteString(bigDigits[0])
			zeroPending = false
		}
		b.WriteString(bigDigits[d])
		b.WriteString(smallUnits[pos])
		started = true
	}
}

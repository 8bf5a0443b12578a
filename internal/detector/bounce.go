package detector

import "loopwatch/internal/types"

// bounceWindowSeconds is the maximum spacing between two switches for the
// second to count as an immediate reversal of the first.
const bounceWindowSeconds = 1.0

// CountBounces counts immediate reversals: a switch whose endpoints mirror
// the previous switch (A→B followed by B→A) within one second. Bounces are
// the tightest form of a death loop, a check-and-return with no real work
// in between.
func CountBounces(switches []types.Switch) int {
	bounces := 0
	for i := 1; i < len(switches); i++ {
		prev, cur := switches[i-1], switches[i]
		if cur.FromApp != prev.ToApp || cur.ToApp != prev.FromApp {
			continue
		}
		if cur.SwitchTime.Sub(prev.SwitchTime).Seconds() < bounceWindowSeconds {
			bounces++
		}
	}
	return bounces
}

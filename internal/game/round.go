package game

import "math/rand"

// Outcome is one shake of the three dice. Repeats are normal, that's
// where the bigger payouts come from.
type Outcome [3]Item

// Roll draws three symbols independently and uniformly, with
// replacement.
func Roll(rng *rand.Rand) Outcome {
	var out Outcome
	for i := range out {
		out[i] = Items[rng.Intn(len(Items))]
	}
	return out
}

// Appearances counts how many dice show it (0 to 3).
func (o Outcome) Appearances(it Item) int {
	n := 0
	for _, face := range o {
		if face == it {
			n++
		}
	}
	return n
}

// Settle computes the total return for one player's wagers against an
// outcome: a stake b on a symbol that shows k >= 1 times comes back as
// b*(1+k) (stake refunded plus k times profit); a symbol that doesn't
// show forfeits the stake. Deterministic on its inputs, so every peer
// runs this same arithmetic over its own private wagers.
func Settle(w WagerVector, o Outcome) int {
	total := 0
	for it, stake := range w {
		if stake == 0 {
			continue
		}
		if k := o.Appearances(it); k > 0 {
			total += stake * (1 + k)
		}
	}
	return total
}

package game

// WagerVector maps each symbol to the amount staked on it this round.
// Missing keys mean zero. Amounts are whole currency units, never
// negative.
type WagerVector map[Item]int

func NewWagerVector() WagerVector {
	return make(WagerVector, len(Items))
}

// Add stakes amount more on it. Callers only ever pass positive
// increments; there is no partial withdraw, only a full reset.
func (w WagerVector) Add(it Item, amount int) {
	w[it] += amount
}

func (w WagerVector) Total() int {
	sum := 0
	for _, amount := range w {
		sum += amount
	}
	return sum
}

func (w WagerVector) Clone() WagerVector {
	out := make(WagerVector, len(w))
	for it, amount := range w {
		out[it] = amount
	}
	return out
}

// Aggregate is the key-wise sum over every ledger entry. This is the
// only view of other players' bets a client ever sees.
func Aggregate(ledger map[string]WagerVector) WagerVector {
	agg := NewWagerVector()
	for _, w := range ledger {
		for it, amount := range w {
			if amount != 0 {
				agg[it] += amount
			}
		}
	}
	return agg
}

package game

// Item is one of the six symbols on a bau cua die.
type Item string

const (
	ItemGourd   Item = "gourd"
	ItemCrab    Item = "crab"
	ItemShrimp  Item = "shrimp"
	ItemFish    Item = "fish"
	ItemRooster Item = "rooster"
	ItemStag    Item = "stag"
)

// Items lists every symbol in board order. The dice and the betting
// board share this set; there is nothing else to wager on.
var Items = []Item{ItemGourd, ItemCrab, ItemShrimp, ItemFish, ItemRooster, ItemStag}

func ValidItem(it Item) bool {
	for _, known := range Items {
		if it == known {
			return true
		}
	}
	return false
}

package game

import (
	"math/rand/v2"
)

// rankOrder is the strength order of ranks, weakest first. The special ranks
// 2, 3 and 10 sit at the top: they are always legal, and when choosing the
// starter or an automatic play they are the last to be spent.
var rankOrder = [...]Rank{Four, Five, Six, Seven, Eight, Nine, Jack, Queen, King, Ace, Two, Three, Ten}

var rankIndex = func() (idx [Ace + 1]int) {
	for i := range idx {
		idx[i] = -1
	}
	for i, r := range rankOrder {
		idx[r] = i
	}
	return
}()

// Order returns the position of r in the strength order, or -1 for an invalid rank.
func (r Rank) Order() int {
	if !r.Valid() {
		return -1
	}
	return rankIndex[r]
}

// Special reports whether r can always be played: 2 resets, 3 is transparent, 10 burns.
func (r Rank) Special() bool { return r == Two || r == Three || r == Ten }

// EffectiveTop returns the most recent card of the pile that is not a 3.
// A 3 is transparent and inherits whatever is beneath it.
func EffectiveTop(pile []Card) (Card, bool) {
	for i := len(pile) - 1; i >= 0; i-- {
		if pile[i].Rank != Three {
			return pile[i], true
		}
	}
	return Card{}, false
}

// CanPlay reports whether card may be played on pile.
func CanPlay(card Card, pile []Card) bool {
	if card.Rank.Special() {
		return true
	}
	top, ok := EffectiveTop(pile)
	if !ok || top.Rank == Two {
		return true
	}
	if top.Rank == Seven {
		// 7 inverts: equal or lower.
		return card.Rank.Order() <= top.Rank.Order()
	}
	return card.Rank.Order() >= top.Rank.Order()
}

// IsBurn reports whether the pile, which already contains the cards just
// played, burns: a 10 was played, or its last four cards share one rank.
func IsBurn(pile []Card, played Rank) bool {
	if played == Ten {
		return true
	}
	if len(pile) < BurnRun {
		return false
	}
	last := pile[len(pile)-1].Rank
	for _, c := range pile[len(pile)-BurnRun:] {
		if c.Rank != last {
			return false
		}
	}
	return true
}

// TrailingRun counts how many cards at the end of pile have rank r.
func TrailingRun(pile []Card, r Rank) int {
	n := 0
	for i := len(pile) - 1; i >= 0 && pile[i].Rank == r; i-- {
		n++
	}
	return n
}

// BurnNeeded returns how many cards of the effective top rank a seat must put
// down at once, out of turn, to complete a run of four. It is 0 when no such
// burn is possible.
func BurnNeeded(pile []Card) int {
	top, ok := EffectiveTop(pile)
	if !ok {
		return 0
	}
	return max(0, BurnRun-TrailingRun(pile, top.Rank))
}

// FindStarter returns the index of the hand holding the lowest card under the
// strength order. Ties go to the hand with most copies of that rank, and then
// uniformly at random. It returns -1 if all hands are empty.
func FindStarter(hands [][]Card, rng *rand.Rand) int {
	lowest := len(rankOrder)
	for _, hand := range hands {
		for _, c := range hand {
			lowest = min(lowest, c.Rank.Order())
		}
	}
	if lowest == len(rankOrder) {
		return -1
	}
	rank := rankOrder[lowest]

	var candidates []int
	best := 0
	for i, hand := range hands {
		count := Hand(hand).Count(rank)
		switch {
		case count == 0 || count < best:
			continue
		case count > best:
			best = count
			candidates = candidates[:0]
		}
		candidates = append(candidates, i)
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	return candidates[rng.IntN(len(candidates))]
}

// LowestCard returns the lowest legal card of cards under the strength order.
// If none is legal it returns the lowest card overall, with legal set to false.
// ok is false only when cards is empty.
func LowestCard(cards []Card, pile []Card) (card Card, legal, ok bool) {
	if len(cards) == 0 {
		return Card{}, false, false
	}
	found := false
	for _, c := range cards {
		if CanPlay(c, pile) && (!found || c.Rank.Order() < card.Rank.Order()) {
			card, found = c, true
		}
	}
	if found {
		return card, true, true
	}
	card = cards[0]
	for _, c := range cards[1:] {
		if c.Rank.Order() < card.Rank.Order() {
			card = c
		}
	}
	return card, false, true
}

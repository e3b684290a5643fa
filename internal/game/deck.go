package game

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Rank of a card. Numeric ranks use their face value, court cards and the ace
// continue upwards from 11.
type Rank int8

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

// Suit is cosmetic: it never affects legality.
type Suit int8

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var suitSymbols = [...]string{"♠", "♥", "♦", "♣"}

// Card is a value: cards move between zones by removal then insertion.
type Card struct {
	Rank Rank
	Suit Suit
}

func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	}
	return strconv.Itoa(int(r))
}

// ParseRank parses the textual form produced by Rank.String.
func ParseRank(s string) (Rank, error) {
	switch s {
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(Two) || n > int(Ten) {
		return 0, fmt.Errorf("invalid rank %q", s)
	}
	return Rank(n), nil
}

// Valid reports whether r is one of the thirteen ranks.
func (r Rank) Valid() bool { return r >= Two && r <= Ace }

func (s Suit) String() string {
	if s < 0 || int(s) >= len(suitSymbols) {
		return "?"
	}
	return suitSymbols[s]
}

// String returns the card as rank followed by the suit symbol, e.g. "10♠".
func (c Card) String() string { return c.Rank.String() + c.Suit.String() }

// ParseCard parses the form produced by Card.String.
func ParseCard(s string) (Card, error) {
	symbol, size := utf8.DecodeLastRuneInString(s)
	if symbol == utf8.RuneError || size >= len(s) {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	suit := -1
	for i, sym := range suitSymbols {
		if strings.HasSuffix(s, sym) {
			suit = i
			break
		}
	}
	if suit < 0 {
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}
	rank, err := ParseRank(s[:len(s)-size])
	if err != nil {
		return Card{}, fmt.Errorf("invalid card %q: %w", s, err)
	}
	return Card{Rank: rank, Suit: Suit(suit)}, nil
}

// MarshalText implements encoding.TextMarshaler, so cards travel as "Q♥" in JSON.
func (c Card) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Rank) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rank) UnmarshalText(text []byte) error {
	parsed, err := ParseRank(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Deck is an ordered sequence of cards. The front is the next card drawn.
type Deck []Card

// NewDeck returns the 52 cards in suit-major order.
func NewDeck() Deck {
	deck := make(Deck, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// Shuffle shuffles the deck in place using rng.
func (d Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
}

// Draw removes and returns up to n cards from the front of the deck.
func (d *Deck) Draw(n int) []Card {
	n = min(n, len(*d))
	drawn := make([]Card, n)
	copy(drawn, (*d)[:n])
	*d = (*d)[n:]
	return drawn
}

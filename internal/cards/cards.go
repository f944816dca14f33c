package cards

import (
	"fmt"
	"strings"
)

type Suit int

const (
	NoSuit Suit = iota
	Clubs
	Diamonds
	Hearts
	Spades
)

var suitString = map[Suit]string{
	NoSuit:   "",
	Clubs:    "Clubs",
	Diamonds: "Diamonds",
	Hearts:   "Hearts",
	Spades:   "Spades",
}

func (s Suit) String() string {
	return suitString[s]
}

func (s Suit) isRed() bool {
	return s == Hearts || s == Diamonds
}

// Suits returns the four standard suits in their canonical order.
func Suits() []Suit {
	return []Suit{Clubs, Diamonds, Hearts, Spades}
}

func ParseSuit(text string) (Suit, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "none":
		return NoSuit, nil
	case "clubs", "club", "c":
		return Clubs, nil
	case "diamonds", "diamond", "d":
		return Diamonds, nil
	case "hearts", "heart", "h":
		return Hearts, nil
	case "spades", "spade", "s":
		return Spades, nil
	}
	return NoSuit, fmt.Errorf("unknown suit %q", text)
}

func (s Suit) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

func (s *Suit) UnmarshalText(text []byte) error {
	parsed, err := ParseSuit(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Rank int

const (
	NoRank Rank = iota
	Ace
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Joker
	// Hidden is reserved for the covered card shown in masked views.
	Hidden
)

var rankString = map[Rank]string{
	NoRank: "",
	Ace:    "Ace",
	Two:    "Two",
	Three:  "Three",
	Four:   "Four",
	Five:   "Five",
	Six:    "Six",
	Seven:  "Seven",
	Eight:  "Eight",
	Nine:   "Nine",
	Ten:    "Ten",
	Jack:   "Jack",
	Queen:  "Queen",
	King:   "King",
	Joker:  "Joker",
	Hidden: "Covered",
}

var rankAliases = map[string]Rank{
	"a": Ace, "1": Ace,
	"2": Two, "3": Three, "4": Four, "5": Five, "6": Six,
	"7": Seven, "8": Eight, "9": Nine, "10": Ten,
	"j": Jack, "q": Queen, "k": King,
}

func (r Rank) String() string {
	return rankString[r]
}

// Ranks returns the thirteen suited ranks, Ace first.
func Ranks() []Rank {
	ranks := make([]Rank, 0, 13)
	for r := Ace; r <= King; r++ {
		ranks = append(ranks, r)
	}
	return ranks
}

func ParseRank(text string) (Rank, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if r, ok := rankAliases[key]; ok {
		return r, nil
	}
	for r, name := range rankString {
		if r != NoRank && strings.ToLower(name) == key {
			return r, nil
		}
	}
	return NoRank, fmt.Errorf("unknown rank %q", text)
}

func (r Rank) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(r.String())), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	parsed, err := ParseRank(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Card is an immutable card identity. Jokers and the covered card carry no suit.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit,omitempty"`
}

// Covered is the face-down card substituted for hidden cards in rendered views.
var Covered = Card{Rank: Hidden}

func (c Card) IsCovered() bool {
	return c.Rank == Hidden
}

func (c Card) IsJoker() bool {
	return c.Rank == Joker
}

func (c Card) IsRed() bool {
	return c.Suit.isRed()
}

func (c Card) String() string {
	switch c.Rank {
	case Joker, Hidden:
		return c.Rank.String()
	}
	return fmt.Sprintf("%s of %s", c.Rank.String(), c.Suit.String())
}

const playingCardsBlock = 0x1F0A0

var suitOffset = map[Suit]rune{
	Spades:   0x00,
	Hearts:   0x10,
	Diamonds: 0x20,
	Clubs:    0x30,
}

// Unicode returns the glyph from the Playing Cards block.
func (c Card) Unicode() string {
	switch c.Rank {
	case Hidden:
		return string(rune(playingCardsBlock))
	case Joker:
		return string(rune(0x1F0CF))
	}
	offset := rune(c.Rank)
	// The block reserves 0xC for the Knight between Jack and Queen.
	if c.Rank >= Queen {
		offset++
	}
	return string(playingCardsBlock + suitOffset[c.Suit] + offset)
}

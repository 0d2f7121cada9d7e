package book

import (
	"math/rand"
	"strings"
	"sync"
)

const (
	isbnPrefix      = "978"
	isbnRandDigits  = 9
	ISBNLength      = 13
	MaxISBNAttempts = 5
)

// Randomizer is the source of the random ISBN digits and sample picks.
type Randomizer interface {
	Intn(n int) int
}

// LockedRand makes a *rand.Rand safe to share between requests.
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLockedRand(rnd *rand.Rand) *LockedRand {
	return &LockedRand{rnd: rnd}
}

func (l *LockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

// ISBNGenerator builds 13 digit identifiers: the "978" prefix, nine random
// digits and a check digit weighted 1,3,1,3... over the first twelve.
// Uniqueness is not checked here, the repository rejects duplicates.
type ISBNGenerator struct {
	rnd Randomizer
}

func NewISBNGenerator(rnd Randomizer) *ISBNGenerator {
	return &ISBNGenerator{rnd: rnd}
}

func (g *ISBNGenerator) Generate() string {
	var sb strings.Builder
	sb.Grow(ISBNLength)
	sb.WriteString(isbnPrefix)
	for i := 0; i < isbnRandDigits; i++ {
		sb.WriteByte(byte('0' + g.rnd.Intn(10)))
	}

	first12 := sb.String()
	sb.WriteByte(byte('0' + isbnCheckDigit(first12)))
	return sb.String()
}

/* Recomputes the check digit from the first 12 digits and compares it with the last one. */
func ValidISBN(isbn string) bool {
	if len(isbn) != ISBNLength {
		return false
	}
	for i := 0; i < ISBNLength; i++ {
		if isbn[i] < '0' || isbn[i] > '9' {
			return false
		}
	}
	return isbnCheckDigit(isbn[:ISBNLength-1]) == int(isbn[ISBNLength-1]-'0')
}

func isbnCheckDigit(first12 string) int {
	sum := 0
	for i := 0; i < ISBNLength-1; i++ {
		digit := int(first12[i] - '0')
		if i%2 == 0 {
			sum += digit
		} else {
			sum += digit * 3
		}
	}
	return (10 - sum%10) % 10
}

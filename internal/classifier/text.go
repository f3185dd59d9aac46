package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
)

// normalizeText composes Vietnamese diacritics (NFC) and lower-cases, so that
// keywords typed with combining marks match precomposed comment text.
func normalizeText(text string) string {
	return strings.ToLower(norm.NFC.String(text))
}

// textHash identifies a comment text for memoization
func textHash(namespace, text string) string {
	sum := sha256.Sum256([]byte(namespace + "\x00" + normalizeText(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}

// Random is the source of jitter and tie-breaking. Implementations must be
// safe for concurrent use.
type Random interface {
	Float64() float64
	IntN(n int) int
}

type lockedRandom struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom returns a seeded, goroutine-safe Random
func NewRandom(seed uint64) Random {
	return &lockedRandom{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeededRandom returns a Random seeded from the wall clock
func NewTimeSeededRandom() Random {
	return NewRandom(uint64(time.Now().UnixNano()))
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

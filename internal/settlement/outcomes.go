package settlement

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// OutcomeProvider supplies the random parts of a simulated settlement.
type OutcomeProvider interface {
	// Succeeds decides whether a claim on chain goes through
	Succeeds(chain string) bool

	// Delay is the simulated latency of one item
	Delay() time.Duration

	// TxHash returns a synthetic transaction hash for identity
	TxHash(identity string) string
}

// DefaultSuccessRates are the per-chain success probabilities of the
// multi-chain flow. Base usually fails for low balance.
var DefaultSuccessRates = map[string]float64{
	"zksync": 0.9,
	"base":   0.3,
}

// DefaultSuccessRate applies to chains without an explicit rate.
const DefaultSuccessRate = 0.95

// RandomOutcomes draws outcomes from a pseudo-random source.
type RandomOutcomes struct {
	minDelay time.Duration
	maxDelay time.Duration
	rates    map[string]float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomOutcomes creates a provider whose delays fall in
// [minDelay, maxDelay]. A zero seed seeds from the clock.
func NewRandomOutcomes(minDelay, maxDelay time.Duration, seed uint64) *RandomOutcomes {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &RandomOutcomes{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rates:    DefaultSuccessRates,
		rng:      rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}

// SetSuccessRates replaces the per-chain success probabilities.
func (r *RandomOutcomes) SetSuccessRates(rates map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = rates
}

// Succeeds implements OutcomeProvider.
func (r *RandomOutcomes) Succeeds(chain string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rate, ok := r.rates[strings.ToLower(chain)]
	if !ok {
		rate = DefaultSuccessRate
	}
	return r.rng.Float64() < rate
}

// Delay implements OutcomeProvider.
func (r *RandomOutcomes) Delay() time.Duration {
	if r.maxDelay == r.minDelay {
		return r.minDelay
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minDelay + time.Duration(r.rng.Int64N(int64(r.maxDelay-r.minDelay)))
}

// TxHash implements OutcomeProvider.
func (r *RandomOutcomes) TxHash(identity string) string {
	r.mu.Lock()
	body, tail := r.rng.Uint32(), r.rng.Uint32()&0xffff
	r.mu.Unlock()

	return FormatTxHash(identity, body, tail)
}

// FormatTxHash renders a synthetic hash: a 4-hex-digit prefix taken from
// identity, 8 hex digits of body and 4 of tail, e.g. 0x7a6b1f3c9a2e...4d1c.
func FormatTxHash(identity string, body, tail uint32) string {
	return fmt.Sprintf("0x%s%08x...%04x", identityPrefix(identity), body, tail&0xffff)
}

func identityPrefix(identity string) string {
	p := hex.EncodeToString([]byte(identity))
	for len(p) < 4 {
		p += "0"
	}
	return p[:4]
}

// FixedOutcomes is a deterministic provider.
type FixedOutcomes struct {
	// Failing lists chains whose claims fail
	Failing map[string]bool

	// Hash is returned verbatim by TxHash when set
	Hash string

	Wait time.Duration
}

// Succeeds implements OutcomeProvider.
func (f FixedOutcomes) Succeeds(chain string) bool {
	return !f.Failing[strings.ToLower(chain)]
}

// Delay implements OutcomeProvider.
func (f FixedOutcomes) Delay() time.Duration {
	return f.Wait
}

// TxHash implements OutcomeProvider.
func (f FixedOutcomes) TxHash(identity string) string {
	if f.Hash != "" {
		return f.Hash
	}
	return FormatTxHash(identity, 0, 0)
}

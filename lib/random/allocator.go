package random

import (
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

var log = logger.GetLogger("random")

const (
	// Alphabet holds the symbols random strings are drawn from
	Alphabet = "abcdefghijklmnopqrstuvwxyz"
	// MaxStringLength is the longest string the allocator will produce
	MaxStringLength = 1024
	// SaturationRatio is the share of the combination space after which a
	// collision aborts unique string allocation
	SaturationRatio = 0.8
)

// issuedSet tracks the unique strings handed out for one length
type issuedSet struct {
	strings *xsync.MapOf[string, struct{}]
	count   atomic.Int64
}

// Allocator supplies random primitive values and strings that are unique per
// length for the lifetime of the instance.
//
// Thread-safety: all methods are safe for concurrent use. Primitive draws
// serialize on the generator; claiming a unique string is a single atomic
// LoadOrStore so two callers can never receive the same value.
type Allocator struct {
	mu  sync.Mutex
	rng *rand.Rand

	issued  *xsync.MapOf[int, *issuedSet]
	retries atomic.Int64
}

// New creates an allocator drawing from the given source
func New(src rand.Source) *Allocator {
	return &Allocator{
		rng:    rand.New(src),
		issued: xsync.NewMapOf[int, *issuedSet](),
	}
}

// NewSeeded creates an allocator with a deterministic source. A seed of 0
// seeds from the current time.
func NewSeeded(seed uint64) *Allocator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// --------------------------------------------------------------------------
// Strings
// --------------------------------------------------------------------------

// RandomString returns a string of the given length drawn from Alphabet.
// The result is not guaranteed to be unique.
func (a *Allocator) RandomString(length int) (string, error) {
	if err := checkLength(length); err != nil {
		return "", err
	}

	b := make([]byte, length)
	a.mu.Lock()
	for i := range b {
		b[i] = Alphabet[a.rng.IntN(len(Alphabet))]
	}
	a.mu.Unlock()

	return string(b), nil
}

// UniqueString returns a random string of the given length that has not been
// returned before for that length by this allocator.
//
// Capacity is only checked after a collision: once the number of strings
// issued for the length reaches SaturationRatio of the combination space, the
// next collision fails with common.ErrSaturationExceeded. Strings past that
// mark are handed out as long as no collision occurs.
func (a *Allocator) UniqueString(length int) (string, error) {
	if err := checkLength(length); err != nil {
		return "", err
	}

	set, _ := a.issued.LoadOrCompute(length, func() *issuedSet {
		return &issuedSet{strings: xsync.NewMapOf[string, struct{}]()}
	})
	threshold := Capacity(length) * SaturationRatio

	for {
		s, err := a.RandomString(length)
		if err != nil {
			return "", err
		}

		if _, loaded := set.strings.LoadOrStore(s, struct{}{}); !loaded {
			set.count.Add(1)
			return s, nil
		}

		a.retries.Add(1)
		count := set.count.Load()
		log.Debugf("discarding non-unique string %s (%d strings of length %d issued)", s, count, length)

		if float64(count) >= threshold {
			log.Errorf("strings of length %d are at %.0f%% of capacity, aborting", length, SaturationRatio*100)
			return "", common.NewError(common.ErrCSaturationExceeded,
				"unique strings of length %d saturated after %d strings", length, count)
		}
	}
}

// Capacity returns the number of distinct strings of the given length.
// Lengths whose capacity exceeds float64 yield +Inf.
func Capacity(length int) float64 {
	return math.Pow(float64(len(Alphabet)), float64(length))
}

func checkLength(length int) error {
	if length < 0 || length > MaxStringLength {
		return common.NewError(common.ErrCInvalidLength,
			"requested length %d is outside [0, %d]", length, MaxStringLength)
	}
	return nil
}

// --------------------------------------------------------------------------
// Primitives
// --------------------------------------------------------------------------

// RandomInt returns a random integer over the full signed 64-bit range
func (a *Allocator) RandomInt() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int64(a.rng.Uint64())
}

// RandomIntInRange returns a random integer in [0, bound).
// A non-positive bound returns 0.
func (a *Allocator) RandomIntInRange(bound int) int {
	if bound <= 0 {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.IntN(bound)
}

// RandomDouble returns a random float in [0, 1)
func (a *Allocator) RandomDouble() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Float64()
}

// RandomBool flips a coin
func (a *Allocator) RandomBool() bool {
	return a.RandomIntInRange(2) == 0
}

// --------------------------------------------------------------------------
// Statistics
// --------------------------------------------------------------------------

// Stats summarizes unique string allocation
type Stats struct {
	Issued  int64   `json:"issued"`
	Retries int64   `json:"retries"`
	Wastage float64 `json:"wastage"` // retries / (issued + retries) in percent
}

// String renders the statistics in a single line
func (s Stats) String() string {
	return fmt.Sprintf("%d strings produced; %d retries; wastage: %.2f%%", s.Issued, s.Retries, s.Wastage)
}

// Stats returns the allocation statistics over all lengths
func (a *Allocator) Stats() Stats {
	var issued int64
	a.issued.Range(func(_ int, set *issuedSet) bool {
		issued += set.count.Load()
		return true
	})
	retries := a.retries.Load()

	var wastage float64
	if total := issued + retries; total > 0 {
		wastage = math.Round(float64(retries)/float64(total)*10000) / 100
	}

	return Stats{
		Issued:  issued,
		Retries: retries,
		Wastage: wastage,
	}
}

// Issued returns the number of unique strings issued for the given length
func (a *Allocator) Issued(length int) int64 {
	set, ok := a.issued.Load(length)
	if !ok {
		return 0
	}
	return set.count.Load()
}

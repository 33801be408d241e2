package chatauth

import (
	"math/rand"
	"time"
)

// ChallengeRand is the source of randomness for challenge selection.
// *math/rand.Rand satisfies it; tests inject a deterministic
// implementation to force specific draws.
type ChallengeRand interface {
	Float64() float64
	Intn(n int) int
}

// Selector draws challenges sized to a secret's length using the
// configured kind weights.
//
// Selector instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Selector struct {
	config ChallengeConfig
	rng    ChallengeRand
}

// NewSelector describes the newselector operation and its observable behavior.
//
// NewSelector may return an error when input validation, dependency calls, or security checks fail.
// A nil rng falls back to a time-seeded source; injecting one makes the draw deterministic.
func NewSelector(cfg ChallengeConfig, rng ChallengeRand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{
		config: cfg,
		rng:    rng,
	}
}

// Select draws one challenge for a secret of the given length.
//
// Select may return an error when input validation, dependency calls, or security checks fail.
// The returned challenge's parameter is always within [1, secretLength].
func (s *Selector) Select(secretLength int) (Challenge, error) {
	if secretLength <= 0 {
		return Challenge{}, ErrInvalidSecret
	}

	kind := s.drawKind()

	switch kind {
	case ChallengePrefix, ChallengeSuffix:
		return Challenge{Kind: kind, Parameter: s.drawFragment(secretLength)}, nil
	case ChallengePosition:
		return Challenge{Kind: kind, Parameter: 1 + s.rng.Intn(secretLength)}, nil
	default:
		return Challenge{Kind: ChallengeFull}, nil
	}
}

func (s *Selector) drawKind() ChallengeKind {
	weights := []struct {
		kind   ChallengeKind
		weight float64
	}{
		{ChallengePrefix, s.config.PrefixWeight},
		{ChallengeSuffix, s.config.SuffixWeight},
		{ChallengePosition, s.config.PositionWeight},
		{ChallengeFull, s.config.FullWeight},
	}

	total := 0.0
	for _, w := range weights {
		total += w.weight
	}

	draw := s.rng.Float64() * total
	for _, w := range weights {
		if draw < w.weight {
			return w.kind
		}
		draw -= w.weight
	}

	return ChallengeFull
}

// drawFragment picks a prefix/suffix length uniformly from
// [MinFragment, min(MaxFragment, secretLength)], clamped so the range
// stays valid for secrets shorter than MinFragment.
func (s *Selector) drawFragment(secretLength int) int {
	lo := s.config.MinFragment
	hi := s.config.MaxFragment
	if hi > secretLength {
		hi = secretLength
	}
	if lo > hi {
		lo = hi
	}
	if lo < 1 {
		lo = 1
	}
	return lo + s.rng.Intn(hi-lo+1)
}

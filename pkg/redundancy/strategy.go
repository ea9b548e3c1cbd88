package redundancy

import (
	"fmt"
	"strings"
	"time"

	"github.com/oneconcern/swarmtrie/pkg/errors"
)

// Strategy to retrieve the children of an intermediate chunk
type Strategy uint8

const (
	// StrategyNone fetches data chunks only
	StrategyNone Strategy = iota
	// StrategyData fetches data chunks only
	StrategyData
	// StrategyProx fetches the chunks closest to the node (not supported by this store)
	StrategyProx
	// StrategyRace fetches all data and parity chunks, and returns as soon as enough are available
	StrategyRace
)

// DefaultStrategy is the fastest strategy that does not retrieve parities
const DefaultStrategy = StrategyData

// DefaultStrategyTimeout bounds the duration of every strategy attempt
const DefaultStrategyTimeout = 30 * time.Second

var (
	// ErrStrategyNotAllowed is returned by strategies not supported by the store
	ErrStrategyNotAllowed = errors.New("strategy not allowed")

	// ErrStrategyFailed is returned when a strategy could not retrieve enough chunks
	ErrStrategyFailed = errors.New("strategy failed")

	// ErrInvalidStrategy is returned when parsing an unknown strategy
	ErrInvalidStrategy = errors.New("invalid retrieval strategy")

	strategyNames = []string{"NONE", "DATA", "PROX", "RACE"}
)

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy parses the name of a strategy
func ParseStrategy(s string) (Strategy, error) {
	for i, name := range strategyNames {
		if strings.EqualFold(s, name) {
			return Strategy(i), nil
		}
	}
	return StrategyNone, ErrInvalidStrategy.WrapMessage("%q", s)
}

// strategies to attempt in order, starting with s. With fallback, all stronger
// strategies are attempted until one succeeds.
//
// NONE and DATA retrieve the same chunks, so DATA is not attempted again after NONE.
func (s Strategy) cascade(fallback bool) []Strategy {
	if !fallback {
		return []Strategy{s}
	}
	res := make([]Strategy, 0, int(StrategyRace-s)+1)
	for st := s; st <= StrategyRace; st++ {
		if st == StrategyData && s == StrategyNone {
			continue
		}
		res = append(res, st)
	}
	return res
}

// allowsRecovery tells if parities may be retrieved to recover missing data
func (s Strategy) allowsRecovery(fallback bool) bool {
	return s == StrategyRace || fallback
}

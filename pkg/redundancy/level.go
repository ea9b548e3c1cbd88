package redundancy

import (
	"fmt"
	"strings"

	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// Level of redundancy
type Level uint8

const (
	// NONE adds no parities
	NONE Level = iota
	// MEDIUM tolerates about 1% of chunk loss
	MEDIUM
	// STRONG tolerates about 5% of chunk loss
	STRONG
	// INSANE tolerates about 10% of chunk loss
	INSANE
	// PARANOID tolerates about 50% of chunk loss
	PARANOID
)

var (
	// ErrInvalidLevel is returned for unknown levels, or when parities are requested for NONE
	ErrInvalidLevel = errors.New("invalid redundancy level")

	levelNames = []string{"NONE", "MEDIUM", "STRONG", "INSANE", "PARANOID"}
)

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", uint8(l))
}

// Validate the level
func (l Level) Validate() error {
	if l > PARANOID {
		return ErrInvalidLevel.WrapMessage("%d", uint8(l))
	}
	return nil
}

// ParseLevel parses the name or number of a level
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) || s == fmt.Sprint(i) {
			return Level(i), nil
		}
	}
	return NONE, ErrInvalidLevel.WrapMessage("%q", s)
}

// erasureTable maps a number of data shards to a number of parities.
//
// shards is decreasing: the parities for n data shards are those of the first
// entry that is not greater than n.
type erasureTable struct {
	shards   []int
	parities []int
}

func newErasureTable(shards, parities []int) erasureTable {
	if len(shards) != len(parities) {
		panic("redundancy table: shards and parities arrays must be of equal size")
	}
	return erasureTable{shards: shards, parities: parities}
}

func (et erasureTable) getParities(maxShards int) int {
	for k, s := range et.shards {
		if maxShards >= s {
			return et.parities[k]
		}
	}
	return 0
}

var (
	mediumEt = newErasureTable(
		[]int{95, 69, 47, 29, 15, 6, 2, 1},
		[]int{9, 8, 7, 6, 5, 4, 3, 2},
	)
	encMediumEt = newErasureTable(
		[]int{47, 34, 23, 14, 7, 3, 1},
		[]int{9, 8, 7, 6, 5, 4, 3},
	)
	strongEt = newErasureTable(
		[]int{105, 96, 87, 78, 70, 62, 54, 47, 40, 33, 27, 21, 16, 11, 7, 4, 2, 1},
		[]int{21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4},
	)
	encStrongEt = newErasureTable(
		[]int{52, 48, 43, 39, 35, 31, 27, 23, 20, 16, 13, 10, 8, 5, 3, 1},
		[]int{21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6},
	)
	insaneEt = newErasureTable(
		[]int{93, 88, 84, 79, 75, 70, 66, 62, 57, 53, 49, 45, 41, 37, 33, 28, 24, 21, 17, 14, 11, 9, 7, 5, 3, 2, 1},
		[]int{31, 30, 29, 28, 27, 26, 25, 24, 23, 22, 21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5},
	)
	encInsaneEt = newErasureTable(
		[]int{46, 44, 42, 39, 37, 35, 33, 31, 28, 26, 24, 22, 20, 18, 16, 14, 12, 10, 8, 7, 6, 5, 4, 3, 2, 1},
		[]int{31, 30, 29, 28, 27, 26, 25, 24, 23, 22, 21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6},
	)
	paranoidEt = newErasureTable(
		[]int{37, 36, 35, 34, 33, 32, 31, 30, 29, 28, 27, 26, 25, 24, 23, 22, 21, 20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
		[]int{90, 88, 87, 85, 84, 82, 81, 79, 77, 76, 74, 72, 71, 69, 67, 66, 64, 62, 60, 59, 57, 55, 53, 51, 49, 48, 46, 44, 41, 39, 37, 35, 32, 30, 27, 24, 20},
	)
	encParanoidEt = newErasureTable(
		[]int{18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
		[]int{88, 85, 82, 79, 76, 72, 69, 66, 62, 59, 55, 51, 48, 44, 39, 35, 30, 24},
	)
)

func (l Level) table(encrypted bool) (erasureTable, error) {
	switch l {
	case MEDIUM:
		if encrypted {
			return encMediumEt, nil
		}
		return mediumEt, nil
	case STRONG:
		if encrypted {
			return encStrongEt, nil
		}
		return strongEt, nil
	case INSANE:
		if encrypted {
			return encInsaneEt, nil
		}
		return insaneEt, nil
	case PARANOID:
		if encrypted {
			return encParanoidEt, nil
		}
		return paranoidEt, nil
	default:
		return erasureTable{}, ErrInvalidLevel.WrapMessage("no erasure table for %s", l)
	}
}

// GetParities returns the number of parities for some number of data shards.
// It is 0 for NONE.
func (l Level) GetParities(shards int) int {
	et, err := l.table(false)
	if err != nil {
		return 0
	}
	return et.getParities(shards)
}

// GetEncParities returns the number of parities for some number of encrypted data shards.
// It is 0 for NONE.
func (l Level) GetEncParities(shards int) int {
	et, err := l.table(true)
	if err != nil {
		return 0
	}
	return et.getParities(shards)
}

// Parities for plain or encrypted data shards
func (l Level) Parities(shards int, encrypted bool) int {
	if encrypted {
		return l.GetEncParities(shards)
	}
	return l.GetParities(shards)
}

// GetMaxShards returns the maximum number of data shards in a group of plain references
func (l Level) GetMaxShards() int {
	return swarm.Branches - l.GetParities(swarm.Branches)
}

// GetMaxEncShards returns the maximum number of data shards in a group of encrypted references
func (l Level) GetMaxEncShards() int {
	return (swarm.Branches - l.GetEncParities(swarm.Branches)) / 2
}

// MaxShards for plain or encrypted references
func (l Level) MaxShards(encrypted bool) int {
	if encrypted {
		return l.GetMaxEncShards()
	}
	return l.GetMaxShards()
}

// MaxChildren is the number of data and parity references of a full intermediate chunk
func (l Level) MaxChildren(encrypted bool) int {
	shards := l.MaxShards(encrypted)
	return shards + l.Parities(shards, encrypted)
}

// GetReplicaCount returns the number of dispersed replicas of a root chunk
func (l Level) GetReplicaCount() int {
	if l == NONE || l.Validate() != nil {
		return 0
	}
	return 1 << uint(l)
}

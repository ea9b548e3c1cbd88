package redundancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategyCascade(t *testing.T) {
	assert.Equal(t, []Strategy{StrategyData}, StrategyData.cascade(false))
	assert.Equal(t, []Strategy{StrategyNone, StrategyProx, StrategyRace}, StrategyNone.cascade(true))
	assert.Equal(t, []Strategy{StrategyData, StrategyProx, StrategyRace}, StrategyData.cascade(true))
	assert.Equal(t, []Strategy{StrategyRace}, StrategyRace.cascade(true))
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategyUnionOfWildcardAndExact(t *testing.T) {
	s := &IndexingStrategy{
		OffsetColumns: map[string][]string{
			"*":      {"a"},
			"rounds": {"b"},
		},
	}

	assert.Equal(t, []string{"a", "b"}, s.OffsetsFor("rounds"))
	assert.Equal(t, []string{"a"}, s.OffsetsFor("other"))
}

func TestStrategyEmptyResolution(t *testing.T) {
	s := DefaultStrategy()
	assert.Empty(t, s.OffsetsFor("rounds"))
	assert.Empty(t, s.BloomsFor("rounds"))
	assert.True(t, s.NumericStatistics)
}

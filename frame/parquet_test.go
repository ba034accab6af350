package frame

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demopipe/model"
)

func sampleFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := New(
		NewInt64Column("round_number", []int64{1, 2, 3}, nil),
		NewFloat64Column("damage", []float64{12.5, 30.0, 55.0}, nil),
		NewStringColumn("winning_side", []string{"CT", "T", "CT"}, nil),
		NewBoolColumn("clutch", []bool{false, true, false}, []bool{true, true, false}),
	)
	require.NoError(t, err)
	return f
}

func TestFrameSchemaAndAccess(t *testing.T) {
	f := sampleFrame(t)

	assert.EqualValues(t, 3, f.NumRows())
	assert.Equal(t, map[string]string{
		"round_number": "int64",
		"damage":       "float64",
		"winning_side": "utf8",
		"clutch":       "bool",
	}, f.Schema())

	col, ok := f.Column("winning_side")
	require.True(t, ok)
	assert.Equal(t, model.StringValue("T"), col.Value(1))

	clutch, ok := f.Column("clutch")
	require.True(t, ok)
	assert.True(t, clutch.Null(2))
	assert.Equal(t, model.NullValue(), clutch.Value(2))
}

func TestFrameRejectsRaggedColumns(t *testing.T) {
	_, err := New(
		NewInt64Column("a", []int64{1, 2}, nil),
		NewInt64Column("b", []int64{1}, nil),
	)
	assert.Error(t, err)

	_, err = New(
		NewInt64Column("a", []int64{1}, nil),
		NewInt64Column("a", []int64{2}, nil),
	)
	assert.Error(t, err)
}

func TestParquetRoundTrip(t *testing.T) {
	f := sampleFrame(t)
	path := filepath.Join(t.TempDir(), "rounds.parquet")
	require.NoError(t, f.WriteParquet(path))

	got, err := ReadParquet(context.Background(), path)
	require.NoError(t, err)

	assert.EqualValues(t, 3, got.NumRows())
	assert.Equal(t, f.Schema(), got.Schema())

	rounds, ok := got.Column("round_number")
	require.True(t, ok)
	for i, want := range []int64{1, 2, 3} {
		assert.Equal(t, model.IntValue(want), rounds.Value(i))
	}

	clutch, ok := got.Column("clutch")
	require.True(t, ok)
	assert.True(t, clutch.Null(2))
	assert.Equal(t, model.BoolValue(true), clutch.Value(1))
}

func TestMinMaxSkipsNulls(t *testing.T) {
	col := NewFloat64Column("hp", []float64{0, 55.5, 12.0}, []bool{false, true, true})
	mn, mx, ok := col.MinMax()
	require.True(t, ok)
	assert.Equal(t, model.FloatValue(12.0), mn)
	assert.Equal(t, model.FloatValue(55.5), mx)

	empty := NewInt64Column("empty", []int64{0, 0}, []bool{false, false})
	_, _, ok = empty.MinMax()
	assert.False(t, ok)
}

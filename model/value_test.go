package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueMarshalCanonicalForms(t *testing.T) {
	cases := []struct {
		value Value
		want  string
	}{
		{NullValue(), "null"},
		{IntValue(42), "42"},
		{IntValue(-7), "-7"},
		{FloatValue(30.0), "30"},
		{FloatValue(12.5), "12.5"},
		{StringValue("CT"), `"CT"`},
		{StringValue(`say "gg"`), `"say \"gg\""`},
		{BoolValue(true), "true"},
		{ListValue([]Value{IntValue(1), NullValue()}), "[1,null]"},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(tc.value)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(raw))
	}
}

func TestValueText(t *testing.T) {
	assert.Equal(t, "42", IntValue(42).Text())
	assert.Equal(t, "12.5", FloatValue(12.5).Text())
	assert.Equal(t, "CT", StringValue("CT").Text())
	assert.Equal(t, "true", BoolValue(true).Text())
}

func TestValueOrdering(t *testing.T) {
	assert.True(t, NullValue().Less(IntValue(0)))
	assert.False(t, IntValue(0).Less(NullValue()))

	assert.True(t, IntValue(1).Less(IntValue(2)))
	assert.True(t, FloatValue(1.5).Less(IntValue(2)))
	assert.True(t, StringValue("CT").Less(StringValue("T")))
	assert.True(t, BoolValue(false).Less(BoolValue(true)))

	// strictness: equal values compare false both ways
	assert.False(t, IntValue(3).Less(IntValue(3)))
	assert.False(t, StringValue("x").Less(StringValue("x")))
	assert.False(t, NullValue().Less(NullValue()))
}

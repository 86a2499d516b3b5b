package id

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlex(t *testing.T) {
	tests := []struct {
		in   string
		want Flex
	}{
		{`42`, "42"},
		{`"42"`, "42"},
		{`"abc-1"`, "abc-1"},
		{`null`, ""},
		{`" 7 "`, "7"},
	}
	for _, tt := range tests {
		var f Flex
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f), tt.in)
		assert.Equal(t, tt.want, f, "Flex(%s)", tt.in)
	}

	var f Flex
	assert.Error(t, json.Unmarshal([]byte(`{}`), &f))
	assert.Error(t, json.Unmarshal([]byte(`true`), &f))
}

func TestFlexInStruct(t *testing.T) {
	var rec struct {
		ID         Flex `json:"id"`
		CategoryID Flex `json:"categoryId"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1001, "categoryId": "5"}`), &rec))
	assert.Equal(t, "1001", rec.ID.String())
	assert.Equal(t, "5", rec.CategoryID.String())
}

func TestWire(t *testing.T) {
	assert.Nil(t, Wire(""))
	assert.Equal(t, json.Number("12"), Wire("12"))
	assert.Equal(t, "cat-1", Wire("cat-1"))

	out, err := json.Marshal(map[string]any{"categoryId": Wire("12")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"categoryId": 12}`, string(out))
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestNext(t *testing.T) {
	assert.Equal(t, "1", Next(nil))
	assert.Equal(t, "8", Next([]string{"3", "7", "x-9"}))
}

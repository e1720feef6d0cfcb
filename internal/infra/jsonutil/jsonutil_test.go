package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeysAndKeepsHTML(t *testing.T) {
	out, err := Marshal(map[string]any{"b": 1, "a": "<frame>"})
	require.NoError(t, err)
	require.Equal(t, `{"a":"<frame>","b":1}`, string(out))
}

func TestUnmarshalKeepsIntegers(t *testing.T) {
	var doc map[string]any
	require.NoError(t, Unmarshal([]byte(`{"version":"1","count":9007199254740993,"ratio":0.5}`), &doc))
	require.Equal(t, int64(9007199254740993), doc["count"])
	require.Equal(t, 0.5, doc["ratio"])
}

func TestMarshalIndent(t *testing.T) {
	out, err := MarshalIndent(map[string]any{"name": "Design"}, "", "  ")
	require.NoError(t, err)
	require.Equal(t, "{\n  \"name\": \"Design\"\n}", string(out))
}

func TestValid(t *testing.T) {
	require.True(t, Valid([]byte(`{"ok":true}`)))
	require.False(t, Valid([]byte(`{"ok":`)))
}

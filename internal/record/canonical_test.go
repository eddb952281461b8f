package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"zebra": int64(1),
		"alpha": int64(2),
		"mike":  int64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mike":3,"zebra":1}`, string(b))
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := map[string]any{
		"scope":    map[string]any{"mission": "utilities", "entity": "Home", "variable": "water_level"},
		"evidence": []any{map[string]any{"kind": "sensor", "id": "s-1"}},
		"mass":     Scalar(850000),
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"p": 0.85})
	assert.Error(t, err)

	_, err = MarshalCanonical(float32(0.5))
	assert.Error(t, err)
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	b, err := MarshalCanonical("a<b&c>d")
	require.NoError(t, err)
	assert.Equal(t, `"a<b&c>d"`, string(b))
}

func TestMarshalCanonical_ScalarIsInteger(t *testing.T) {
	b, err := MarshalCanonical(Scalar(123456))
	require.NoError(t, err)
	assert.Equal(t, "123456", string(b))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" composed (U+00E9) vs decomposed (e + U+0301) must serialize
	// identically or ids drift across producers.
	composed, err := MarshalCanonical("café")
	require.NoError(t, err)
	decomposed, err := MarshalCanonical("café")
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestCompareKeysUTF16_SurrogateOrdering(t *testing.T) {
	// U+FF61 (halfwidth ideographic full stop) is a single UTF-16 unit
	// 0xFF61; U+10000 encodes as surrogates starting 0xD800. UTF-16
	// order puts the surrogate pair FIRST, UTF-8 byte order does not.
	assert.Equal(t, 1, compareKeysUTF16("｡", "\U00010000"))
	assert.Equal(t, -1, compareKeysUTF16("\U00010000", "｡"))
	assert.Equal(t, 0, compareKeysUTF16("same", "same"))
}

// moderation/language_test.go
package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLanguageDetector(t *testing.T) {
	d := NewLanguageDetector()

	lang, ok := d.Detect("hello there, how are you doing today my friend")
	require.True(t, ok)
	require.Equal(t, "en", lang)

	lang, ok = d.Detect("hola, como estas hoy amigo mio, espero que todo vaya bien")
	require.True(t, ok)
	require.Equal(t, "es", lang)

	_, ok = d.Detect("")
	require.False(t, ok)
}

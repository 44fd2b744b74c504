package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanRemovesImages(t *testing.T) {
	t.Parallel()

	got := Clean(`<p>before</p><img src="cover.png"/><p>after</p>`)
	require.Equal(t, "<p>before</p><p>after</p>", got)
}

func TestCleanUnwrapsAnchors(t *testing.T) {
	t.Parallel()

	got := Clean(`<p>read <a href="/detail/9">chapter nine</a> now</p>`)
	require.Equal(t, "<p>read chapter nine now</p>", got)
}

func TestCleanEscapesAnchorText(t *testing.T) {
	t.Parallel()

	got := Clean(`<p><a href="/x">Tom &amp; Jerry</a></p>`)
	require.Equal(t, "<p>Tom &amp; Jerry</p>", got)
}

func TestCleanPlainTextPassthrough(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hello", Clean("hello"))
}

func TestCleanIdempotent(t *testing.T) {
	t.Parallel()

	input := `<div><img src="a.png"/><a href="/b">b</a><p>text</p></div>`
	once := Clean(input)
	require.Equal(t, once, Clean(once))
}

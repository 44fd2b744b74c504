package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractBookIDs(t *testing.T) {
	t.Parallel()

	fragment := `
		<a href="/detail/5">first</a>
		<a href="/detail/5">duplicate</a>
		<a href="http://other.test/detail/9?ref=home">absolute</a>
		<a href="/other/5">not a detail link</a>
		<a href="/detail/abc">no numeric id</a>`

	ids := ExtractBookIDs(fragment, "https://example.test/")
	require.Equal(t, []string{"5", "9"}, ids)
}

func TestExtractBookIDsResolvesRelative(t *testing.T) {
	t.Parallel()

	ids := ExtractBookIDs(`<a href="/detail/12">x</a>`, "https://example.test/cate/30125")
	require.Equal(t, []string{"12"}, ids)
}

func TestExtractBookIDsEmptyFragment(t *testing.T) {
	t.Parallel()

	require.Empty(t, ExtractBookIDs("", "https://example.test/"))
	require.Empty(t, ExtractBookIDs("<p>no anchors here</p>", "https://example.test/"))
}

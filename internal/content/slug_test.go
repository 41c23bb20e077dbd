package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return ts
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello, World":        "hello-world",
		"  spaces   galore  ": "spaces-galore",
		"Café au Lait":        "cafe-au-lait",
		"already-a-slug":      "already-a-slug",
		"Ümlauts & Friends":   "umlauts-friends",
		"2024 Year Review!":   "2024-year-review",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestExpandPermalink(t *testing.T) {
	doc := &Document{Slug: "hello", Collection: "posts"}
	doc.Date = mustDate(t, "2024-03-01")

	got, err := ExpandPermalink("/:year/:month/:day/:slug/", doc)
	require.NoError(t, err)
	require.Equal(t, "/2024/03/01/hello/", got)

	got, err = ExpandPermalink("/:collection/:slug/", doc)
	require.NoError(t, err)
	require.Equal(t, "/posts/hello/", got)

	_, err = ExpandPermalink("/:nope/", doc)
	require.Error(t, err)
}

func TestPagePermalink(t *testing.T) {
	require.Equal(t, "/about/", PagePermalink("about.md"))
	require.Equal(t, "/docs/setup/", PagePermalink("docs/setup.md"))
	require.Equal(t, "/", PagePermalink("index.md"))
	require.Equal(t, "/docs/", PagePermalink("docs/index.md"))
}

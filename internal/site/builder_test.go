package site

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
)

func post(t *testing.T, rel, title, date string, tags ...string) *content.Document {
	t.Helper()
	ts, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return &content.Document{
		RelPath:    rel,
		Collection: "posts",
		Title:      title,
		Date:       ts,
		Slug:       content.Slugify(title),
		Tags:       tags,
		Permalink:  "/" + date[:4] + "/" + content.Slugify(title) + "/",
		Fields:     frontmatter.Fields{},
	}
}

func testCfg() *config.Config {
	return &config.Config{
		Title:      "Test",
		Pagination: 10,
		Params:     map[string]any{},
		Collections: []config.Collection{
			{Name: "posts", Path: "posts", SortBy: "date"},
		},
	}
}

func TestBuild_DefaultOrderingIsDateDescending(t *testing.T) {
	docs := []*content.Document{
		post(t, "posts/a.md", "First", "2024-01-01"),
		post(t, "posts/c.md", "Third", "2024-01-03"),
		post(t, "posts/b.md", "Second", "2024-01-02"),
	}

	m, err := NewBuilder(testCfg()).Build(docs)
	require.NoError(t, err)

	got := m.Collections["posts"]
	require.Equal(t, []string{"Third", "Second", "First"}, []string{got[0].Title, got[1].Title, got[2].Title})
}

func TestBuild_DateTiesBreakByDescendingPath(t *testing.T) {
	docs := []*content.Document{
		post(t, "posts/a.md", "A", "2024-01-01"),
		post(t, "posts/b.md", "B", "2024-01-01"),
	}

	m, err := NewBuilder(testCfg()).Build(docs)
	require.NoError(t, err)
	require.Equal(t, "posts/b.md", m.Collections["posts"][0].RelPath)
}

func TestBuild_TaxonomyIndexing(t *testing.T) {
	docs := []*content.Document{
		post(t, "posts/a.md", "A", "2024-01-01", "go", "blog"),
		post(t, "posts/b.md", "B", "2024-01-02", "go"),
	}

	m, err := NewBuilder(testCfg()).Build(docs)
	require.NoError(t, err)
	require.Len(t, m.Tags["go"], 2)
	require.Len(t, m.Tags["blog"], 1)
	require.Equal(t, []string{"blog", "go"}, TermNames(m.Tags))
	// Term members are date-descending too.
	require.Equal(t, "B", m.Tags["go"][0].Title)
}

func TestBuild_DuplicatePermalinkReportsBothPaths(t *testing.T) {
	a := post(t, "posts/a.md", "Same", "2025-09-25")
	b := post(t, "posts/b.md", "Same", "2025-09-25")
	a.Permalink = "/2025/09/25/post/"
	b.Permalink = "/2025/09/25/post/"

	_, err := NewBuilder(testCfg()).Build([]*content.Document{a, b})
	require.Error(t, err)
	require.True(t, builderr.IsKind(err, builderr.KindDuplicatePermalink))

	var be *builderr.BuildError
	require.ErrorAs(t, err, &be)
	require.Equal(t, "posts/a.md", be.Context["first_path"])
	require.Equal(t, "posts/b.md", be.Context["second_path"])
}

func TestBuild_DeclaredCollectionOverridesLocation(t *testing.T) {
	doc := post(t, "posts/a.md", "A", "2024-01-01")
	doc.Fields = frontmatter.Fields{"collection": "notes"}

	m, err := NewBuilder(testCfg()).Build([]*content.Document{doc})
	require.NoError(t, err)
	require.Len(t, m.Collections["notes"], 1)
	require.Empty(t, m.Collections["posts"])
}

func TestBuild_StandalonePages(t *testing.T) {
	doc := &content.Document{RelPath: "about.md", Title: "About", Permalink: "/about/", Fields: frontmatter.Fields{}}

	m, err := NewBuilder(testCfg()).Build([]*content.Document{doc})
	require.NoError(t, err)
	require.Len(t, m.Pages, 1)
	require.Empty(t, m.Collections)
}

package site

import (
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/content"
	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
)

// listLayout is the layout synthetic list pages render through.
const listLayout = "list"

// GenerateListPages produces the synthetic documents derived from the site
// model: the paginated home listing of the default posts collection, one
// paginated page per tag and category term, and per-year archives. Synthetic
// documents have no source file; they depend on the graph only through the
// term members they summarize.
func (m *Model) GenerateListPages() ([]*content.Document, error) {
	var out []*content.Document
	size := m.Config.Pagination

	// Home listing, unless a content page already owns "/".
	if _, taken := m.ByPermalink["/"]; !taken {
		if posts, ok := m.Collections["posts"]; ok {
			out = append(out, Paginate(posts, size, "/", m.Config.Title, listLayout)...)
		}
	}

	for _, name := range TermNames(m.Tags) {
		base := "/tags/" + content.Slugify(name) + "/"
		out = append(out, Paginate(m.Tags[name], size, base, "Tag: "+name, listLayout)...)
	}
	for _, name := range TermNames(m.Categories) {
		base := "/categories/" + content.Slugify(name) + "/"
		out = append(out, Paginate(m.Categories[name], size, base, "Category: "+name, listLayout)...)
	}

	for _, year := range m.archiveYears() {
		base := fmt.Sprintf("/archive/%04d/", year)
		out = append(out, Paginate(m.postsInYear(year), size, base, fmt.Sprintf("Archive %d", year), listLayout)...)
	}

	// Synthetic permalinks must not collide with content pages or each other.
	seen := make(map[string]*content.Document, len(out))
	for _, pg := range out {
		if prev, taken := m.ByPermalink[pg.Permalink]; taken {
			return nil, builderr.DuplicatePermalink(pg.Permalink, prev.RelPath, pg.Title)
		}
		if prev, taken := seen[pg.Permalink]; taken {
			return nil, builderr.DuplicatePermalink(pg.Permalink, prev.Title, pg.Title)
		}
		seen[pg.Permalink] = pg
	}
	return out, nil
}

func (m *Model) archiveYears() []int {
	seen := map[int]bool{}
	var years []int
	for _, doc := range m.Collections["posts"] {
		if doc.Date.IsZero() || seen[doc.Date.Year()] {
			continue
		}
		seen[doc.Date.Year()] = true
		years = append(years, doc.Date.Year())
	}
	// Posts are date-descending, so years come out newest first already.
	return years
}

func (m *Model) postsInYear(year int) []*content.Document {
	var out []*content.Document
	for _, doc := range m.Collections["posts"] {
		if doc.Date.Year() == year {
			out = append(out, doc)
		}
	}
	return out
}

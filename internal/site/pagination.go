package site

import (
	"fmt"

	"git.home.luguber.info/inful/sitegen/internal/content"
)

// Paginate splits an ordered document list into synthetic list pages of at
// most pageSize documents rooted at basePermalink. An empty list yields zero
// pages. The first page owns basePermalink itself; subsequent pages live at
// basePermalink + "page/N/".
func Paginate(docs []*content.Document, pageSize int, basePermalink, title, layout string) []*content.Document {
	if len(docs) == 0 || pageSize <= 0 {
		return nil
	}

	totalPages := (len(docs) + pageSize - 1) / pageSize
	pages := make([]*content.Document, 0, totalPages)

	for n := 1; n <= totalPages; n++ {
		start := (n - 1) * pageSize
		end := start + pageSize
		if end > len(docs) {
			end = len(docs)
		}

		pg := &content.Document{
			Synthetic: true,
			Title:     title,
			Layout:    layout,
			Permalink: pageURL(basePermalink, n),
			Paginator: &content.Paginator{
				Number:     n,
				TotalPages: totalPages,
				TotalItems: len(docs),
				Documents:  docs[start:end],
			},
		}
		if n > 1 {
			pg.Title = fmt.Sprintf("%s (page %d)", title, n)
			pg.Paginator.PrevURL = pageURL(basePermalink, n-1)
		}
		if n < totalPages {
			pg.Paginator.NextURL = pageURL(basePermalink, n+1)
		}
		pages = append(pages, pg)
	}
	return pages
}

func pageURL(base string, n int) string {
	if n == 1 {
		return base
	}
	return fmt.Sprintf("%spage/%d/", base, n)
}

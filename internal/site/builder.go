// Package site groups loaded documents into collections and taxonomies,
// computes pagination, and assembles the read-only Site Context snapshot each
// build renders against.
package site

import (
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
)

// Model is the site-wide view of all loaded documents. It is assembled once
// per build and not mutated afterwards; concurrent renders read it freely.
type Model struct {
	Config      *config.Config
	Documents   []*content.Document            // all content documents
	Pages       []*content.Document            // standalone pages (no collection)
	Collections map[string][]*content.Document // sorted per collection config
	Tags        map[string][]*content.Document
	Categories  map[string][]*content.Document
	ByPermalink map[string]*content.Document
}

// Builder assembles the site model.
type Builder struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewBuilder creates a site builder.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg, logger: slog.Default()}
}

// Build assigns each document to its primary collection, indexes taxonomies,
// and verifies permalink uniqueness. Membership is determined solely by
// source location or the declared collection field, never by render output.
func (b *Builder) Build(docs []*content.Document) (*Model, error) {
	m := &Model{
		Config:      b.cfg,
		Documents:   docs,
		Collections: make(map[string][]*content.Document),
		Tags:        make(map[string][]*content.Document),
		Categories:  make(map[string][]*content.Document),
		ByPermalink: make(map[string]*content.Document),
	}

	for _, doc := range docs {
		// A declared collection overrides the source-location assignment.
		if declared := doc.Fields.String("collection"); declared != "" {
			doc.Collection = declared
		}
		if doc.Collection == "" {
			m.Pages = append(m.Pages, doc)
		} else {
			m.Collections[doc.Collection] = append(m.Collections[doc.Collection], doc)
		}
		for _, tag := range doc.Tags {
			m.Tags[tag] = append(m.Tags[tag], doc)
		}
		for _, cat := range doc.Categories {
			m.Categories[cat] = append(m.Categories[cat], doc)
		}
	}

	for name := range m.Collections {
		b.sortCollection(name, m.Collections[name])
	}
	for _, term := range m.Tags {
		sortByDateDesc(term)
	}
	for _, term := range m.Categories {
		sortByDateDesc(term)
	}

	if err := m.registerPermalinks(docs); err != nil {
		return nil, err
	}

	b.logger.Debug("Site model built",
		"documents", len(docs),
		"collections", len(m.Collections),
		"tags", len(m.Tags),
		"categories", len(m.Categories))
	return m, nil
}

// registerPermalinks records documents by permalink, failing on collisions
// with both source paths reported.
func (m *Model) registerPermalinks(docs []*content.Document) error {
	for _, doc := range docs {
		if prev, taken := m.ByPermalink[doc.Permalink]; taken {
			return builderr.DuplicatePermalink(doc.Permalink, prev.RelPath, doc.RelPath)
		}
		m.ByPermalink[doc.Permalink] = doc
	}
	return nil
}

func (b *Builder) sortCollection(name string, docs []*content.Document) {
	var col *config.Collection
	for i := range b.cfg.Collections {
		if b.cfg.Collections[i].Name == name {
			col = &b.cfg.Collections[i]
			break
		}
	}

	sortBy, ascending := "date", false
	if col != nil {
		sortBy, ascending = col.SortBy, col.Ascending
	}

	// The natural order is descending (newest first); ascending flips the
	// key comparison but keeps the path tiebreak deterministic.
	sort.SliceStable(docs, func(i, j int) bool {
		var cmp int
		switch sortBy {
		case "title":
			switch {
			case docs[i].Title < docs[j].Title:
				cmp = 1
			case docs[i].Title > docs[j].Title:
				cmp = -1
			}
		default:
			switch {
			case docs[i].Date.After(docs[j].Date):
				cmp = -1
			case docs[i].Date.Before(docs[j].Date):
				cmp = 1
			}
		}
		if cmp == 0 {
			return docs[i].RelPath > docs[j].RelPath
		}
		if ascending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func sortByDateDesc(docs []*content.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].Date.Equal(docs[j].Date) {
			return docs[i].Date.After(docs[j].Date)
		}
		return docs[i].RelPath > docs[j].RelPath
	})
}

// TermNames returns the sorted names of a taxonomy index.
func TermNames(index map[string][]*content.Document) []string {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

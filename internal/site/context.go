package site

import (
	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/render"
)

// SiteData assembles the frozen site-wide template bindings. Called once per
// build; every render reads the same snapshot.
func (m *Model) SiteData() map[string]any {
	collections := make(map[string]any, len(m.Collections))
	for name, docs := range m.Collections {
		collections[name] = pageRefs(docs)
	}

	tags := make(map[string]any, len(m.Tags))
	for name, docs := range m.Tags {
		tags[name] = pageRefs(docs)
	}
	cats := make(map[string]any, len(m.Categories))
	for name, docs := range m.Categories {
		cats[name] = pageRefs(docs)
	}

	return map[string]any{
		"Title":       m.Config.Title,
		"Description": m.Config.Description,
		"BaseURL":     m.Config.BaseURL,
		"Params":      m.Config.Params,
		"Collections": collections,
		"Posts":       collections["posts"],
		"Tags":        tags,
		"Categories":  cats,
		"TagNames":    TermNames(m.Tags),
	}
}

// PageData builds the page-local template bindings for a document. The
// Excerpt is derived from the rendered body, so this runs after the Markdown
// pass.
func PageData(doc *content.Document) map[string]any {
	data := map[string]any{
		"Title":      doc.Title,
		"Date":       doc.Date,
		"Permalink":  doc.Permalink,
		"Tags":       doc.Tags,
		"Categories": doc.Categories,
		"Collection": doc.Collection,
		"Excerpt":    doc.Excerpt,
	}
	for k, v := range doc.Fields {
		if _, reserved := data[k]; !reserved {
			data[k] = v
		}
	}
	return data
}

// TemplateContext assembles the layered render context for a document:
// page-local bindings shadow site-wide ones in Params.
func (m *Model) TemplateContext(siteData map[string]any, doc *content.Document) render.Context {
	page := PageData(doc)
	return render.Context{
		Site:      siteData,
		Page:      page,
		Params:    render.LayerParams(m.Config.Params, map[string]any(doc.Fields)),
		Content:   doc.Body,
		Paginator: doc.Paginator,
	}
}

func pageRefs(docs []*content.Document) []map[string]any {
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		out = append(out, map[string]any{
			"Title":     doc.Title,
			"Date":      doc.Date,
			"Permalink": doc.Permalink,
			"Tags":      doc.Tags,
			"Excerpt":   doc.Excerpt,
		})
	}
	return out
}

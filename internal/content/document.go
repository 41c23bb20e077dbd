// Package content discovers and loads source files into Documents: parsed
// front-matter, raw Markdown body, and derived fields (date, title, slug,
// permalink).
package content

import (
	"html/template"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
)

// Document is a single loaded content file (or a synthetic page generated by
// the taxonomy builder, which has no source file).
type Document struct {
	SourcePath string // absolute path; empty for synthetic documents
	RelPath    string // path relative to the content root
	Collection string // collection name; empty for standalone pages
	SourceHash string // sha256 of the raw source file

	Title      string
	Date       time.Time
	Slug       string
	Layout     string
	Tags       []string
	Categories []string
	Draft      bool

	Fields frontmatter.Fields // full author-supplied front-matter

	RawBody []byte        // Markdown source of the body
	Body    template.HTML // rendered HTML, populated during the render phase
	Excerpt string        // plain text of the first rendered paragraph

	Permalink string // final URL path, e.g. /2024/03/01/hello/

	Synthetic bool // archive/term/list pages generated per build

	// Paginator is set on synthetic list pages that show a window of a
	// collection or taxonomy term.
	Paginator *Paginator
}

// Paginator describes one page of a paginated listing.
type Paginator struct {
	Number     int // 1-based
	TotalPages int
	TotalItems int
	Documents  []*Document
	PrevURL    string // empty on the first page
	NextURL    string // empty on the last page
}

// Asset is a static file copied through to the output tree unmodified. It
// participates in the dependency graph only as a direct-copy node.
type Asset struct {
	SourcePath string
	RelPath    string // path relative to the static root, mirrored in output
}

// ID returns the dependency graph identity of the document's source input.
// Synthetic documents have no source identity.
func (d *Document) ID() string {
	if d.Synthetic {
		return ""
	}
	return "content:" + d.RelPath
}

// ArtifactID returns the dependency graph identity of the document's rendered
// output artifact.
func (d *Document) ArtifactID() string {
	return "page:" + d.Permalink
}

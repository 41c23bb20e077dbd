// Package render expands templates with page and site context into HTML.
//
// Templates live under a single template root: layout files at the top level
// (or in subdirectories), partials under partials/. Layouts may declare a
// parent layout in their own front-matter; rendering wraps each level's
// output in its parent until a layout with no parent is reached. Partial
// inclusion and layout chaining are validated for cycles at load time, before
// any rendering begins.
package render

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/frontmatter"
	"git.home.luguber.info/inful/sitegen/internal/graph"
	"github.com/yuin/goldmark"
)

const partialPrefix = "partials"

// partialRef matches literal partial inclusions in template source. Dynamic
// names ({{ partial .Page.widget . }}) are resolved at render time only.
var partialRef = regexp.MustCompile(`partial\s+"([^"]+)"`)

// missingKeyErr matches the text/template missingkey=error failure.
var missingKeyErr = regexp.MustCompile(`map has no entry for key "([^"]+)"`)

// Engine loads and renders templates. Safe for concurrent use once loaded;
// rendering holds no engine-wide mutable state.
type Engine struct {
	templateDir string
	logger      *slog.Logger
	md          goldmark.Markdown

	layouts  map[string]*layoutTemplate
	partials map[string]*parsedTemplate
}

type layoutTemplate struct {
	parsedTemplate
	parent string
}

// parsedTemplate carries a strict and a soft parse of the same source.
// Strict execution (missingkey=error) detects unresolved variables so a
// warning can be recorded; the soft copy substitutes empty values.
type parsedTemplate struct {
	name   string
	strict *template.Template
	soft   *template.Template
}

// NewEngine creates an engine and loads all templates from templateDir,
// failing on layout cycles, partial-inclusion cycles, or statically missing
// partials.
func NewEngine(templateDir string) (*Engine, error) {
	e := &Engine{
		templateDir: templateDir,
		logger:      slog.Default(),
		md:          newMarkdown(),
		layouts:     make(map[string]*layoutTemplate),
		partials:    make(map[string]*parsedTemplate),
	}
	if err := e.load(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) funcMap() template.FuncMap {
	return template.FuncMap{
		"partial":  e.partialFunc,
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
		"lower":    strings.ToLower,
		"upper":    strings.ToUpper,
		"trim":     strings.TrimSpace,
	}
}

func (e *Engine) load() error {
	if _, err := os.Stat(e.templateDir); os.IsNotExist(err) {
		return fmt.Errorf("template directory not found: %s", e.templateDir)
	}

	type source struct {
		name    string
		text    string
		parent  string
		refs    []string
		partial bool
	}
	var sources []source

	err := filepath.WalkDir(e.templateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		rel, err := filepath.Rel(e.templateDir, path)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", rel, err)
		}

		// Layouts may carry front-matter declaring a parent layout.
		meta, body, _, err := frontmatter.Split(raw)
		if err != nil {
			return builderr.MalformedFrontMatter(rel, err)
		}
		fields, err := frontmatter.Parse(meta)
		if err != nil {
			return builderr.MalformedFrontMatter(rel, err)
		}

		name := strings.TrimSuffix(filepath.ToSlash(rel), ".html")
		src := source{
			name:   name,
			text:   string(body),
			parent: fields.String("layout"),
		}
		if after, ok := strings.CutPrefix(name, partialPrefix+"/"); ok {
			src.name = after
			src.partial = true
		}
		for _, m := range partialRef.FindAllStringSubmatch(src.text, -1) {
			src.refs = append(src.refs, m[1])
		}
		sources = append(sources, src)
		return nil
	})
	if err != nil {
		return err
	}

	for _, src := range sources {
		pt, err := e.parse(src.name, src.text)
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", src.name, err)
		}
		if src.partial {
			e.partials[src.name] = pt
		} else {
			e.layouts[src.name] = &layoutTemplate{parsedTemplate: *pt, parent: src.parent}
		}
	}

	// Validate inclusion and chaining on an explicit graph before any
	// rendering: cycles become build errors instead of runaway recursion.
	val := graph.New()
	for _, src := range sources {
		self := templateID(src.partial, src.name)
		for _, ref := range src.refs {
			if _, ok := e.partials[ref]; !ok {
				return builderr.MissingPartial(src.name, ref)
			}
			if err := val.RecordDependency(self, templateID(true, ref)); err != nil {
				return err
			}
		}
	}
	for name, lt := range e.layouts {
		if lt.parent == "" {
			continue
		}
		if _, ok := e.layouts[lt.parent]; !ok {
			return builderr.New(builderr.CategoryTemplate, builderr.SeverityFatal,
				"parent layout not found").WithContext("layout", name).WithContext("parent", lt.parent)
		}
		if err := val.RecordDependency(templateID(false, name), templateID(false, lt.parent)); err != nil {
			// A layout-chain cycle is reported as such.
			if builderr.IsKind(err, builderr.KindCyclicDependency) {
				return builderr.CyclicLayout(e.layoutChain(name))
			}
			return err
		}
	}

	e.logger.Debug("Templates loaded", "layouts", len(e.layouts), "partials", len(e.partials))
	return nil
}

func (e *Engine) parse(name, text string) (*parsedTemplate, error) {
	strict, err := template.New(name).Option("missingkey=error").Funcs(e.funcMap()).Parse(text)
	if err != nil {
		return nil, err
	}
	soft, err := template.New(name).Option("missingkey=zero").Funcs(e.funcMap()).Parse(text)
	if err != nil {
		return nil, err
	}
	return &parsedTemplate{name: name, strict: strict, soft: soft}, nil
}

// HasLayout reports whether a layout with the given name exists.
func (e *Engine) HasLayout(name string) bool {
	_, ok := e.layouts[name]
	return ok
}

// LayoutID returns the dependency graph identity of a layout template.
func LayoutID(name string) string { return templateID(false, name) }

// PartialID returns the dependency graph identity of a partial.
func PartialID(name string) string { return templateID(true, name) }

func templateID(partial bool, name string) string {
	if partial {
		return "template:" + partialPrefix + "/" + name
	}
	return "template:" + name
}

// Render wraps content in the named layout and its parent chain, resolving
// variables against the layered context. Each level and each included partial
// records a dependency edge for the artifact. Returned warnings are the soft
// issues (unresolved variables) encountered.
func (e *Engine) Render(layout string, ctx Context, artifactID string, rec Recorder) (string, []*builderr.BuildError, error) {
	st := newRenderState(artifactID, rec)
	ctx = ctx.withState(st)

	out := string(ctx.Content)
	seen := map[string]bool{}
	for name := layout; name != ""; {
		if seen[name] {
			// Load-time validation catches declared chains; this guards
			// against graphs mutated between load and render.
			return "", st.warnings, builderr.CyclicLayout(e.layoutChain(layout))
		}
		seen[name] = true

		lt, ok := e.layouts[name]
		if !ok {
			return "", st.warnings, builderr.New(builderr.CategoryTemplate, builderr.SeverityFatal,
				"layout not found").WithContext("layout", name).WithContext("artifact", artifactID)
		}
		if err := st.record(LayoutID(name)); err != nil {
			return "", st.warnings, err
		}

		ctx.Content = template.HTML(out)
		rendered, err := e.execute(&lt.parsedTemplate, ctx, st)
		if err != nil {
			return "", st.warnings, err
		}
		out = rendered
		name = lt.parent
	}
	return out, st.warnings, nil
}

// execute runs the strict parse first; a missing-key failure records a
// warning and falls back to the soft parse, substituting empty values.
func (e *Engine) execute(pt *parsedTemplate, ctx Context, st *renderState) (string, error) {
	var buf bytes.Buffer
	err := pt.strict.Execute(&buf, ctx)
	if err == nil {
		return buf.String(), nil
	}

	// A BuildError raised by a template func (missing partial, cycle) is the
	// real failure; unwrap it out of the exec error.
	if be := extractBuildError(err); be != nil {
		return "", be
	}

	if m := missingKeyErr.FindStringSubmatch(err.Error()); m != nil {
		st.warn(builderr.UnresolvedVariable(pt.name, m[1]))
		buf.Reset()
		if err := pt.soft.Execute(&buf, ctx); err != nil {
			if be := extractBuildError(err); be != nil {
				return "", be
			}
			return "", fmt.Errorf("execute template %s: %w", pt.name, err)
		}
		return buf.String(), nil
	}

	return "", fmt.Errorf("execute template %s: %w", pt.name, err)
}

// partialFunc implements {{ partial "name" . }}. An unknown partial is fatal:
// a missing include indicates a broken build rather than optional content.
func (e *Engine) partialFunc(name string, ctx Context) (template.HTML, error) {
	st := ctx.state
	if st == nil {
		return "", fmt.Errorf("partial %q invoked without render state", name)
	}

	pt, ok := e.partials[name]
	if !ok {
		return "", builderr.MissingPartial(currentTemplate(st), name)
	}
	if !st.pushPartial(name) {
		return "", builderr.CyclicDependency(PartialID(name), PartialID(name))
	}
	defer st.popPartial()

	if err := st.record(PartialID(name)); err != nil {
		return "", err
	}

	out, err := e.execute(pt, ctx, st)
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil
}

func currentTemplate(st *renderState) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.partialStack) > 0 {
		return st.partialStack[len(st.partialStack)-1]
	}
	return st.artifactID
}

// layoutChain returns the declared chain from the given layout for error
// reporting, stopping when a name repeats.
func (e *Engine) layoutChain(start string) []string {
	var chain []string
	seen := map[string]bool{}
	for name := start; name != "" && !seen[name]; {
		chain = append(chain, name)
		seen[name] = true
		lt, ok := e.layouts[name]
		if !ok {
			break
		}
		name = lt.parent
	}
	return chain
}

func extractBuildError(err error) *builderr.BuildError {
	var be *builderr.BuildError
	if stderrors.As(err, &be) {
		return be
	}
	// Template exec errors stringify func errors instead of wrapping them in
	// some call paths; fall back to matching the rendered message.
	msg := err.Error()
	if strings.Contains(msg, "missing partial") {
		be := builderr.New(builderr.CategoryTemplate, builderr.SeverityFatal, msg)
		be.Kind = builderr.KindMissingPartial
		return be
	}
	if strings.Contains(msg, "cyclic dependency") {
		be := builderr.New(builderr.CategoryTemplate, builderr.SeverityFatal, msg)
		be.Kind = builderr.KindCyclicDependency
		return be
	}
	return nil
}

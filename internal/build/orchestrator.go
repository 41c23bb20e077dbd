// Package build sequences loading, site assembly, rendering, and writing for
// full and incremental builds.
package build

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/graph"
	"git.home.luguber.info/inful/sitegen/internal/output"
	"git.home.luguber.info/inful/sitegen/internal/render"
	"git.home.luguber.info/inful/sitegen/internal/site"
	"git.home.luguber.info/inful/sitegen/internal/state"
)

// Options select the build mode.
type Options struct {
	// Incremental reuses the previous build's dependency graph and source
	// signatures to re-render only invalidated artifacts. Falls back to a
	// full build when no prior graph exists.
	Incremental bool
}

// Report summarizes one build.
type Report struct {
	ID        string
	Kind      string
	Documents int
	Rendered  int
	Written   int
	Skipped   int
	Warnings  []*builderr.BuildError
	Duration  time.Duration
}

// Orchestrator runs builds. All build state is assembled per run and either
// discarded or persisted through the state store, so one orchestrator may run
// repeatedly (e.g. under a watch loop) without residue between runs.
type Orchestrator struct {
	cfg     *config.Config
	store   *state.Store
	logger  *slog.Logger
	workers int

	mu    sync.Mutex
	phase Phase
}

// New creates an orchestrator.
func New(cfg *config.Config, store *state.Store) *Orchestrator {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Orchestrator{
		cfg:     cfg,
		store:   store,
		logger:  slog.Default(),
		workers: workers,
		phase:   PhaseIdle,
	}
}

// Phase returns the current build phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// renderedArtifact is a rendered page buffered until the writing phase, so a
// failed render pass never partially corrupts the output tree.
type renderedArtifact struct {
	id      string
	relPath string
	html    []byte
}

// Build runs one build and records its outcome in the state store.
func (o *Orchestrator) Build(ctx context.Context, opts Options) (*Report, error) {
	started := time.Now()
	report := &Report{ID: uuid.NewString(), Kind: "full"}
	if opts.Incremental {
		report.Kind = "incremental"
	}

	err := o.run(ctx, opts, report)
	report.Duration = time.Since(started)

	rec := state.BuildRecord{
		ID:        report.ID,
		Started:   started,
		Duration:  report.Duration,
		Kind:      report.Kind,
		Documents: report.Documents,
		Rendered:  report.Rendered,
		Written:   report.Written,
		Skipped:   report.Skipped,
		Warnings:  len(report.Warnings),
		Status:    "ok",
	}
	if err != nil {
		o.setPhase(PhaseFailed)
		rec.Status = "failed"
		rec.Error = err.Error()
	} else {
		o.setPhase(PhaseIdle)
	}
	if recErr := o.store.RecordBuild(ctx, rec); recErr != nil {
		o.logger.Warn("Failed to record build", "build_id", report.ID, "error", recErr)
	}

	if err != nil {
		return report, err
	}
	o.logger.Info("Build complete",
		"build_id", report.ID,
		"kind", report.Kind,
		"documents", report.Documents,
		"rendered", report.Rendered,
		"written", report.Written,
		"skipped", report.Skipped,
		"warnings", len(report.Warnings),
		"duration", report.Duration)
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, opts Options, report *Report) error {
	// Loading.
	o.setPhase(PhaseLoading)
	loader := content.NewLoader(o.cfg)
	docs, err := loader.Load()
	if err != nil {
		return err
	}
	assets, err := loader.LoadAssets()
	if err != nil {
		return err
	}
	report.Documents = len(docs)

	// Template loading validates layout chains and partial inclusion for
	// cycles before anything renders.
	engine, err := render.NewEngine(o.cfg.TemplateDir)
	if err != nil {
		return err
	}

	// Markdown pass: bodies and excerpts feed the Site Context.
	for _, doc := range docs {
		if err := o.renderBody(engine, doc); err != nil {
			return err
		}
	}

	model, err := site.NewBuilder(o.cfg).Build(docs)
	if err != nil {
		return err
	}
	synthetic, err := model.GenerateListPages()
	if err != nil {
		return err
	}

	artifacts := o.planArtifacts(engine, model, synthetic)

	// Change detection and graph reuse.
	sigs, err := o.collectSignatures(docs, assets)
	if err != nil {
		return err
	}

	g, renderSet, err := o.planRenderSet(ctx, opts, report, artifacts, sigs)
	if err != nil {
		return err
	}

	// Rendering: embarrassingly parallel across artifacts once the model is
	// frozen.
	o.setPhase(PhaseRendering)
	siteData := model.SiteData()
	rendered, warnings, err := o.renderAll(ctx, engine, model, siteData, g, artifacts, renderSet)
	report.Warnings = warnings
	report.Rendered = len(rendered)
	if err != nil {
		return err
	}

	// A build aborted between rendering and writing discards in-flight
	// output instead of flushing it.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build canceled before writing: %w", err)
	}

	// Writing.
	o.setPhase(PhaseWriting)
	writer := output.NewWriter(o.cfg.OutputDir, o.store)
	for _, art := range rendered {
		if _, err := writer.WriteArtifact(ctx, art.relPath, art.html); err != nil {
			return fmt.Errorf("writing %s: %w", art.relPath, err)
		}
	}
	for _, asset := range assets {
		if err := g.RecordDependency(copyArtifactID(asset), assetID(asset)); err != nil {
			return err
		}
		if _, err := writer.CopyAsset(ctx, asset.SourcePath, asset.RelPath); err != nil {
			return fmt.Errorf("copying asset %s: %w", asset.RelPath, err)
		}
	}
	report.Written = len(writer.Written())
	report.Skipped = writer.Skipped()

	// Persist the side-channel for the next incremental run, and drop
	// outputs whose sources disappeared.
	keep := make(map[string]struct{}, len(artifacts)+len(assets))
	for _, art := range artifacts {
		keep[output.PermalinkToRel(art.doc.Permalink)] = struct{}{}
	}
	for _, asset := range assets {
		keep[asset.RelPath] = struct{}{}
	}
	stale, err := o.store.ForgetOutputs(ctx, keep)
	if err != nil {
		return err
	}
	for _, rel := range stale {
		path := filepath.Join(o.cfg.OutputDir, rel)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("Failed to remove stale output", "path", rel, "error", err)
		}
	}

	if err := o.store.SaveGraph(ctx, g.Snapshot()); err != nil {
		return err
	}
	return o.store.SaveSignatures(ctx, sigs)
}

// renderBody converts a document's Markdown body to HTML (HTML sources pass
// through) and derives the excerpt.
func (o *Orchestrator) renderBody(engine *render.Engine, doc *content.Document) error {
	if strings.EqualFold(filepath.Ext(doc.RelPath), ".html") {
		doc.Body = template.HTML(doc.RawBody)
	} else {
		html, err := engine.Markdown(doc.RawBody)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", doc.RelPath, err)
		}
		doc.Body = template.HTML(html)
	}
	doc.Excerpt = site.Excerpt(string(doc.Body))
	return nil
}

// artifact pairs a document with its resolved layout.
type artifact struct {
	doc    *content.Document
	layout string
}

// planArtifacts lists every page this build can produce: rendered collection
// members, standalone pages, and synthetic list pages.
func (o *Orchestrator) planArtifacts(engine *render.Engine, model *site.Model, synthetic []*content.Document) []artifact {
	var artifacts []artifact

	for _, doc := range model.Documents {
		if doc.Collection != "" && !o.collectionRenders(doc.Collection) {
			continue
		}
		artifacts = append(artifacts, artifact{doc: doc, layout: doc.Layout})
	}
	for _, doc := range synthetic {
		layout := doc.Layout
		if !engine.HasLayout(layout) {
			// Sites without a list layout still get their listings, rendered
			// through the default layout.
			layout = o.cfg.DefaultLayout
		}
		artifacts = append(artifacts, artifact{doc: doc, layout: layout})
	}
	return artifacts
}

func (o *Orchestrator) collectionRenders(name string) bool {
	for i := range o.cfg.Collections {
		if o.cfg.Collections[i].Name == name {
			return o.cfg.Collections[i].Renders()
		}
	}
	return true
}

// planRenderSet decides which artifacts render this build. A full build (or
// an incremental build without a prior graph) renders everything on a fresh
// graph; an incremental build reuses the prior graph and renders the
// invalidation closure of the changed inputs plus artifacts the prior build
// never saw.
func (o *Orchestrator) planRenderSet(ctx context.Context, opts Options, report *Report, artifacts []artifact, sigs map[string]state.Signature) (*graph.Graph, map[string]bool, error) {
	renderSet := make(map[string]bool, len(artifacts))

	if !opts.Incremental {
		for _, art := range artifacts {
			renderSet[art.doc.ArtifactID()] = true
		}
		return graph.New(), renderSet, nil
	}

	prevEdges, err := o.store.LoadGraph(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(prevEdges) == 0 {
		o.logger.Info("No prior dependency graph, falling back to full build")
		report.Kind = "full"
		for _, art := range artifacts {
			renderSet[art.doc.ArtifactID()] = true
		}
		return graph.New(), renderSet, nil
	}

	g, err := graph.Restore(prevEdges)
	if err != nil {
		return nil, nil, err
	}

	prevSigs, err := o.store.LoadSignatures(ctx)
	if err != nil {
		return nil, nil, err
	}
	changed := changedInputs(prevSigs, sigs)

	invalidated := g.Invalidate(changed)
	known := make(map[string]bool, len(prevEdges))
	for _, e := range prevEdges {
		known[e.Artifact] = true
	}

	// Membership changed: listing pages key off the document set, so adding
	// or removing content re-renders every synthetic page.
	membershipChanged := false
	for _, id := range changed {
		if strings.HasPrefix(id, "content:") {
			if _, stillHere := sigs[id]; !stillHere {
				membershipChanged = true
			}
		}
	}
	for _, art := range artifacts {
		id := art.doc.ArtifactID()
		if !known[id] {
			if !art.doc.Synthetic {
				membershipChanged = true
			}
			renderSet[id] = true
			continue
		}
		if _, ok := invalidated[id]; ok {
			renderSet[id] = true
		}
	}
	if membershipChanged {
		for _, art := range artifacts {
			if art.doc.Synthetic {
				renderSet[art.doc.ArtifactID()] = true
			}
		}
	}

	o.logger.Info("Incremental plan",
		"changed_inputs", len(changed),
		"invalidated", len(invalidated),
		"to_render", len(renderSet))
	return g, renderSet, nil
}

// renderAll renders the selected artifacts across the worker pool. Workers
// read only the frozen site model; graph edge appends are synchronized inside
// the graph. The first fatal error cancels remaining work; in-flight renders
// finish but their output is discarded with the rest of the pass.
func (o *Orchestrator) renderAll(ctx context.Context, engine *render.Engine, model *site.Model, siteData map[string]any, g *graph.Graph, artifacts []artifact, renderSet map[string]bool) ([]renderedArtifact, []*builderr.BuildError, error) {
	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan artifact)
	results := make([]renderedArtifact, 0, len(renderSet))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		warnings []*builderr.BuildError
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for range o.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for art := range jobs {
				rendered, warns, err := o.renderArtifact(engine, model, siteData, g, art)
				if err != nil {
					fail(err)
					continue
				}
				mu.Lock()
				results = append(results, rendered)
				warnings = append(warnings, warns...)
				mu.Unlock()
			}
		}()
	}

	for _, art := range artifacts {
		if !renderSet[art.doc.ArtifactID()] {
			continue
		}
		select {
		case jobs <- art:
		case <-renderCtx.Done():
		}
		if renderCtx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, warnings, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, warnings, err
	}
	return results, warnings, nil
}

func (o *Orchestrator) renderArtifact(engine *render.Engine, model *site.Model, siteData map[string]any, g *graph.Graph, art artifact) (renderedArtifact, []*builderr.BuildError, error) {
	doc := art.doc
	id := doc.ArtifactID()

	// Stale edges from the previous build are recomputed for this artifact.
	g.ClearArtifact(id)

	if docID := doc.ID(); docID != "" {
		if err := g.RecordDependency(id, docID); err != nil {
			return renderedArtifact{}, nil, err
		}
	}
	if doc.Paginator != nil {
		// Synthetic list pages are invalidated through the documents they
		// summarize.
		for _, member := range doc.Paginator.Documents {
			if memberID := member.ID(); memberID != "" {
				if err := g.RecordDependency(id, memberID); err != nil {
					return renderedArtifact{}, nil, err
				}
			}
		}
	}

	ctx := model.TemplateContext(siteData, doc)
	html, warns, err := engine.Render(art.layout, ctx, id, g)
	if err != nil {
		return renderedArtifact{}, warns, fmt.Errorf("rendering %s: %w", doc.Permalink, err)
	}

	return renderedArtifact{
		id:      id,
		relPath: output.PermalinkToRel(doc.Permalink),
		html:    []byte(html),
	}, warns, nil
}

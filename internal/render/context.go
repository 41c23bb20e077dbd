package render

import (
	"html/template"
	"sync"

	"git.home.luguber.info/inful/sitegen/internal/content"
	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
)

// Context is the data a template executes against. Site and Page are the two
// layers of the variable namespace; Params is the flat merged view in which
// page-local bindings shadow site-wide ones.
type Context struct {
	Site      map[string]any
	Page      map[string]any
	Params    map[string]any
	Content   template.HTML
	Paginator *content.Paginator

	state *renderState
}

// withState returns a copy of the context carrying per-render state. Template
// code never sees the unexported field; the partial func does.
func (c Context) withState(st *renderState) Context {
	c.state = st
	return c
}

// LayerParams merges page bindings over site bindings.
func LayerParams(site, page map[string]any) map[string]any {
	out := make(map[string]any, len(site)+len(page))
	for k, v := range site {
		out[k] = v
	}
	for k, v := range page {
		out[k] = v
	}
	return out
}

// Recorder receives dependency edges discovered while rendering.
type Recorder interface {
	RecordDependency(artifact, input string) error
}

// renderState tracks one artifact's render: the dependency recorder, the
// partial inclusion stack, and collected warnings.
type renderState struct {
	artifactID string
	recorder   Recorder

	mu           sync.Mutex
	partialStack []string
	warnings     []*builderr.BuildError
	warned       map[string]struct{}
}

func newRenderState(artifactID string, rec Recorder) *renderState {
	return &renderState{
		artifactID: artifactID,
		recorder:   rec,
		warned:     make(map[string]struct{}),
	}
}

// warn records a warning once per (template, detail) pair; soft re-execution
// would otherwise report the same miss twice.
func (st *renderState) warn(w *builderr.BuildError) {
	key := w.Message
	for _, k := range []string{"template", "variable"} {
		if v, ok := w.Context[k]; ok {
			key += "|" + v.(string)
		}
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, dup := st.warned[key]; dup {
		return
	}
	st.warned[key] = struct{}{}
	st.warnings = append(st.warnings, w)
}

func (st *renderState) record(input string) error {
	if st.recorder == nil {
		return nil
	}
	return st.recorder.RecordDependency(st.artifactID, input)
}

func (st *renderState) pushPartial(name string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, n := range st.partialStack {
		if n == name {
			return false
		}
	}
	st.partialStack = append(st.partialStack, name)
	return true
}

func (st *renderState) popPartial() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.partialStack) > 0 {
		st.partialStack = st.partialStack[:len(st.partialStack)-1]
	}
}

package render

import (
	"html/template"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	builderr "git.home.luguber.info/inful/sitegen/internal/errors"
	"git.home.luguber.info/inful/sitegen/internal/graph"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestRender_SimpleLayout(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"default.html": `<title>{{ .Page.Title }} - {{ .Site.Title }}</title><main>{{ .Content }}</main>`,
	})
	e, err := NewEngine(dir)
	require.NoError(t, err)

	ctx := Context{
		Site:    map[string]any{"Title": "My Site"},
		Page:    map[string]any{"Title": "Hello"},
		Content: template.HTML("<p>Body</p>"),
	}
	out, warnings, err := e.Render("default", ctx, "page:/hello/", nil)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, `<title>Hello - My Site</title><main><p>Body</p></main>`, out)
}

func TestRender_LayoutChainWrapsEachLevel(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"default.html": `<html>{{ .Content }}</html>`,
		"post.html":    "---\nlayout: default\n---\n<article>{{ .Content }}</article>",
	})
	e, err := NewEngine(dir)
	require.NoError(t, err)

	g := graph.New()
	out, _, err := e.Render("post", Context{Content: "X"}, "page:/p/", g)
	require.NoError(t, err)
	require.Equal(t, "<html><article>X</article></html>", out)

	deps := g.Dependencies("page:/p/")
	require.Contains(t, deps, "template:post")
	require.Contains(t, deps, "template:default")
}

func TestRender_PartialInclusionRecordsDependency(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"default.html":      `{{ partial "nav" . }}<main>{{ .Content }}</main>`,
		"partials/nav.html": `<nav>{{ .Site.Title }}</nav>`,
	})
	e, err := NewEngine(dir)
	require.NoError(t, err)

	g := graph.New()
	out, _, err := e.Render("default", Context{Site: map[string]any{"Title": "S"}}, "page:/p/", g)
	require.NoError(t, err)
	require.Equal(t, `<nav>S</nav><main></main>`, out)
	require.Contains(t, g.Dependencies("page:/p/"), "template:partials/nav")
}

func TestLoad_StaticallyMissingPartialFails(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"default.html": `{{ partial "nope" . }}`,
	})
	_, err := NewEngine(dir)
	require.Error(t, err)
	require.True(t, builderr.IsKind(err, builderr.KindMissingPartial))
}

func TestLoad_PartialSelfInclusionFails(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"default.html":      `{{ partial "nav" . }}`,
		"partials/nav.html": `{{ partial "nav" . }}`,
	})
	_, err := NewEngine(dir)
	require.Error(t, err)
	require.True(t, builderr.IsKind(err, builderr.KindCyclicDependency))
}

func TestLoad_PartialInclusionCycleFails(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"default.html":      `{{ partial "nav" . }}`,
		"partials/nav.html": `{{ partial "foot" . }}`,
		"partials/foot.html": `{{ partial "nav" . }}`,
	})
	_, err := NewEngine(dir)
	require.Error(t, err)
	require.True(t, builderr.IsKind(err, builderr.KindCyclicDependency))
}

func TestLoad_CyclicLayoutFails(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"a.html": "---\nlayout: b\n---\nA{{ .Content }}",
		"b.html": "---\nlayout: a\n---\nB{{ .Content }}",
	})
	_, err := NewEngine(dir)
	require.Error(t, err)
	require.True(t, builderr.IsKind(err, builderr.KindCyclicLayout))
}

func TestRender_DynamicMissingPartialIsFatal(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"default.html": `{{ partial .Page.Widget . }}`,
	})
	e, err := NewEngine(dir)
	require.NoError(t, err)

	_, _, err = e.Render("default", Context{Page: map[string]any{"Widget": "gone"}}, "page:/p/", nil)
	require.Error(t, err)
	require.True(t, builderr.IsKind(err, builderr.KindMissingPartial))
}

func TestRender_UnresolvedVariableIsSoftWithWarning(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"default.html": `<p>{{ .Params.subtitle }}</p>{{ .Content }}`,
	})
	e, err := NewEngine(dir)
	require.NoError(t, err)

	ctx := Context{Params: map[string]any{}, Content: "X"}
	out, warnings, err := e.Render("default", ctx, "page:/p/", nil)
	require.NoError(t, err)
	require.Equal(t, "<p></p>X", out)
	require.Len(t, warnings, 1)
	require.Equal(t, builderr.SeverityWarning, warnings[0].Severity)
	require.Equal(t, "subtitle", warnings[0].Context["variable"])
}

func TestRender_MissingLayoutIsFatal(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"default.html": `{{ .Content }}`,
	})
	e, err := NewEngine(dir)
	require.NoError(t, err)

	_, _, err = e.Render("nope", Context{}, "page:/p/", nil)
	require.Error(t, err)
}

func TestRender_ConditionalsAndIteration(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"list.html": `{{ if .Params.show }}<ul>{{ range .Params.items }}<li>{{ . }}</li>{{ end }}</ul>{{ end }}`,
	})
	e, err := NewEngine(dir)
	require.NoError(t, err)

	ctx := Context{Params: map[string]any{"show": true, "items": []string{"a", "b"}}}
	out, _, err := e.Render("list", ctx, "page:/p/", nil)
	require.NoError(t, err)
	require.Equal(t, "<ul><li>a</li><li>b</li></ul>", out)
}

func TestMarkdown(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"default.html": `{{ .Content }}`})
	e, err := NewEngine(dir)
	require.NoError(t, err)

	out, err := e.Markdown([]byte("# Hi\n\nSome *text*.\n"))
	require.NoError(t, err)
	require.Contains(t, string(out), "<h1>Hi</h1>")
	require.Contains(t, string(out), "<em>text</em>")
}

func TestLayerParams_PageShadowsSite(t *testing.T) {
	merged := LayerParams(map[string]any{"a": 1, "b": 2}, map[string]any{"b": 3})
	require.Equal(t, 1, merged["a"])
	require.Equal(t, 3, merged["b"])
}

package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/neuroplastio/mdplug/internal/buildsvc"
	"github.com/neuroplastio/mdplug/internal/rendersvc"
)

func newEngine(t *testing.T, config Config) *Engine {
	e, err := NewWithLogger(config, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, e.Close())
	})
	return e
}

func TestRenderDefaults(t *testing.T) {
	e := newEngine(t, Config{DataDir: t.TempDir(), Build: buildsvc.DefaultConfig()})
	doc, err := e.Render(context.Background(), "doc.md", []byte("| a |\n|---|\n|!{>1} b |\n"))
	require.NoError(t, err)
	assert.Contains(t, string(doc.HTML), `colspan="1"`)

	_, err = e.Render(context.Background(), "doc.md", []byte("| a |\n|---|\n|!{>1} b |\n"))
	require.NoError(t, err)
	assert.Equal(t, rendersvc.Stats{Reloads: 1, Misses: 1, Hits: 1}, e.RenderStats())
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdplug.yml")
	require.NoError(t, os.WriteFile(path, []byte("extensions:\n  - blankLink\n"), 0644))
	e := newEngine(t, Config{ConfigFile: path})

	doc, err := e.Render(context.Background(), "doc.md", []byte("*?maybe?* ?[x](/y)\n"))
	require.NoError(t, err)
	assert.NotContains(t, string(doc.HTML), "<span")
	assert.Contains(t, string(doc.HTML), `target="_blank"`)
}

func TestInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdplug.yml")
	require.NoError(t, os.WriteFile(path, []byte("extensions:\n  - nope\n"), 0644))
	dataDir := t.TempDir()
	_, err := NewWithLogger(Config{ConfigFile: path, DataDir: dataDir}, zaptest.NewLogger(t))
	assert.Error(t, err)

	// The database must have been released.
	e := newEngine(t, Config{DataDir: dataDir})
	assert.NotNil(t, e)
}

func TestBuild(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "index.md"), []byte("# Title\n"), 0644))
	e := newEngine(t, Config{Build: buildsvc.DefaultConfig()})

	stats, err := e.Build(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, buildsvc.Stats{Rendered: 1}, stats)
	data, err := os.ReadFile(filepath.Join(dst, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `<section id="title">`)
}

func TestRegistry(t *testing.T) {
	e := newEngine(t, Config{})
	assert.ElementsMatch(t, []string{"table", "sections", "spans", "smallImage", "blankLink", "buttons"}, e.Registry().IDs())
}

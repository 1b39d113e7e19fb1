package rendersvc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/neuroplastio/mdplug/extensions"
	"github.com/neuroplastio/mdplug/internal/cache"
	"github.com/neuroplastio/mdplug/internal/configsvc"
	"github.com/neuroplastio/mdplug/pkg/markdown"
)

func newService(t *testing.T, withCache bool) *Service {
	log := zaptest.NewLogger(t)
	reg := extensions.NewRegistry(log)
	require.NoError(t, extensions.RegisterBuiltin(reg))
	var c *cache.Cache
	if withCache {
		db, err := cache.Open(t.TempDir(), log)
		require.NoError(t, err)
		t.Cleanup(func() {
			assert.NoError(t, db.Close())
		})
		c = cache.New(db, log, time.Now)
	}
	return New(log, reg, c)
}

func TestRenderNotConfigured(t *testing.T) {
	svc := newService(t, false)
	_, err := svc.Render(context.Background(), "doc.md", []byte("# Doc"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRenderCanceled(t *testing.T) {
	svc := newService(t, false)
	require.NoError(t, svc.Reload(markdown.DefaultConfig()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Render(ctx, "doc.md", []byte("# Doc"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderCache(t *testing.T) {
	svc := newService(t, true)
	require.NoError(t, svc.Reload(markdown.DefaultConfig()))
	source := []byte("---\ntitle: Doc\n---\nsome *text*\n")

	first, err := svc.Render(context.Background(), "doc.md", source)
	require.NoError(t, err)
	assert.Contains(t, string(first.HTML), "<em>text</em>")
	assert.Equal(t, Stats{Reloads: 1, Misses: 1}, svc.Stats())

	second, err := svc.Render(context.Background(), "doc.md", source)
	require.NoError(t, err)
	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, "Doc", second.Meta["title"])
	assert.Equal(t, Stats{Reloads: 1, Misses: 1, Hits: 1}, svc.Stats())

	// A new configuration invalidates the cached document.
	cfg := markdown.DefaultConfig()
	cfg.XHTML = true
	require.NoError(t, svc.Reload(cfg))
	_, err = svc.Render(context.Background(), "doc.md", source)
	require.NoError(t, err)
	assert.Equal(t, Stats{Reloads: 2, Misses: 2, Hits: 1}, svc.Stats())
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	svc := newService(t, false)
	require.NoError(t, svc.Reload(markdown.DefaultConfig()))

	bad := markdown.Config{Extensions: []markdown.ExtensionConfig{{Type: "missing"}}}
	assert.Error(t, svc.Reload(bad))

	doc, err := svc.Render(context.Background(), "doc.md", []byte("x *?maybe?* y"))
	require.NoError(t, err)
	assert.Contains(t, string(doc.HTML), `<span class="text-unsure">maybe</span>`)
	assert.Equal(t, int64(1), svc.Stats().Reloads)
}

func TestWatch(t *testing.T) {
	log := zaptest.NewLogger(t)
	configs := configsvc.New(log)
	svc := newService(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	configsDone := make(chan struct{})
	go func() {
		defer close(configsDone)
		assert.NoError(t, configs.Start(ctx))
	}()

	path := filepath.Join(t.TempDir(), "mdplug.yml")
	require.NoError(t, os.WriteFile(path, []byte("extensions:\n  - table\n"), 0644))

	done := make(chan error, 1)
	go func() {
		done <- svc.Watch(ctx, configs, path)
	}()

	require.Eventually(t, func() bool {
		return svc.Stats().Reloads == 1
	}, 5*time.Second, 10*time.Millisecond)

	doc, err := svc.Render(ctx, "doc.md", []byte("x *?maybe?* y"))
	require.NoError(t, err)
	assert.NotContains(t, string(doc.HTML), "<span")

	require.NoError(t, os.WriteFile(path, []byte("extensions:\n  - spans\n"), 0644))
	require.Eventually(t, func() bool {
		doc, err := svc.Render(ctx, "doc.md", []byte("x *?maybe?* y"))
		return err == nil && string(doc.HTML) == "<p>x <span class=\"text-unsure\">maybe</span> y</p>\n"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	<-configsDone
}

func TestWatchCreatesMissingConfig(t *testing.T) {
	log := zaptest.NewLogger(t)
	configs := configsvc.New(log)
	svc := newService(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	configsDone := make(chan struct{})
	go func() {
		defer close(configsDone)
		assert.NoError(t, configs.Start(ctx))
	}()

	path := filepath.Join(t.TempDir(), "mdplug.yml")
	done := make(chan error, 1)
	go func() {
		done <- svc.Watch(ctx, configs, path)
	}()

	require.Eventually(t, func() bool {
		return svc.Stats().Reloads == 1
	}, 5*time.Second, 10*time.Millisecond)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "extensions:")

	cancel()
	assert.NoError(t, <-done)
	<-configsDone
}

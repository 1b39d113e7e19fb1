package buildsvc

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/neuroplastio/mdplug/internal/configsvc"
	"github.com/neuroplastio/mdplug/pkg/bus"
	"github.com/neuroplastio/mdplug/pkg/markdown"
)

type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, _ string, source []byte) (markdown.Document, error) {
	if bytes.HasPrefix(source, []byte("fail")) {
		return markdown.Document{}, errors.New("boom")
	}
	return markdown.Document{HTML: append([]byte("<p>"), append(bytes.TrimSpace(source), "</p>\n"...)...)}, nil
}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestOutputPath(t *testing.T) {
	type testCase struct {
		path     string
		expected string
		err      bool
	}
	svc := New(zaptest.NewLogger(t), fakeRenderer{}, nil, DefaultConfig())
	src := filepath.FromSlash("/docs")
	dst := filepath.FromSlash("/site")
	testCases := []testCase{
		{path: "/docs/a.md", expected: "/site/a.html"},
		{path: "/docs/guide/b.markdown", expected: "/site/guide/b.html"},
		{path: "/other/c.md", err: true},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			out, err := svc.OutputPath(src, dst, filepath.FromSlash(tc.path))
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tc.expected), out)
		})
	}
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, IsMarkdown("a.md"))
	assert.True(t, IsMarkdown("a.MD"))
	assert.True(t, IsMarkdown("a.markdown"))
	assert.False(t, IsMarkdown("a.txt"))
	assert.False(t, IsMarkdown("md"))
}

func TestBuild(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.md"), "alpha")
	writeFile(t, filepath.Join(src, "guide", "b.md"), "beta")
	writeFile(t, filepath.Join(src, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(src, "bad.md"), "fail here")

	cfg := DefaultConfig()
	cfg.Workers = 2
	svc := New(zaptest.NewLogger(t), fakeRenderer{}, nil, cfg)

	stats, err := svc.Build(context.Background(), src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, Stats{Rendered: 2, Failed: 1}, stats)

	assert.Equal(t, "<p>alpha</p>\n", readFile(t, filepath.Join(dst, "a.html")))
	assert.Equal(t, "<p>beta</p>\n", readFile(t, filepath.Join(dst, "guide", "b.html")))
	assert.NoFileExists(t, filepath.Join(dst, "notes.html"))
	assert.NoFileExists(t, filepath.Join(dst, "bad.html"))
}

func TestBuildMissingSource(t *testing.T) {
	svc := New(zaptest.NewLogger(t), fakeRenderer{}, nil, DefaultConfig())
	_, err := svc.Build(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir())
	assert.Error(t, err)
}

func TestBuildPublishesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := zaptest.NewLogger(t)
	events := bus.NewBus[EventType, Event](log)
	require.NoError(t, events.Start(ctx))
	failures := events.Subscribe(ctx, EventFailed)
	_ = events.Subscribe(ctx)

	src := t.TempDir()
	writeFile(t, filepath.Join(src, "bad.md"), "fail")
	svc := New(log, fakeRenderer{}, events, DefaultConfig())

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Build(ctx, src, t.TempDir())
		errCh <- err
	}()

	select {
	case msg := <-failures:
		assert.Equal(t, EventFailed, msg.Key)
		assert.Equal(t, filepath.Join(src, "bad.md"), msg.Message.Source)
		assert.Error(t, msg.Message.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("no failure event")
	}
	assert.Error(t, <-errCh)
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := zaptest.NewLogger(t)
	configs := configsvc.New(log)
	configsDone := make(chan struct{})
	go func() {
		defer close(configsDone)
		assert.NoError(t, configs.Start(ctx))
	}()

	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "a.md"), "alpha")

	cfg := DefaultConfig()
	cfg.Debounce = 20 * time.Millisecond
	svc := New(log, fakeRenderer{}, nil, cfg)
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- svc.Watch(ctx, configs, src, dst)
	}()

	out := filepath.Join(dst, "a.html")
	require.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(src, "a.md"), "changed")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(out)
		return err == nil && string(data) == "<p>changed</p>\n"
	}, 5*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(src, "sub", "new.md"), "fresh")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(dst, "sub", "new.html"))
		return err == nil && string(data) == "<p>fresh</p>\n"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(src, "a.md")))
	require.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-watchDone)
	<-configsDone
}

package enginecli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, in string, args ...string) (string, error) {
	cmd := NewRootCmd(t.TempDir())
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(in))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: Hello\n---\nsee ?[docs](/docs)\n"), 0644))
	missing := filepath.Join(t.TempDir(), "mdplug.yml")

	out, err := run(t, "", "render", "--config", missing, path)
	require.NoError(t, err)
	assert.Equal(t, "<p>see <a href=\"/docs\" target=\"_blank\" rel=\"noreferrer noopener\">docs</a></p>\n", out)

	out, err = run(t, "", "render", "--config", missing, "--meta", path)
	require.NoError(t, err)
	assert.Equal(t, "title: Hello\n", out)
}

func TestRenderStdin(t *testing.T) {
	out, err := run(t, "*!careful!*\n", "render", "--no-cache", "--config", filepath.Join(t.TempDir(), "none.yml"), "-")
	require.NoError(t, err)
	assert.Equal(t, "<p><span class=\"text-warning\">careful</span></p>\n", out)
}

func TestRenderArgs(t *testing.T) {
	_, err := run(t, "", "render")
	assert.Error(t, err)
	_, err = run(t, "", "render", filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.md"), []byte("# A\n"), 0644))
	out, err := run(t, "", "build", "--config", filepath.Join(src, "none.yml"), src, dst)
	require.NoError(t, err)
	assert.Equal(t, "rendered 1, failed 0\n", out)
	assert.FileExists(t, filepath.Join(dst, "a.html"))
}

func TestExtensions(t *testing.T) {
	out, err := run(t, "", "extensions")
	require.NoError(t, err)
	for _, id := range []string{"table", "sections", "spans", "smallImage", "blankLink", "buttons"} {
		assert.Contains(t, out, id+"\t")
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdplug.yml")
	out, err := run(t, "", "init", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "extensions:")

	_, err = run(t, "", "init", "--config", path)
	assert.Error(t, err)

	_, err = run(t, "", "init", "--config", path, "--force")
	assert.NoError(t, err)
}

package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "netsift")
	assert.Contains(t, out, "dev")
}

func TestVersionCommand_Short(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestVersionCommand_JSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
	assert.Contains(t, out, `"go_version"`)
}

func TestSearchCommand_RejectsInvalidMode(t *testing.T) {
	_, err := execute(t, "search", "query", "--mode", "fuzzy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
}

func TestSearchCommand_RejectsInvalidMobileFlag(t *testing.T) {
	_, err := execute(t, "search", "query", "--mobile", "maybe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--mobile")
}

func TestSearchCommand_RequiresQuery(t *testing.T) {
	_, err := execute(t, "search")
	require.Error(t, err)
}

// isolateConfig keeps command tests away from real user config and the
// default snapshot location.
func isolateConfig(t *testing.T, vectorEndpoint string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("NETSIFT_KEYWORD_SNAPSHOT", filepath.Join(t.TempDir(), "keyword.snapshot.json"))
	t.Setenv("NETSIFT_VECTOR_ENDPOINT", vectorEndpoint)
}

func TestHealthCommand_ReachableStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	isolateConfig(t, srv.URL)

	out, err := execute(t, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "vector store: ok")
	assert.Contains(t, out, srv.URL)
}

func TestHealthCommand_UnreachableStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	isolateConfig(t, srv.URL)

	out, err := execute(t, "health")
	require.Error(t, err)
	assert.Contains(t, out, "vector store: unreachable")
}

func TestReadDocuments(t *testing.T) {
	input := strings.Join([]string{
		`{"url": "https://example.com/1", "text": "first page", "language": "en"}`,
		``,
		`{"url": "https://example.com/2", "text": "second page", "mobile": true}`,
	}, "\n")

	docs, err := readDocuments(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "https://example.com/1", docs[0].URL)
	assert.Equal(t, "en", docs[0].Language)
	assert.True(t, docs[1].Mobile)
}

func TestReadDocuments_InvalidLine(t *testing.T) {
	_, err := readDocuments(strings.NewReader("{broken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestIndexCommand_EmptyInput(t *testing.T) {
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs([]string{"index"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "no documents to index")
}

package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskshell/internal/core"
)

func call(t *testing.T, r *core.Registry, name string, v map[string]string) (core.Response, error) {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	args, err := core.ParseArgs(body)
	require.NoError(t, err)
	return r.Execute(context.Background(), name, args)
}

func newRegistry(t *testing.T) *core.Registry {
	t.Helper()
	r, err := core.NewRegistry(context.Background(), []core.CommandProvider{New(0)})
	require.NoError(t, err)
	return r
}

func TestSaveThenReadBack(t *testing.T) {
	r := newRegistry(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	contents := "ligne 1\nligne 2 — é\n"

	resp, err := call(t, r, "save_text_file", map[string]string{"path": path, "contents": contents})
	require.NoError(t, err)
	assert.Nil(t, resp.Data)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, contents, string(raw))

	resp, err = call(t, r, "read_text_file", map[string]string{"path": path})
	require.NoError(t, err)
	assert.Equal(t, contents, resp.Data)
}

func TestSaveOverwrites(t *testing.T) {
	r := newRegistry(t)
	path := filepath.Join(t.TempDir(), "out.txt")
	_, err := call(t, r, "save_text_file", map[string]string{"path": path, "contents": "long original text"})
	require.NoError(t, err)
	_, err = call(t, r, "save_text_file", map[string]string{"path": path, "contents": "short"})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "short", string(raw))
}

func TestSaveFailureIsIOFailure(t *testing.T) {
	r := newRegistry(t)
	path := filepath.Join(t.TempDir(), "missing", "dir", "file.txt")

	resp, err := call(t, r, "save_text_file", map[string]string{"path": path, "contents": "x"})
	require.Error(t, err)
	assert.Equal(t, string(core.KindIO), resp.ErrorCode)
	assert.True(t, strings.HasPrefix(resp.Message, "Failed to write file: "), resp.Message)
}

func TestReadMissingFile(t *testing.T) {
	r := newRegistry(t)
	resp, err := call(t, r, "read_text_file", map[string]string{"path": filepath.Join(t.TempDir(), "nope.txt")})
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, string(core.KindIO), resp.ErrorCode)
}

func TestSaveRequiresArguments(t *testing.T) {
	r := newRegistry(t)
	_, err := call(t, r, "save_text_file", map[string]string{"path": "x"})
	require.ErrorIs(t, err, core.ErrInvalidArguments)
}

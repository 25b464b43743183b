package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/roster-enrich/internal/model"
)

func TestWriteJSON_NoHTMLEscaping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "twitter.json")

	recs := []model.LinkRecord{{Identifier: "alice", Link: "https://twitter.com/alice?a=1&b=<2>"}}
	require.NoError(t, WriteJSON(path, recs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "a=1&b=<2>")
	assert.Contains(t, string(data), "\n  {")
	assert.NoFileExists(t, path+".tmp")
}

func TestReadList_Missing(t *testing.T) {
	items, err := ReadList(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReadList_Malformed(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"object": `{"a": 1}`,
		"null":   `null`,
		"broken": `[{"a":`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := ReadList(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrMalformedInput)
		})
	}
}

func TestAppendJSON_Accumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")

	n, err := AppendJSON(path, []json.RawMessage{json.RawMessage(`{"id":1}`)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = AppendJSON(path, []map[string]any{{"id": 2}, {"id": 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1},{"id":2},{"id":3}]`, string(data))
}

func TestAppendJSON_EmptyBatchKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":1}]`), 0o644))

	n, err := AppendJSON(path, []json.RawMessage{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppendJSON_RefusesNonList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"a list"}`), 0o644))

	_, err := AppendJSON(path, []json.RawMessage{json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrMalformedInput)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"not":"a list"}`, string(data), "malformed file is left untouched")
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.csv")
	rows := [][]string{
		{"go", "Alice, Go dev", "says \"hi\"", "https://ma.linkedin.com/in/alice"},
	}
	require.NoError(t, WriteCSV(path, []string{"Search Query", "Title", "Snippet", "Link"}, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Search Query,Title,Snippet,Link\ngo,\"Alice, Go dev\",\"says \"\"hi\"\"\",https://ma.linkedin.com/in/alice\n", string(data))
}

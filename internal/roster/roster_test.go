package roster

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/roster-enrich/internal/model"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{"list", `[{"GitHub Username":"alice"},{"GitHub Username":"bob"}]`, 2, false},
		{"wrapped", `{"extracted_table":[{"Name":"alice"}]}`, 1, false},
		{"wrapped empty", ` {"extracted_table":[]} `, 0, false},
		{"null entries become empty users", `[null, {"Name":"x"}]`, 2, false},
		{"object without table", `{"users":[]}`, 0, true},
		{"table not a list", `{"extracted_table":{"a":1}}`, 0, true},
		{"scalar", `"alice"`, 0, true},
		{"empty", `   `, 0, true},
		{"broken", `[{"Name":`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := Decode([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrMalformedInput)
				return
			}
			require.NoError(t, err)
			assert.Len(t, users, tt.wantLen)
			for _, u := range users {
				assert.NotNil(t, u)
			}
		})
	}
}

func TestLoadAndSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"extracted_table":[{"GitHub Username":"alice","Followers":"10"}]}`), 0o644))

	users, err := Load(in)
	require.NoError(t, err)
	require.Len(t, users, 1)
	users[0].SetReadme("# readme")

	out := filepath.Join(dir, "out.json")
	require.NoError(t, Save(out, users))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"extracted_table":[{"GitHub Username":"alice","Followers":"10","Readme file":"# readme","Readme Error":null}]}`, string(data))
}

func TestSave_WritesFieldsInSortedOrder(t *testing.T) {
	users, err := Decode([]byte(`[{"Zeta":"z","Name":"alice","Alpha":1,"GitHub Username":"alice"}]`))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Save(out, users))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)

	keys := []string{`"Alpha"`, `"GitHub Username"`, `"Name"`, `"Zeta"`}
	last := -1
	for _, k := range keys {
		idx := strings.Index(text, k)
		require.GreaterOrEqual(t, idx, 0, "missing %s", k)
		assert.Greater(t, idx, last, "%s out of order", k)
		last = idx
	}
}

func TestSave_NilUsers(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Save(out, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got map[string][]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.NotNil(t, got[TableKey])
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLimit(t *testing.T) {
	users := []model.User{{}, {}, {}}
	assert.Len(t, Limit(users, 0), 3)
	assert.Len(t, Limit(users, 2), 2)
	assert.Len(t, Limit(users, 10), 3)
}

func TestUsernameFromHTML(t *testing.T) {
	tests := []struct {
		cell   string
		want   string
		wantOK bool
	}{
		{`<a href="https://github.com/alice">Alice</a>`, "alice", true},
		{`<div><a href="https://github.com/bob/">Bob</a> <a href="https://github.com/other">x</a></div>`, "bob", true},
		{`<a href="https://gitlab.com/carol">Carol</a>`, "", false},
		{`<a>no href</a>`, "", false},
		{`<a href="https://github.com/">root</a>`, "", false},
		{`plain text`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, ok := UsernameFromHTML(tt.cell)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFillUsernames(t *testing.T) {
	users := []model.User{
		{model.FieldGitHubUsername: "kept", model.FieldName: "ignored"},
		{model.FieldName: `<a href="https://github.com/alice">Alice A.</a>`},
		{model.FieldName: "bob Bobson"},
		{model.FieldName: `<a href="https://example.com">nope</a>`},
		{},
	}

	n := FillUsernames(users)

	assert.Equal(t, 3, n)
	assert.Equal(t, "kept", users[0].GitHubUsername())
	assert.Equal(t, "alice", users[1].GitHubUsername())
	assert.Equal(t, "bob", users[2].GitHubUsername())
	assert.Nil(t, users[3][model.FieldGitHubUsername])
	assert.Nil(t, users[4][model.FieldGitHubUsername])
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoad_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"GitHub Username", "Twitter Username", "Name"},
		{"alice", "@alice", "Alice"},
		{"bob", "", "Bob"},
		{"", "", ""},
	})

	users, err := Load(path)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].GitHubUsername())
	assert.Equal(t, "@alice", users[0].TwitterHandle())
	_, has := users[1][model.FieldTwitterUsername]
	assert.False(t, has)
}

func TestLoadXLSX_SheetSelection(t *testing.T) {
	path := createTestXLSX(t, [][]string{{"Name"}, {"x"}})

	_, err := LoadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)

	_, err = LoadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)

	users, err := LoadXLSX(path, XLSXOptions{SheetName: "Sheet1"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

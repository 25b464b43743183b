// Package roster loads and saves the list of users the pipeline enriches.
package roster

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/roster-enrich/internal/model"
	"github.com/sells-group/roster-enrich/internal/output"
)

// TableKey wraps the user list in exported rosters.
const TableKey = "extracted_table"

// Load reads a roster from path. Files ending in .xlsx are read as
// spreadsheets; anything else is decoded as JSON.
func Load(path string) ([]model.User, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path, XLSXOptions{})
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: read %s", path)
	}
	users, err := Decode(data)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: decode %s", path)
	}
	return users, nil
}

// Decode parses a roster that is either a top-level list of user objects or
// an object holding that list under "extracted_table".
func Decode(data []byte) ([]model.User, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, eris.Wrap(model.ErrMalformedInput, "empty roster")
	}

	var users []model.User
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &users); err != nil {
			return nil, eris.Wrapf(model.ErrMalformedInput, "user list: %v", err)
		}
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, eris.Wrapf(model.ErrMalformedInput, "roster object: %v", err)
		}
		raw, ok := wrapper[TableKey]
		if !ok {
			return nil, eris.Wrapf(model.ErrMalformedInput, "roster object has no %q key", TableKey)
		}
		if err := json.Unmarshal(raw, &users); err != nil {
			return nil, eris.Wrapf(model.ErrMalformedInput, "%s: %v", TableKey, err)
		}
	default:
		return nil, eris.Wrap(model.ErrMalformedInput, "roster must be a list or an object")
	}

	for i, u := range users {
		if u == nil {
			users[i] = model.User{}
		}
	}
	return users, nil
}

// Limit returns the first n users, or all of them when n <= 0.
func Limit(users []model.User, n int) []model.User {
	if n > 0 && n < len(users) {
		return users[:n]
	}
	return users
}

// Save writes users wrapped under "extracted_table".
func Save(path string, users []model.User) error {
	if users == nil {
		users = []model.User{}
	}
	return output.WriteJSON(path, map[string]any{TableKey: users})
}

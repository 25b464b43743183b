// Package output writes the pipeline's JSON and CSV artifacts.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/roster-enrich/internal/model"
)

// Marshal encodes v as indented JSON without HTML escaping, so links and
// README text stay readable.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, eris.Wrap(err, "output: encode")
	}
	return buf.Bytes(), nil
}

// WriteJSON replaces path with the JSON encoding of v.
func WriteJSON(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "output: create directory %s", dir)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "output: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "output: rename %s", path)
	}
	return nil
}

// ReadList reads a JSON list from path. A missing file is an empty list; any
// other top-level shape is ErrMalformedInput.
func ReadList(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "output: read %s", path)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, eris.Wrapf(model.ErrMalformedInput, "output: %s is not a JSON list: %v", path, err)
	}
	if items == nil {
		// A literal null is not a list.
		return nil, eris.Wrapf(model.ErrMalformedInput, "output: %s is not a JSON list", path)
	}
	return items, nil
}

// AppendJSON appends items to the JSON list at path, creating it if needed.
// Existing entries are kept: repeated runs accumulate. Returns the combined
// length.
func AppendJSON[T any](path string, items []T) (int, error) {
	existing, err := ReadList(path)
	if err != nil {
		return 0, err
	}

	combined := make([]any, 0, len(existing)+len(items))
	for _, e := range existing {
		combined = append(combined, e)
	}
	for _, it := range items {
		combined = append(combined, it)
	}

	if err := WriteJSON(path, combined); err != nil {
		return 0, err
	}
	zap.L().Info("results appended",
		zap.String("path", path),
		zap.Int("added", len(items)),
		zap.Int("total", len(combined)),
	)
	return len(combined), nil
}

// WriteCSV replaces path with header followed by rows.
func WriteCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "output: write csv header")
	}
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrap(err, "output: write csv rows")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "output: create directory %s", dir)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "output: write %s", path)
	}
	zap.L().Info("csv written", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

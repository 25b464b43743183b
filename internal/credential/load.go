package credential

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Parse decodes a token → count mapping. The input may be JSON
// (`{"tok": 3}`) or YAML; an empty string yields an empty mapping.
func Parse(raw string) (map[string]int, error) {
	tokens := map[string]int{}
	if strings.TrimSpace(raw) == "" {
		return tokens, nil
	}
	if err := yaml.Unmarshal([]byte(raw), &tokens); err != nil {
		return nil, eris.Wrap(err, "credential: parse token mapping")
	}
	return tokens, nil
}

// File is the on-disk layout of a credentials file. Each section maps a
// token to its remaining use count.
type File struct {
	Apify   map[string]int `yaml:"apify"`
	Serper  map[string]int `yaml:"serper"`
	SerpAPI map[string]int `yaml:"serpapi"`
}

// LoadFile reads a YAML or JSON credentials file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "credential: read %s", path)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "credential: decode %s", path)
	}
	return &f, nil
}

// Merge combines mappings; later mappings override earlier counts for the
// same token.
func Merge(maps ...map[string]int) map[string]int {
	out := map[string]int{}
	for _, m := range maps {
		for tok, n := range m {
			out[tok] = n
		}
	}
	return out
}

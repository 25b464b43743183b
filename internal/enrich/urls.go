package enrich

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/roster-enrich/internal/output"
)

// ProfileMarker identifies LinkedIn profile URLs.
const ProfileMarker = "linkedin.com/in/"

// LoadProfileURLs reads a JSON list of search results and returns, in order,
// the "link" of every item that points at a LinkedIn profile. A missing file
// yields no URLs; anything but a list is model.ErrMalformedInput.
func LoadProfileURLs(path string) ([]string, error) {
	items, err := output.ReadList(path)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(items))
	for _, raw := range items {
		var item struct {
			Link any `json:"link"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			// Non-object entries carry no link.
			continue
		}
		link, ok := item.Link.(string)
		if !ok || !strings.Contains(link, ProfileMarker) {
			continue
		}
		urls = append(urls, link)
	}
	return urls, nil
}

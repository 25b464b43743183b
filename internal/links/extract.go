package links

import (
	"strings"

	"github.com/sells-group/roster-enrich/internal/model"
)

// NoHandleSentinel is the placeholder the roster uses for "no handle".
const NoHandleSentinel = "no twitter username"

// Extractor derives a primary link from an explicit handle or free text, and
// secondary links from free text only.
type Extractor struct {
	Primary   Rule
	Secondary Rule
	Sentinel  string
	Marker    string
}

// NewExtractor returns the Twitter/LinkedIn extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		Primary:   Twitter,
		Secondary: LinkedIn,
		Sentinel:  NoHandleSentinel,
		Marker:    "@",
	}
}

// Extract returns at most one primary record and the deduplicated secondary
// records for identifier.
//
// Primary priority: the explicit handle when it is set and not the sentinel,
// else the first primary match in text, else none. Secondary links are every
// match in text, deduplicated by exact value in first-seen order.
func (e *Extractor) Extract(identifier, handle, text string) (*model.LinkRecord, []model.LinkRecord) {
	var primary *model.LinkRecord
	if h, ok := e.cleanHandle(handle); ok {
		primary = &model.LinkRecord{Identifier: identifier, Link: e.Primary.Canonical(h), Kind: model.LinkKindHandle}
	} else if _, h, ok := e.Primary.First(text); ok {
		primary = &model.LinkRecord{Identifier: identifier, Link: e.Primary.Canonical(h), Kind: model.LinkKindText}
	}

	var secondary []model.LinkRecord
	seen := make(map[string]struct{})
	// Keyed on the normalized link: "linkedin.com/in/x" and
	// "https://linkedin.com/in/x" are one record.
	for _, m := range e.Secondary.All(text) {
		link := WithScheme(m)
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		secondary = append(secondary, model.LinkRecord{Identifier: identifier, Link: link, Kind: model.LinkKindText})
	}

	return primary, secondary
}

func (e *Extractor) cleanHandle(handle string) (string, bool) {
	h := strings.TrimSpace(handle)
	if h == "" || strings.EqualFold(h, e.Sentinel) {
		return "", false
	}
	h = strings.TrimPrefix(h, e.Marker)
	if h == "" {
		return "", false
	}
	return h, true
}

// Collect runs Extract over users in input order.
func (e *Extractor) Collect(users []model.User) (primary, secondary []model.LinkRecord) {
	primary = []model.LinkRecord{}
	secondary = []model.LinkRecord{}
	for _, u := range users {
		p, s := e.Extract(u.Identifier(), u.TwitterHandle(), u.Readme())
		if p != nil {
			primary = append(primary, *p)
		}
		secondary = append(secondary, s...)
	}
	return primary, secondary
}

// Package links derives social profile links from roster users: one primary
// Twitter link per user and any number of LinkedIn profile links.
package links

import (
	"regexp"
	"strings"
)

// Rule describes one kind of profile link. The pattern it compiles accepts
// an optional http(s) scheme, an optional subdomain, the fixed host, the path
// prefix and a handle made of Charset characters.
type Rule struct {
	// Host is the fixed host name, e.g. "twitter.com".
	Host string
	// PathPrefix precedes the handle, e.g. "/" or "/in/".
	PathPrefix string
	// Subdomain is a regexp fragment for the optional subdomain, including
	// its trailing dot. It is matched case-sensitively.
	Subdomain string
	// Charset is a regexp character class for handle characters.
	Charset string

	re *regexp.Regexp
}

// Compile builds the rule's pattern. It panics on an invalid fragment, like
// regexp.MustCompile, since rules are package-level values.
func (r Rule) Compile() Rule {
	expr := `(?:https?://)?`
	if r.Subdomain != "" {
		expr += `(?:` + r.Subdomain + `)?`
	}
	expr += regexp.QuoteMeta(r.Host) + regexp.QuoteMeta(r.PathPrefix) + `(` + r.Charset + `+)`
	r.re = regexp.MustCompile(expr)
	return r
}

// First returns the first match in text and its handle.
func (r Rule) First(text string) (match, handle string, ok bool) {
	m := r.re.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[0], m[1], true
}

// All returns every match in document order.
func (r Rule) All(text string) []string {
	return r.re.FindAllString(text, -1)
}

// Canonical builds the https link for handle on the bare host.
func (r Rule) Canonical(handle string) string {
	return "https://" + r.Host + r.PathPrefix + handle
}

// WithScheme prefixes https:// to a match that was written without a scheme.
func WithScheme(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return "https://" + link
}

var (
	// Twitter matches twitter.com/<handle>, with optional www.
	Twitter = Rule{
		Host:       "twitter.com",
		PathPrefix: "/",
		Subdomain:  `www\.`,
		Charset:    `[A-Za-z0-9_]`,
	}.Compile()

	// LinkedIn matches linkedin.com/in/<handle>, with an optional
	// lowercase two or three letter regional subdomain.
	LinkedIn = Rule{
		Host:       "linkedin.com",
		PathPrefix: "/in/",
		Subdomain:  `[a-z]{2,3}\.`,
		Charset:    `[A-Za-z0-9\-_]`,
	}.Compile()
)

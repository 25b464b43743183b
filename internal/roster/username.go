package roster

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/roster-enrich/internal/model"
)

// UsernameFromHTML returns the GitHub username from the first link in an
// HTML cell such as `<a href="https://github.com/alice">Alice</a>`.
func UsernameFromHTML(cell string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cell))
	if err != nil {
		return "", false
	}
	href, ok := doc.Find("a[href]").First().Attr("href")
	if !ok || !strings.Contains(href, "github.com") {
		return "", false
	}
	href = strings.TrimRight(href, "/")
	name := href[strings.LastIndex(href, "/")+1:]
	if name == "" || strings.Contains(name, "github.com") {
		return "", false
	}
	return name, true
}

// FillUsernames derives "GitHub Username" from the Name column for users
// that lack one. HTML cells use their GitHub link; plain text uses the first
// word. Returns the number of users that ended up with a username.
func FillUsernames(users []model.User) int {
	n := 0
	for _, u := range users {
		if u.GitHubUsername() != "" {
			n++
			continue
		}
		name, _ := u[model.FieldName].(string)
		if strings.Contains(name, "<a") {
			if id, ok := UsernameFromHTML(name); ok {
				u[model.FieldGitHubUsername] = id
				n++
				continue
			}
			u[model.FieldGitHubUsername] = nil
			continue
		}
		if fields := strings.Fields(name); len(fields) > 0 {
			u[model.FieldGitHubUsername] = fields[0]
			n++
			continue
		}
		u[model.FieldGitHubUsername] = nil
	}
	return n
}

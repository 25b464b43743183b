// Package model defines the records that flow through the enrichment pipeline.
package model

import "strings"

// Roster field names as they appear in input and output JSON.
const (
	FieldGitHubUsername  = "GitHub Username"
	FieldName            = "Name"
	FieldTwitterUsername = "Twitter Username"
	FieldReadme          = "Readme file"
	FieldReadmeError     = "Readme Error"
)

// User is one roster entry. Fields not known to the pipeline are carried
// through untouched so enriched rosters keep every input column.
type User map[string]any

func (u User) str(key string) string {
	s, _ := u[key].(string)
	return s
}

// GitHubUsername returns the trimmed GitHub username, or "".
func (u User) GitHubUsername() string {
	return strings.TrimSpace(u.str(FieldGitHubUsername))
}

// Identifier returns the GitHub username, falling back to the Name column.
func (u User) Identifier() string {
	if id := u.GitHubUsername(); id != "" {
		return id
	}
	return u.str(FieldName)
}

// TwitterHandle returns the raw explicit Twitter handle field.
func (u User) TwitterHandle() string {
	return u.str(FieldTwitterUsername)
}

// Readme returns the fetched README text, or "" when absent.
func (u User) Readme() string {
	return u.str(FieldReadme)
}

// SetReadme records a successful fetch.
func (u User) SetReadme(content string) {
	u[FieldReadme] = content
	u[FieldReadmeError] = nil
}

// SetReadmeError records a failed fetch.
func (u User) SetReadmeError(detail string) {
	u[FieldReadme] = nil
	u[FieldReadmeError] = detail
}

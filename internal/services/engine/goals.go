package engine

import "strings"

// goalAliases maps common shorthand goals to the substring actually
// checked against the URL and body.
var goalAliases = map[string]string{
	"admin":     "wp-admin",
	"login":     "login",
	"dashboard": "dashboard",
	"checkout":  "checkout",
	"sitemap":   "sitemap.xml",
}

// GoalReached tests the achieve-mode predicate: the goal string (or its
// alias expansion) appearing as a case-insensitive substring of either
// the request URL or the response body.
func GoalReached(goal, requestURL, body string) bool {
	if goal == "" {
		return false
	}
	needle := strings.ToLower(goal)
	if alias, ok := goalAliases[needle]; ok {
		needle = alias
	}
	return strings.Contains(strings.ToLower(requestURL), needle) ||
		strings.Contains(strings.ToLower(body), needle)
}

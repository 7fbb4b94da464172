package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// plainText strips all markup with policy and returns the text unescaped. Strict policies
// entity-encode what they keep, so without the unescape "I'm" would be stored and counted
// as "I&#39;m". Clients render the result as text, never as HTML.
func plainText(policy *bluemonday.Policy, raw string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(raw)))
}

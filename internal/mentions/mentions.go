// Package mentions finds "@username" references in user supplied text.
package mentions

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	httpURLPattern = regexp.MustCompile(`(?i)https?://[^\s)]+`)
	wwwURLPattern  = regexp.MustCompile(`(?i)\bwww\.[^\s)]+`)
	emailPattern   = regexp.MustCompile(`\b[^\s@]+@[^\s@]+\.[^\s@]+\b`)

	// A mention must start the text or follow whitespace.
	mentionPattern = regexp.MustCompile(`(^|[\s\p{Z}])@([A-Za-z0-9_-]{3,30})\b`)

	placeholderPattern = regexp.MustCompile("\uE000([0-9]+)\uE001")
)

// maskedPatterns are removed before scanning so "@" inside links and e-mail
// addresses never counts as a mention.
var maskedPatterns = []*regexp.Regexp{httpURLPattern, wwwURLPattern, emailPattern}

// Extract returns the distinct lowercase usernames mentioned in text, in the
// order they first appear. Existence of the accounts is not checked.
func Extract(text string) []string {
	if text == "" {
		return nil
	}

	stripped := text
	for _, p := range maskedPatterns {
		stripped = p.ReplaceAllString(stripped, " ")
	}

	var usernames []string
	seen := make(map[string]struct{})
	for _, m := range mentionPattern.FindAllStringSubmatch(stripped, -1) {
		username := strings.ToLower(m[2])
		if _, ok := seen[username]; ok {
			continue
		}
		seen[username] = struct{}{}
		usernames = append(usernames, username)
	}
	return usernames
}

// Linkify renders text as HTML with every mention turned into an anchor to
// the user's profile. Everything else, URLs and e-mail addresses included, is
// HTML-escaped and otherwise left as written.
func Linkify(text string) string {
	if text == "" {
		return text
	}

	var held []string
	hold := func(s string) string {
		held = append(held, s)
		return "\uE000" + strconv.Itoa(len(held)-1) + "\uE001"
	}

	out := text
	for _, p := range maskedPatterns {
		out = p.ReplaceAllStringFunc(out, hold)
	}

	// Placeholders and mention names contain nothing html.EscapeString rewrites.
	out = html.EscapeString(out)
	out = mentionPattern.ReplaceAllStringFunc(out, func(match string) string {
		sub := mentionPattern.FindStringSubmatch(match)
		return fmt.Sprintf(`%s<a href="/u/%s" class="mention-link">@%s</a>`, sub[1], strings.ToLower(sub[2]), sub[2])
	})

	return placeholderPattern.ReplaceAllStringFunc(out, func(match string) string {
		i, err := strconv.Atoi(placeholderPattern.FindStringSubmatch(match)[1])
		if err != nil || i >= len(held) {
			return match
		}
		return html.EscapeString(held[i])
	})
}

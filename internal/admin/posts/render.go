package posts

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = newContentPolicy()
)

func newContentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("code", "pre", "span")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// RenderContent converts a markdown post body into sanitised HTML.
func RenderContent(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("posts: render markdown: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// Excerpt shortens content for table cells, cutting on a rune boundary.
func Excerpt(content string, limit int) string {
	runes := []rune(content)
	if limit <= 0 || len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "…"
}

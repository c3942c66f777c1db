package partials

import (
	"finitefield.org/blog-admin/internal/admin/rbac"
	"finitefield.org/blog-admin/internal/admin/templates/helpers"
)

// MenuItem is a sidebar link.
type MenuItem struct {
	Key         string
	LabelKey    string
	Label       string
	Href        string
	Pattern     string
	MatchPrefix bool
	Capability  rbac.Capability
}

// MenuGroup groups related sidebar links under a heading.
type MenuGroup struct {
	Key        string
	LabelKey   string
	Label      string
	Capability rbac.Capability
	Items      []MenuItem
}

// BuildMenu returns the sidebar layout rooted at basePath.
func BuildMenu(basePath string) []MenuGroup {
	return []MenuGroup{
		{
			Key:        "content",
			LabelKey:   "nav.content",
			Label:      "Content",
			Capability: rbac.CapPostsList,
			Items: []MenuItem{
				{
					Key:         "blog-posts",
					LabelKey:    "blog_posts.titles.list",
					Label:       "Blog Posts",
					Href:        helpers.JoinRoute(basePath, "/blog-posts"),
					Pattern:     helpers.JoinRoute(basePath, "/blog-posts"),
					MatchPrefix: true,
					Capability:  rbac.CapPostsList,
				},
			},
		},
		{
			Key:        "system",
			LabelKey:   "nav.system",
			Label:      "System",
			Capability: rbac.CapMetricsView,
			Items: []MenuItem{
				{
					Key:        "metrics",
					LabelKey:   "nav.metrics",
					Label:      "Metrics",
					Href:       helpers.JoinRoute(basePath, "/metrics"),
					Pattern:    helpers.JoinRoute(basePath, "/metrics"),
					Capability: rbac.CapMetricsView,
				},
			},
		},
	}
}

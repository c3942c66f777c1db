package posts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	adminposts "finitefield.org/blog-admin/internal/admin/posts"
	"finitefield.org/blog-admin/internal/admin/rbac"
	"finitefield.org/blog-admin/internal/admin/templates/layout"
)

func TestListPageActionsFollowCapabilities(t *testing.T) {
	t.Parallel()

	next := 2
	data := ListPageData{
		Result: adminposts.ListResult{
			Posts: []adminposts.Post{
				{ID: 1, Title: "Hello", Status: adminposts.StatusPublished, CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
				{ID: 2, Title: "Draft", Status: adminposts.StatusDraft},
			},
			Pagination: adminposts.Pagination{Page: 1, PageSize: 10, TotalItems: 12, NextPage: &next},
		},
		Path:  "/admin/blog-posts",
		Flash: &layout.Flash{Kind: "success", Message: "Blog post deleted."},
	}

	editor := renderPage(t, userContext(t, rbac.RoleEditor), ListPage(data))
	require.Equal(t, 2, editor.Find("[data-posts-table] tbody tr").Length())
	require.Equal(t, 1, editor.Find("[data-create-post]").Length())
	row := editor.Find(`tr[data-post-id="1"]`)
	require.Equal(t, "/admin/blog-posts/show/1", row.Find(`[data-action="show"]`).AttrOr("href", ""))
	require.Equal(t, "/admin/blog-posts/edit/1", row.Find(`[data-action="edit"]`).AttrOr("href", ""))
	require.Equal(t, "/admin/blog-posts/delete/1", row.Find(`form[data-action="delete"]`).AttrOr("action", ""))
	require.Equal(t, "published", row.Find("[data-status]").AttrOr("data-status", ""))
	require.Equal(t, "/admin/blog-posts?page=2", editor.Find("a[rel=next]").AttrOr("href", ""))
	require.Equal(t, "Blog post deleted.", editor.Find("[data-flash]").Text())

	viewer := renderPage(t, userContext(t, rbac.RoleViewer), ListPage(data))
	require.Equal(t, 0, viewer.Find("[data-create-post]").Length())
	require.Equal(t, 0, viewer.Find(`[data-action="edit"]`).Length())
	require.Equal(t, 0, viewer.Find(`[data-action="delete"]`).Length())
	require.Equal(t, 2, viewer.Find(`[data-action="show"]`).Length())
}

func TestListPageEmpty(t *testing.T) {
	t.Parallel()

	doc := renderPage(t, userContext(t, rbac.RoleEditor), ListPage(ListPageData{
		Result: adminposts.ListResult{Pagination: adminposts.Pagination{Page: 1, PageSize: 10}},
	}))
	require.Equal(t, 1, doc.Find("[data-empty]").Length())
	require.Equal(t, "1 / 1", doc.Find("[data-page-indicator]").Text())
}

func TestShowPageRendersBody(t *testing.T) {
	t.Parallel()

	body, err := adminposts.RenderContent("Some **bold** words")
	require.NoError(t, err)

	doc := renderPage(t, userContext(t, rbac.RoleViewer), ShowPage(ShowPageData{
		Post: adminposts.Post{ID: 5, Title: "<Title>", Status: adminposts.StatusRejected, Category: &adminposts.Category{ID: 2}},
		Body: body,
	}))

	require.Equal(t, "<Title>", doc.Find("[data-post-title]").Text())
	require.Equal(t, "bold", doc.Find("[data-post-body] strong").Text())
}

func TestFormPageShowsErrorsAndValues(t *testing.T) {
	t.Parallel()

	doc := renderPage(t, userContext(t, rbac.RoleEditor), FormPage(FormPageData{
		Edit:   true,
		PostID: 3,
		Input:  adminposts.Input{Title: "", Content: "Body", Status: adminposts.StatusPublished},
		Errors: adminposts.FieldErrors{"title": "blog_posts.errors.requiredTitle"},
		Action: "/admin/blog-posts/edit/3",
	}))

	form := doc.Find("[data-post-form]")
	require.Equal(t, "/admin/blog-posts/edit/3", form.AttrOr("action", ""))
	require.Equal(t, 1, form.Find(`input[name="_csrf"]`).Length())
	require.Equal(t, "blog_posts.errors.requiredTitle", doc.Find(`[data-field-error="title"]`).Text(), "without a bundle the key is shown")
	require.Equal(t, "Body", form.Find("textarea").Text())
	_, selected := form.Find(`option[value="published"]`).Attr("selected")
	require.True(t, selected)
	require.True(t, strings.Contains(doc.Find("title").Text(), "Edit Blog Post"))
}

func userContext(t *testing.T, role rbac.Role) context.Context {
	t.Helper()

	var ctx context.Context
	handler := middleware.RequestInfoMiddleware("/admin", "Development")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/blog-posts", nil))
	return middleware.ContextWithUser(ctx, &middleware.User{UID: "u1", Roles: []string{string(role)}})
}

func renderPage(t *testing.T, ctx context.Context, c templ.Component) *goquery.Document {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	return doc
}

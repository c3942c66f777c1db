package posts

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	adminposts "finitefield.org/blog-admin/internal/admin/posts"
	"finitefield.org/blog-admin/internal/admin/rbac"
	"finitefield.org/blog-admin/internal/admin/templates/helpers"
	"finitefield.org/blog-admin/internal/admin/templates/layout"
	"finitefield.org/blog-admin/internal/admin/templates/partials"
)

// ListPageData is the blog post index.
type ListPageData struct {
	Result   adminposts.ListResult
	Path     string
	RawQuery string
	Flash    *layout.Flash
	Error    string
}

// ShowPageData is a single post with its rendered body.
type ShowPageData struct {
	Post  adminposts.Post
	Body  string
	Flash *layout.Flash
}

// FormPageData drives both the create and the edit form.
type FormPageData struct {
	Edit   bool
	PostID int
	Input  adminposts.Input
	Errors adminposts.FieldErrors
	Error  string
	Action string
}

// ListPage renders the paginated post table.
func ListPage(data ListPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := helpers.T(ctx, "blog_posts.titles.list", "Blog Posts")
		content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			p := helpers.NewPrinter(w)
			p.Raw(`<div class="flex items-center justify-between"><h1 class="text-xl font-semibold">`)
			p.Text(title)
			p.Raw(`</h1>`)
			if helpers.HasCapability(ctx, rbac.CapPostsCreate) {
				p.Raw(`<a class="rounded-md bg-blue-600 px-3 py-2 text-sm text-white" data-create-post`)
				p.URLAttr("href", helpers.Route(ctx, "/blog-posts/create"))
				p.Raw(`>`)
				p.Text(helpers.T(ctx, "buttons.create", "Create"))
				p.Raw(`</a>`)
			}
			p.Raw(`</div>`)
			p.Component(ctx, partials.Flash("error", data.Error))

			p.Raw(`<table class="w-full divide-y divide-slate-200 bg-white text-sm" data-posts-table><thead><tr>`)
			for _, h := range []struct{ key, fallback string }{
				{"blog_posts.fields.id", "ID"},
				{"blog_posts.fields.title", "Title"},
				{"blog_posts.fields.status", "Status"},
				{"blog_posts.fields.createdAt", "Created At"},
				{"table.actions", "Actions"},
			} {
				p.Raw(`<th class="px-3 py-2 text-left font-medium text-slate-500">`)
				p.Text(helpers.T(ctx, h.key, h.fallback))
				p.Raw(`</th>`)
			}
			p.Raw(`</tr></thead><tbody>`)
			if len(data.Result.Posts) == 0 {
				p.Raw(`<tr><td colspan="5" class="px-3 py-6 text-center text-slate-500" data-empty>`)
				p.Text(helpers.T(ctx, "table.empty", "No data"))
				p.Raw(`</td></tr>`)
			}
			for _, post := range data.Result.Posts {
				id := strconv.Itoa(post.ID)
				p.Raw(`<tr`)
				p.Attr("data-post-id", id)
				p.Raw(`><td class="px-3 py-2">`)
				p.Text(id)
				p.Raw(`</td><td class="px-3 py-2">`)
				p.Text(adminposts.Excerpt(post.Title, 80))
				p.Raw(`</td><td class="px-3 py-2">`)
				p.Component(ctx, statusBadge(post.Status))
				p.Raw(`</td><td class="px-3 py-2">`)
				p.Text(helpers.Date(post.CreatedAt, "2006-01-02"))
				p.Raw(`</td><td class="px-3 py-2">`)
				p.Component(ctx, rowActions(post))
				p.Raw(`</td></tr>`)
			}
			p.Raw(`</tbody></table>`)

			pg := data.Result.Pagination
			p.Component(ctx, partials.Pagination(data.Path, data.RawQuery, pg.Page, pg.TotalPages(), pg.PrevPage, pg.NextPage))
			return p.Err()
		})
		return layout.App(title, data.Flash, content).Render(ctx, w)
	})
}

func rowActions(post adminposts.Post) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		id := strconv.Itoa(post.ID)
		p := helpers.NewPrinter(w)
		p.Raw(`<div class="flex gap-2">`)
		if helpers.HasCapability(ctx, rbac.CapPostsShow) {
			p.Raw(`<a data-action="show"`)
			p.URLAttr("href", helpers.Route(ctx, "/blog-posts/show/"+id))
			p.Raw(`>`)
			p.Text(helpers.T(ctx, "buttons.show", "Show"))
			p.Raw(`</a>`)
		}
		if helpers.HasCapability(ctx, rbac.CapPostsEdit) {
			p.Raw(`<a data-action="edit"`)
			p.URLAttr("href", helpers.Route(ctx, "/blog-posts/edit/"+id))
			p.Raw(`>`)
			p.Text(helpers.T(ctx, "buttons.edit", "Edit"))
			p.Raw(`</a>`)
		}
		if helpers.HasCapability(ctx, rbac.CapPostsDelete) {
			p.Component(ctx, deleteButton(post.ID))
		}
		p.Raw(`</div>`)
		return p.Err()
	})
}

func deleteButton(id int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<form method="post" data-action="delete"`)
		p.URLAttr("action", helpers.Route(ctx, "/blog-posts/delete/"+strconv.Itoa(id)))
		p.Attr("onsubmit", "return confirm(this.dataset.confirm)")
		p.Attr("data-confirm", helpers.T(ctx, "blog_posts.confirmDelete", "Delete this blog post?"))
		p.Raw(`>`)
		p.Component(ctx, partials.CSRFField())
		p.Raw(`<button type="submit" class="text-rose-600">`)
		p.Text(helpers.T(ctx, "buttons.delete", "Delete"))
		p.Raw(`</button></form>`)
		return p.Err()
	})
}

func statusBadge(status adminposts.Status) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := helpers.NewPrinter(w)
		p.Raw(`<span`)
		p.Attr("class", helpers.BadgeClass(helpers.StatusTone(string(status))))
		p.Attr("data-status", string(status))
		p.Raw(`>`)
		p.Text(helpers.T(ctx, "blog_posts.status."+string(status), string(status)))
		p.Raw(`</span>`)
		return p.Err()
	})
}

// ShowPage renders one post.
func ShowPage(data ShowPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := helpers.T(ctx, "blog_posts.titles.show", "Show Blog Post")
		content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			post := data.Post
			p := helpers.NewPrinter(w)
			p.Raw(`<div class="flex items-center justify-between"><h1 class="text-xl font-semibold">`)
			p.Text(title)
			p.Raw(`</h1>`)
			p.Component(ctx, rowActions(post))
			p.Raw(`</div><dl class="space-y-4 rounded-lg bg-white p-6" data-post>`)
			term := func(key, fallback string) {
				p.Raw(`<dt class="text-xs font-semibold uppercase text-slate-500">`)
				p.Text(helpers.T(ctx, key, fallback))
				p.Raw(`</dt>`)
			}
			term("blog_posts.fields.id", "ID")
			p.Raw(`<dd>`)
			p.Text(strconv.Itoa(post.ID))
			p.Raw(`</dd>`)
			term("blog_posts.fields.title", "Title")
			p.Raw(`<dd data-post-title>`)
			p.Text(post.Title)
			p.Raw(`</dd>`)
			term("blog_posts.fields.status", "Status")
			p.Raw(`<dd>`)
			p.Component(ctx, statusBadge(post.Status))
			p.Raw(`</dd>`)
			if post.Category != nil {
				term("blog_posts.fields.category", "Category")
				p.Raw(`<dd>`)
				p.Text(strconv.Itoa(post.Category.ID))
				p.Raw(`</dd>`)
			}
			term("blog_posts.fields.createdAt", "Created At")
			p.Raw(`<dd>`)
			p.Text(helpers.Date(post.CreatedAt, ""))
			p.Raw(`</dd>`)
			term("blog_posts.fields.content", "Content")
			p.Raw(`<dd class="prose max-w-none" data-post-body>`)
			// Body is sanitised by posts.RenderContent.
			p.Raw(data.Body)
			p.Raw(`</dd></dl>`)
			return p.Err()
		})
		return layout.App(title, data.Flash, content).Render(ctx, w)
	})
}

// FormPage renders the create or edit form.
func FormPage(data FormPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := helpers.T(ctx, "blog_posts.titles.create", "Create Blog Post")
		if data.Edit {
			title = helpers.T(ctx, "blog_posts.titles.edit", "Edit Blog Post")
		}
		content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			p := helpers.NewPrinter(w)
			p.Raw(`<h1 class="text-xl font-semibold">`)
			p.Text(title)
			p.Raw(`</h1>`)
			p.Component(ctx, partials.Flash("error", data.Error))
			p.Raw(`<form method="post" class="space-y-4 rounded-lg bg-white p-6" novalidate data-post-form`)
			p.URLAttr("action", data.Action)
			p.Raw(`>`)
			p.Component(ctx, partials.CSRFField())

			fieldError := func(name string) {
				if key, ok := data.Errors[name]; ok {
					p.Raw(`<p class="mt-1 text-xs text-rose-600"`)
					p.Attr("data-field-error", name)
					p.Raw(`>`)
					p.Text(helpers.T(ctx, key, key))
					p.Raw(`</p>`)
				}
			}
			label := func(name, key, fallback string) {
				p.Raw(`<label class="block text-sm font-medium"`)
				p.Attr("for", name)
				p.Raw(`>`)
				p.Text(helpers.T(ctx, key, fallback))
				p.Raw(`</label>`)
			}

			p.Raw(`<div>`)
			label("title", "blog_posts.fields.title", "Title")
			p.Raw(`<input type="text" id="title" name="title" class="mt-1 w-full rounded-md border px-3 py-2"`)
			p.Attr("value", data.Input.Title)
			p.Raw(`>`)
			fieldError("title")
			p.Raw(`</div><div>`)
			label("status", "blog_posts.fields.status", "Status")
			p.Raw(`<select id="status" name="status" class="mt-1 w-full rounded-md border px-3 py-2">`)
			for _, status := range adminposts.Statuses {
				p.Raw(`<option`)
				p.Attr("value", string(status))
				p.BoolAttr("selected", status == data.Input.Status)
				p.Raw(`>`)
				p.Text(helpers.T(ctx, "blog_posts.status."+string(status), string(status)))
				p.Raw(`</option>`)
			}
			p.Raw(`</select>`)
			fieldError("status")
			p.Raw(`</div><div>`)
			label("category", "blog_posts.fields.category", "Category")
			p.Raw(`<input type="number" min="1" id="category" name="category" class="mt-1 w-full rounded-md border px-3 py-2"`)
			if data.Input.CategoryID > 0 {
				p.Attr("value", strconv.Itoa(data.Input.CategoryID))
			}
			p.Raw(`></div><div>`)
			label("content", "blog_posts.fields.content", "Content")
			p.Raw(`<textarea id="content" name="content" rows="12" class="mt-1 w-full rounded-md border px-3 py-2">`)
			p.Text(data.Input.Content)
			p.Raw(`</textarea>`)
			fieldError("content")
			p.Raw(`</div><button type="submit" class="rounded-md bg-blue-600 px-4 py-2 text-sm text-white">`)
			p.Text(helpers.T(ctx, "buttons.save", "Save"))
			p.Raw(`</button></form>`)
			return p.Err()
		})
		return layout.App(title, nil, content).Render(ctx, w)
	})
}

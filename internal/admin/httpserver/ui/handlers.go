package ui

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	custommw "finitefield.org/blog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/blog-admin/internal/admin/posts"
	"finitefield.org/blog-admin/internal/admin/templates/helpers"
	"finitefield.org/blog-admin/internal/admin/templates/layout"
	poststpl "finitefield.org/blog-admin/internal/admin/templates/posts"
)

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	BasePath     string
	PostsService posts.Service
}

// Handlers exposes HTTP handlers for the blog post pages.
type Handlers struct {
	basePath string
	posts    posts.Service
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	service := deps.PostsService
	if service == nil {
		service = posts.NewStaticService()
	}
	return &Handlers{
		basePath: deps.BasePath,
		posts:    service,
	}
}

// Index sends the console root to the blog post list.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, joinBasePath(h.basePath, "/blog-posts"), http.StatusFound)
}

// PostsList renders one page of blog posts.
func (h *Handlers) PostsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	query := parseListQuery(r)
	data := poststpl.ListPageData{
		Path:     joinBasePath(h.basePath, "/blog-posts"),
		RawQuery: r.URL.RawQuery,
		Flash:    popFlash(r),
	}

	status := http.StatusOK
	result, err := h.posts.List(ctx, user.Token, query)
	if err != nil {
		zap.L().Error("posts: list failed", zap.Error(err))
		data.Error = helpers.T(ctx, "blog_posts.errors.load", "Blog posts could not be loaded.")
		status = http.StatusBadGateway
	}
	data.Result = result

	render(w, r, poststpl.ListPage(data), status)
}

// PostShow renders a single post with its markdown body.
func (h *Handlers) PostShow(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	post, ok := h.loadPost(w, r, user.Token)
	if !ok {
		return
	}

	body, err := posts.RenderContent(post.Content)
	if err != nil {
		zap.L().Warn("posts: render content failed", zap.Int("id", post.ID), zap.Error(err))
		body = ""
	}

	render(w, r, poststpl.ShowPage(poststpl.ShowPageData{
		Post:  post,
		Body:  body,
		Flash: popFlash(r),
	}), http.StatusOK)
}

// PostNew renders an empty create form.
func (h *Handlers) PostNew(w http.ResponseWriter, r *http.Request) {
	render(w, r, poststpl.FormPage(poststpl.FormPageData{
		Input:  posts.Input{Status: posts.StatusDraft},
		Action: joinBasePath(h.basePath, "/blog-posts/create"),
	}), http.StatusOK)
}

// PostCreate validates and stores a new post.
func (h *Handlers) PostCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	input, err := parsePostInput(r)
	data := poststpl.FormPageData{
		Input:  input,
		Action: joinBasePath(h.basePath, "/blog-posts/create"),
	}
	if err != nil {
		data.Error = helpers.T(ctx, "blog_posts.errors.save", "The blog post could not be saved.")
		render(w, r, poststpl.FormPage(data), http.StatusBadRequest)
		return
	}
	if errs := input.Validate(); errs != nil {
		data.Input = input
		data.Errors = errs
		render(w, r, poststpl.FormPage(data), http.StatusUnprocessableEntity)
		return
	}

	post, err := h.posts.Create(ctx, user.Token, input)
	if err != nil {
		h.renderSaveError(w, r, data, err)
		return
	}

	zap.L().Info("posts: created", zap.Int("id", post.ID), zap.String("uid", user.UID))
	addFlash(r, "success", helpers.T(ctx, "blog_posts.notifications.created", "Blog post created."))
	custommw.Redirect(w, r, joinBasePath(h.basePath, "/blog-posts/show/"+strconv.Itoa(post.ID)))
}

// PostEdit renders the edit form for an existing post.
func (h *Handlers) PostEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	post, ok := h.loadPost(w, r, user.Token)
	if !ok {
		return
	}

	categoryID := 0
	if post.Category != nil {
		categoryID = post.Category.ID
	}
	render(w, r, poststpl.FormPage(poststpl.FormPageData{
		Edit:   true,
		PostID: post.ID,
		Input: posts.Input{
			Title:      post.Title,
			Content:    post.Content,
			Status:     post.Status,
			CategoryID: categoryID,
		},
		Action: joinBasePath(h.basePath, "/blog-posts/edit/"+strconv.Itoa(post.ID)),
	}), http.StatusOK)
}

// PostUpdate validates and saves changes to an existing post.
func (h *Handlers) PostUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	postID, _ := strconv.Atoi(id)
	input, err := parsePostInput(r)
	data := poststpl.FormPageData{
		Edit:   true,
		PostID: postID,
		Input:  input,
		Action: joinBasePath(h.basePath, "/blog-posts/edit/"+id),
	}
	if err != nil {
		data.Error = helpers.T(ctx, "blog_posts.errors.save", "The blog post could not be saved.")
		render(w, r, poststpl.FormPage(data), http.StatusBadRequest)
		return
	}
	if errs := input.Validate(); errs != nil {
		data.Input = input
		data.Errors = errs
		render(w, r, poststpl.FormPage(data), http.StatusUnprocessableEntity)
		return
	}

	post, err := h.posts.Update(ctx, user.Token, id, input)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		h.renderSaveError(w, r, data, err)
		return
	}

	zap.L().Info("posts: updated", zap.Int("id", post.ID), zap.String("uid", user.UID))
	addFlash(r, "success", helpers.T(ctx, "blog_posts.notifications.updated", "Blog post updated."))
	custommw.Redirect(w, r, joinBasePath(h.basePath, "/blog-posts/show/"+strconv.Itoa(post.ID)))
}

// PostDelete removes a post and returns to the list.
func (h *Handlers) PostDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.posts.Delete(ctx, user.Token, id); err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		zap.L().Error("posts: delete failed", zap.String("id", id), zap.Error(err))
		addFlash(r, "error", helpers.T(ctx, "blog_posts.errors.delete", "The blog post could not be deleted."))
		custommw.Redirect(w, r, joinBasePath(h.basePath, "/blog-posts"))
		return
	}

	zap.L().Info("posts: deleted", zap.String("id", id), zap.String("uid", user.UID))
	addFlash(r, "success", helpers.T(ctx, "blog_posts.notifications.deleted", "Blog post deleted."))
	custommw.Redirect(w, r, joinBasePath(h.basePath, "/blog-posts"))
}

func (h *Handlers) requireUser(w http.ResponseWriter, r *http.Request) (*custommw.User, bool) {
	user, ok := custommw.UserFromContext(r.Context())
	if !ok || user == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, false
	}
	return user, true
}

func (h *Handlers) loadPost(w http.ResponseWriter, r *http.Request, token string) (posts.Post, bool) {
	post, err := h.posts.Get(r.Context(), token, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			h.notFound(w, r)
			return posts.Post{}, false
		}
		zap.L().Error("posts: get failed", zap.Error(err))
		http.Error(w, helpers.T(r.Context(), "blog_posts.errors.load", "Blog posts could not be loaded."), http.StatusBadGateway)
		return posts.Post{}, false
	}
	return post, true
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, helpers.T(r.Context(), "blog_posts.errors.notFound", "Blog post not found."), http.StatusNotFound)
}

func (h *Handlers) renderSaveError(w http.ResponseWriter, r *http.Request, data poststpl.FormPageData, err error) {
	var fieldErrs posts.FieldErrors
	if errors.As(err, &fieldErrs) {
		data.Errors = fieldErrs
		render(w, r, poststpl.FormPage(data), http.StatusUnprocessableEntity)
		return
	}
	zap.L().Error("posts: save failed", zap.Error(err))
	data.Error = helpers.T(r.Context(), "blog_posts.errors.save", "The blog post could not be saved.")
	render(w, r, poststpl.FormPage(data), http.StatusBadGateway)
}

func parseListQuery(r *http.Request) posts.Query {
	q := r.URL.Query()
	query := posts.Query{
		SortKey:       strings.TrimSpace(q.Get("sort")),
		SortDirection: posts.SortDirection(strings.ToLower(strings.TrimSpace(q.Get("order")))),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(q.Get("per_page")); err == nil {
		query.PageSize = size
	}
	return query.Normalised()
}

func parsePostInput(r *http.Request) (posts.Input, error) {
	if err := r.ParseForm(); err != nil {
		return posts.Input{}, err
	}
	input := posts.Input{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
		Status:  posts.Status(r.PostFormValue("status")),
	}
	if raw := strings.TrimSpace(r.PostFormValue("category")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 0 {
			return input, errors.New("posts: invalid category id")
		}
		input.CategoryID = id
	}
	return input, nil
}

func popFlash(r *http.Request) *layout.Flash {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok || sess == nil {
		return nil
	}
	f := sess.PopFlash()
	if f == nil {
		return nil
	}
	return &layout.Flash{Kind: f.Kind, Message: f.Message}
}

func addFlash(r *http.Request, kind, message string) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok && sess != nil {
		sess.AddFlash(kind, message)
	}
}

func render(w http.ResponseWriter, r *http.Request, c templ.Component, status int) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

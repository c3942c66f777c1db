package posts

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ResourceName is the data provider resource backing the blog post pages.
const ResourceName = "blog_posts"

const (
	// DefaultPageSize is the number of rows shown per list page.
	DefaultPageSize = 10
	// MaxPageSize caps per_page requests.
	MaxPageSize = 100
	// MaxPage caps the page number so that row offsets stay small.
	MaxPage = 10000
)

// Service exposes blog post CRUD for the admin UI.
type Service interface {
	// List returns one page of posts plus the total row count.
	List(ctx context.Context, token string, query Query) (ListResult, error)
	// Get loads a single post.
	Get(ctx context.Context, token, id string) (Post, error)
	// Create stores a new post and returns it with its assigned identifier.
	Create(ctx context.Context, token string, input Input) (Post, error)
	// Update replaces the editable fields of an existing post.
	Update(ctx context.Context, token, id string, input Input) (Post, error)
	// Delete removes a post.
	Delete(ctx context.Context, token, id string) error
}

var (
	// ErrNotFound is returned when a post does not exist.
	ErrNotFound = errors.New("blog post not found")
	// ErrNotConfigured indicates that no posts backend has been wired.
	ErrNotConfigured = errors.New("posts service not configured")
)

// Status is the publication state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

// Statuses lists the selectable statuses in display order.
var Statuses = []Status{StatusDraft, StatusPublished, StatusRejected}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, candidate := range Statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// SortDirection describes the requested sort ordering.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Category references the category a post is filed under.
type Category struct {
	ID int `json:"id"`
}

// Post is a single blog post as served by the REST backend.
type Post struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Category  *Category `json:"category,omitempty"`
}

// Query carries list pagination and sorting.
type Query struct {
	Page          int
	PageSize      int
	SortKey       string
	SortDirection SortDirection
}

// Normalised fills defaults for missing pagination and sorting values and
// clamps out-of-range ones.
func (q Query) Normalised() Query {
	switch {
	case q.Page < 1:
		q.Page = 1
	case q.Page > MaxPage:
		q.Page = MaxPage
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = DefaultPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	switch strings.ToLower(strings.TrimSpace(q.SortKey)) {
	case "id", "title", "status", "createdat":
	default:
		q.SortKey = "id"
	}
	if q.SortDirection != SortAsc {
		q.SortDirection = SortDesc
	}
	return q
}

// Start is the zero-based index of the first row on the page.
func (q Query) Start() int {
	return (q.Page - 1) * q.PageSize
}

// End is the exclusive index after the last row on the page.
func (q Query) End() int {
	return q.Start() + q.PageSize
}

// ListResult is one page of posts.
type ListResult struct {
	Posts      []Post
	Pagination Pagination
}

// Pagination captures pagination metadata.
type Pagination struct {
	Page       int
	PageSize   int
	TotalItems int
	NextPage   *int
	PrevPage   *int
}

// TotalPages returns the page count, at least one.
func (p Pagination) TotalPages() int {
	if p.PageSize <= 0 || p.TotalItems <= 0 {
		return 1
	}
	return (p.TotalItems + p.PageSize - 1) / p.PageSize
}

func newPagination(q Query, total int) Pagination {
	p := Pagination{Page: q.Page, PageSize: q.PageSize, TotalItems: total}
	if q.Page > 1 {
		prev := q.Page - 1
		p.PrevPage = &prev
	}
	if q.End() < total {
		next := q.Page + 1
		p.NextPage = &next
	}
	return p
}

// Input is the editable part of a post submitted from the create/edit forms.
type Input struct {
	Title      string
	Content    string
	Status     Status
	CategoryID int
}

// FieldErrors maps form fields to translation keys describing the failure.
type FieldErrors map[string]string

// Error implements error.
func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "posts: invalid fields " + strings.Join(keys, ", ")
}

// Validate trims the input and checks the required fields. The returned
// FieldErrors is nil when the input is acceptable.
func (in *Input) Validate() FieldErrors {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Status = Status(strings.ToLower(strings.TrimSpace(string(in.Status))))
	if in.Status == "" {
		in.Status = StatusDraft
	}

	errs := FieldErrors{}
	if in.Title == "" {
		errs["title"] = "blog_posts.errors.requiredTitle"
	}
	if in.Content == "" {
		errs["content"] = "blog_posts.errors.requiredContent"
	}
	if !in.Status.Valid() {
		errs["status"] = "blog_posts.errors.invalidStatus"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

package posts

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputValidate(t *testing.T) {
	t.Parallel()

	in := Input{Title: "  ", Content: "", Status: "archived"}
	errs := in.Validate()
	require.Equal(t, FieldErrors{
		"title":   "blog_posts.errors.requiredTitle",
		"content": "blog_posts.errors.requiredContent",
		"status":  "blog_posts.errors.invalidStatus",
	}, errs)

	ok := Input{Title: " Hello ", Content: "Body", Status: " Published"}
	require.Nil(t, ok.Validate())
	require.Equal(t, "Hello", ok.Title)
	require.Equal(t, StatusPublished, ok.Status)

	defaulted := Input{Title: "t", Content: "c"}
	require.Nil(t, defaulted.Validate())
	require.Equal(t, StatusDraft, defaulted.Status)
}

func TestQueryNormalised(t *testing.T) {
	t.Parallel()

	q := Query{Page: 0, SortKey: "bogus", SortDirection: "sideways"}.Normalised()
	require.Equal(t, 1, q.Page)
	require.Equal(t, DefaultPageSize, q.PageSize)
	require.Equal(t, "id", q.SortKey)
	require.Equal(t, SortDesc, q.SortDirection)

	q = Query{Page: 3, PageSize: 10}.Normalised()
	require.Equal(t, 20, q.Start())
	require.Equal(t, 30, q.End())
}

func TestQueryNormalisedClampsLargeValues(t *testing.T) {
	t.Parallel()

	q := Query{Page: math.MaxInt, PageSize: math.MaxInt}.Normalised()
	require.Equal(t, MaxPage, q.Page)
	require.Equal(t, MaxPageSize, q.PageSize)
	require.Equal(t, (MaxPage-1)*MaxPageSize, q.Start())
	require.Greater(t, q.End(), q.Start())
}

func TestStaticServiceListHugePagination(t *testing.T) {
	t.Parallel()

	svc := NewStaticService()
	ctx := context.Background()

	result, err := svc.List(ctx, "", Query{Page: 2, PageSize: math.MaxInt})
	require.NoError(t, err)
	require.Empty(t, result.Posts)
	require.Equal(t, MaxPageSize, result.Pagination.PageSize)

	result, err = svc.List(ctx, "", Query{Page: math.MaxInt, PageSize: math.MaxInt / 2})
	require.NoError(t, err)
	require.Empty(t, result.Posts)
	require.Nil(t, result.Pagination.NextPage)
}

func TestStaticServiceBreaksSortTiesByID(t *testing.T) {
	t.Parallel()

	svc := NewStaticService()
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, err := svc.Create(ctx, "", Input{Title: "Same title", Content: "Body"})
		require.NoError(t, err)
	}

	for i := 0; i < 5; i++ {
		result, err := svc.List(ctx, "", Query{PageSize: MaxPageSize, SortKey: "title", SortDirection: SortAsc})
		require.NoError(t, err)

		var ids []int
		for _, p := range result.Posts {
			if p.Title == "Same title" {
				ids = append(ids, p.ID)
			}
		}
		require.Equal(t, []int{4, 5, 6, 7, 8, 9}, ids)
	}
}

func TestStaticServiceCRUD(t *testing.T) {
	t.Parallel()

	svc := NewStaticService()
	ctx := context.Background()

	list, err := svc.List(ctx, "", Query{})
	require.NoError(t, err)
	require.Len(t, list.Posts, 3)
	require.Equal(t, 3, list.Posts[0].ID, "newest id first by default")
	require.Nil(t, list.Pagination.NextPage)
	require.Nil(t, list.Pagination.PrevPage)

	created, err := svc.Create(ctx, "", Input{Title: "New", Content: "Hello", Status: StatusDraft, CategoryID: 4})
	require.NoError(t, err)
	require.Equal(t, 4, created.ID)
	require.Equal(t, 4, created.Category.ID)

	updated, err := svc.Update(ctx, "", "4", Input{Title: "Renamed", Content: "Hello", Status: StatusPublished})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
	require.Equal(t, StatusPublished, updated.Status)

	got, err := svc.Get(ctx, "", "4")
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Title)

	require.NoError(t, svc.Delete(ctx, "", "4"))
	_, err = svc.Get(ctx, "", "4")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "", "4"), ErrNotFound)
	_, err = svc.Get(ctx, "", "abc")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStaticServiceRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc := NewStaticService()
	_, err := svc.Create(context.Background(), "", Input{})
	var fieldErrs FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
	require.Contains(t, fieldErrs, "title")
}

func TestStaticServicePaginates(t *testing.T) {
	t.Parallel()

	svc := NewStaticService()
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := svc.Create(ctx, "", Input{Title: "Post", Content: "Body"})
		require.NoError(t, err)
	}

	page1, err := svc.List(ctx, "", Query{Page: 1, SortKey: "id", SortDirection: SortAsc})
	require.NoError(t, err)
	require.Len(t, page1.Posts, 10)
	require.Equal(t, 15, page1.Pagination.TotalItems)
	require.Equal(t, 2, page1.Pagination.TotalPages())
	require.NotNil(t, page1.Pagination.NextPage)
	require.Equal(t, 1, page1.Posts[0].ID)

	page2, err := svc.List(ctx, "", Query{Page: 2, SortKey: "id", SortDirection: SortAsc})
	require.NoError(t, err)
	require.Len(t, page2.Posts, 5)
	require.Nil(t, page2.Pagination.NextPage)
	require.Equal(t, 1, *page2.Pagination.PrevPage)

	beyond, err := svc.List(ctx, "", Query{Page: 9})
	require.NoError(t, err)
	require.Empty(t, beyond.Posts)
}

func TestHTTPServiceList(t *testing.T) {
	t.Parallel()

	var receivedAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/blog_posts", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "10", r.URL.Query().Get("_start"))
		require.Equal(t, "20", r.URL.Query().Get("_end"))
		require.Equal(t, "title", r.URL.Query().Get("_sort"))
		require.Equal(t, "asc", r.URL.Query().Get("_order"))
		receivedAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Total-Count", "42")
		_ = json.NewEncoder(w).Encode([]Post{{ID: 11, Title: "Eleven", Status: StatusDraft}})
	}))
	t.Cleanup(ts.Close)

	svc, err := NewHTTPService(ts.URL+"/api", ts.Client())
	require.NoError(t, err)

	result, err := svc.List(context.Background(), "tok", Query{Page: 2, SortKey: "title", SortDirection: SortAsc})
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", receivedAuth)
	require.Len(t, result.Posts, 1)
	require.Equal(t, "Eleven", result.Posts[0].Title)
	require.Equal(t, 42, result.Pagination.TotalItems)
	require.Equal(t, 3, *result.Pagination.NextPage)
}

func TestHTTPServiceListClampsRange(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "999900", r.URL.Query().Get("_start"))
		require.Equal(t, "1000000", r.URL.Query().Get("_end"))
		w.Header().Set("X-Total-Count", "3")
		_ = json.NewEncoder(w).Encode([]Post{})
	}))
	t.Cleanup(ts.Close)

	svc, err := NewHTTPService(ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = svc.List(context.Background(), "", Query{Page: math.MaxInt, PageSize: math.MaxInt})
	require.NoError(t, err)
}

func TestHTTPServiceWrites(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		methods []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		methods = append(methods, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost, http.MethodPatch:
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "Hello", body["title"])
			require.Equal(t, "published", body["status"])
			if r.Method == http.MethodPost {
				w.WriteHeader(http.StatusCreated)
			}
			_ = json.NewEncoder(w).Encode(Post{ID: 7, Title: "Hello", Status: StatusPublished})
		case http.MethodDelete:
			_, _ = w.Write([]byte("{}"))
		case http.MethodGet:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	svc, err := NewHTTPService(ts.URL, ts.Client())
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Create(ctx, "", Input{Title: "Hello", Content: "Body", Status: StatusPublished})
	require.NoError(t, err)
	require.Equal(t, 7, created.ID)

	_, err = svc.Update(ctx, "", "7", Input{Title: "Hello", Content: "Body", Status: StatusPublished})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "", "7"))

	_, err = svc.Get(ctx, "", "99")
	require.ErrorIs(t, err, ErrNotFound)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{
		"POST /blog_posts",
		"PATCH /blog_posts/7",
		"DELETE /blog_posts/7",
		"GET /blog_posts/99",
	}, methods)
}

func TestHTTPServiceValidatesBeforeSending(t *testing.T) {
	t.Parallel()

	svc, err := NewHTTPService("http://127.0.0.1:1", nil)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "", Input{})
	require.Error(t, err)
	var fieldErrs FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
}

func TestRenderContentSanitises(t *testing.T) {
	t.Parallel()

	html, err := RenderContent("# Title\n\nSome **bold** text.\n\n<script>alert(1)</script>\n\n[link](https://example.com)")
	require.NoError(t, err)
	require.Contains(t, html, "<h1")
	require.Contains(t, html, "<strong>bold</strong>")
	require.NotContains(t, html, "<script>")
	require.Contains(t, html, `rel="nofollow"`)
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short", Excerpt("short", 10))
	require.Equal(t, "ブログ…", Excerpt("ブログ記事", 3))
}

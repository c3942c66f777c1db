package posts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// HTTPClient matches the subset of http.Client used by HTTPService.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPService implements Service against a simple-REST backend: list with
// _start/_end/_sort/_order and X-Total-Count, single rows under /{resource}/{id}.
type HTTPService struct {
	base     *url.URL
	client   HTTPClient
	resource string
}

// NewHTTPService constructs a Service that talks to the REST backend at baseURL.
func NewHTTPService(baseURL string, client HTTPClient) (*HTTPService, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("posts: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("posts: parse base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPService{
		base:     parsed,
		client:   client,
		resource: ResourceName,
	}, nil
}

// List implements Service.
func (s *HTTPService) List(ctx context.Context, token string, query Query) (ListResult, error) {
	q := query.Normalised()
	params := url.Values{}
	params.Set("_start", strconv.Itoa(q.Start()))
	params.Set("_end", strconv.Itoa(q.End()))
	params.Set("_sort", q.SortKey)
	params.Set("_order", string(q.SortDirection))

	req, err := s.newRequest(ctx, http.MethodGet, s.resource+"?"+params.Encode(), nil, token)
	if err != nil {
		return ListResult{}, err
	}
	resp, err := s.do(req)
	if err != nil {
		return ListResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ListResult{}, s.errorFromResponse(resp)
	}

	var rows []Post
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return ListResult{}, fmt.Errorf("posts: decode list: %w", err)
	}
	total := len(rows) + q.Start()
	if header := resp.Header.Get("X-Total-Count"); header != "" {
		if n, err := strconv.Atoi(header); err == nil {
			total = n
		}
	}
	return ListResult{Posts: rows, Pagination: newPagination(q, total)}, nil
}

// Get implements Service.
func (s *HTTPService) Get(ctx context.Context, token, id string) (Post, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.itemPath(id), nil, token)
	if err != nil {
		return Post{}, err
	}
	return s.decodePost(req, "get", http.StatusOK)
}

// Create implements Service.
func (s *HTTPService) Create(ctx context.Context, token string, input Input) (Post, error) {
	if errs := input.Validate(); errs != nil {
		return Post{}, errs
	}
	req, err := s.newJSONRequest(ctx, http.MethodPost, s.resource, payloadFor(input), token)
	if err != nil {
		return Post{}, err
	}
	return s.decodePost(req, "create", http.StatusCreated, http.StatusOK)
}

// Update implements Service.
func (s *HTTPService) Update(ctx context.Context, token, id string, input Input) (Post, error) {
	if errs := input.Validate(); errs != nil {
		return Post{}, errs
	}
	req, err := s.newJSONRequest(ctx, http.MethodPatch, s.itemPath(id), payloadFor(input), token)
	if err != nil {
		return Post{}, err
	}
	return s.decodePost(req, "update", http.StatusOK)
}

// Delete implements Service.
func (s *HTTPService) Delete(ctx context.Context, token, id string) error {
	req, err := s.newRequest(ctx, http.MethodDelete, s.itemPath(id), nil, token)
	if err != nil {
		return err
	}
	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return s.errorFromResponse(resp)
	}
	return nil
}

type postPayload struct {
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Status   Status    `json:"status"`
	Category *Category `json:"category,omitempty"`
}

func payloadFor(in Input) postPayload {
	p := postPayload{Title: in.Title, Content: in.Content, Status: in.Status}
	if in.CategoryID > 0 {
		p.Category = &Category{ID: in.CategoryID}
	}
	return p
}

func (s *HTTPService) decodePost(req *http.Request, op string, accepted ...int) (Post, error) {
	resp, err := s.do(req)
	if err != nil {
		return Post{}, err
	}
	defer resp.Body.Close()

	ok := false
	for _, code := range accepted {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		return Post{}, s.errorFromResponse(resp)
	}

	var post Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return Post{}, fmt.Errorf("posts: decode %s: %w", op, err)
	}
	return post, nil
}

func (s *HTTPService) itemPath(id string) string {
	return path.Join(s.resource, url.PathEscape(strings.TrimSpace(id)))
}

func (s *HTTPService) do(req *http.Request) (*http.Response, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posts: request failed: %w", err)
	}
	return resp, nil
}

func (s *HTTPService) newRequest(ctx context.Context, method, endpoint string, body io.Reader, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.resolve(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("posts: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (s *HTTPService) newJSONRequest(ctx context.Context, method, endpoint string, payload any, token string) (*http.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("posts: encode payload: %w", err)
	}
	req, err := s.newRequest(ctx, method, endpoint, &buf, token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *HTTPService) resolve(endpoint string) string {
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return s.base.String()
	}
	return s.base.ResolveReference(ref).String()
}

func (s *HTTPService) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	var payload struct {
		Message string `json:"message"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
			return fmt.Errorf("posts: backend error (%d): %s", resp.StatusCode, payload.Message)
		}
		return fmt.Errorf("posts: backend error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("posts: backend error (%d): %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

package posts

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// StaticService keeps posts in memory for local development and tests.
type StaticService struct {
	mu     sync.RWMutex
	posts  map[int]Post
	nextID int
	now    func() time.Time
}

// NewStaticService returns a StaticService seeded with representative posts.
func NewStaticService() *StaticService {
	now := time.Now()
	svc := &StaticService{posts: map[int]Post{}, now: time.Now}

	seed := []Post{
		{Title: "Getting started with the admin console", Status: StatusPublished, Content: "# Welcome\n\nThis console manages **blog posts**.", Category: &Category{ID: 1}},
		{Title: "Drafting release notes", Status: StatusDraft, Content: "Collect the changes, then _publish_ them.", Category: &Category{ID: 2}},
		{Title: "Why we rejected the dark theme", Status: StatusRejected, Content: "It was not ready.", Category: &Category{ID: 1}},
	}
	for i, p := range seed {
		p.ID = i + 1
		p.CreatedAt = now.Add(-time.Duration(len(seed)-i) * 24 * time.Hour).UTC()
		svc.posts[p.ID] = p
	}
	svc.nextID = len(seed) + 1
	return svc
}

// List implements Service.
func (s *StaticService) List(_ context.Context, _ string, query Query) (ListResult, error) {
	q := query.Normalised()

	s.mu.RLock()
	all := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		all = append(all, p)
	}
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		less := comparePosts(all[i], all[j], q.SortKey)
		if q.SortDirection == SortDesc {
			return less > 0
		}
		return less < 0
	})

	total := len(all)
	start, end := q.Start(), q.End()
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return ListResult{
		Posts:      append([]Post(nil), all[start:end]...),
		Pagination: newPagination(q, total),
	}, nil
}

// Get implements Service.
func (s *StaticService) Get(_ context.Context, _ string, id string) (Post, error) {
	key, err := parseID(id)
	if err != nil {
		return Post{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[key]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

// Create implements Service.
func (s *StaticService) Create(_ context.Context, _ string, input Input) (Post, error) {
	if errs := input.Validate(); errs != nil {
		return Post{}, errs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Post{
		ID:        s.nextID,
		Title:     input.Title,
		Content:   input.Content,
		Status:    input.Status,
		CreatedAt: s.now().UTC(),
	}
	if input.CategoryID > 0 {
		p.Category = &Category{ID: input.CategoryID}
	}
	s.posts[p.ID] = p
	s.nextID++
	return p, nil
}

// Update implements Service.
func (s *StaticService) Update(_ context.Context, _ string, id string, input Input) (Post, error) {
	key, err := parseID(id)
	if err != nil {
		return Post{}, err
	}
	if errs := input.Validate(); errs != nil {
		return Post{}, errs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[key]
	if !ok {
		return Post{}, ErrNotFound
	}
	p.Title = input.Title
	p.Content = input.Content
	p.Status = input.Status
	if input.CategoryID > 0 {
		p.Category = &Category{ID: input.CategoryID}
	}
	s.posts[key] = p
	return p, nil
}

// Delete implements Service.
func (s *StaticService) Delete(_ context.Context, _ string, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[key]; !ok {
		return ErrNotFound
	}
	delete(s.posts, key)
	return nil
}

// comparePosts orders by key and falls back to the id for equal keys.
func comparePosts(a, b Post, key string) int {
	var c int
	switch strings.ToLower(key) {
	case "title":
		c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "status":
		c = strings.Compare(string(a.Status), string(b.Status))
	case "createdat":
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func parseID(id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return n, nil
}

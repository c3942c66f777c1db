package posts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultFirestoreCollection = "blog_posts"
	defaultCounterDocPath      = "blog_posts_meta/counter"
)

// FirestoreConfig tunes the Firestore-backed post store.
type FirestoreConfig struct {
	Collection     string
	CounterDocPath string
	Now            func() time.Time
}

// FirestoreService stores posts as documents keyed by their numeric id.
// Identifiers are allocated from a counter document inside a transaction.
type FirestoreService struct {
	client     *firestore.Client
	collection string
	counterRef *firestore.DocumentRef
	now        func() time.Time
}

type postDocument struct {
	ID         int       `firestore:"id"`
	Title      string    `firestore:"title"`
	Content    string    `firestore:"content"`
	Status     string    `firestore:"status"`
	CreatedAt  time.Time `firestore:"createdAt"`
	CategoryID int       `firestore:"categoryId,omitempty"`
}

type counterDocument struct {
	Next int `firestore:"next"`
}

// NewFirestoreService constructs a Firestore-backed Service.
func NewFirestoreService(client *firestore.Client, cfg FirestoreConfig) *FirestoreService {
	if client == nil {
		panic("posts: firestore client is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultFirestoreCollection
	}
	if cfg.CounterDocPath == "" {
		cfg.CounterDocPath = defaultCounterDocPath
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	counterRef := client.Doc(strings.Trim(cfg.CounterDocPath, "/"))
	if counterRef == nil {
		zap.L().Warn("posts: invalid counter doc path; using default", zap.String("path", cfg.CounterDocPath))
		counterRef = client.Doc(defaultCounterDocPath)
	}

	return &FirestoreService{
		client:     client,
		collection: cfg.Collection,
		counterRef: counterRef,
		now:        nowFn,
	}
}

// List implements Service.
func (s *FirestoreService) List(ctx context.Context, _ string, query Query) (ListResult, error) {
	q := query.Normalised()
	base := s.client.Collection(s.collection).Query

	total, err := countDocuments(ctx, base)
	if err != nil {
		return ListResult{}, err
	}

	direction := firestore.Desc
	if q.SortDirection == SortAsc {
		direction = firestore.Asc
	}
	iter := base.
		OrderBy(firestoreSortField(q.SortKey), direction).
		Offset(q.Start()).
		Limit(q.PageSize).
		Documents(ctx)
	defer iter.Stop()

	var out []Post
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return ListResult{}, fmt.Errorf("posts: list firestore documents: %w", err)
		}
		post, err := decodePost(snap)
		if err != nil {
			zap.L().Warn("posts: skip undecodable document", zap.String("doc", snap.Ref.ID), zap.Error(err))
			continue
		}
		out = append(out, post)
	}

	return ListResult{Posts: out, Pagination: newPagination(q, total)}, nil
}

// Get implements Service.
func (s *FirestoreService) Get(ctx context.Context, _ string, id string) (Post, error) {
	key, err := parseID(id)
	if err != nil {
		return Post{}, err
	}
	snap, err := s.doc(key).Get(ctx)
	if err != nil {
		return Post{}, mapFirestoreError(err, "get")
	}
	return decodePost(snap)
}

// Create implements Service.
func (s *FirestoreService) Create(ctx context.Context, _ string, input Input) (Post, error) {
	if errs := input.Validate(); errs != nil {
		return Post{}, errs
	}

	var created Post
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		next := 1
		snap, err := tx.Get(s.counterRef)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			var counter counterDocument
			if err := snap.DataTo(&counter); err != nil {
				return err
			}
			if counter.Next > 0 {
				next = counter.Next
			}
		}

		created = Post{
			ID:        next,
			Title:     input.Title,
			Content:   input.Content,
			Status:    input.Status,
			CreatedAt: s.now().UTC(),
		}
		if input.CategoryID > 0 {
			created.Category = &Category{ID: input.CategoryID}
		}
		if err := tx.Set(s.counterRef, counterDocument{Next: next + 1}); err != nil {
			return err
		}
		return tx.Create(s.doc(next), encodePost(created))
	})
	if err != nil {
		return Post{}, mapFirestoreError(err, "create")
	}
	return created, nil
}

// Update implements Service.
func (s *FirestoreService) Update(ctx context.Context, token, id string, input Input) (Post, error) {
	key, err := parseID(id)
	if err != nil {
		return Post{}, err
	}
	if errs := input.Validate(); errs != nil {
		return Post{}, errs
	}

	updates := []firestore.Update{
		{Path: "title", Value: input.Title},
		{Path: "content", Value: input.Content},
		{Path: "status", Value: string(input.Status)},
	}
	if input.CategoryID > 0 {
		updates = append(updates, firestore.Update{Path: "categoryId", Value: input.CategoryID})
	}
	if _, err := s.doc(key).Update(ctx, updates); err != nil {
		return Post{}, mapFirestoreError(err, "update")
	}
	return s.Get(ctx, token, id)
}

// Delete implements Service.
func (s *FirestoreService) Delete(ctx context.Context, _ string, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	if _, err := s.doc(key).Delete(ctx, firestore.Exists); err != nil {
		return mapFirestoreError(err, "delete")
	}
	return nil
}

func (s *FirestoreService) doc(id int) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(strconv.Itoa(id))
}

func countDocuments(ctx context.Context, q firestore.Query) (int, error) {
	res, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("posts: count firestore documents: %w", err)
	}
	value, ok := res["total"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("posts: unexpected count result %T", res["total"])
	}
	return int(value.GetIntegerValue()), nil
}

func firestoreSortField(key string) string {
	switch strings.ToLower(key) {
	case "title":
		return "title"
	case "status":
		return "status"
	case "createdat":
		return "createdAt"
	default:
		return "id"
	}
}

func decodePost(snap *firestore.DocumentSnapshot) (Post, error) {
	var doc postDocument
	if err := snap.DataTo(&doc); err != nil {
		return Post{}, fmt.Errorf("posts: decode %s: %w", snap.Ref.ID, err)
	}
	if doc.ID == 0 {
		if n, err := strconv.Atoi(snap.Ref.ID); err == nil {
			doc.ID = n
		}
	}
	return postFromDocument(doc), nil
}

func postFromDocument(doc postDocument) Post {
	p := Post{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		Status:    Status(doc.Status),
		CreatedAt: doc.CreatedAt.UTC(),
	}
	if doc.CategoryID > 0 {
		p.Category = &Category{ID: doc.CategoryID}
	}
	return p
}

func encodePost(p Post) postDocument {
	doc := postDocument{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
	}
	if p.Category != nil {
		doc.CategoryID = p.Category.ID
	}
	return doc
}

func mapFirestoreError(err error, op string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return fmt.Errorf("posts: firestore %s: %w", op, err)
}

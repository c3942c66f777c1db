//go:build integration

package posts

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"
)

func TestFirestoreServiceAgainstEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := firestore.NewClient(ctx, "blog-admin-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	suffix := strconv.FormatInt(time.Now().UnixNano(), 36)
	svc := NewFirestoreService(client, FirestoreConfig{
		Collection:     "blog_posts_" + suffix,
		CounterDocPath: "blog_posts_meta/counter_" + suffix,
	})

	first, err := svc.Create(ctx, "", Input{Title: "First", Content: "one"})
	require.NoError(t, err)
	require.Equal(t, 1, first.ID)
	second, err := svc.Create(ctx, "", Input{Title: "Second", Content: "two", CategoryID: 3})
	require.NoError(t, err)
	require.Equal(t, 2, second.ID)

	list, err := svc.List(ctx, "", Query{SortKey: "id", SortDirection: SortAsc})
	require.NoError(t, err)
	require.Equal(t, 2, list.Pagination.TotalItems)
	require.Equal(t, "First", list.Posts[0].Title)

	updated, err := svc.Update(ctx, "", "2", Input{Title: "Second!", Content: "two", Status: StatusPublished})
	require.NoError(t, err)
	require.Equal(t, StatusPublished, updated.Status)
	require.Equal(t, &Category{ID: 3}, updated.Category)

	require.NoError(t, svc.Delete(ctx, "", "1"))
	_, err = svc.Get(ctx, "", "1")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "", "1"), ErrNotFound)
}

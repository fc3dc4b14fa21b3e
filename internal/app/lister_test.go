package app

import (
	"context"
	"fmt"
	"testing"

	"aws2spaces/internal/storage"
	"aws2spaces/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collectPages(t *testing.T, pages <-chan storage.Page, errCh <-chan error) ([]storage.Page, error) {
	t.Helper()

	var collected []storage.Page
	for {
		select {
		case page, ok := <-pages:
			if !ok {
				// Both channels close together; a buffered listing error
				// must still be collected after pages closes.
				return collected, <-errCh
			}
			collected = append(collected, page)
		case err := <-errCh:
			if err != nil {
				return collected, err
			}
		}
	}
}

func TestPagesCompleteness(t *testing.T) {
	objects := make(map[string][]byte, 25)
	for i := 0; i < 25; i++ {
		objects[fmt.Sprintf("obj-%02d", i)] = []byte("x")
	}
	fake := storagetest.NewFake()
	fake.SeedBucket("src", objects)

	lister := &ObjectLister{client: fake, logger: zap.NewNop()}
	pages, errCh := lister.Pages(context.Background(), "src", "", 10)

	collected, err := collectPages(t, pages, errCh)
	require.NoError(t, err)

	require.Len(t, collected, 3)
	assert.Len(t, collected[0].Objects, 10)
	assert.Len(t, collected[1].Objects, 10)
	assert.Len(t, collected[2].Objects, 5)

	// Concatenation contains each key exactly once.
	seen := make(map[string]int)
	for _, page := range collected {
		for _, obj := range page.Objects {
			seen[obj.Key]++
		}
	}
	require.Len(t, seen, 25)
	for key, count := range seen {
		assert.Equal(t, 1, count, "key %s listed %d times", key, count)
	}
}

func TestPagesEmptyBucket(t *testing.T) {
	fake := storagetest.NewFake()
	fake.SeedBucket("src", nil)

	lister := &ObjectLister{client: fake, logger: zap.NewNop()}
	pages, errCh := lister.Pages(context.Background(), "src", "", 10)

	collected, err := collectPages(t, pages, errCh)
	require.NoError(t, err)
	assert.Empty(t, collected)
}

func TestPagesListingFailure(t *testing.T) {
	objects := make(map[string][]byte, 15)
	for i := 0; i < 15; i++ {
		objects[fmt.Sprintf("obj-%02d", i)] = []byte("x")
	}
	fake := storagetest.NewFake()
	fake.SeedBucket("src", objects)
	fake.FailListPage(2)

	lister := &ObjectLister{client: fake, logger: zap.NewNop()}
	pages, errCh := lister.Pages(context.Background(), "src", "", 10)

	collected, err := collectPages(t, pages, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list page 2")
	assert.Len(t, collected, 1)
}

func TestPagesFailureOnFinalPageAlwaysReported(t *testing.T) {
	// The failure must survive select ordering between the closed pages
	// channel and the buffered error, so exercise the race repeatedly.
	for i := 0; i < 50; i++ {
		objects := make(map[string][]byte, 15)
		for j := 0; j < 15; j++ {
			objects[fmt.Sprintf("obj-%02d", j)] = []byte("x")
		}
		fake := storagetest.NewFake()
		fake.SeedBucket("src", objects)
		fake.FailListPage(2)

		lister := &ObjectLister{client: fake, logger: zap.NewNop()}
		pages, errCh := lister.Pages(context.Background(), "src", "", 10)

		collected, err := collectPages(t, pages, errCh)
		require.Error(t, err, "iteration %d dropped the listing failure", i)
		assert.Len(t, collected, 1)
	}
}

func TestPagesPrefixFilter(t *testing.T) {
	fake := storagetest.NewFake()
	fake.SeedBucket("src", map[string][]byte{
		"logs/a.txt": []byte("x"),
		"logs/b.txt": []byte("x"),
		"data/c.txt": []byte("x"),
	})

	lister := &ObjectLister{client: fake, logger: zap.NewNop()}
	pages, errCh := lister.Pages(context.Background(), "src", "logs/", 10)

	collected, err := collectPages(t, pages, errCh)
	require.NoError(t, err)
	require.Len(t, collected, 1)

	var keys []string
	for _, obj := range collected[0].Objects {
		keys = append(keys, obj.Key)
	}
	assert.ElementsMatch(t, []string{"logs/a.txt", "logs/b.txt"}, keys)
}

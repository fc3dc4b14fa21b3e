package app

import (
	"context"
	"fmt"

	"aws2spaces/internal/storage"

	"go.uber.org/zap"
)

// ObjectLister enumerates the source bucket as an ordered sequence of
// bounded pages.
type ObjectLister struct {
	client storage.Client
	logger *zap.Logger
}

// Pages walks the listing with continuation tokens until exhausted. The
// sequence is lazy and single-pass; re-enumeration requires a fresh call.
// An empty bucket yields zero pages. A listing failure is delivered on the
// error channel and terminates the sequence: the engine never proceeds with
// a known-incomplete object set.
func (l *ObjectLister) Pages(ctx context.Context, bucket, prefix string, pageSize int) (<-chan storage.Page, <-chan error) {
	pages := make(chan storage.Page)
	errCh := make(chan error, 1)

	go func() {
		defer close(pages)
		defer close(errCh)

		token := ""
		pageNum := 0
		for {
			page, err := l.client.ListPage(ctx, bucket, prefix, token, pageSize)
			if err != nil {
				errCh <- fmt.Errorf("failed to list page %d: %w", pageNum+1, err)
				return
			}
			pageNum++

			if len(page.Objects) > 0 {
				l.logger.Debug("Listed page",
					zap.Int("page", pageNum),
					zap.Int("objects", len(page.Objects)),
				)
				select {
				case pages <- page:
				case <-ctx.Done():
					return
				}
			}

			if !page.Truncated || page.NextToken == "" {
				return
			}
			token = page.NextToken
		}
	}()

	return pages, errCh
}

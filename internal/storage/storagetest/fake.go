// Package storagetest provides an in-memory storage.Client for engine tests.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"aws2spaces/internal/storage"
)

// Fake is an in-memory object store. Failures can be injected per key to
// exercise the retry and accounting paths. Safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	buckets      map[string]map[string][]byte
	order        map[string][]string
	contentTypes map[string]map[string]string

	getFailures  map[string]int
	putFailures  map[string]int
	failListPage int // 1-based page index that fails; 0 disables

	putDelay time.Duration

	inflightPuts int
	peakPuts     int
	listCalls    int
}

// NewFake returns an empty fake store.
func NewFake() *Fake {
	return &Fake{
		buckets:      make(map[string]map[string][]byte),
		order:        make(map[string][]string),
		contentTypes: make(map[string]map[string]string),
		getFailures:  make(map[string]int),
		putFailures:  make(map[string]int),
	}
}

// SeedBucket creates a bucket with the given objects. Listing order is
// lexicographic by key, matching S3 semantics.
func (f *Fake) SeedBucket(bucket string, objects map[string][]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data := make(map[string][]byte, len(objects))
	keys := make([]string, 0, len(objects))
	for k, v := range objects {
		data[k] = append([]byte(nil), v...)
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f.buckets[bucket] = data
	f.order[bucket] = keys
	f.contentTypes[bucket] = make(map[string]string)
}

// SetObjectContentType attaches a content type to a seeded object, reported
// by ListPage and recorded again on put.
func (f *Fake) SetObjectContentType(bucket, key, contentType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contentTypes[bucket][key] = contentType
}

// ObjectContentType returns the content type recorded for an object.
func (f *Fake) ObjectContentType(bucket, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contentTypes[bucket][key]
}

// FailGets makes the next n GetObjectStream calls for key return an error.
func (f *Fake) FailGets(key string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getFailures[key] = n
}

// FailPuts makes the next n PutObjectStream calls for key return an error.
func (f *Fake) FailPuts(key string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putFailures[key] = n
}

// FailListPage makes the n-th ListPage call (1-based) return an error.
func (f *Fake) FailListPage(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failListPage = n
}

// SetPutDelay makes every put hold for d, so tests can observe overlap.
func (f *Fake) SetPutDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putDelay = d
}

// PeakConcurrentPuts reports the highest number of puts in flight at once.
func (f *Fake) PeakConcurrentPuts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peakPuts
}

// Objects returns a snapshot of a bucket's contents.
func (f *Fake) Objects(bucket string) map[string][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string][]byte, len(f.buckets[bucket]))
	for k, v := range f.buckets[bucket] {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// HeadBucket implements storage.Client.
func (f *Fake) HeadBucket(ctx context.Context, bucket string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[bucket]; !ok {
		return fmt.Errorf("bucket %q not found", bucket)
	}
	return nil
}

// ListPage implements storage.Client. The continuation token is the numeric
// offset into the seeded key order.
func (f *Fake) ListPage(ctx context.Context, bucket, prefix, token string, pageSize int) (storage.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.failListPage > 0 && f.listCalls == f.failListPage {
		return storage.Page{}, fmt.Errorf("injected listing failure on page %d", f.listCalls)
	}

	data, ok := f.buckets[bucket]
	if !ok {
		return storage.Page{}, fmt.Errorf("bucket %q not found", bucket)
	}

	keys := f.order[bucket]
	if prefix != "" {
		filtered := make([]string, 0, len(keys))
		for _, k := range keys {
			if strings.HasPrefix(k, prefix) {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}

	start := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return storage.Page{}, fmt.Errorf("bad continuation token %q", token)
		}
		start = n
	}

	end := start + pageSize
	if end > len(keys) {
		end = len(keys)
	}

	page := storage.Page{Objects: make([]storage.ObjectInfo, 0, end-start)}
	for _, k := range keys[start:end] {
		page.Objects = append(page.Objects, storage.ObjectInfo{
			Key:         k,
			Size:        int64(len(data[k])),
			ContentType: f.contentTypes[bucket][k],
		})
	}
	if end < len(keys) {
		page.Truncated = true
		page.NextToken = strconv.Itoa(end)
	}

	return page, nil
}

// GetObjectStream implements storage.Client.
func (f *Fake) GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := f.getFailures[key]; n > 0 {
		f.getFailures[key] = n - 1
		return nil, fmt.Errorf("injected get failure for %q", key)
	}

	data, ok := f.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("object %q not found in bucket %q", key, bucket)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// PutObjectStream implements storage.Client.
func (f *Fake) PutObjectStream(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	f.mu.Lock()
	if n := f.putFailures[key]; n > 0 {
		f.putFailures[key] = n - 1
		f.mu.Unlock()
		return fmt.Errorf("injected put failure for %q", key)
	}
	f.inflightPuts++
	if f.inflightPuts > f.peakPuts {
		f.peakPuts = f.inflightPuts
	}
	delay := f.putDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	data, err := io.ReadAll(reader)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflightPuts--
	if err != nil {
		return fmt.Errorf("failed to read stream for %q: %w", key, err)
	}

	if _, ok := f.buckets[bucket]; !ok {
		f.buckets[bucket] = make(map[string][]byte)
		f.contentTypes[bucket] = make(map[string]string)
	}
	if _, exists := f.buckets[bucket][key]; !exists {
		f.order[bucket] = append(f.order[bucket], key)
		sort.Strings(f.order[bucket])
	}
	f.buckets[bucket][key] = data
	f.contentTypes[bucket][key] = contentType
	return nil
}

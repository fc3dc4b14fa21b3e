package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aws2spaces/internal/config"
	"aws2spaces/internal/keymap"
	"aws2spaces/internal/report"
	"aws2spaces/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	migrator      *Migrator
	src, dst      *storagetest.Fake
	succeededPath string
	failedPath    string
}

func newTestEnv(t *testing.T, rule keymap.Rule, retries int) *testEnv {
	t.Helper()

	dir := t.TempDir()
	succeededPath := filepath.Join(dir, "transferred.log")
	failedPath := filepath.Join(dir, "failed.log")

	cfg := &config.Config{
		Source: config.StoreConfig{Provider: "aws", Region: "eu-west-2", Bucket: "src"},
		Target: config.StoreConfig{Provider: "s3compat", Endpoint: "example.test", Bucket: "dst"},
		Migration: config.Migration{
			PageSize:     2,
			Concurrency:  4,
			Retries:      retries,
			SucceededLog: succeededPath,
			FailedLog:    failedPath,
			Rename:       rule,
		},
	}

	src := storagetest.NewFake()
	src.SeedBucket("src", nil)
	dst := storagetest.NewFake()
	dst.SeedBucket("dst", nil)

	succeededSink, err := report.NewFileSink(succeededPath)
	require.NoError(t, err)
	failedSink, err := report.NewFileSink(failedPath)
	require.NoError(t, err)

	m := newMigrator(cfg, zap.NewNop(), "test-run", src, dst, succeededSink, failedSink, nil)
	t.Cleanup(func() { m.Close() })

	return &testEnv{
		migrator:      m,
		src:           src,
		dst:           dst,
		succeededPath: succeededPath,
		failedPath:    failedPath,
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	trimmed := strings.TrimSuffix(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestRunEndToEndWithPrefixRewrite(t *testing.T) {
	env := newTestEnv(t, keymap.Rule{Mode: keymap.ModePrefixRewrite, From: "dentons_01", To: "bl_01"}, 3)
	env.src.SeedBucket("src", map[string][]byte{
		"dentons_01/doc1.pdf": []byte("one"),
		"dentons_01/doc2.pdf": []byte("two"),
		"misc/readme.txt":     []byte("readme"),
	})
	env.src.SetObjectContentType("src", "dentons_01/doc1.pdf", "application/pdf")

	summary, err := env.migrator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.Enumerated)
	assert.Equal(t, int64(3), summary.Succeeded)
	assert.Equal(t, int64(0), summary.Failed)

	objects := env.dst.Objects("dst")
	require.Len(t, objects, 3)
	assert.Equal(t, []byte("one"), objects["bl_01/doc1.pdf"])
	assert.Equal(t, []byte("two"), objects["bl_01/doc2.pdf"])
	assert.Equal(t, []byte("readme"), objects["misc/readme.txt"])
	assert.Equal(t, "application/pdf", env.dst.ObjectContentType("dst", "bl_01/doc1.pdf"))

	succeeded := readLines(t, env.succeededPath)
	assert.ElementsMatch(t, []string{
		"dentons_01/doc1.pdf -> bl_01/doc1.pdf",
		"dentons_01/doc2.pdf -> bl_01/doc2.pdf",
		"misc/readme.txt",
	}, succeeded)
	assert.Empty(t, readLines(t, env.failedPath))
}

func TestRunPartitionsOutcomes(t *testing.T) {
	env := newTestEnv(t, keymap.Rule{}, 2)

	objects := make(map[string][]byte, 25)
	for i := 0; i < 25; i++ {
		objects[fmt.Sprintf("obj-%02d", i)] = []byte("x")
	}
	env.src.SeedBucket("src", objects)
	env.dst.FailPuts("obj-07", 100)
	env.dst.FailPuts("obj-19", 100)

	summary, err := env.migrator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(25), summary.Enumerated)
	assert.Equal(t, int64(23), summary.Succeeded)
	assert.Equal(t, int64(2), summary.Failed)

	succeeded := readLines(t, env.succeededPath)
	failed := readLines(t, env.failedPath)
	assert.Len(t, succeeded, 23)
	require.Len(t, failed, 2)

	// Every enumerated key lands in exactly one sink.
	seen := make(map[string]bool)
	for _, line := range append(succeeded, failed...) {
		key := strings.Fields(line)[0]
		assert.False(t, seen[key], "key %s recorded twice", key)
		seen[key] = true
	}
	assert.Len(t, seen, 25)
	for _, line := range failed {
		assert.Contains(t, line, "attempts=2")
	}
}

func TestRunEmptyBucket(t *testing.T) {
	env := newTestEnv(t, keymap.Rule{}, 3)

	summary, err := env.migrator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.Enumerated)
	assert.Equal(t, int64(0), summary.Succeeded)
	assert.Equal(t, int64(0), summary.Failed)
	assert.Empty(t, readLines(t, env.succeededPath))
	assert.Empty(t, readLines(t, env.failedPath))
}

func TestRunRetriedTransferSucceeds(t *testing.T) {
	env := newTestEnv(t, keymap.Rule{}, 3)
	env.src.SeedBucket("src", map[string][]byte{"a": []byte("payload")})
	env.dst.FailPuts("a", 2)

	summary, err := env.migrator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Succeeded)
	assert.Equal(t, []byte("payload"), env.dst.Objects("dst")["a"])
}

func TestRunEnumerationFailureIsFatal(t *testing.T) {
	env := newTestEnv(t, keymap.Rule{}, 3)

	objects := make(map[string][]byte, 6)
	for i := 0; i < 6; i++ {
		objects[fmt.Sprintf("obj-%d", i)] = []byte("x")
	}
	env.src.SeedBucket("src", objects)
	env.src.FailListPage(3)

	summary, err := env.migrator.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enumeration failed")

	// The objects enumerated before the failure were still transferred and
	// accounted: two pages of two objects each.
	assert.Equal(t, int64(4), summary.Enumerated)
	assert.Equal(t, summary.Enumerated, summary.Succeeded+summary.Failed)
	assert.Len(t, readLines(t, env.succeededPath), int(summary.Succeeded))
}

func TestRunListingFailureOnFinalPageAlwaysFatal(t *testing.T) {
	// A failure on the last listing call races the pages-channel close
	// against the buffered error; Run must report it every time rather
	// than returning success over a partial object set.
	for i := 0; i < 20; i++ {
		env := newTestEnv(t, keymap.Rule{}, 3)
		env.src.SeedBucket("src", map[string][]byte{
			"obj-0": []byte("x"), "obj-1": []byte("x"),
			"obj-2": []byte("x"), "obj-3": []byte("x"),
		})
		env.src.FailListPage(2)

		summary, err := env.migrator.Run(context.Background())
		require.Error(t, err, "iteration %d dropped the listing failure", i)
		assert.Contains(t, err.Error(), "enumeration failed")
		assert.Equal(t, int64(2), summary.Enumerated)
		assert.Equal(t, summary.Enumerated, summary.Succeeded+summary.Failed)
	}
}

func TestRunProbeFailure(t *testing.T) {
	env := newTestEnv(t, keymap.Rule{}, 3)

	// Replace the destination with a store that has no such bucket.
	env.migrator.dstClient = storagetest.NewFake()

	_, err := env.migrator.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to destination bucket")
}

func TestRunDryRun(t *testing.T) {
	env := newTestEnv(t, keymap.Rule{}, 3)
	env.migrator.cfg.Migration.DryRun = true
	env.src.SeedBucket("src", map[string][]byte{"a": []byte("x"), "b": []byte("y")})

	summary, err := env.migrator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Enumerated)
	assert.Equal(t, int64(0), summary.Succeeded)
	assert.Empty(t, env.dst.Objects("dst"))
	assert.Empty(t, readLines(t, env.succeededPath))
}

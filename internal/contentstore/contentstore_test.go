package contentstore

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidex/internal/platform/metrics"
	"evidex/pkg/platform/sentinel"
)

func TestMemoryStoreIsContentAddressed(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a, err := m.StoreBytes(ctx, []byte("hello"), "text/plain", "a.txt")
	require.NoError(t, err)
	b, err := m.StoreBytes(ctx, []byte("hello"), "text/plain", "b.txt")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", a.SHA256)
	assert.Equal(t, "evidence/"+a.SHA256, a.Ref)
	assert.Equal(t, int64(5), a.Size)
}

func TestMemoryExtractText(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	stored, err := m.StoreBytes(ctx, []byte("privileged memo"), "text/plain", "")
	require.NoError(t, err)

	text, err := m.ExtractText(ctx, stored.Ref, "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "privileged memo", text)

	_, err = m.ExtractText(ctx, stored.Ref, "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedContent)

	_, err = m.ExtractText(ctx, "evidence/missing", "text/plain")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().StoreBytes(ctx, []byte("x"), "", "")
	assert.ErrorIs(t, err, context.Canceled)
}

type failingStore struct{}

func (failingStore) StoreBytes(context.Context, []byte, string, string) (Stored, error) {
	return Stored{}, errors.New("down")
}

func (failingStore) ExtractText(context.Context, string, string) (string, error) {
	return "", errors.New("down")
}

func TestInstrumentedRecordsOutcome(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	ok := NewInstrumented(NewMemory(), m)
	bad := NewInstrumented(failingStore{}, m)

	_, err := ok.StoreBytes(context.Background(), []byte("a"), "", "")
	require.NoError(t, err)
	_, err = bad.ExtractText(context.Background(), "x", "")
	require.Error(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(m.ContentCallDuration))
}

func TestResourceNames(t *testing.T) {
	assert.Equal(t, "projects/p/locations/eu/processors/ocr", ProcessorName("p", "eu", "ocr"))
	assert.Equal(t, "gs://bucket/evidence/abc", GSURI("bucket", ObjectName("abc")))
}

// Package contentstore holds evidence bytes and extracts their text.
// Objects are content-addressed by SHA-256, so storing the same bytes twice
// is harmless.
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"evidex/internal/platform/metrics"
)

//go:generate mockgen -source=contentstore.go -destination=mocks/mocks.go -package=mocks Store

// Store is the consumed content collaborator.
type Store interface {
	StoreBytes(ctx context.Context, data []byte, contentType, fileName string) (Stored, error)
	ExtractText(ctx context.Context, ref, contentType string) (string, error)
}

// Stored describes bytes that were written.
type Stored struct {
	Ref    string
	SHA256 string
	Size   int64
}

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ObjectName is the content-addressed key for a digest.
func ObjectName(digest string) string {
	return "evidence/" + digest
}

// Instrumented records call latency and outcome for any Store.
type Instrumented struct {
	next    Store
	metrics *metrics.Metrics
}

func NewInstrumented(next Store, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func (s *Instrumented) StoreBytes(ctx context.Context, data []byte, contentType, fileName string) (Stored, error) {
	start := time.Now()
	out, err := s.next.StoreBytes(ctx, data, contentType, fileName)
	s.metrics.ObserveContentCall("store_bytes", err, start)
	return out, err
}

func (s *Instrumented) ExtractText(ctx context.Context, ref, contentType string) (string, error) {
	start := time.Now()
	out, err := s.next.ExtractText(ctx, ref, contentType)
	s.metrics.ObserveContentCall("extract_text", err, start)
	return out, err
}

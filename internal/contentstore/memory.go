package contentstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"evidex/pkg/platform/sentinel"
)

// ErrUnsupportedContent is returned when text cannot be extracted from a type.
var ErrUnsupportedContent = fmt.Errorf("text extraction not supported")

// Memory keeps bytes in process and extracts text from textual types only.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) StoreBytes(ctx context.Context, data []byte, _, _ string) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}
	digest := Digest(data)
	ref := ObjectName(digest)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[ref]; !ok {
		m.objects[ref] = append([]byte(nil), data...)
	}
	return Stored{Ref: ref, SHA256: digest, Size: int64(len(data))}, nil
}

func (m *Memory) ExtractText(ctx context.Context, ref, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	data, ok := m.objects[ref]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %s: %w", ref, sentinel.ErrNotFound)
	}
	if !isTextual(contentType) || !utf8.Valid(data) {
		return "", fmt.Errorf("%w for %q", ErrUnsupportedContent, contentType)
	}
	return string(data), nil
}

func isTextual(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case ct == "", strings.HasPrefix(ct, "text/"):
		return true
	case ct == "application/json", ct == "application/xml", ct == "message/rfc822":
		return true
	}
	return false
}

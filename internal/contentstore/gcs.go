package contentstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"evidex/internal/platform/config"
)

// GCS stores objects in a bucket and extracts text with a Document AI
// processor reading straight from the bucket.
type GCS struct {
	bucket    string
	processor string
	storage   *storage.Client
	docai     *documentai.DocumentProcessorClient
}

// NewGCS builds both clients from cfg. The Document AI client is optional:
// without a processor, ExtractText falls back to plain-text objects.
func NewGCS(ctx context.Context, cfg config.ContentConfig) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("content bucket is required for gcs mode")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	st, err := storage.NewClient(ctx, append(opts, option.WithScopes(storage.ScopeReadWrite))...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	g := &GCS{bucket: cfg.Bucket, storage: st}

	if cfg.Processor != "" {
		location := cfg.Location
		if location == "" {
			location = "us"
		}
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
		dc, err := documentai.NewDocumentProcessorClient(ctx, append(opts, option.WithEndpoint(endpoint))...)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("documentai client: %w", err)
		}
		g.docai = dc
		g.processor = ProcessorName(cfg.Project, location, cfg.Processor)
	}
	return g, nil
}

func (g *GCS) Close() error {
	if g.docai != nil {
		_ = g.docai.Close()
	}
	return g.storage.Close()
}

func (g *GCS) StoreBytes(ctx context.Context, data []byte, contentType, fileName string) (Stored, error) {
	digest := Digest(data)
	name := ObjectName(digest)

	w := g.storage.Bucket(g.bucket).Object(name).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	if fileName != "" {
		w.Metadata = map[string]string{"file-name": fileName}
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return Stored{}, fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil && !isPreconditionFailed(err) {
		return Stored{}, fmt.Errorf("close object %s: %w", name, err)
	}
	return Stored{Ref: name, SHA256: digest, Size: int64(len(data))}, nil
}

func (g *GCS) ExtractText(ctx context.Context, ref, contentType string) (string, error) {
	if g.docai == nil {
		return g.readText(ctx, ref, contentType)
	}
	if contentType == "" {
		contentType = "application/pdf"
	}
	resp, err := g.docai.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: g.processor,
		Source: &documentaipb.ProcessRequest_GcsDocument{
			GcsDocument: &documentaipb.GcsDocument{
				GcsUri:   GSURI(g.bucket, ref),
				MimeType: contentType,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("documentai process %s: %w", ref, err)
	}
	return strings.TrimSpace(resp.GetDocument().GetText()), nil
}

func (g *GCS) readText(ctx context.Context, ref, contentType string) (string, error) {
	if !isTextual(contentType) {
		return "", fmt.Errorf("%w for %q", ErrUnsupportedContent, contentType)
	}
	r, err := g.storage.Bucket(g.bucket).Object(ref).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("open object %s: %w", ref, err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", ref, err)
	}
	return string(b), nil
}

// ProcessorName is the fully qualified Document AI processor resource.
func ProcessorName(project, location, processor string) string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processor)
}

func GSURI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// isPreconditionFailed means the object already exists; content addressing
// makes that a success.
func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

package remotefn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/stitchway/stitchway/internal/remotefn"

// PackageSchema is one published function package: its name, which doubles
// as the directive namespace, and its raw schema document.
type PackageSchema struct {
	Name string `json:"name"`
	SDL  string `json:"schema"`
}

// Catalog lists the function packages published under a namespace.
type Catalog interface {
	Packages(ctx context.Context, namespace string) ([]*PackageSchema, error)
}

var _ Catalog = (*HTTPCatalog)(nil)

// HTTPCatalog queries a catalog service over HTTP.
type HTTPCatalog struct {
	BaseURL string

	Client *http.Client
}

func (c *HTTPCatalog) Packages(ctx context.Context, namespace string) ([]*PackageSchema, error) {
	hc := c.Client
	if hc == nil {
		hc = http.DefaultClient
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "catalog.list",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("catalog.namespace", namespace)))
	defer span.End()

	reqURL := fmt.Sprintf("%s/namespaces/%s/packages", c.BaseURL, url.PathEscape(namespace))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resp, err := hc.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("remotefn: unexpected response code from catalog: %d", resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	var packages []*PackageSchema
	err = json.Unmarshal(b, &packages)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("remotefn: malformed catalog response: %w", err)
	}

	span.SetAttributes(attribute.Int("catalog.packages", len(packages)))
	return packages, nil
}

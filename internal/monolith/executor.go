package monolith

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/99designs/gqlgen/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stitchway/stitchway/internal/compose"
)

var _ compose.DataSource = (*Executor)(nil)

const tracerName = "github.com/stitchway/stitchway/internal/monolith"

// Executor forwards a single GraphQL request to the legacy monolith's
// endpoint and returns its raw response. It is stateless; every invocation
// is an independent round trip.
type Executor struct {
	URL string

	Client *http.Client
}

func (e *Executor) Process(ctx context.Context, oc *graphql.OperationContext) *graphql.Response {
	hc := e.Client
	if hc == nil {
		hc = http.DefaultClient
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "monolith.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graphql.operation.name", oc.OperationName),
			attribute.String("monolith.url", e.URL),
		))
	defer span.End()

	ctx = graphql.WithResponseContext(
		ctx,
		graphql.DefaultErrorPresenter,
		graphql.DefaultRecover,
	)

	type rawParams struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName,omitempty"`
		Variables     map[string]interface{} `json:"variables,omitempty"`
	}

	params := &rawParams{
		Query:         oc.RawQuery,
		OperationName: oc.OperationName,
		Variables:     oc.Variables,
	}
	b, err := json.Marshal(params)
	if err != nil {
		return e.errorResponse(ctx, span, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.URL, bytes.NewBuffer(b))
	if err != nil {
		return e.errorResponse(ctx, span, err)
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return e.errorResponse(ctx, span, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err = io.ReadAll(resp.Body)
	if err != nil {
		return e.errorResponse(ctx, span, err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		graphql.AddErrorf(ctx, "unexpected response code from monolith: %d", resp.StatusCode)
		return &graphql.Response{
			Errors: graphql.GetErrors(ctx),
		}
	}

	gqlResp := &graphql.Response{}
	err = json.Unmarshal(b, gqlResp)
	if err != nil {
		return e.errorResponse(ctx, span, err)
	}

	return gqlResp
}

func (e *Executor) errorResponse(ctx context.Context, span trace.Span, err error) *graphql.Response {
	span.RecordError(err)
	graphql.AddError(ctx, err)
	return &graphql.Response{
		Errors: graphql.GetErrors(ctx),
	}
}

package remotefn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stitchway/stitchway/internal/compose"
)

var _ compose.FunctionInvoker = (*HTTPInvoker)(nil)

// HTTPInvoker calls externally hosted functions through the function
// runtime's invoke endpoint.
type HTTPInvoker struct {
	BaseURL string

	Client *http.Client
}

func (inv *HTTPInvoker) Invoke(ctx context.Context, function string, args map[string]interface{}) (interface{}, error) {
	hc := inv.Client
	if hc == nil {
		hc = http.DefaultClient
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "function.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("function.name", function)))
	defer span.End()

	type invokeParams struct {
		Function  string                 `json:"function"`
		Arguments map[string]interface{} `json:"arguments,omitempty"`
	}

	b, err := json.Marshal(&invokeParams{Function: function, Arguments: args})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", inv.BaseURL+"/invoke", bytes.NewBuffer(b))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err = io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("remotefn: function %q returned response code %d", function, resp.StatusCode)
		span.RecordError(err)
		return nil, err
	}

	type invokeResult struct {
		Result interface{} `json:"result"`
		Error  string      `json:"error"`
	}
	v := &invokeResult{}
	err = json.Unmarshal(b, v)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("remotefn: malformed result from function %q: %w", function, err)
	}
	if v.Error != "" {
		return nil, fmt.Errorf("remotefn: function %q failed: %s", function, v.Error)
	}

	return v.Result, nil
}

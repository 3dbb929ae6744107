package monolith

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/stitchway/stitchway/internal/compose"
	"github.com/stitchway/stitchway/internal/log"
)

// Compatibility markers the proxy requires from the monolith. Their absence
// means the monolith predates the contract this gateway is built against.
const (
	DefaultFilterInput   = "ProductFilterInput"
	DefaultRequiredField = "sku"
	DefaultMinVersion    = "2.3.0"
)

// ProxyBuilder introspects the legacy monolith and produces a schema
// fragment whose field executions are all delegated to it.
type ProxyBuilder struct {
	URL    string
	Client *http.Client

	// FilterInput, RequiredField and MinVersion override the default
	// compatibility markers. Zero values mean the defaults.
	FilterInput   string
	RequiredField string
	MinVersion    string
}

func NewProxyBuilder(endpointURL string) *ProxyBuilder {
	return &ProxyBuilder{URL: endpointURL}
}

func (b *ProxyBuilder) filterInput() string {
	if b.FilterInput != "" {
		return b.FilterInput
	}
	return DefaultFilterInput
}

func (b *ProxyBuilder) requiredField() string {
	if b.RequiredField != "" {
		return b.RequiredField
	}
	return DefaultRequiredField
}

func (b *ProxyBuilder) minVersion() string {
	if b.MinVersion != "" {
		return b.MinVersion
	}
	return DefaultMinVersion
}

// Build introspects the monolith, verifies the compatibility markers and
// returns a monolith-tier fragment. Any failure here is fatal to startup;
// producing a silently empty fragment would misroute every monolith field.
func (b *ProxyBuilder) Build(ctx context.Context) (*compose.Fragment, error) {
	logger := log.FromContext(ctx)

	executor := &Executor{
		URL:    b.URL,
		Client: b.Client,
	}

	introspected, err := Introspect(ctx, executor)
	if err != nil {
		return nil, &UnreachableError{URL: b.URL, Err: err}
	}

	filterInput := introspected.typeByName(b.filterInput())
	if filterInput == nil || filterInput.Kind != "INPUT_OBJECT" {
		return nil, &CompatibilityError{
			Missing:    "input type " + b.filterInput(),
			MinVersion: b.minVersion(),
		}
	}
	if filterInput.inputFieldByName(b.requiredField()) == nil {
		return nil, &CompatibilityError{
			Missing:    "field " + b.filterInput() + "." + b.requiredField(),
			MinVersion: b.minVersion(),
		}
	}

	doc, err := documentFromIntrospection(introspected)
	if err != nil {
		return nil, &UnreachableError{URL: b.URL, Err: err}
	}

	resolvers := make(map[compose.FieldRef]compose.Resolver)
	for _, def := range doc.Definitions {
		if def.Kind != ast.Object && def.Kind != ast.Interface {
			continue
		}
		for _, field := range def.Fields {
			ref := compose.FieldRef{Type: def.Name, Field: field.Name}
			resolvers[ref] = &compose.RemoteDelegate{Source: executor}
		}
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)

	logger.Info("monolith proxy built",
		"url", b.URL,
		"types", len(doc.Definitions),
		"delegatedFields", len(resolvers))

	return &compose.Fragment{
		TypeDefs: []*ast.Source{
			{
				Name:  "monolith/" + sourceNameFromURL(b.URL),
				Input: buf.String(),
			},
		},
		Resolvers: resolvers,
		DataSources: map[string]compose.DataSource{
			"monolith": executor,
		},
		Tier: compose.TierMonolith,
	}, nil
}

func sourceNameFromURL(url string) string {
	name := strings.TrimPrefix(url, "https://")
	name = strings.TrimPrefix(name, "http://")
	if i := strings.IndexAny(name, "/:"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "endpoint"
	}
	return name
}

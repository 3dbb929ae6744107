package compose

import "context"

// Resolver decides how a single field is executed. It is a closed set of
// strategies so the engine can dispatch on the variant instead of doing
// string lookups at request time.
type Resolver interface {
	isResolver()
}

// HandlerFunc resolves a field in process. Arguments are already coerced
// against the operation's variables.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// LocalFunction resolves a field with an in-process handler.
type LocalFunction struct {
	Handler HandlerFunc
}

// RemoteDelegate forwards the whole field request to another origin and
// returns its response verbatim.
type RemoteDelegate struct {
	Source DataSource
}

// ExternalFunctionCall invokes an externally hosted function identified by
// its namespace-qualified name and uses its result as the field value.
type ExternalFunctionCall struct {
	Function string
	Invoker  FunctionInvoker
}

func (*LocalFunction) isResolver()        {}
func (*RemoteDelegate) isResolver()       {}
func (*ExternalFunctionCall) isResolver() {}

package remotefn

import (
	"bytes"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/stitchway/stitchway/internal/compose"
)

// NamespaceSeparator joins a package name and a bare function name into a
// globally unique function reference, e.g. "catalog::getPrice".
const NamespaceSeparator = "::"

// RewriteError reports a function directive whose name argument cannot be
// namespace-qualified.
type RewriteError struct {
	Namespace string
	Type      string
	Field     string
	Reason    string
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("remotefn: package %q: @%s on %s.%s: %s",
		e.Namespace, compose.FunctionDirectiveName, e.Type, e.Field, e.Reason)
}

// RewriteFunctionDirectives qualifies every function directive's name
// argument with the owning package's namespace. It must run exactly once
// per package, before the package's declarations reach the composer;
// running it twice double-qualifies the names.
func RewriteFunctionDirectives(source *ast.Source, namespace string) (*ast.Source, error) {
	doc, gErr := parser.ParseSchema(source)
	if gErr != nil {
		return nil, gErr
	}

	for _, def := range doc.Definitions {
		if err := rewriteDefinition(def, namespace); err != nil {
			return nil, err
		}
	}
	for _, def := range doc.Extensions {
		if err := rewriteDefinition(def, namespace); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)

	return &ast.Source{
		Name:  source.Name,
		Input: buf.String(),
	}, nil
}

func rewriteDefinition(def *ast.Definition, namespace string) error {
	for _, field := range def.Fields {
		for _, directive := range field.Directives {
			if directive.Name != compose.FunctionDirectiveName {
				continue
			}
			arg := directive.Arguments.ForName("name")
			if arg == nil || arg.Value == nil {
				return &RewriteError{
					Namespace: namespace,
					Type:      def.Name,
					Field:     field.Name,
					Reason:    "name argument is missing",
				}
			}
			if arg.Value.Kind != ast.StringValue || arg.Value.Raw == "" {
				return &RewriteError{
					Namespace: namespace,
					Type:      def.Name,
					Field:     field.Name,
					Reason:    "name argument must be a non-empty string",
				}
			}
			arg.Value.Raw = namespace + NamespaceSeparator + arg.Value.Raw
		}
	}
	return nil
}

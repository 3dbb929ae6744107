package compose

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

// SchemaParseError reports a fragment whose raw type declarations are not
// valid schema syntax. Tier identifies the offending fragment.
type SchemaParseError struct {
	Tier   Tier
	Source string
	Err    error
}

func (e *SchemaParseError) Error() string {
	return fmt.Sprintf("compose: %s fragment %q is not parsable: %v", e.Tier, e.Source, e.Err)
}

func (e *SchemaParseError) Unwrap() error {
	return e.Err
}

// ConflictError reports an incompatible redefinition of a type across
// fragments, e.g. a scalar redefined as an object.
type ConflictError struct {
	Name        string
	Existing    ast.DefinitionKind
	Conflicting ast.DefinitionKind
	Tier        Tier
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("compose: %s fragment redefines %s %q as %s",
		e.Tier, e.Existing, e.Name, e.Conflicting)
}

// DirectiveError reports a malformed function directive usage found while
// binding the composed schema.
type DirectiveError struct {
	Type   string
	Field  string
	Reason string
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("compose: @%s on %s.%s: %s", FunctionDirectiveName, e.Type, e.Field, e.Reason)
}

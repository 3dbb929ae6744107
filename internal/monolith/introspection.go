package monolith

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/stitchway/stitchway/internal/compose"
)

const introspectionQuery = `
query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    subscriptionType { name }
    types {
      ...FullType
    }
  }
}

fragment FullType on __Type {
  kind
  name
  description
  fields(includeDeprecated: true) {
    name
    description
    args {
      ...InputValue
    }
    type {
      ...TypeRef
    }
  }
  inputFields {
    ...InputValue
  }
  interfaces {
    ...TypeRef
  }
  enumValues(includeDeprecated: true) {
    name
    description
  }
  possibleTypes {
    ...TypeRef
  }
}

fragment InputValue on __InputValue {
  name
  description
  type { ...TypeRef }
  defaultValue
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType {
        kind
        name
        ofType {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
              ofType {
                kind
                name
              }
            }
          }
        }
      }
    }
  }
}
`

type introspectionSchema struct {
	QueryType        *introspectionTypeRef `json:"queryType"`
	MutationType     *introspectionTypeRef `json:"mutationType"`
	SubscriptionType *introspectionTypeRef `json:"subscriptionType"`
	Types            []*introspectionType  `json:"types"`
}

type introspectionType struct {
	Kind          string                     `json:"kind"`
	Name          string                     `json:"name"`
	Description   string                     `json:"description"`
	Fields        []*introspectionField      `json:"fields"`
	InputFields   []*introspectionInputValue `json:"inputFields"`
	Interfaces    []*introspectionTypeRef    `json:"interfaces"`
	EnumValues    []*introspectionEnumValue  `json:"enumValues"`
	PossibleTypes []*introspectionTypeRef    `json:"possibleTypes"`
}

type introspectionField struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Args        []*introspectionInputValue `json:"args"`
	Type        *introspectionTypeRef      `json:"type"`
}

type introspectionInputValue struct {
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Type         *introspectionTypeRef `json:"type"`
	DefaultValue *string               `json:"defaultValue"`
}

type introspectionEnumValue struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type introspectionTypeRef struct {
	Kind   string                `json:"kind"`
	Name   string                `json:"name"`
	OfType *introspectionTypeRef `json:"ofType"`
}

func (s *introspectionSchema) typeByName(name string) *introspectionType {
	for _, typ := range s.Types {
		if typ.Name == name {
			return typ
		}
	}
	return nil
}

func (t *introspectionType) inputFieldByName(name string) *introspectionInputValue {
	for _, field := range t.InputFields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

// Introspect fetches the monolith's schema shape through the given data
// source.
func Introspect(ctx context.Context, ds compose.DataSource) (*introspectionSchema, error) {
	queryDoc, gErr := parser.ParseQuery(&ast.Source{
		Input: introspectionQuery,
	})
	if gErr != nil {
		return nil, gErr
	}

	resp := ds.Process(ctx, &graphql.OperationContext{
		RawQuery:  introspectionQuery,
		Variables: make(map[string]interface{}),
		Doc:       queryDoc,
		Operation: queryDoc.Operations[0],
	})
	if len(resp.Errors) != 0 {
		return nil, resp.Errors
	}

	type introspectionResponse struct {
		Schema *introspectionSchema `json:"__schema"`
	}
	v := &introspectionResponse{}
	err := json.Unmarshal(resp.Data, v)
	if err != nil {
		return nil, fmt.Errorf("malformed introspection response: %w", err)
	}
	if v.Schema == nil || v.Schema.QueryType == nil || v.Schema.QueryType.Name == "" {
		return nil, fmt.Errorf("malformed introspection response: no query type")
	}

	return v.Schema, nil
}

var builtInScalars = map[string]bool{
	"Int":     true,
	"Float":   true,
	"String":  true,
	"Boolean": true,
	"ID":      true,
}

// documentFromIntrospection rebuilds SDL definitions from the introspected
// shape. Introspection meta types and built-in scalars are skipped.
func documentFromIntrospection(s *introspectionSchema) (*ast.SchemaDocument, error) {
	doc := &ast.SchemaDocument{}

	if s.QueryType.Name != "Query" ||
		(s.MutationType != nil && s.MutationType.Name != "Mutation") {
		schemaDef := &ast.SchemaDefinition{}
		schemaDef.OperationTypes = append(schemaDef.OperationTypes, &ast.OperationTypeDefinition{
			Operation: ast.Query,
			Type:      s.QueryType.Name,
		})
		if s.MutationType != nil {
			schemaDef.OperationTypes = append(schemaDef.OperationTypes, &ast.OperationTypeDefinition{
				Operation: ast.Mutation,
				Type:      s.MutationType.Name,
			})
		}
		doc.Schema = append(doc.Schema, schemaDef)
	}

	for _, typ := range s.Types {
		if strings.HasPrefix(typ.Name, "__") || builtInScalars[typ.Name] {
			continue
		}
		def, err := definitionFromIntrospection(typ)
		if err != nil {
			return nil, err
		}
		doc.Definitions = append(doc.Definitions, def)
	}

	return doc, nil
}

func definitionFromIntrospection(typ *introspectionType) (*ast.Definition, error) {
	def := &ast.Definition{
		Name:        typ.Name,
		Description: typ.Description,
	}

	switch typ.Kind {
	case "SCALAR":
		def.Kind = ast.Scalar
	case "OBJECT":
		def.Kind = ast.Object
	case "INTERFACE":
		def.Kind = ast.Interface
	case "UNION":
		def.Kind = ast.Union
		for _, member := range typ.PossibleTypes {
			def.Types = append(def.Types, member.Name)
		}
	case "ENUM":
		def.Kind = ast.Enum
		for _, enumValue := range typ.EnumValues {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        enumValue.Name,
				Description: enumValue.Description,
			})
		}
	case "INPUT_OBJECT":
		def.Kind = ast.InputObject
		for _, inputField := range typ.InputFields {
			field, err := inputFieldDefinition(typ.Name, inputField)
			if err != nil {
				return nil, err
			}
			def.Fields = append(def.Fields, field)
		}
	default:
		return nil, fmt.Errorf("unknown introspected kind %q for type %q", typ.Kind, typ.Name)
	}

	for _, iface := range typ.Interfaces {
		def.Interfaces = append(def.Interfaces, iface.Name)
	}

	for _, field := range typ.Fields {
		fieldType, err := typeFromRef(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", typ.Name, field.Name, err)
		}
		fieldDef := &ast.FieldDefinition{
			Name:        field.Name,
			Description: field.Description,
			Type:        fieldType,
		}
		for _, arg := range field.Args {
			argType, err := typeFromRef(arg.Type)
			if err != nil {
				return nil, fmt.Errorf("argument %s.%s(%s:): %w", typ.Name, field.Name, arg.Name, err)
			}
			fieldDef.Arguments = append(fieldDef.Arguments, &ast.ArgumentDefinition{
				Name:         arg.Name,
				Description:  arg.Description,
				Type:         argType,
				DefaultValue: valueFromDefault(arg.DefaultValue),
			})
		}
		def.Fields = append(def.Fields, fieldDef)
	}

	return def, nil
}

func inputFieldDefinition(typeName string, inputField *introspectionInputValue) (*ast.FieldDefinition, error) {
	fieldType, err := typeFromRef(inputField.Type)
	if err != nil {
		return nil, fmt.Errorf("input field %s.%s: %w", typeName, inputField.Name, err)
	}
	return &ast.FieldDefinition{
		Name:         inputField.Name,
		Description:  inputField.Description,
		Type:         fieldType,
		DefaultValue: valueFromDefault(inputField.DefaultValue),
	}, nil
}

func typeFromRef(ref *introspectionTypeRef) (*ast.Type, error) {
	if ref == nil {
		return nil, fmt.Errorf("type reference is missing")
	}
	switch ref.Kind {
	case "NON_NULL":
		inner, err := typeFromRef(ref.OfType)
		if err != nil {
			return nil, err
		}
		inner.NonNull = true
		return inner, nil
	case "LIST":
		inner, err := typeFromRef(ref.OfType)
		if err != nil {
			return nil, err
		}
		return ast.ListType(inner, nil), nil
	default:
		if ref.Name == "" {
			return nil, fmt.Errorf("named type reference without a name")
		}
		return ast.NamedType(ref.Name, nil), nil
	}
}

// valueFromDefault turns an introspected default value literal back into an
// AST value. List and object literals are dropped; they are rare in
// practice and a missing default never invalidates the schema.
func valueFromDefault(raw *string) *ast.Value {
	if raw == nil || *raw == "" {
		return nil
	}
	v := *raw
	switch {
	case strings.HasPrefix(v, `"`):
		return &ast.Value{Raw: strings.Trim(v, `"`), Kind: ast.StringValue}
	case v == "true" || v == "false":
		return &ast.Value{Raw: v, Kind: ast.BooleanValue}
	case v == "null":
		return &ast.Value{Raw: v, Kind: ast.NullValue}
	case strings.HasPrefix(v, "[") || strings.HasPrefix(v, "{"):
		return nil
	default:
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			return &ast.Value{Raw: v, Kind: ast.IntValue}
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return &ast.Value{Raw: v, Kind: ast.FloatValue}
		}
		return &ast.Value{Raw: v, Kind: ast.EnumValue}
	}
}

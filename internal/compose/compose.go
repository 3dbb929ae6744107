package compose

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/stitchway/stitchway/internal/log"
)

// Compose merges an ordered fragment list into one schema. Fragments are
// applied in slice order; the first element is the base. A later fragment's
// definition of a (type, field) pair replaces the earlier one wholesale,
// and its resolver and data source entries win on key collisions.
//
// Composition is deterministic for a given fragment order and never mutates
// its inputs.
func Compose(ctx context.Context, fragments []*Fragment) (*ComposedSchema, error) {
	logger := log.FromContext(ctx)

	if len(fragments) == 0 {
		return nil, fmt.Errorf("compose: at least one fragment is required")
	}

	m := newMerger()
	for _, fragment := range fragments {
		for _, source := range fragment.TypeDefs {
			doc, gErr := parser.ParseSchema(source)
			if gErr != nil {
				return nil, &SchemaParseError{
					Tier:   fragment.Tier,
					Source: source.Name,
					Err:    gErr,
				}
			}
			if err := m.mergeDocument(doc, fragment.Tier); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(m.document())

	schemaDoc, gErr := parser.ParseSchemas(
		validator.Prelude,
		&ast.Source{
			Name:  "composed",
			Input: buf.String(),
		},
	)
	if gErr != nil {
		return nil, fmt.Errorf("compose: merged document is not parsable: %w", gErr)
	}

	schema, gErr2 := validator.ValidateSchemaDocument(schemaDoc)
	if gErr2 != nil {
		return nil, fmt.Errorf("compose: merged schema is invalid: %w", gErr2)
	}

	resolvers := make(map[FieldRef]Resolver)
	dataSources := make(map[string]DataSource)
	for _, fragment := range fragments {
		for ref, resolver := range fragment.Resolvers {
			resolvers[ref] = resolver
		}
		for name, ds := range fragment.DataSources {
			dataSources[name] = ds
		}
	}

	logger.V(1).Info("schema composed",
		"fragments", len(fragments),
		"types", len(schema.Types),
		"resolvers", len(resolvers))

	return &ComposedSchema{
		Schema:      schema,
		Resolvers:   resolvers,
		DataSources: dataSources,
	}, nil
}

type merger struct {
	typeOrder      []string
	types          map[string]*ast.Definition
	directiveOrder []string
	directives     map[string]*ast.DirectiveDefinition
	schemaDef      *ast.SchemaDefinition
}

func newMerger() *merger {
	return &merger{
		types:      make(map[string]*ast.Definition),
		directives: make(map[string]*ast.DirectiveDefinition),
	}
}

func (m *merger) mergeDocument(doc *ast.SchemaDocument, tier Tier) error {
	for _, def := range doc.Definitions {
		if err := m.mergeDefinition(def, tier); err != nil {
			return err
		}
	}
	// Type extensions layer onto the accumulated type the same way a
	// redefinition does. An extension of an unknown type introduces it.
	for _, def := range doc.Extensions {
		if err := m.mergeDefinition(def, tier); err != nil {
			return err
		}
	}

	for _, dd := range doc.Directives {
		if _, ok := m.directives[dd.Name]; !ok {
			m.directiveOrder = append(m.directiveOrder, dd.Name)
		}
		m.directives[dd.Name] = dd
	}

	for _, sd := range doc.Schema {
		m.schemaDef = sd
	}
	for _, sd := range doc.SchemaExtension {
		if m.schemaDef == nil {
			m.schemaDef = &ast.SchemaDefinition{}
		}
		for _, opType := range sd.OperationTypes {
			m.setOperationType(opType)
		}
	}

	return nil
}

func (m *merger) setOperationType(opType *ast.OperationTypeDefinition) {
	for i, existing := range m.schemaDef.OperationTypes {
		if existing.Operation == opType.Operation {
			m.schemaDef.OperationTypes[i] = opType
			return
		}
	}
	m.schemaDef.OperationTypes = append(m.schemaDef.OperationTypes, opType)
}

func (m *merger) mergeDefinition(def *ast.Definition, tier Tier) error {
	existing, ok := m.types[def.Name]
	if !ok {
		m.typeOrder = append(m.typeOrder, def.Name)
		m.types[def.Name] = copyDefinition(def)
		return nil
	}

	if existing.Kind != def.Kind {
		return &ConflictError{
			Name:        def.Name,
			Existing:    existing.Kind,
			Conflicting: def.Kind,
			Tier:        tier,
		}
	}

	if def.Description != "" {
		existing.Description = def.Description
	}

	for _, field := range def.Fields {
		replaced := false
		for i, existingField := range existing.Fields {
			if existingField.Name == field.Name {
				existing.Fields[i] = field
				replaced = true
				break
			}
		}
		if !replaced {
			existing.Fields = append(existing.Fields, field)
		}
	}

	for _, iface := range def.Interfaces {
		found := false
		for _, existingIface := range existing.Interfaces {
			if existingIface == iface {
				found = true
				break
			}
		}
		if !found {
			existing.Interfaces = append(existing.Interfaces, iface)
		}
	}

	for _, enumValue := range def.EnumValues {
		replaced := false
		for i, existingValue := range existing.EnumValues {
			if existingValue.Name == enumValue.Name {
				existing.EnumValues[i] = enumValue
				replaced = true
				break
			}
		}
		if !replaced {
			existing.EnumValues = append(existing.EnumValues, enumValue)
		}
	}

	// Union membership is not unioned; the later definition replaces it.
	if len(def.Types) != 0 {
		existing.Types = append([]string(nil), def.Types...)
	}

	for _, directive := range def.Directives {
		replaced := false
		for i, existingDirective := range existing.Directives {
			if existingDirective.Name == directive.Name {
				existing.Directives[i] = directive
				replaced = true
				break
			}
		}
		if !replaced {
			existing.Directives = append(existing.Directives, directive)
		}
	}

	return nil
}

func (m *merger) document() *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}
	if m.schemaDef != nil {
		doc.Schema = append(doc.Schema, m.schemaDef)
	}
	for _, name := range m.directiveOrder {
		doc.Directives = append(doc.Directives, m.directives[name])
	}
	for _, name := range m.typeOrder {
		doc.Definitions = append(doc.Definitions, m.types[name])
	}
	return doc
}

// copyDefinition clones the slices that mergeDefinition rewrites so the
// source fragment's AST stays untouched.
func copyDefinition(def *ast.Definition) *ast.Definition {
	cp := *def
	cp.Fields = append(ast.FieldList(nil), def.Fields...)
	cp.Interfaces = append([]string(nil), def.Interfaces...)
	cp.EnumValues = append(ast.EnumValueList(nil), def.EnumValues...)
	cp.Types = append([]string(nil), def.Types...)
	cp.Directives = append(ast.DirectiveList(nil), def.Directives...)
	return &cp
}

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	schemaOnce sync.Once
	schemaErr  error
	schemas    map[Variant]*validator.Schema
)

// variantDocs maps each variant to the document type its schema is
// reflected from.
var variantDocs = map[Variant]any{
	VariantBase:      baseDoc{},
	VariantCrime:     crimeDoc{},
	VariantNarrative: narrativeDoc{},
	VariantCombined:  combinedDoc{},
}

// SchemaFor returns the JSON Schema the model's answer must satisfy for v.
func SchemaFor(v Variant) ([]byte, error) {
	doc, ok := variantDocs[v]
	if !ok {
		return nil, fmt.Errorf("unknown variant %q", v)
	}
	reflector := jsonschema.Reflector{
		// Models add commentary fields now and then; they are ignored.
		AllowAdditionalProperties:  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	return json.Marshal(reflector.Reflect(doc))
}

func compileSchemas() {
	schemas = make(map[Variant]*validator.Schema, len(variantDocs))
	for v := range variantDocs {
		raw, err := SchemaFor(v)
		if err != nil {
			schemaErr = err
			return
		}
		compiler := validator.NewCompiler()
		name := string(v) + ".json"
		if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("add %s schema: %w", v, err)
			return
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			schemaErr = fmt.Errorf("compile %s schema: %w", v, err)
			return
		}
		schemas[v] = schema
	}
}

// validateAgainst checks a decoded JSON document against the schema for v.
func validateAgainst(v Variant, doc any) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	schema, ok := schemas[v]
	if !ok {
		return fmt.Errorf("unknown variant %q", v)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

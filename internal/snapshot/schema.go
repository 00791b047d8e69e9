// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the snapshot JSON Schema.
const SchemaID = "https://holomush.dev/schemas/snapshot.schema.json"

// compiledSchema compiles the generated schema once per process.
var compiledSchema = sync.OnceValues(compileSchema)

// GenerateSchema generates a JSON Schema from the Snapshot struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Snapshot{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "niche partition snapshot"
	schema.Description = "Species partition of one generation, written by a population manager"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "marshal schema")
	}
	return data, nil
}

// ValidateSchema validates YAML or JSON data against the snapshot schema.
func ValidateSchema(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return oops.Code(CodeSchema).Errorf("snapshot data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code(CodeDecode).Wrapf(err, "invalid YAML")
	}

	instance, err := toJSONInstance(doc)
	if err != nil {
		return err
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	if err := sch.Validate(instance); err != nil {
		return oops.Code(CodeSchema).Wrapf(err, "schema validation failed")
	}
	return nil
}

// FormatSchemaError returns the validator's detail lines of a schema error,
// joined with "; ", e.g. "at '/format_version': got number, want string".
// Errors without validation detail are returned without the wrapper prefix.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}

	var verr *jschema.ValidationError
	if errors.As(err, &verr) {
		lines := strings.Split(strings.TrimSpace(verr.Error()), "\n")
		details := make([]string, 0, len(lines))
		for _, line := range lines[1:] {
			if line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-")); line != "" {
				details = append(details, line)
			}
		}
		if len(details) > 0 {
			return strings.Join(details, "; ")
		}
	}

	msg := err.Error()
	if _, rest, ok := strings.Cut(msg, "schema validation failed: "); ok {
		return rest
	}
	return msg
}

func compileSchema() (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	schemaDoc, err := jschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "parse schema JSON")
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("snapshot.schema.json", schemaDoc); err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "add schema resource")
	}

	sch, err := c.Compile("snapshot.schema.json")
	if err != nil {
		return nil, oops.Code(CodeSchema).Wrapf(err, "compile schema")
	}
	return sch, nil
}

// toJSONInstance converts a YAML document into the value form the validator
// expects by going through encoding/json.
func toJSONInstance(doc any) (any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, oops.Code(CodeDecode).Wrapf(err, "snapshot is not representable as JSON")
	}
	instance, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.Code(CodeDecode).Wrapf(err, "re-read snapshot as JSON")
	}
	return instance, nil
}

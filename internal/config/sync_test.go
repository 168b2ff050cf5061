// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// cueFieldNames returns the regular field names of a CUE struct definition.
func cueFieldNames(t *testing.T, val cue.Value) map[string]bool {
	t.Helper()

	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}

	fields := make(map[string]bool)
	for iter.Next() {
		sel := iter.Selector()
		if sel.LabelType().IsHidden() || sel.IsDefinition() {
			continue
		}
		fields[strings.TrimSuffix(sel.String(), "?")] = true
	}
	return fields
}

// jsonTagNames returns the json tag names of a struct type's exported fields.
func jsonTagNames(t *testing.T, typ reflect.Type) map[string]bool {
	t.Helper()

	if typ.Kind() != reflect.Struct {
		t.Fatalf("expected struct type, got %s", typ.Kind())
	}

	fields := make(map[string]bool)
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = true
	}
	return fields
}

func lookupDefinition(t *testing.T, defPath string) cue.Value {
	t.Helper()

	schema := cuecontext.New().CompileBytes(configSchema)
	if err := schema.Err(); err != nil {
		t.Fatalf("failed to compile CUE schema: %v", err)
	}
	def := schema.LookupPath(cue.ParsePath(defPath))
	if err := def.Err(); err != nil {
		t.Fatalf("failed to lookup CUE definition %s: %v", defPath, err)
	}
	return def
}

// TestSchemaSync keeps the Go structs and the CUE definitions aligned, so a
// renamed field cannot be silently dropped by the decoder.
func TestSchemaSync(t *testing.T) {
	tests := []struct {
		def string
		typ reflect.Type
	}{
		{"#Config", reflect.TypeFor[Config]()},
		{"#RuntimeConfig", reflect.TypeFor[RuntimeConfig]()},
		{"#ConnectorConfig", reflect.TypeFor[ConnectorConfig]()},
		{"#TimeoutsConfig", reflect.TypeFor[TimeoutsConfig]()},
		{"#ServiceConfig", reflect.TypeFor[ServiceConfig]()},
		{"#LogConfig", reflect.TypeFor[LogConfig]()},
	}

	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			cueFields := cueFieldNames(t, lookupDefinition(t, tt.def))
			goFields := jsonTagNames(t, tt.typ)

			for field := range cueFields {
				if !goFields[field] {
					t.Errorf("CUE field %q has no matching json tag in %s", field, tt.typ.Name())
				}
			}
			for field := range goFields {
				if !cueFields[field] {
					t.Errorf("json tag %q of %s is missing from %s", field, tt.typ.Name(), tt.def)
				}
			}
		})
	}
}

// TestMapstructureTagsMatchJSON guards the viper decode path, which reads
// mapstructure tags while the schema is written against json tags.
func TestMapstructureTagsMatchJSON(t *testing.T) {
	for _, typ := range []reflect.Type{
		reflect.TypeFor[Config](),
		reflect.TypeFor[RuntimeConfig](),
		reflect.TypeFor[ConnectorConfig](),
		reflect.TypeFor[TimeoutsConfig](),
		reflect.TypeFor[ServiceConfig](),
		reflect.TypeFor[LogConfig](),
	} {
		for i := range typ.NumField() {
			field := typ.Field(i)
			jsonName, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if ms := field.Tag.Get("mapstructure"); ms != jsonName {
				t.Errorf("%s.%s: mapstructure tag %q != json tag %q", typ.Name(), field.Name, ms, jsonName)
			}
		}
	}
}

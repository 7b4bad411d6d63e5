package schemarpc

import (
	"encoding/base64"
	"fmt"
)

// SchemaSectionNames lists the custom section names that carry a contract
// schema, newest format first.
var SchemaSectionNames = []string{
	"concordium-schema-v1",
	"concordium-schema-v2",
	"concordium-schema",
}

// SchemaRpcResult is a schema found in a module's custom section.
type SchemaRpcResult struct {
	SectionName string `json:"sectionName"`
	// Schema is the raw section content, base64 encoded.
	Schema string `json:"schema"`
}

// Decode returns the raw schema bytes.
func (r *SchemaRpcResult) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Schema)
}

// findCustomSection returns the first name in SchemaSectionNames that has at
// least one section, along with those sections.
func findCustomSection(m CompiledModule) (string, [][]byte, bool) {
	for _, name := range SchemaSectionNames {
		if s := m.CustomSections(name); len(s) > 0 {
			return name, s, true
		}
	}
	return "", nil, false
}

// FindSchema extracts the schema from m. A module without a schema section
// yields (nil, nil).
func FindSchema(m CompiledModule) (*SchemaRpcResult, error) {
	name, sections, ok := findCustomSection(m)
	if !ok {
		return nil, nil
	}
	if len(sections) != 1 {
		return nil, &Error{
			Kind:    AmbiguousSectionError,
			Message: fmt.Sprintf("unexpected size of custom section %q", name),
		}
	}
	return &SchemaRpcResult{
		SectionName: name,
		Schema:      base64.StdEncoding.EncodeToString(sections[0]),
	}, nil
}

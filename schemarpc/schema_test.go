package schemarpc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aesirxio/concordium-dapp-libraries/schemarpc/internal/testutil"
)

func TestFindSchema(t *testing.T) {
	tests := []struct {
		name        string
		sections    []testutil.Section
		wantName    string
		wantPayload []byte
	}{
		{
			name: "v1 wins over v2 and unversioned",
			sections: []testutil.Section{
				{Name: "concordium-schema", Data: []byte{3}},
				{Name: "concordium-schema-v2", Data: []byte{2}},
				{Name: "concordium-schema-v1", Data: []byte{1}},
			},
			wantName:    "concordium-schema-v1",
			wantPayload: []byte{1},
		},
		{
			name: "v2 wins over unversioned",
			sections: []testutil.Section{
				{Name: "concordium-schema", Data: []byte{3}},
				{Name: "concordium-schema-v2", Data: []byte{2, 2}},
			},
			wantName:    "concordium-schema-v2",
			wantPayload: []byte{2, 2},
		},
		{
			name: "unversioned alone",
			sections: []testutil.Section{
				{Name: "producers", Data: []byte("rustc")},
				{Name: "concordium-schema", Data: []byte{0x01, 0x02}},
			},
			wantName:    "concordium-schema",
			wantPayload: []byte{0x01, 0x02},
		},
		{
			name: "empty payload",
			sections: []testutil.Section{
				{Name: "concordium-schema-v1"},
			},
			wantName:    "concordium-schema-v1",
			wantPayload: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := FindSchema(&fakeModule{sections: tt.sections})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result == nil {
				t.Fatal("Expected a schema result")
			}
			if result.SectionName != tt.wantName {
				t.Errorf("Expected section %q, got %q", tt.wantName, result.SectionName)
			}
			decoded, err := result.Decode()
			if err != nil {
				t.Fatalf("Schema is not valid base64: %v", err)
			}
			if !bytes.Equal(decoded, tt.wantPayload) {
				t.Errorf("Expected payload %v, got %v", tt.wantPayload, decoded)
			}
		})
	}
}

func TestFindSchema_NoSchemaSection(t *testing.T) {
	result, err := FindSchema(&fakeModule{sections: []testutil.Section{
		{Name: "concordium-schema-v3", Data: []byte{1}},
		{Name: "name", Data: []byte{0}},
	}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected absent result, got %+v", result)
	}
}

func TestFindSchema_AmbiguousSection(t *testing.T) {
	_, err := FindSchema(&fakeModule{sections: []testutil.Section{
		{Name: "concordium-schema-v2", Data: []byte{1}},
		{Name: "concordium-schema-v2", Data: []byte{2}},
	}})
	if !errors.Is(err, ErrAmbiguousSection) {
		t.Fatalf("Expected ambiguous section error, got %v", err)
	}
	if err.Error() != `unexpected size of custom section "concordium-schema-v2"` {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestFindSchema_AmbiguityOnlyChecksWinningName(t *testing.T) {
	result, err := FindSchema(&fakeModule{sections: []testutil.Section{
		{Name: "concordium-schema-v1", Data: []byte{1}},
		{Name: "concordium-schema", Data: []byte{2}},
		{Name: "concordium-schema", Data: []byte{3}},
	}})
	if err != nil {
		t.Fatalf("Expected later names not to be probed, got %v", err)
	}
	if result.SectionName != "concordium-schema-v1" {
		t.Errorf("Expected v1 section, got %q", result.SectionName)
	}
}

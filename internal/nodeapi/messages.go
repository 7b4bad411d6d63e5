package nodeapi

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// BlockKind selects the block a query is evaluated against.
type BlockKind int

const (
	LastFinal BlockKind = iota
	Best
	Given
)

// Block is a BlockHashInput. Hash is set only for Given.
type Block struct {
	Kind BlockKind
	Hash []byte
}

var errMissingModuleSource = errors.New("versioned module source has no module")

// NewModuleSourceRequest builds a ModuleSourceRequest message.
func NewModuleSourceRequest(ref []byte, block Block) *dynamicpb.Message {
	req := dynamicpb.NewMessage(moduleSourceRequestDesc)
	fields := moduleSourceRequestDesc.Fields()

	blockField := fields.ByName("block_hash")
	input := dynamicpb.NewMessage(blockField.Message())
	var choice protoreflect.FieldDescriptor
	switch block.Kind {
	case Best:
		choice = input.Descriptor().Fields().ByName("best")
		input.Set(choice, protoreflect.ValueOfMessage(dynamicpb.NewMessage(choice.Message())))
	case Given:
		choice = input.Descriptor().Fields().ByName("given")
		input.Set(choice, protoreflect.ValueOfMessage(bytesValue(choice.Message(), block.Hash)))
	default:
		choice = input.Descriptor().Fields().ByName("last_final")
		input.Set(choice, protoreflect.ValueOfMessage(dynamicpb.NewMessage(choice.Message())))
	}
	req.Set(blockField, protoreflect.ValueOfMessage(input))

	refField := fields.ByName("module_ref")
	req.Set(refField, protoreflect.ValueOfMessage(bytesValue(refField.Message(), ref)))
	return req
}

// NewModuleSourceRequestMessage returns an empty ModuleSourceRequest to
// decode into.
func NewModuleSourceRequestMessage() *dynamicpb.Message {
	return dynamicpb.NewMessage(moduleSourceRequestDesc)
}

// ParseModuleSourceRequest reads the module reference and block selection
// from a ModuleSourceRequest.
func ParseModuleSourceRequest(req protoreflect.Message) ([]byte, Block, error) {
	if req.Descriptor().FullName() != moduleSourceRequestDesc.FullName() {
		return nil, Block{}, fmt.Errorf("unexpected message %s", req.Descriptor().FullName())
	}
	fields := req.Descriptor().Fields()
	ref := readBytesValue(req.Get(fields.ByName("module_ref")).Message())

	input := req.Get(fields.ByName("block_hash")).Message()
	block := Block{Kind: LastFinal}
	if choice := input.WhichOneof(input.Descriptor().Oneofs().ByName("block_hash_input")); choice != nil {
		switch choice.Name() {
		case "best":
			block.Kind = Best
		case "given":
			block.Kind = Given
			block.Hash = readBytesValue(input.Get(choice).Message())
		}
	}
	return ref, block, nil
}

// NewVersionedModuleSource builds a VersionedModuleSource holding wasm under
// the given module version (0 or 1).
func NewVersionedModuleSource(version uint32, wasm []byte) (*dynamicpb.Message, error) {
	var name protoreflect.Name
	switch version {
	case 0:
		name = "v0"
	case 1:
		name = "v1"
	default:
		return nil, fmt.Errorf("unsupported module version %d", version)
	}
	msg := dynamicpb.NewMessage(versionedModuleSourceDesc)
	f := versionedModuleSourceDesc.Fields().ByName(name)
	msg.Set(f, protoreflect.ValueOfMessage(bytesValue(f.Message(), wasm)))
	return msg, nil
}

// NewVersionedModuleSourceMessage returns an empty VersionedModuleSource to
// decode into.
func NewVersionedModuleSourceMessage() *dynamicpb.Message {
	return dynamicpb.NewMessage(versionedModuleSourceDesc)
}

// ParseVersionedModuleSource returns the module version and raw wasm held by
// a VersionedModuleSource.
func ParseVersionedModuleSource(msg protoreflect.Message) (uint32, []byte, error) {
	choice := msg.WhichOneof(versionedModuleSourceDesc.Oneofs().ByName("module"))
	if choice == nil {
		return 0, nil, errMissingModuleSource
	}
	wasm := readBytesValue(msg.Get(choice).Message())
	return uint32(choice.Number() - 1), wasm, nil
}

func bytesValue(md protoreflect.MessageDescriptor, b []byte) *dynamicpb.Message {
	m := dynamicpb.NewMessage(md)
	m.Set(md.Fields().ByName("value"), protoreflect.ValueOfBytes(b))
	return m
}

func readBytesValue(m protoreflect.Message) []byte {
	return m.Get(m.Descriptor().Fields().ByName("value")).Bytes()
}

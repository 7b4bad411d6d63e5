// Package nodeapi describes the subset of the Concordium node v2 gRPC API
// used for module source lookups. Message types are built at runtime from a
// file descriptor and handled as dynamicpb messages.
package nodeapi

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	ServiceName           = "concordium.v2.Queries"
	GetModuleSourceMethod = "/" + ServiceName + "/GetModuleSource"

	protoPackage = "concordium.v2"
	fileName     = "concordium/v2/module_source.proto"
)

var (
	fileDescriptor protoreflect.FileDescriptor

	moduleSourceRequestDesc   protoreflect.MessageDescriptor
	versionedModuleSourceDesc protoreflect.MessageDescriptor
)

func init() {
	fd, err := protodesc.NewFile(fileDescriptorProto(), nil)
	if err != nil {
		panic("nodeapi: invalid descriptor: " + err.Error())
	}
	fileDescriptor = fd
	moduleSourceRequestDesc = fd.Messages().ByName("ModuleSourceRequest")
	versionedModuleSourceDesc = fd.Messages().ByName("VersionedModuleSource")
}

// File returns the descriptor of the embedded API subset.
func File() protoreflect.FileDescriptor {
	return fileDescriptor
}

func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(fileName),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: proto.String("Empty")},
			bytesMessage("BlockHash"),
			bytesMessage("ModuleRef"),
			bytesMessage("ModuleSourceV0"),
			bytesMessage("ModuleSourceV1"),
			{
				Name: proto.String("BlockHashInput"),
				Field: []*descriptorpb.FieldDescriptorProto{
					oneofField("best", 1, "Empty", 0),
					oneofField("last_final", 2, "Empty", 0),
					oneofField("given", 3, "BlockHash", 0),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{
					{Name: proto.String("block_hash_input")},
				},
			},
			{
				Name: proto.String("ModuleSourceRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					messageField("block_hash", 1, "BlockHashInput"),
					messageField("module_ref", 2, "ModuleRef"),
				},
			},
			{
				Name: proto.String("VersionedModuleSource"),
				Field: []*descriptorpb.FieldDescriptorProto{
					oneofField("v0", 1, "ModuleSourceV0", 0),
					oneofField("v1", 2, "ModuleSourceV1", 0),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{
					{Name: proto.String("module")},
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("Queries"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       proto.String("GetModuleSource"),
						InputType:  proto.String(typeName("ModuleSourceRequest")),
						OutputType: proto.String(typeName("VersionedModuleSource")),
					},
				},
			},
		},
	}
}

func typeName(msg string) string {
	return "." + protoPackage + "." + msg
}

func bytesMessage(name string) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name: proto.String(name),
		Field: []*descriptorpb.FieldDescriptorProto{
			{
				Name:   proto.String("value"),
				Number: proto.Int32(1),
				Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
				Type:   descriptorpb.FieldDescriptorProto_TYPE_BYTES.Enum(),
			},
		},
	}
}

func messageField(name string, number int32, msg string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String(typeName(msg)),
	}
}

func oneofField(name string, number int32, msg string, oneof int32) *descriptorpb.FieldDescriptorProto {
	f := messageField(name, number, msg)
	f.OneofIndex = proto.Int32(oneof)
	return f
}

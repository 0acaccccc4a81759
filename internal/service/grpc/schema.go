package grpcsvc

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ProtoFile: имя файла дескриптора shop.v1 в protoregistry.GlobalFiles.
const ProtoFile = "shop/v1/order_service.proto"

const protoPackage = "shop.v1"

// orderServiceFile описывает сообщения и сервис shop.v1. Регистрируется в
// protoregistry.GlobalFiles, поэтому server reflection отдаёт его клиентам.
var orderServiceFile protoreflect.FileDescriptor

func init() {
	fd, err := protodesc.NewFile(orderServiceFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("build %s descriptor: %v", ProtoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register %s descriptor: %v", ProtoFile, err))
	}
	orderServiceFile = fd
}

// lookupMessage возвращает дескриптор сообщения shop.v1 по короткому имени.
func lookupMessage(name protoreflect.Name) (protoreflect.MessageDescriptor, error) {
	md := orderServiceFile.Messages().ByName(name)
	if md == nil {
		return nil, fmt.Errorf("message %s.%s is not declared", protoPackage, name)
	}
	return md, nil
}

func orderServiceFileProto() *descriptorpb.FileDescriptorProto {
	timestampFile := timestamppb.File_google_protobuf_timestamp_proto.Path()

	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(ProtoFile),
		Package:    proto.String(protoPackage),
		Syntax:     proto.String("proto3"),
		Dependency: []string{timestampFile},
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/vladislavdragonenkov/shop/internal/service/grpc;grpcsvc"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			message("Customer",
				stringField("id", 1),
				stringField("name", 2),
				stringField("email", 3),
				timestampField("created_at", 4),
			),
			message("Product",
				stringField("id", 1),
				stringField("name", 2),
				int64Field("price_minor", 3),
				int32Field("quantity", 4),
				timestampField("created_at", 5),
				timestampField("updated_at", 6),
			),
			message("OrderItem",
				stringField("id", 1),
				stringField("product_id", 2),
				int64Field("price_minor", 3),
				int32Field("quantity", 4),
			),
			message("Order",
				stringField("id", 1),
				stringField("customer_id", 2),
				messageField("customer", 3, "Customer"),
				int64Field("amount_minor", 4),
				repeatedField("items", 5, "OrderItem"),
				timestampField("created_at", 6),
			),
			message("OrderLine",
				stringField("id", 1),
				int32Field("quantity", 2),
			),
			message("CreateOrderRequest",
				stringField("customer_id", 1),
				repeatedField("products", 2, "OrderLine"),
			),
			message("CreateOrderResponse",
				messageField("order", 1, "Order"),
				boolField("replayed", 2),
			),
			message("GetOrderRequest", stringField("order_id", 1)),
			message("GetOrderResponse", messageField("order", 1, "Order")),
			message("ListOrdersRequest",
				stringField("customer_id", 1),
				int32Field("limit", 2),
			),
			message("ListOrdersResponse", repeatedField("orders", 1, "Order")),
			message("CreateCustomerRequest",
				stringField("name", 1),
				stringField("email", 2),
			),
			message("CreateCustomerResponse", messageField("customer", 1, "Customer")),
			message("CreateProductRequest",
				stringField("name", 1),
				int64Field("price_minor", 2),
				int32Field("quantity", 3),
			),
			message("CreateProductResponse", messageField("product", 1, "Product")),
			message("GetProductRequest", stringField("product_id", 1)),
			message("GetProductResponse", messageField("product", 1, "Product")),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("OrderService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("CreateOrder"),
				method("GetOrder"),
				method("ListOrders"),
				method("CreateCustomer"),
				method("CreateProduct"),
				method("GetProduct"),
			},
		}},
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

// method описывает unary-метод с сообщениями <Name>Request и <Name>Response.
func method(name string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String("." + protoPackage + "." + name + "Request"),
		OutputType: proto.String("." + protoPackage + "." + name + "Response"),
	}
}

func scalarField(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func stringField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_STRING)
}

func int64Field(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_INT64)
}

func int32Field(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_INT32)
}

func boolField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_BOOL)
}

func messageField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String("." + protoPackage + "." + typeName)
	return f
}

func repeatedField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	f := messageField(name, number, typeName)
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

func timestampField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	f := scalarField(name, number, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	f.TypeName = proto.String(".google.protobuf.Timestamp")
	return f
}

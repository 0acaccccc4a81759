package grpcsvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestProtoCodec_IsRegisteredAsDefault(t *testing.T) {
	codec := encoding.GetCodec(CodecName)
	require.NotNil(t, codec)
	require.Equal(t, "proto", codec.Name())

	_, ok := codec.(protoCodec)
	require.True(t, ok, "expected shop codec, got %T", codec)
}

func TestProtoCodec_RoundTripCreateOrder(t *testing.T) {
	codec := protoCodec{}

	data, err := codec.Marshal(&CreateOrderRequest{
		CustomerID: "C1",
		Products:   []OrderLine{{ID: "P1", Quantity: 3}, {ID: "P2", Quantity: 1}},
	})
	require.NoError(t, err)

	var decoded CreateOrderRequest
	require.NoError(t, codec.Unmarshal(data, &decoded))
	require.Equal(t, CreateOrderRequest{
		CustomerID: "C1",
		Products:   []OrderLine{{ID: "P1", Quantity: 3}, {ID: "P2", Quantity: 1}},
	}, decoded)

	created := time.Date(2024, 5, 1, 10, 30, 0, 123, time.UTC)
	resp := &CreateOrderResponse{
		Order: &Order{
			ID:          "O1",
			CustomerID:  "C1",
			Customer:    &Customer{ID: "C1", Name: "Ann", Email: "ann@example.com", CreatedAt: created},
			AmountMinor: 750,
			Items:       []OrderItem{{ID: "I1", ProductID: "P1", PriceMinor: 250, Quantity: 3}},
			CreatedAt:   created,
		},
		Replayed: true,
	}
	data, err = codec.Marshal(resp)
	require.NoError(t, err)

	var decodedResp CreateOrderResponse
	require.NoError(t, codec.Unmarshal(data, &decodedResp))
	require.Equal(t, *resp, decodedResp)
}

func TestProtoCodec_WireFormatIsProtobuf(t *testing.T) {
	data, err := protoCodec{}.Marshal(&GetProductResponse{Product: &Product{ID: "P1", Name: "Pen", PriceMinor: 250, Quantity: 7}})
	require.NoError(t, err)

	md, err := lookupMessage("GetProductResponse")
	require.NoError(t, err)
	msg := dynamicpb.NewMessage(md)
	require.NoError(t, proto.Unmarshal(data, msg))

	product := msg.Get(md.Fields().ByName("product")).Message()
	require.Equal(t, "Pen", product.Get(product.Descriptor().Fields().ByName("name")).String())
	require.Equal(t, int64(7), product.Get(product.Descriptor().Fields().ByName("quantity")).Int())
	require.False(t, product.Has(product.Descriptor().Fields().ByName("created_at")))
}

func TestProtoCodec_EmptyMessages(t *testing.T) {
	codec := protoCodec{}

	var req GetOrderRequest
	require.NoError(t, codec.Unmarshal(nil, &req))
	require.Empty(t, req.OrderID)

	var resp GetOrderResponse
	require.NoError(t, codec.Unmarshal(nil, &resp))
	require.Nil(t, resp.Order)

	var list ListOrdersResponse
	require.NoError(t, codec.Unmarshal(nil, &list))
	require.NotNil(t, list.Orders)
	require.Empty(t, list.Orders)
}

func TestProtoCodec_GeneratedMessagesPassThrough(t *testing.T) {
	codec := protoCodec{}

	data, err := codec.Marshal(wrapperspb.String("health"))
	require.NoError(t, err)

	var decoded wrapperspb.StringValue
	require.NoError(t, codec.Unmarshal(data, &decoded))
	require.Equal(t, "health", decoded.GetValue())
}

func TestProtoCodec_Errors(t *testing.T) {
	codec := protoCodec{}

	_, err := codec.Marshal(struct{ Name string }{Name: "x"})
	require.Error(t, err)

	var unknown struct{}
	require.Error(t, codec.Unmarshal([]byte{0x0a}, &unknown))

	var req CreateOrderRequest
	require.Error(t, codec.Unmarshal([]byte{0xff}, &req))
}

func TestOrderServiceFile_IsRegistered(t *testing.T) {
	fd, err := protoregistry.GlobalFiles.FindFileByPath(ProtoFile)
	require.NoError(t, err)
	require.Equal(t, protoreflect.FullName("shop.v1"), fd.Package())

	desc, err := protoregistry.GlobalFiles.FindDescriptorByName(ServiceName)
	require.NoError(t, err)
	service, ok := desc.(protoreflect.ServiceDescriptor)
	require.True(t, ok)
	require.Equal(t, len(OrderServiceDesc.Methods), service.Methods().Len())

	requests := map[string]wireMessage{
		"CreateOrder":    &CreateOrderRequest{},
		"GetOrder":       &GetOrderRequest{},
		"ListOrders":     &ListOrdersRequest{},
		"CreateCustomer": &CreateCustomerRequest{},
		"CreateProduct":  &CreateProductRequest{},
		"GetProduct":     &GetProductRequest{},
	}
	for _, m := range OrderServiceDesc.Methods {
		method := service.Methods().ByName(protoreflect.Name(m.MethodName))
		require.NotNil(t, method, m.MethodName)
		require.Equal(t, requests[m.MethodName].protoName(), method.Input().Name())
	}
}

func TestLookupMessage_Unknown(t *testing.T) {
	_, err := lookupMessage("Payment")
	require.Error(t, err)
}

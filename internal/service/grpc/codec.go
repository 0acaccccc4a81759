package grpcsvc

import (
	"fmt"
	"time"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// CodecName: content-subtype кодека. Совпадает со стандартным proto-кодеком grpc,
// поэтому клиенты без сгенерированного кода (grpcurl, ghz) работают через reflection.
const CodecName = "proto"

func init() {
	encoding.RegisterCodec(protoCodec{})
}

// wireMessage реализуют сообщения shop.v1: они переносят поля в dynamicpb-сообщение
// по дескриптору из orderServiceFile и обратно.
type wireMessage interface {
	protoName() protoreflect.Name
	writeProto(w protoWriter)
	readProto(r protoReader)
}

// protoCodec кодирует сообщения shop.v1 через dynamicpb, остальные proto.Message
// (health, reflection) как стандартный кодек.
type protoCodec struct{}

func (protoCodec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case wireMessage:
		msg, err := toDynamic(m)
		if err != nil {
			return nil, err
		}
		data, err := proto.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("proto codec marshal %T: %w", v, err)
		}
		return data, nil
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("proto codec: unsupported message type %T", v)
	}
}

func (protoCodec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case wireMessage:
		md, err := lookupMessage(m.protoName())
		if err != nil {
			return err
		}
		msg := dynamicpb.NewMessage(md)
		if err := proto.Unmarshal(data, msg); err != nil {
			return fmt.Errorf("proto codec unmarshal %T: %w", v, err)
		}
		m.readProto(protoReader{msg: msg})
		return nil
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("proto codec: unsupported message type %T", v)
	}
}

func (protoCodec) Name() string {
	return CodecName
}

func toDynamic(m wireMessage) (*dynamicpb.Message, error) {
	md, err := lookupMessage(m.protoName())
	if err != nil {
		return nil, err
	}
	msg := dynamicpb.NewMessage(md)
	m.writeProto(protoWriter{msg: msg})
	return msg, nil
}

// protoWriter заполняет dynamicpb-сообщение по именам полей.
// Неизвестное имя поля означает расхождение со схемой и приводит к панике.
type protoWriter struct {
	msg *dynamicpb.Message
}

func (w protoWriter) field(name protoreflect.Name) protoreflect.FieldDescriptor {
	return mustField(w.msg.Descriptor(), name)
}

func (w protoWriter) setString(name protoreflect.Name, v string) {
	w.msg.Set(w.field(name), protoreflect.ValueOfString(v))
}

func (w protoWriter) setInt64(name protoreflect.Name, v int64) {
	w.msg.Set(w.field(name), protoreflect.ValueOfInt64(v))
}

func (w protoWriter) setInt32(name protoreflect.Name, v int32) {
	w.msg.Set(w.field(name), protoreflect.ValueOfInt32(v))
}

func (w protoWriter) setBool(name protoreflect.Name, v bool) {
	w.msg.Set(w.field(name), protoreflect.ValueOfBool(v))
}

// setTime пишет google.protobuf.Timestamp; нулевое время оставляет поле пустым.
func (w protoWriter) setTime(name protoreflect.Name, t time.Time) {
	if t.IsZero() {
		return
	}
	fd := w.field(name)
	ts := timestamppb.New(t)
	child := protoWriter{msg: dynamicpb.NewMessage(fd.Message())}
	child.setInt64("seconds", ts.GetSeconds())
	child.setInt32("nanos", ts.GetNanos())
	w.msg.Set(fd, protoreflect.ValueOfMessage(child.msg))
}

func (w protoWriter) setMessage(name protoreflect.Name, m wireMessage) {
	fd := w.field(name)
	child := protoWriter{msg: dynamicpb.NewMessage(fd.Message())}
	m.writeProto(child)
	w.msg.Set(fd, protoreflect.ValueOfMessage(child.msg))
}

func (w protoWriter) appendMessage(name protoreflect.Name, m wireMessage) {
	fd := w.field(name)
	child := protoWriter{msg: dynamicpb.NewMessage(fd.Message())}
	m.writeProto(child)
	w.msg.Mutable(fd).List().Append(protoreflect.ValueOfMessage(child.msg))
}

// protoReader читает поля декодированного сообщения.
type protoReader struct {
	msg protoreflect.Message
}

func (r protoReader) field(name protoreflect.Name) protoreflect.FieldDescriptor {
	return mustField(r.msg.Descriptor(), name)
}

func (r protoReader) getString(name protoreflect.Name) string {
	return r.msg.Get(r.field(name)).String()
}

func (r protoReader) getInt64(name protoreflect.Name) int64 {
	return r.msg.Get(r.field(name)).Int()
}

func (r protoReader) getInt32(name protoreflect.Name) int32 {
	return int32(r.msg.Get(r.field(name)).Int())
}

func (r protoReader) getBool(name protoreflect.Name) bool {
	return r.msg.Get(r.field(name)).Bool()
}

func (r protoReader) getTime(name protoreflect.Name) time.Time {
	ts, ok := r.message(name)
	if !ok {
		return time.Time{}
	}
	return (&timestamppb.Timestamp{Seconds: ts.getInt64("seconds"), Nanos: ts.getInt32("nanos")}).AsTime()
}

// message возвращает вложенное сообщение, если поле заполнено.
func (r protoReader) message(name protoreflect.Name) (protoReader, bool) {
	fd := r.field(name)
	if !r.msg.Has(fd) {
		return protoReader{}, false
	}
	return protoReader{msg: r.msg.Get(fd).Message()}, true
}

func (r protoReader) each(name protoreflect.Name, fn func(protoReader)) {
	list := r.msg.Get(r.field(name)).List()
	for i := 0; i < list.Len(); i++ {
		fn(protoReader{msg: list.Get(i).Message()})
	}
}

func mustField(md protoreflect.MessageDescriptor, name protoreflect.Name) protoreflect.FieldDescriptor {
	fd := md.Fields().ByName(name)
	if fd == nil {
		panic(fmt.Sprintf("%s has no field %s", md.FullName(), name))
	}
	return fd
}

package server

import (
	"context"
	"errors"
	"time"

	"github.com/knoguchi/editorialbot/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// EditorialServiceName is the fully qualified gRPC service name.
	EditorialServiceName = "editorial.v1.EditorialService"

	// AskMethod answers a question.
	AskMethod = "/" + EditorialServiceName + "/Ask"

	// RetrieveMethod returns the shortlist for a question.
	RetrieveMethod = "/" + EditorialServiceName + "/Retrieve"
)

// QA is the question answering service exposed over gRPC.
type QA interface {
	Ask(ctx context.Context, req service.AskRequest) (*service.Answer, error)
	Retrieve(ctx context.Context, req service.RetrieveRequest) ([]service.Source, error)
	Ready(ctx context.Context) error
}

// EditorialServer is the server API for EditorialService. Messages are
// google.protobuf.Struct values with the fields documented on each method.
type EditorialServer interface {
	// Ask takes {question, top_k} and returns
	// {answer, model, unformatted, sources, metadata}.
	Ask(context.Context, *structpb.Struct) (*structpb.Struct, error)

	// Retrieve takes {question, top_k} and returns {sources}.
	Retrieve(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var editorialServiceDesc = grpc.ServiceDesc{
	ServiceName: EditorialServiceName,
	HandlerType: (*EditorialServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ask", Handler: askHandler},
		{MethodName: "Retrieve", Handler: retrieveHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "editorial/v1/editorial.proto",
}

// RegisterEditorialServer registers srv on s.
func RegisterEditorialServer(s grpc.ServiceRegistrar, srv EditorialServer) {
	s.RegisterService(&editorialServiceDesc, srv)
}

func askHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EditorialServer).Ask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AskMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EditorialServer).Ask(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func retrieveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EditorialServer).Retrieve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RetrieveMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EditorialServer).Retrieve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// editorialHandler adapts QA to EditorialServer.
type editorialHandler struct {
	qa QA
}

func (h *editorialHandler) Ask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	question, topK := questionFields(in)
	ans, err := h.qa.Ask(ctx, service.AskRequest{Question: question, TopK: topK})
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := answerToStruct(ans)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode answer: %v", err)
	}
	return out, nil
}

func (h *editorialHandler) Retrieve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	question, topK := questionFields(in)
	sources, err := h.qa.Retrieve(ctx, service.RetrieveRequest{Question: question, TopK: topK})
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]interface{}{"sources": sourcesToList(sources)})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode sources: %v", err)
	}
	return out, nil
}

// toStatus maps service errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrUpstream):
		return status.Error(codes.Unavailable, service.ErrUpstream.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}

func questionFields(in *structpb.Struct) (string, int) {
	fields := in.GetFields()
	return fields["question"].GetStringValue(), int(fields["top_k"].GetNumberValue())
}

func answerToStruct(a *service.Answer) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"answer":      a.Text,
		"model":       a.Model,
		"unformatted": a.Unformatted,
		"sources":     sourcesToList(a.Sources),
		"metadata": map[string]interface{}{
			"retrieval_time_ms":  a.RetrievalTime.Milliseconds(),
			"generation_time_ms": a.GenerationTime.Milliseconds(),
		},
	})
}

func answerFromStruct(s *structpb.Struct) *service.Answer {
	fields := s.GetFields()
	meta := fields["metadata"].GetStructValue().GetFields()
	return &service.Answer{
		Text:           fields["answer"].GetStringValue(),
		Model:          fields["model"].GetStringValue(),
		Unformatted:    fields["unformatted"].GetBoolValue(),
		Sources:        sourcesFromList(fields["sources"].GetListValue()),
		RetrievalTime:  time.Duration(meta["retrieval_time_ms"].GetNumberValue()) * time.Millisecond,
		GenerationTime: time.Duration(meta["generation_time_ms"].GetNumberValue()) * time.Millisecond,
	}
}

func sourcesToList(sources []service.Source) []interface{} {
	list := make([]interface{}, len(sources))
	for i, src := range sources {
		list[i] = map[string]interface{}{
			"position": src.Position,
			"title":    src.Title,
			"url":      src.URL,
			"overlap":  src.Overlap,
		}
	}
	return list
}

func sourcesFromList(list *structpb.ListValue) []service.Source {
	values := list.GetValues()
	sources := make([]service.Source, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		sources = append(sources, service.Source{
			Position: int(f["position"].GetNumberValue()),
			Title:    f["title"].GetStringValue(),
			URL:      f["url"].GetStringValue(),
			Overlap:  int(f["overlap"].GetNumberValue()),
		})
	}
	return sources
}

package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies one API call across logs, spans and stored assessments.
type TraceData struct {
	TraceID   string
	RequestID string
	ActorID   string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// TraceID returns the request trace id carried by ctx, or "".
func TraceID(ctx context.Context) string {
	if td := GetTraceData(ctx); td != nil {
		return td.TraceID
	}
	return ""
}

// ActorID returns the caller recorded on ctx, or "".
func ActorID(ctx context.Context) string {
	if td := GetTraceData(ctx); td != nil {
		return td.ActorID
	}
	return ""
}

package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Risk grades a security event.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Level maps a risk grade onto the log level it is reported at.
func (r Risk) Level() zapcore.Level {
	switch r {
	case RiskHigh:
		return zapcore.ErrorLevel
	case RiskMedium:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// Event is the canonical security event model used by internal dispatching and root APIs.
// IP is a truncated hash of the client address, never the address itself.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Event     string            `json:"event"`
	Risk      Risk              `json:"riskLevel"`
	UserID    string            `json:"userId,omitempty"`
	Email     string            `json:"email,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"userAgent,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted security events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops security events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes security events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// ZapSink logs each event as "Security: <event>" at the level of its risk.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("security")}
}

func (s *ZapSink) Emit(ctx context.Context, event Event) {
	if s == nil {
		return
	}
	fields := []zap.Field{
		zap.String("operation", "security"),
		zap.String("event", event.Event),
		zap.String("riskLevel", string(event.Risk)),
		zap.Time("eventTime", event.Timestamp),
		zap.Bool("audit", true),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("userId", event.UserID))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ipHash", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("userAgent", event.UserAgent))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("requestId", event.RequestID))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	if ce := s.logger.Check(event.Risk.Level(), "Security: "+event.Event); ce != nil {
		ce.Write(fields...)
	}
}

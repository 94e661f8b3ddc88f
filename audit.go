package careauth

import (
	"io"

	"github.com/MrEthical07/careauth/internal/audit"
	"go.uber.org/zap"
)

// SecurityEvent is one entry of the security log.
type SecurityEvent = audit.Event

// RiskLevel grades a security event: low, medium or high.
type RiskLevel = audit.Risk

const (
	RiskLow    = audit.RiskLow
	RiskMedium = audit.RiskMedium
	RiskHigh   = audit.RiskHigh
)

// SecuritySink receives security events from the engine's dispatcher.
type SecuritySink = audit.Sink

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

type ZapSink = audit.ZapSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewZapSink logs events under the "security" logger at info, warn or error
// according to their risk.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return audit.NewZapSink(logger)
}

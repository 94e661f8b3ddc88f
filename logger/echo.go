package logger

import (
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const startTimeKey = "request-start-time"

// NewEchoRequestLogger logs one line per request. Health and metrics probes
// are skipped; bearer tokens are masked.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || p == "/metrics"
		},
		BeforeNextFunc: func(c echo.Context) {
			c.Set(startTimeKey, time.Now())
		},
		HandleError:      true,
		LogLatency:       true,
		LogProtocol:      true,
		LogRemoteIP:      true,
		LogHost:          true,
		LogMethod:        true,
		LogURI:           true,
		LogURIPath:       true,
		LogRoutePath:     true,
		LogRequestID:     true,
		LogUserAgent:     true,
		LogStatus:        true,
		LogError:         true,
		LogContentLength: true,
		LogResponseSize:  true,
		LogHeaders:       []string{"Content-Type", "Authorization"},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.host", v.Host),
				zap.String("request.protocol", v.Protocol),
				zap.String("request.method", v.Method),
				zap.String("request.uri", v.URI),
				zap.String("request.path", v.URIPath),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.String("request.request_id", v.RequestID),
				zap.String("request.content_length", v.ContentLength),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
				zap.Int64("response.response_size", v.ResponseSize),
			}
			if start, ok := c.Get(startTimeKey).(time.Time); ok {
				fields = append(fields, zap.Duration("response.elapsed_since_before_next", time.Since(start)))
			}
			if len(v.Headers) > 0 {
				headers := make(map[string]string, len(v.Headers))
				for k, values := range v.Headers {
					if len(values) == 0 {
						continue
					}
					if k == "Authorization" {
						headers[k] = MaskAuthorization(values[0])
						continue
					}
					headers[k] = values[0]
				}
				fields = append(fields, zap.Any("request.headers", headers))
			}

			switch {
			case v.Error != nil:
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
			case v.Status >= 500:
				logger.Error("Server error", fields...)
			case v.Status >= 400:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	})
}

// MaskAuthorization keeps only the scheme and a short token prefix and suffix.
func MaskAuthorization(value string) string {
	if len(value) <= 15 {
		return "[MASKED]"
	}
	return value[:10] + "..." + value[len(value)-5:]
}

// EchoLogger implements echo.Logger on top of zap. Level, prefix and output
// changes requested through echo are ignored; zap's configuration wins.
type EchoLogger struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewEchoLogger wraps logger for assignment to echo.Echo.Logger.
func NewEchoLogger(logger *zap.Logger) *EchoLogger {
	return &EchoLogger{logger: logger, sugar: logger.Sugar()}
}

func (l *EchoLogger) Output() io.Writer       { return zapWriter{l.logger} }
func (l *EchoLogger) SetOutput(io.Writer)     {}
func (l *EchoLogger) Prefix() string          { return "" }
func (l *EchoLogger) SetPrefix(string)        {}
func (l *EchoLogger) SetHeader(string)        {}
func (l *EchoLogger) SetLevel(log.Lvl)        {}
func (l *EchoLogger) Print(i ...interface{})  { l.sugar.Info(i...) }
func (l *EchoLogger) Debug(i ...interface{})  { l.sugar.Debug(i...) }
func (l *EchoLogger) Info(i ...interface{})   { l.sugar.Info(i...) }
func (l *EchoLogger) Warn(i ...interface{})   { l.sugar.Warn(i...) }
func (l *EchoLogger) Error(i ...interface{})  { l.sugar.Error(i...) }
func (l *EchoLogger) Fatal(i ...interface{})  { l.sugar.Fatal(i...) }
func (l *EchoLogger) Panic(i ...interface{})  { l.sugar.Panic(i...) }
func (l *EchoLogger) Printj(j log.JSON)       { l.logger.Info("json_message", zap.Any("json", j)) }
func (l *EchoLogger) Debugj(j log.JSON)       { l.logger.Debug("json_message", zap.Any("json", j)) }
func (l *EchoLogger) Infoj(j log.JSON)        { l.logger.Info("json_message", zap.Any("json", j)) }
func (l *EchoLogger) Warnj(j log.JSON)        { l.logger.Warn("json_message", zap.Any("json", j)) }
func (l *EchoLogger) Errorj(j log.JSON)       { l.logger.Error("json_message", zap.Any("json", j)) }
func (l *EchoLogger) Fatalj(j log.JSON)       { l.logger.Fatal("json_message", zap.Any("json", j)) }
func (l *EchoLogger) Panicj(j log.JSON)       { l.logger.Panic("json_message", zap.Any("json", j)) }

func (l *EchoLogger) Printf(format string, args ...interface{}) { l.sugar.Infof(format, args...) }
func (l *EchoLogger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *EchoLogger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *EchoLogger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *EchoLogger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }
func (l *EchoLogger) Fatalf(format string, args ...interface{}) { l.sugar.Fatalf(format, args...) }
func (l *EchoLogger) Panicf(format string, args ...interface{}) { l.sugar.Panicf(format, args...) }

// Level reports the lowest level the underlying core accepts.
func (l *EchoLogger) Level() log.Lvl {
	switch {
	case l.logger.Core().Enabled(zapcore.DebugLevel):
		return log.DEBUG
	case l.logger.Core().Enabled(zapcore.InfoLevel):
		return log.INFO
	case l.logger.Core().Enabled(zapcore.WarnLevel):
		return log.WARN
	case l.logger.Core().Enabled(zapcore.ErrorLevel):
		return log.ERROR
	default:
		return log.OFF
	}
}

type zapWriter struct {
	logger *zap.Logger
}

func (w zapWriter) Write(p []byte) (int, error) {
	w.logger.Info(string(p))
	return len(p), nil
}

var _ echo.Logger = (*EchoLogger)(nil)

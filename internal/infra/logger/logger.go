package logger

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey stores the request identifier on a context.
type RequestIDKey struct{}

var (
	global *zap.Logger
	once   sync.Once
)

// New builds the process-wide logger. Production gets the JSON encoder,
// anything else the colored console encoder. Later calls return the logger
// built first.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		global, err = cfg.Build()
	})
	return global, err
}

// WithContext returns the global logger annotated with the request id when
// the context carries one.
func WithContext(ctx context.Context) *zap.Logger {
	if global == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	if ctx == nil {
		return global
	}
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		return global.With(zap.String("request_id", id))
	}
	return global
}

// MaskEmail keeps up to three characters of the local part and the full
// domain: john.doe@example.com becomes joh***@example.com.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***"
	}
	local := email[:at]
	if len(local) > 3 {
		local = local[:3]
	}
	return local + "***" + email[at:]
}

// MaskIP hides the host portion of an address: the first two octets survive
// for IPv4, the first four groups for IPv6.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}
	if v4 := net.ParseIP(ip).To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.*.*", v4[0], v4[1])
	}
	if groups := strings.Split(ip, ":"); len(groups) >= 4 {
		return strings.Join(groups[:4], ":") + ":*:*:*:*"
	}
	return "***"
}

// MaskString keeps the first and last two characters of an opaque secret.
func MaskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}

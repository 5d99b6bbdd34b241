package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// allowedPrefixes are the span attribute namespaces loctrack emits.
var allowedPrefixes = []string{
	"loctrack.",
	"error.",
	"run.",
	"repo.",
	"vcs.",
	"store.",
	"backfill.",
	"counter.",
}

// blockedPrefixes are stripped even under an allowed namespace.
var blockedPrefixes = []string{
	"user.",
	"auth.",
}

// blockedSuffixes catch credentials nested in an allowed namespace,
// like vcs.token.
var blockedSuffixes = []string{
	"token",
	"password",
	"email",
}

type verdict int

const (
	verdictDrop verdict = iota
	verdictBlocked
	verdictKeep
)

func classify(key string) verdict {
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return verdictBlocked
		}
	}

	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(key, suffix) {
			return verdictBlocked
		}
	}

	if key == "error" {
		return verdictKeep
	}

	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return verdictKeep
		}
	}

	return verdictDrop
}

// attributeFilter is a SpanProcessor that strips credentials and unknown
// keys, and redacts URL userinfo, before spans reach the exporter.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
}

// NewAttributeFilter wraps delegate so that exported spans only carry
// loctrack attribute namespaces. Credential keys are stripped, and string
// values and the status description go through RedactURL. A non-nil logger
// is told about every removed key.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger}
}

// OnStart delegates to the wrapped processor.
func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands a filtered view of s to the wrapped processor.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, filter: f})
}

// Shutdown delegates to the wrapped processor.
func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

// ForceFlush delegates to the wrapped processor.
func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) filter(attrs []attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))

	for _, kv := range attrs {
		key := string(kv.Key)

		switch classify(key) {
		case verdictBlocked:
			if f.logger != nil {
				f.logger.Warn("attribute blocked by filter", "key", key)
			}

			continue
		case verdictDrop:
			if f.logger != nil {
				f.logger.Debug("attribute outside loctrack namespaces dropped", "key", key)
			}

			continue
		case verdictKeep:
		}

		if kv.Value.Type() == attribute.STRING {
			kv = kv.Key.String(RedactURL(kv.Value.AsString()))
		}

		out = append(out, kv)
	}

	return out
}

// filteredSpan is a ReadOnlySpan view with filtered attributes.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	filter *attributeFilter
}

// Attributes returns the kept, redacted attributes.
func (s *filteredSpan) Attributes() []attribute.KeyValue {
	return s.filter.filter(s.ReadOnlySpan.Attributes())
}

// Status returns the span status with a redacted description.
func (s *filteredSpan) Status() sdktrace.Status {
	st := s.ReadOnlySpan.Status()
	st.Description = RedactURL(st.Description)

	return st
}

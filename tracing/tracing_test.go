package tracing

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func clearTracingEnv() {
	_ = os.Unsetenv("OTEL_ENVIRONMENT")
	_ = os.Unsetenv("OTEL_ENABLED")
	_ = os.Unsetenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = os.Unsetenv("OTEL_TRACES_SAMPLER_ARG")
}

func TestDefaultConfig(t *testing.T) {
	clearTracingEnv()

	cfg := DefaultConfig()

	if cfg.ServiceName != "wikibase-api-mcp-server" {
		t.Errorf("Expected ServiceName 'wikibase-api-mcp-server', got %q", cfg.ServiceName)
	}
	if cfg.Environment != "development" {
		t.Errorf("Expected Environment 'development', got %q", cfg.Environment)
	}
	if cfg.Enabled {
		t.Error("Expected Enabled to be false by default")
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("Expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultConfig_WithEnvVars(t *testing.T) {
	_ = os.Setenv("OTEL_ENVIRONMENT", "ci")
	_ = os.Setenv("OTEL_ENABLED", "true")
	_ = os.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	defer clearTracingEnv()

	cfg := DefaultConfig()

	if cfg.Environment != "ci" {
		t.Errorf("Expected Environment 'ci', got %q", cfg.Environment)
	}
	if !cfg.Enabled {
		t.Error("Expected Enabled to be true")
	}
	if cfg.SampleRate != 0.25 {
		t.Errorf("Expected SampleRate 0.25, got %f", cfg.SampleRate)
	}
}

func TestDefaultConfig_EnabledByEndpoint(t *testing.T) {
	clearTracingEnv()
	_ = os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	defer clearTracingEnv()

	cfg := DefaultConfig()

	if !cfg.Enabled {
		t.Error("Expected Enabled to be true when OTLP endpoint is set")
	}
	if cfg.OTLPEndpoint != "localhost:4318" {
		t.Errorf("Expected OTLPEndpoint 'localhost:4318', got %q", cfg.OTLPEndpoint)
	}
}

func TestSampleRateFromEnv_Invalid(t *testing.T) {
	_ = os.Setenv("OTEL_TRACES_SAMPLER_ARG", "half")
	defer clearTracingEnv()

	if got := sampleRateFromEnv(); got != 1.0 {
		t.Errorf("Expected fallback 1.0, got %f", got)
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestSetup_EnabledWithStdout(t *testing.T) {
	cfg := Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		Enabled:        true,
		SampleRate:     1.0,
	}

	shutdown, err := Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if Tracer() == nil {
		t.Error("Expected tracer to be non-nil")
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{"always sample", 1.0, "AlwaysOnSampler"},
		{"above 1.0", 1.5, "AlwaysOnSampler"},
		{"never sample", 0.0, "AlwaysOffSampler"},
		{"below 0.0", -0.5, "AlwaysOffSampler"},
		{"ratio sample", 0.5, "TraceIDRatioBased{0.5}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newSampler(tt.rate).Description(); got != tt.want {
				t.Errorf("Expected sampler %q, got %q", tt.want, got)
			}
		})
	}
}

func recordSpan(t *testing.T, fn func(tp *sdktrace.TracerProvider)) tracetest.SpanStub {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	fn(tp)
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 ended span, got %d", len(spans))
	}
	return tracetest.SpanStubFromReadOnlySpan(spans[0])
}

func hasAttr(attrs []attribute.KeyValue, key, value string) bool {
	for _, kv := range attrs {
		if string(kv.Key) == key && kv.Value.AsString() == value {
			return true
		}
	}
	return false
}

func TestAddWikibaseAttributes(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		entityID string
		wantID   bool
	}{
		{"with entity", "wbgetentities", "Q42", true},
		{"without entity", "wbeditentity", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := recordSpan(t, func(tp *sdktrace.TracerProvider) {
				_, span := tp.Tracer("test").Start(context.Background(), "op")
				AddWikibaseAttributes(span, tt.action, tt.entityID)
				span.End()
			})

			if !hasAttr(stub.Attributes, "wikibase.api.action", tt.action) {
				t.Errorf("Expected action attribute %q", tt.action)
			}
			if got := hasAttr(stub.Attributes, "wikibase.entity.id", tt.entityID); got != tt.wantID {
				t.Errorf("entity attribute present = %v, want %v", got, tt.wantID)
			}
		})
	}
}

func TestAddToolAttributes(t *testing.T) {
	stub := recordSpan(t, func(tp *sdktrace.TracerProvider) {
		_, span := tp.Tracer("test").Start(context.Background(), "tool")
		AddToolAttributes(span, "wikibase_get_property", "read")
		span.End()
	})

	if !hasAttr(stub.Attributes, "mcp.tool.name", "wikibase_get_property") {
		t.Error("Expected mcp.tool.name attribute")
	}
	if !hasAttr(stub.Attributes, "mcp.tool.category", "read") {
		t.Error("Expected mcp.tool.category attribute")
	}
}

func TestRecordError(t *testing.T) {
	stub := recordSpan(t, func(tp *sdktrace.TracerProvider) {
		_, span := tp.Tracer("test").Start(context.Background(), "failing")
		RecordError(span, nil)
		RecordError(span, errors.New("permission denied"))
		span.End()
	})

	if stub.Status.Code != codes.Error {
		t.Errorf("Expected error status, got %v", stub.Status.Code)
	}
	if len(stub.Events) != 1 {
		t.Errorf("Expected 1 exception event, got %d", len(stub.Events))
	}
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test-span")
	defer span.End()

	if ctx == nil {
		t.Error("Expected context to be non-nil")
	}
	if span == nil {
		t.Error("Expected span to be non-nil")
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		envKey       string
		envValue     string
		defaultValue string
		expected     string
		setEnv       bool
	}{
		{"env set", "TEST_GET_ENV_KEY", "custom-value", "default-value", "custom-value", true},
		{"env not set", "TEST_GET_ENV_KEY_UNSET", "", "default-value", "default-value", false},
		{"env empty", "TEST_GET_ENV_KEY_EMPTY", "", "default-value", "default-value", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				_ = os.Setenv(tt.envKey, tt.envValue)
				defer func() { _ = os.Unsetenv(tt.envKey) }()
			}

			if result := getEnvOrDefault(tt.envKey, tt.defaultValue); result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestTracerName(t *testing.T) {
	if TracerName != "wikibase-api-mcp-server" {
		t.Errorf("Expected TracerName 'wikibase-api-mcp-server', got %q", TracerName)
	}
}

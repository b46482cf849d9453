package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/repolens/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig(), nil)
	require.NoError(t, err)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	tel, err := New(context.Background(), &Config{Enabled: true}, nil)
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestNew_EnabledHTTP(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Protocol = "http/protobuf"
	cfg.Endpoint = "http://127.0.0.1:4318"
	cfg.ShutdownTimeout = 100 * time.Millisecond

	// exporters connect lazily, so construction succeeds without a collector
	tel, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())
	assert.False(t, tel.Health().Degraded)

	_ = tel.Shutdown(context.Background())
	assert.False(t, tel.Health().Healthy)
}

func TestNilTelemetry(t *testing.T) {
	var tel *Telemetry

	assert.NotNil(t, tel.Tracer("x"))
	assert.NotNil(t, tel.Meter("x"))
	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Degraded: true}, tel.Health())
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"disabled skips checks", func(c *Config) { c.Endpoint = "" }, ""},
		{"local grpc", func(c *Config) { c.Enabled = true }, ""},
		{"missing endpoint", func(c *Config) { c.Enabled = true; c.Endpoint = "" }, "endpoint is required"},
		{"bad protocol", func(c *Config) { c.Enabled = true; c.Protocol = "udp" }, "protocol must be"},
		{"remote insecure", func(c *Config) { c.Enabled = true; c.Endpoint = "otel.example.com:4317" }, "insecure connections"},
		{"remote tls", func(c *Config) { c.Enabled = true; c.Endpoint = "otel.example.com:4317"; c.Insecure = false }, ""},
		{"ipv6 loopback", func(c *Config) { c.Enabled = true; c.Endpoint = "[::1]:4317" }, ""},
		{"sampling range", func(c *Config) { c.Enabled = true; c.SamplingRate = 1.5 }, "sampling rate"},
		{"export interval", func(c *Config) { c.Enabled = true; c.ExportInterval = 0 }, "export interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.TelemetryConfig{
		Enabled:  true,
		Endpoint: "collector:4318",
		Protocol: "http/protobuf",
	})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.Equal(t, "http/protobuf", cfg.Protocol)
	assert.Equal(t, "repolens", cfg.ServiceName)
	assert.False(t, cfg.Insecure)
}

func TestNewResource(t *testing.T) {
	res := newResource(NewDefaultConfig())

	v, ok := res.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "repolens", v.AsString())
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "host:4318", stripScheme("https://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("http://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("host:4318"))
}

func TestTestTelemetry(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	_, span := tt.Tracer("test").Start(ctx, "index")
	span.SetAttributes(attribute.String("repo", "demo"), attribute.Int("documents", 2))
	span.End()

	tt.AssertSpanExists(t, "index")
	tt.AssertSpanAttribute(t, "index", "repo", "demo")
	tt.AssertSpanAttribute(t, "index", "documents", int64(2))

	counter, err := tt.Meter("test").Int64Counter("repolens.test.count")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	rm, err := tt.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, "repolens.test.count", rm.ScopeMetrics[0].Metrics[0].Name)
}

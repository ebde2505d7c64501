package instrumentation

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	// Clear environment to get defaults
	os.Unsetenv("OTEL_SERVICE_NAME")
	os.Unsetenv("INSTRUMENTATION_ENABLED")
	os.Unsetenv("METRICS_DETAILED_LABELS")

	config := DefaultConfig()

	if config.ServiceName != "mailbridge" {
		t.Errorf("expected ServiceName 'mailbridge', got %q", config.ServiceName)
	}

	if !config.Enabled {
		t.Error("expected Enabled to be true by default")
	}

	if config.PrometheusEndpoint != "/metrics" {
		t.Errorf("expected PrometheusEndpoint '/metrics', got %q", config.PrometheusEndpoint)
	}

	if config.DetailedLabels {
		t.Error("expected DetailedLabels to be false by default")
	}
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	os.Setenv("OTEL_SERVICE_NAME", "test-service")
	os.Setenv("INSTRUMENTATION_ENABLED", "false")
	os.Setenv("METRICS_DETAILED_LABELS", "true")

	defer func() {
		os.Unsetenv("OTEL_SERVICE_NAME")
		os.Unsetenv("INSTRUMENTATION_ENABLED")
		os.Unsetenv("METRICS_DETAILED_LABELS")
	}()

	config := DefaultConfig()

	if config.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %q", config.ServiceName)
	}

	if config.Enabled {
		t.Error("expected Enabled to be false")
	}

	if !config.DetailedLabels {
		t.Error("expected DetailedLabels to be true")
	}
}

func TestDefaultConfig_InvalidBoolEnv(t *testing.T) {
	os.Setenv("INSTRUMENTATION_ENABLED", "not-a-bool")
	defer os.Unsetenv("INSTRUMENTATION_ENABLED")

	config := DefaultConfig()
	if !config.Enabled {
		t.Error("expected invalid boolean to fall back to default true")
	}
}

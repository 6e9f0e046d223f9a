package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

func serviceName(t *testing.T) string {
	t.Helper()
	require.NotNil(t, engineResource)
	for _, attr := range engineResource.Attributes() {
		if attr.Key == semconv.ServiceNameKey {
			return attr.Value.AsString()
		}
	}
	t.Fatal("resource carries no service.name attribute")
	return ""
}

func TestInitUsesConfiguredServiceName(t *testing.T) {
	ResetForTesting()
	cleanup, err := Init(Config{ServiceName: "matchbook-test"})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "matchbook-test", serviceName(t))
}

func TestInitDefaultServiceName(t *testing.T) {
	ResetForTesting()
	cleanup, err := Init(Config{})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, ServiceMatchingEngine, serviceName(t))
}

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

type recipientErr struct{}

func (recipientErr) Error() string                { return "nobody to send to" }
func (recipientErr) ErrorCategory() ErrorCategory { return CategoryRecipient }

func TestBuildDefaults(t *testing.T) {
	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuilderSetsFields(t *testing.T) {
	ee := Newf("smtp port %d refused", 587).
		Component("notification").
		Category(CategoryNetwork).
		Context("provider", "email").
		Build()

	assert.Equal(t, "notification", ee.Component)
	assert.Equal(t, CategoryNetwork, ee.Category)
	assert.Equal(t, map[string]any{"provider": "email"}, ee.GetContext())
	assert.True(t, IsCategory(ee, CategoryNetwork))
	assert.False(t, IsCategory(ee, CategoryValidation))
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCategory
	}{
		{recipientErr{}, CategoryRecipient},
		{fmt.Errorf("context deadline exceeded"), CategoryTimeout},
		{fmt.Errorf("dial tcp: connection refused"), CategoryNetwork},
		{fmt.Errorf("invalid smtp port"), CategoryValidation},
		{fmt.Errorf("settings record not found"), CategoryNotFound},
		{fmt.Errorf("boom"), CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.err).Build().Category)
		})
	}
}

func TestUnwrapAndIs(t *testing.T) {
	base := NewStd("base")
	ee := New(fmt.Errorf("wrapped: %w", base)).Build()

	assert.ErrorIs(t, ee, base)
	require.NotNil(t, Unwrap(ee))
}

func TestTelemetryReporterReceivesErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(fmt.Errorf("reported")).Component("datastore").Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
}

func TestBasicURLScrub(t *testing.T) {
	scrubbed := basicURLScrub("Error at https://api.example.com?api_key=secret123&token=abc")
	assert.Equal(t, "Error at https://api.example.com?[REDACTED]", scrubbed)

	scrubbed = basicURLScrub("Config error: password=hunter2 is invalid")
	assert.Equal(t, "Config error: password=[REDACTED] is invalid", scrubbed)
}

package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Err.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderCarriesContext(t *testing.T) {
	t.Parallel()

	ee := Newf("process exited with code %d", 2).
		Component("pipeline").
		Category(CategoryCommandExecution).
		Context("exit_code", 2).
		Context("output", "Traceback").
		Build()

	assert.Equal(t, "pipeline", ee.GetComponent())
	assert.True(t, IsCategory(ee, CategoryCommandExecution))
	assert.Equal(t, 2, ee.GetContext()["exit_code"])
	assert.Equal(t, "Traceback", ContextString(ee, "output"))
}

func TestContextStringThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := New(NewStd("rejected")).
		Category(CategoryBackendRejection).
		Context("response_body", `{"error":"bad"}`).
		Build()
	wrapped := fmt.Errorf("login: %w", inner)

	assert.Equal(t, `{"error":"bad"}`, ContextString(wrapped, "response_body"))
	assert.Empty(t, ContextString(wrapped, "missing"))
	assert.Equal(t, CategoryBackendRejection, CategoryOf(wrapped))
	assert.Equal(t, CategoryGeneric, CategoryOf(NewStd("plain")))
}

func TestDetectCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"deadline", context.DeadlineExceeded, CategoryTimeout},
		{"canceled", context.Canceled, CategoryCancellation},
		{"dial", NewStd("dial tcp: connection refused"), CategoryNetwork},
		{"required", NewStd("username is required"), CategoryValidation},
		{"other", NewStd("something odd"), CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, detectCategory(tt.err))
		})
	}
}

func TestBasicURLScrub(t *testing.T) {
	t.Parallel()

	scrubbed := basicURLScrub("Error at https://api.example.com?api_key=secret123&token=abc")
	assert.Equal(t, "Error at https://api.example.com?[REDACTED]", scrubbed)

	scrubbed = basicURLScrub("login failed password=hunter22 username=alice")
	assert.NotContains(t, scrubbed, "hunter22")
	assert.NotContains(t, scrubbed, "alice")
}

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestReporterReceivesBuiltErrors(t *testing.T) {
	rec := &recordingReporter{}
	SetTelemetryReporter(rec)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("boom")).Category(CategoryNetwork).Build()

	require.Len(t, rec.reported, 1)
	assert.Same(t, ee, rec.reported[0])
	assert.True(t, ee.IsReported())
}

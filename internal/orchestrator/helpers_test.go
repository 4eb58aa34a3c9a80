package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

var testCreds = vitalarbor.Credentials{Username: "alice", Password: "p@ssw0rd"}

// fakeAnalyzer delegates to fn and counts calls.
type fakeAnalyzer struct {
	fn    func(ctx context.Context, req vitalarbor.DiagnosisRequest) (diagnosis.Result, error)
	calls atomic.Int32
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req vitalarbor.DiagnosisRequest) (diagnosis.Result, error) {
	f.calls.Add(1)
	return f.fn(ctx, req)
}

func (f *fakeAnalyzer) Mode() string { return "fake" }

// blockingAnalyzer returns an analyzer that waits for ctx to end.
func blockingAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{fn: func(ctx context.Context, _ vitalarbor.DiagnosisRequest) (diagnosis.Result, error) {
		<-ctx.Done()
		return diagnosis.Result{}, ctx.Err()
	}}
}

// resultAnalyzer returns an analyzer that parses output immediately.
func resultAnalyzer(output string) *fakeAnalyzer {
	return &fakeAnalyzer{fn: func(context.Context, vitalarbor.DiagnosisRequest) (diagnosis.Result, error) {
		return diagnosis.Parse(output), nil
	}}
}

// newReadyOrchestrator returns an orchestrator with credentials set and all
// three slots bound to non-empty files on an in-memory filesystem.
func newReadyOrchestrator(t *testing.T, a Analyzer, ui Dispatcher, opts ...Option) (*Orchestrator, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	paths := map[Role]string{
		RoleClassification: "/photos/classification.jpg",
		RoleTilt:           "/photos/tilt.jpg",
		RoleBackup:         "/photos/backup.jpg",
	}
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte("jpeg"), 0o644))
	}

	opts = append([]Option{WithFs(fs), WithLogger(logger.NewDiscardLogger())}, opts...)
	o := New(a, ui, opts...)
	t.Cleanup(o.Close)

	o.SetCredentials(testCreds)
	o.SetOptions(true, 2)
	for role, p := range paths {
		require.NoError(t, o.Bind(role, p))
	}
	return o, fs
}

package orchestrator

import (
	"context"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
	"github.com/vitalarbor/vitalarbor-go/internal/pipeline"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

// Analyzer performs one diagnosis. Implementations block until the result
// is available or ctx is done.
type Analyzer interface {
	Analyze(ctx context.Context, req vitalarbor.DiagnosisRequest) (diagnosis.Result, error)
	Mode() string
}

// HostedAnalyzer posts the request to the backend's /diagnose endpoint.
type HostedAnalyzer struct {
	Client *vitalarbor.Client
}

// Analyze implements Analyzer.
func (a HostedAnalyzer) Analyze(ctx context.Context, req vitalarbor.DiagnosisRequest) (diagnosis.Result, error) {
	return a.Client.Diagnose(ctx, req)
}

// Mode implements Analyzer.
func (HostedAnalyzer) Mode() string { return "hosted" }

// LocalAnalyzer runs the analysis script and parses its output.
type LocalAnalyzer struct {
	Runner *pipeline.Runner
}

// Analyze implements Analyzer.
func (a LocalAnalyzer) Analyze(ctx context.Context, req vitalarbor.DiagnosisRequest) (diagnosis.Result, error) {
	out, err := a.Runner.Run(ctx, pipeline.Request{
		Classification:  req.Classification,
		Tilt:            req.Tilt,
		Backup:          req.Backup,
		UseCutout:       req.UseCutout,
		DetectionMethod: req.DetectionMethod,
	})
	if err != nil {
		return diagnosis.Result{}, err
	}
	return diagnosis.Parse(out), nil
}

// Mode implements Analyzer.
func (LocalAnalyzer) Mode() string { return "local" }

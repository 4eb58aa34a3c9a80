package vitalarbor

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/formdata"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

// Detection methods accepted by the analysis pipeline.
const (
	MinDetectionMethod = 1
	MaxDetectionMethod = 3
)

// DiagnosisRequest is one analysis of three tree photographs.
type DiagnosisRequest struct {
	Credentials     Credentials
	Classification  string
	Tilt            string
	Backup          string
	UseCutout       bool
	DetectionMethod int
}

// ValidateDetectionMethod checks that m is one of the enumerated methods.
func ValidateDetectionMethod(m int) error {
	if m < MinDetectionMethod || m > MaxDetectionMethod {
		return errors.Newf("detection method must be 1, 2 or 3, got %d", m).
			Component("vitalarbor").
			Category(errors.CategoryValidation).
			Context("field", "detectionMethod").
			Build()
	}
	return nil
}

// Diagnose runs a hosted diagnosis: the three images and options go to
// /diagnose as one multipart body and the JSON results come back verbatim.
func (c *Client) Diagnose(ctx context.Context, req DiagnosisRequest) (diagnosis.Result, error) {
	if err := req.Credentials.Validate(); err != nil {
		return diagnosis.Result{}, err
	}
	if err := ValidateDetectionMethod(req.DetectionMethod); err != nil {
		return diagnosis.Result{}, err
	}

	parts := []formdata.Part{
		formdata.TextField{Name: "username", Value: req.Credentials.Username},
		formdata.TextField{Name: "password", Value: req.Credentials.Password},
		formdata.TextField{Name: "useCutout", Value: strconv.FormatBool(req.UseCutout)},
		formdata.TextField{Name: "detectionMethod", Value: strconv.Itoa(req.DetectionMethod)},
	}

	files := []struct{ field, path string }{
		{"classification", req.Classification},
		{"tilt", req.Tilt},
		{"backup", req.Backup},
	}
	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			closeQuietly(cl)
		}
	}()
	for _, f := range files {
		part, closer, err := formdata.FileFromPath(c.fs, f.field, f.path)
		if err != nil {
			return diagnosis.Result{}, err
		}
		closers = append(closers, closer)
		parts = append(parts, part)
	}

	body, err := formdata.Encode(parts...)
	if err != nil {
		return diagnosis.Result{}, err
	}

	log := c.log.WithContext(ctx)
	log.Info("submitting hosted diagnosis",
		logger.Int("detection_method", req.DetectionMethod),
		logger.Bool("use_cutout", req.UseCutout),
		logger.Int64("body_bytes", body.Size()))

	start := time.Now()
	reply, err := c.http.PostMultipart(ctx, c.url(PathDiagnose), body, c.cfg.DiagnoseTimeout)
	if err != nil {
		return diagnosis.Result{}, err
	}
	if !reply.IsSuccess() {
		return diagnosis.Result{}, rejection("diagnose", PathDiagnose, reply)
	}

	result, err := diagnosis.FromHosted(reply.Text())
	if err != nil {
		return result, err
	}

	log.Info("hosted diagnosis completed",
		logger.String("risk_category", result.RiskCategory),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

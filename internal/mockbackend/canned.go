package mockbackend

import (
	"context"
	"fmt"

	"github.com/vitalarbor/vitalarbor-go/internal/diagnosis"
)

// CannedAnalysis answers every /diagnose request with a fixed low-risk
// assessment. The tilt varies with the detection method so callers can tell
// the option reached the backend.
func CannedAnalysis(ctx context.Context, in DiagnoseInput) (diagnosis.Result, error) {
	if err := ctx.Err(); err != nil {
		return diagnosis.Result{}, err
	}

	tilt := 3.2 + float64(in.DetectionMethod-1)*0.5
	r := diagnosis.Result{
		RiskScore:    fmt.Sprintf("%.1f / 40", riskScore(tilt)),
		RiskCategory: "LOW RISK",
		TiltAngle:    fmt.Sprintf("%.2f°", tilt),
		Species:      "Quercus robur (English oak)",
		Diagnosis:    "Tree appears stable with minimal lean. Crown is balanced and no trunk defects are visible.",
		Fixes:        "No immediate action required. Re-inspect after severe storms and prune deadwood every 3-5 years.",
	}
	if in.UseCutout {
		r.Diagnosis += " Trunk outline isolated from background."
	}
	return r, nil
}

// riskScore maps a 0-10 degree lean onto the 1-10 band of the 40 point scale.
func riskScore(tilt float64) float64 {
	return 1 + tilt*0.9
}

// Package diagnosis turns the output of one tree analysis run into a Result.
//
// Hosted runs answer with a JSON object whose fields are taken verbatim.
// Local runs print loosely structured text that is scanned for fixed anchors;
// anything that does not match leaves the field at its sentinel.
package diagnosis

import (
	"strings"
)

// Sentinel values for fields the output did not provide.
const (
	NotAvailable = "N/A"
	Unknown      = "Unknown"
)

// Result is one parsed diagnosis. It is immutable once returned.
type Result struct {
	RiskScore    string `json:"riskScore"`
	RiskCategory string `json:"riskCategory"`
	TiltAngle    string `json:"tiltAngle"`
	Species      string `json:"species"`
	Diagnosis    string `json:"diagnosis"`
	Fixes        string `json:"fixes"`

	// Raw is the complete backend or subprocess text
	Raw string `json:"-"`
}

// Empty returns a Result with every field at its sentinel.
func Empty(raw string) Result {
	return Result{
		RiskScore:    NotAvailable,
		RiskCategory: Unknown,
		TiltAngle:    NotAvailable,
		Species:      NotAvailable,
		Diagnosis:    NotAvailable,
		Fixes:        NotAvailable,
		Raw:          raw,
	}
}

// Parsed reports how many fields hold a value other than their sentinel.
func (r Result) Parsed() int {
	n := 0
	for _, v := range []string{r.RiskScore, r.TiltAngle, r.Species, r.Diagnosis, r.Fixes} {
		if v != NotAvailable {
			n++
		}
	}
	if r.RiskCategory != Unknown {
		n++
	}
	return n
}

// Color returns the advisory display colour for the risk category.
func (r Result) Color() RiskColor {
	return ColorFor(r.RiskCategory)
}

// RiskColor is the display colour of a risk category.
type RiskColor string

const (
	ColorGreen   RiskColor = "green"
	ColorAmber   RiskColor = "amber"
	ColorOrange  RiskColor = "orange"
	ColorRed     RiskColor = "red"
	ColorNeutral RiskColor = "grey"
)

// ColorFor maps a category label to a colour. Rules are tested in order,
// so "LOW RISK" is green even though it does not mention health.
func ColorFor(category string) RiskColor {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "low"), strings.Contains(c, "healthy"):
		return ColorGreen
	case strings.Contains(c, "medium"), strings.Contains(c, "moderate"):
		return ColorAmber
	case strings.Contains(c, "high"), strings.Contains(c, "orange"):
		return ColorOrange
	case strings.Contains(c, "critical"), strings.Contains(c, "red"):
		return ColorRed
	default:
		return ColorNeutral
	}
}

// ANSI returns the terminal escape sequence for the colour.
func (c RiskColor) ANSI() string {
	switch c {
	case ColorGreen:
		return "\x1b[92m"
	case ColorAmber:
		return "\x1b[93m"
	case ColorOrange:
		return "\x1b[38;5;208m"
	case ColorRed:
		return "\x1b[91m"
	default:
		return "\x1b[90m"
	}
}

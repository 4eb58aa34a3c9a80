package diagnosis

import (
	"fmt"
	"strconv"

	"github.com/antonholmquist/jason"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
)

// maxBodyInError caps how much of a malformed payload is attached to errors.
const maxBodyInError = 4096

// FromHosted decodes a /diagnose response body. A JSON object with a
// "results" member is taken verbatim; a body that is not a JSON object is
// handed to Parse. JSON without "results" is an error.
func FromHosted(body string) (Result, error) {
	obj, err := jason.NewObjectFromBytes([]byte(body))
	if err != nil {
		return Parse(body), nil
	}

	results, err := obj.GetObject("results")
	if err != nil {
		return Empty(body), errors.New(fmt.Errorf("diagnose response has no results: %w", err)).
			Component("diagnosis").
			Category(errors.CategoryFileParsing).
			Context("operation", "decode_results").
			Context("response_body", truncate(body, maxBodyInError)).
			Build()
	}

	r := Empty(body)
	r.RiskScore = field(results, "riskScore", NotAvailable)
	r.RiskCategory = field(results, "riskCategory", Unknown)
	r.TiltAngle = field(results, "tiltAngle", NotAvailable)
	r.Species = field(results, "species", NotAvailable)
	r.Diagnosis = field(results, "diagnosis", NotAvailable)
	r.Fixes = field(results, "fixes", NotAvailable)
	return r, nil
}

// field reads key as text. Strings are kept verbatim, empty ones included.
// Numbers and booleans are rendered in their JSON form; absent and null
// values yield fallback.
func field(obj *jason.Object, key, fallback string) string {
	v, err := obj.GetValue(key)
	if err != nil {
		return fallback
	}
	if s, err := v.String(); err == nil {
		return s
	}
	if n, err := v.Number(); err == nil {
		return n.String()
	}
	if b, err := v.Boolean(); err == nil {
		return strconv.FormatBool(b)
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

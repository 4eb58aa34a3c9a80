// Package metrics defines the Prometheus collectors of the VitalArbor client.
package metrics

import "time"

// Label values shared by the collectors.
const (
	// LabelError is the status class of a request that got no response.
	LabelError = "error"
	// LabelUnknown is used when an endpoint cannot be derived.
	LabelUnknown = "unknown"
)

// Histogram bucket configuration constants.
const (
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart1s is the starting bucket for 1s histograms (1s to ~9 hours range).
	BucketStart1s = 1.0
	// BucketStart1KB is the starting bucket for 1KB histograms (1KB to ~1GB range).
	BucketStart1KB = 1024.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor4 spreads buckets for large size ranges.
	BucketFactor4 = 4

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// ShutdownTimeout is the timeout for graceful shutdown of the metrics endpoint.
const ShutdownTimeout = 5 * time.Second

package meter

// Traffic is one collection pass's bandwidth and request estimate.
type Traffic struct {
	IngressBytes  int64
	EgressBytes   int64
	RequestsCount int64
}

// Estimator derives per-pass traffic figures for a tenant. Implementations
// may read real metering sources; the default derives a heuristic from
// storage size so billing stays functional without a traffic pipeline.
type Estimator interface {
	Estimate(storageBytes, objectCount int64) Traffic
}

// StorageHeuristicEstimator approximates traffic from the storage snapshot:
// ingress = 10% of stored bytes, egress = 5%, requests = 10 per object.
// These are simulated proxies, not measurements. Swap in a real Estimator
// when an actual traffic source exists.
type StorageHeuristicEstimator struct{}

func (StorageHeuristicEstimator) Estimate(storageBytes, objectCount int64) Traffic {
	return Traffic{
		IngressBytes:  storageBytes / 10,
		EgressBytes:   storageBytes / 20,
		RequestsCount: objectCount * 10,
	}
}

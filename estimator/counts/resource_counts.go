package counts

// ResourceCounts is the snapshot produced by Counter.LogicalResources.
// Memory/compute fields are nil unless the architecture was enabled.
type ResourceCounts struct {
	NumQubits           uint64  `json:"num_qubits"`
	TCount              uint64  `json:"t_count"`
	RotationCount       uint64  `json:"rotation_count"`
	RotationDepth       uint64  `json:"rotation_depth"`
	CCZCount            uint64  `json:"ccz_count"`
	CCIXCount           uint64  `json:"ccix_count"`
	MeasurementCount    uint64  `json:"measurement_count"`
	NumComputeQubits    *uint64 `json:"num_compute_qubits,omitempty"`
	ReadFromMemoryCount *uint64 `json:"read_from_memory_count,omitempty"`
	WriteToMemoryCount  *uint64 `json:"write_to_memory_count,omitempty"`
}

package counts

// Layer records the non-Clifford cost that occurs at one depth layer across
// all qubits.
type Layer struct {
	T   uint64 `json:"t"`
	R   uint64 `json:"r"`
	CCZ uint64 `json:"ccz"`
}

func layerWithT() Layer   { return Layer{T: 1} }
func layerWithR() Layer   { return Layer{R: 1} }
func layerWithCCZ() Layer { return Layer{CCZ: 1} }

// Add returns the component-wise sum of l and other.
func (l Layer) Add(other Layer) Layer {
	return Layer{
		T:   l.T + other.T,
		R:   l.R + other.R,
		CCZ: l.CCZ + other.CCZ,
	}
}

// SumLayers returns the component-wise sum of all layers.
func SumLayers(layers []Layer) Layer {
	var sum Layer
	for _, layer := range layers {
		sum = sum.Add(layer)
	}
	return sum
}

// RotationDepth returns the number of layers that carry at least one rotation.
func RotationDepth(layers []Layer) int {
	depth := 0
	for _, layer := range layers {
		if layer.R != 0 {
			depth++
		}
	}
	return depth
}

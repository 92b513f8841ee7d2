package model

// Snapshot maps each layer name to its activations from the most recent
// forward pass.
type Snapshot map[string][]float64

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for name, acts := range s {
		out[name] = append([]float64(nil), acts...)
	}
	return out
}

package model

// labels maps output indices to the digits the network was trained on.
var labels = [...]string{"1", "2"}

// Argmax returns the index of the largest value; the lowest index wins ties.
func Argmax(out []float64) int {
	maxIdx := 0
	for i, val := range out {
		if val > out[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

// Label maps an output index to the user-facing digit: 0 → "1", 1 → "2".
func Label(idx int) string {
	return labels[idx]
}

// ClassName is the caption drawn next to output node idx.
func ClassName(idx int) string {
	return "Class " + labels[idx]
}

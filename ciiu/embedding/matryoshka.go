package embedding

// AdjustToDims fits a model output to the configured dimension. Matryoshka
// style models keep most of their signal in the leading components, so larger
// outputs are truncated; shorter ones are zero padded. The result never
// aliases vec. Unit length is not preserved; the index renormalizes.
func AdjustToDims(vec []float32, target int) []float32 {
	if target <= 0 {
		target = len(vec)
	}
	out := make([]float32, target)
	copy(out, vec)
	return out
}

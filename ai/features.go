package ai

// FitLength приводит временную ось mel-спектрограммы [nMels][frames]
// к фиксированной длине target: короткие дополняются нулями справа,
// длинные обрезаются. Инвариант: у результата ровно target фреймов.
func FitLength(mel [][]float32, target int) [][]float32 {
	out := make([][]float32, len(mel))
	for m, row := range mel {
		if len(row) == target {
			out[m] = row
			continue
		}
		fitted := make([]float32, target)
		copy(fitted, row)
		out[m] = fitted
	}
	return out
}

package ml

import (
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indices into train and holdout sets, drawing the
// same fraction from each class. The split depends only on labels and seed.
func StratifiedSplit(y []float64, fraction float64, seed int64) (train, holdout []int) {
	var pos, neg []int
	for i, v := range y {
		if v >= 0.5 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	for _, class := range [][]int{pos, neg} {
		rng.Shuffle(len(class), func(i, j int) { class[i], class[j] = class[j], class[i] })

		k := 0
		if fraction > 0 {
			k = int(math.Round(fraction * float64(len(class))))
			if k < 1 && len(class) >= 2 {
				k = 1
			}
			if k > len(class)-1 {
				k = len(class) - 1
			}
			if k < 0 {
				k = 0
			}
		}
		holdout = append(holdout, class[:k]...)
		train = append(train, class[k:]...)
	}

	sort.Ints(train)
	sort.Ints(holdout)
	return train, holdout
}

// AUCROC computes the area under the ROC curve via the Mann-Whitney statistic,
// averaging ranks over tied scores. A single-class label set yields 0.5.
func AUCROC(scores, labels []float64) float64 {
	n := len(scores)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] < scores[order[j]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var nPos, nNeg, rankSum float64
	for i, l := range labels {
		if l >= 0.5 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg)
}

// Accuracy returns the fraction of rows classified correctly at threshold
func Accuracy(scores, labels []float64, threshold float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	correct := 0
	for i, s := range scores {
		if (s >= threshold) == (labels[i] >= 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(len(scores))
}

func subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, r := range idx {
		xs[i] = X[r]
		ys[i] = y[r]
	}
	return xs, ys
}

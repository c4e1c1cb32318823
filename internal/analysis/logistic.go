package analysis

import "math"

// Gradient descent hyperparameters for the logistic fit. No third-party
// numerical library is wired for this (see DESIGN.md); a fixed learning
// rate and iteration count over a standard cross-entropy + L2 objective
// is sufficient for the per-predicate fits this analysis performs.
const (
	learningRate = 0.1
	iterations   = 2000
	l2Lambda     = 0.01
)

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// gradientDescent fits a logistic regression by batch gradient descent
// over the cross-entropy loss with L2 regularization on the weights
// (not the bias). Returns the fitted weights (len == numFeatures) and
// bias.
func gradientDescent(rows [][]float64, targets []bool, numFeatures int) ([]float64, float64) {
	n := len(rows)
	weights := make([]float64, numFeatures)
	var bias float64

	for iter := 0; iter < iterations; iter++ {
		gradW := make([]float64, numFeatures)
		var gradB float64

		for i, row := range rows {
			z := bias
			for j, x := range row {
				z += weights[j] * x
			}
			pred := sigmoid(z)
			target := 0.0
			if targets[i] {
				target = 1.0
			}
			diff := pred - target
			gradB += diff
			for j, x := range row {
				gradW[j] += diff * x
			}
		}

		invN := 1 / float64(n)
		bias -= learningRate * gradB * invN
		for j := range weights {
			grad := gradW[j]*invN + l2Lambda*weights[j]
			weights[j] -= learningRate * grad
		}
	}

	return weights, bias
}

package mud

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// WME computes the Weighted Mean Error statistic for a batch of model
// predictions against a single observed data vector. Row i of predictions
// holds the model outputs for parameter sample i; data holds one observed
// value per output. The result is one scalar per sample:
//
//	wme[i] = (1 / (std * sqrt(m))) * sum_j (predictions[i,j] - data[j])
//
// where m is the number of observations. If std is non-positive it is
// estimated as the sample standard deviation of data. WME reduces repeated
// noisy observations of a quantity of interest to a single statistic per
// sample whose pushforward under the initial distribution is approximately
// standard normal when the model is consistent with the data.
// It returns error if the number of prediction columns differs from the
// length of data.
func WME(predictions mat.Matrix, data []float64, std float64) ([]float64, error) {
	n, m := predictions.Dims()
	if m != len(data) {
		return nil, fmt.Errorf("%w: predictions have %d columns, data has %d values", ErrShapeMismatch, m, len(data))
	}

	if std <= 0 {
		std = stat.StdDev(data, nil)
	}

	scale := std * math.Sqrt(float64(m))
	wme := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < m; j++ {
			sum += predictions.At(i, j) - data[j]
		}
		wme[i] = sum / scale
	}

	return wme, nil
}

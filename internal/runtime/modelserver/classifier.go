package modelserver

import (
	"math"

	"github.com/petalops/irisflow/internal/runtime/score"
)

// centroid is the mean measurement vector of one iris species over the
// classic Fisher data set.
type centroid struct {
	label    string
	features [4]float64
}

var irisCentroids = []centroid{
	{label: "setosa", features: [4]float64{5.006, 3.428, 1.462, 0.246}},
	{label: "versicolor", features: [4]float64{5.936, 2.770, 4.260, 1.326}},
	{label: "virginica", features: [4]float64{6.588, 2.974, 5.552, 2.026}},
}

// CentroidClassifier predicts the species whose centroid is nearest to the
// instance in Euclidean distance. Probabilities are softmax weights over the
// negated distances, so they sum to one and favour the closest centroid.
type CentroidClassifier struct {
	centroids []centroid
}

// NewCentroidClassifier returns a classifier over the three iris species.
func NewCentroidClassifier() *CentroidClassifier {
	return &CentroidClassifier{centroids: irisCentroids}
}

func (c *CentroidClassifier) Classes() []string {
	classes := make([]string, len(c.centroids))
	for i, ct := range c.centroids {
		classes[i] = ct.label
	}
	return classes
}

func (c *CentroidClassifier) Classify(inst score.Instance) (string, []float64) {
	features := [4]float64{inst.SepalLengthCm, inst.SepalWidthCm, inst.PetalLengthCm, inst.PetalWidthCm}

	distances := make([]float64, len(c.centroids))
	best := 0
	for i, ct := range c.centroids {
		distances[i] = euclidean(features, ct.features)
		if distances[i] < distances[best] {
			best = i
		}
	}

	return c.centroids[best].label, softmaxOverNegated(distances)
}

func euclidean(a, b [4]float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func softmaxOverNegated(distances []float64) []float64 {
	weights := make([]float64, len(distances))
	var total float64
	for i, d := range distances {
		weights[i] = math.Exp(-d)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

package score

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/petalops/irisflow/internal/runtime/jsoncodec"
)

// PredictionKind tags the wire shape a prediction element arrived in.
// Scoring services answer in one of three encodings: a bare scalar label, a
// bare probability vector, or an object wrapping the label.
type PredictionKind uint8

const (
	KindInvalid PredictionKind = iota
	KindLabel
	KindProbabilities
	KindObject
)

// Prediction is one element of the "predictions" response list, decoded into
// an explicit variant instead of being probed dynamically downstream.
type Prediction struct {
	Kind          PredictionKind
	Label         string
	Probabilities []float64
}

type predictResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// predictionObject covers the object variants: {"prediction": ...} from the
// serving shell and {"class": ..., "class_probabilities": [...]} from the
// registry-style servers.
type predictionObject struct {
	Prediction         *rawScalar `json:"prediction"`
	Class              *rawScalar `json:"class"`
	ClassProbabilities []float64  `json:"class_probabilities"`
}

// rawScalar coerces a JSON string or number into a string label.
type rawScalar struct {
	label string
}

func (r *rawScalar) UnmarshalJSON(data []byte) error {
	label, err := scalarLabel(data)
	if err != nil {
		return err
	}
	r.label = label
	return nil
}

func scalarLabel(data []byte) (string, error) {
	if isNull(data) {
		return "", errors.New("prediction value is null")
	}
	var s string
	if err := jsoncodec.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var n float64
	if err := jsoncodec.Unmarshal(data, &n); err == nil {
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10), nil
		}
		return strconv.FormatFloat(n, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("prediction value is neither string nor number: %s", data)
}

func (p *Prediction) UnmarshalJSON(data []byte) error {
	first := firstByte(data)
	switch first {
	case '{':
		var obj predictionObject
		if err := jsoncodec.Unmarshal(data, &obj); err != nil {
			return err
		}
		scalar := obj.Prediction
		if scalar == nil {
			scalar = obj.Class
		}
		if scalar == nil {
			return errors.New(`prediction object has neither "prediction" nor "class" key`)
		}
		p.Kind = KindObject
		p.Label = scalar.label
		p.Probabilities = obj.ClassProbabilities
		return nil
	case '[':
		var probs []float64
		if err := jsoncodec.Unmarshal(data, &probs); err != nil {
			return err
		}
		if len(probs) == 0 {
			return errors.New("prediction vector is empty")
		}
		p.Kind = KindProbabilities
		p.Probabilities = probs
		return nil
	default:
		label, err := scalarLabel(data)
		if err != nil {
			return err
		}
		p.Kind = KindLabel
		p.Label = label
		return nil
	}
}

func isNull(data []byte) bool {
	return firstByte(data) == 'n'
}

func firstByte(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

// Normalize maps any prediction variant onto the canonical (label,
// confidence) pair. Confidence is the maximum of the probability vector and
// is only set when the vector holds more than one class.
func (p Prediction) Normalize() (string, *float64, error) {
	switch p.Kind {
	case KindLabel:
		return p.Label, nil, nil
	case KindProbabilities:
		idx, max := argmax(p.Probabilities)
		label := strconv.Itoa(idx)
		if len(p.Probabilities) > 1 {
			return label, &max, nil
		}
		return label, nil, nil
	case KindObject:
		if len(p.Probabilities) > 1 {
			_, max := argmax(p.Probabilities)
			return p.Label, &max, nil
		}
		return p.Label, nil, nil
	default:
		return "", nil, errors.New("invalid prediction variant")
	}
}

func argmax(probs []float64) (int, float64) {
	idx, max := 0, probs[0]
	for i, v := range probs[1:] {
		if v > max {
			idx, max = i+1, v
		}
	}
	return idx, max
}

// decodeResponse parses a /predict response body and returns the first
// prediction. An empty predictions list counts as a malformed response.
func decodeResponse(body []byte) (Prediction, error) {
	var resp predictResponse
	if err := jsoncodec.Unmarshal(body, &resp); err != nil {
		return Prediction{}, fmt.Errorf("malformed scoring response: %w", err)
	}
	if len(resp.Predictions) == 0 {
		return Prediction{}, errors.New("scoring response contains no predictions")
	}
	return resp.Predictions[0], nil
}

// Package modelserver is a self-contained scoring service speaking the same
// wire contract the pipeline's scoring client expects. It exists for local
// development and end-to-end tests, so the pipeline can run without an
// external model endpoint.
package modelserver

import (
	"fmt"
	"net/http"

	"github.com/petalops/irisflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/petalops/irisflow/internal/runtime/logging"
	"github.com/petalops/irisflow/internal/runtime/score"
)

// Classifier maps one instance to a label with class probabilities.
type Classifier interface {
	Classify(inst score.Instance) (label string, probabilities []float64)
	// Classes lists the labels in probability-vector order.
	Classes() []string
}

// Server answers /predict and /health requests. Immutable after New.
type Server struct {
	classifier Classifier
	log        loggingpkg.ServiceLogger
}

// Option customises a Server.
type Option func(*Server)

// WithClassifier substitutes the default nearest-centroid classifier.
func WithClassifier(c Classifier) Option {
	return func(s *Server) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithLogger attaches a logger for request warnings.
func WithLogger(log loggingpkg.ServiceLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns a model server backed by the built-in iris classifier unless a
// different one is supplied.
func New(opts ...Option) *Server {
	s := &Server{
		classifier: NewCentroidClassifier(),
		log:        loggingpkg.NewNopServiceLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP surface: POST /predict, GET /health, GET /.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

type predictRequest struct {
	Instances []score.Instance `json:"instances"`
}

type predictionResult struct {
	Prediction         string    `json:"prediction"`
	ClassProbabilities []float64 `json:"class_probabilities"`
}

type predictResponse struct {
	Predictions []predictionResult `json:"predictions"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req predictRequest
	if err := jsoncodec.Decode(r.Body, &req); err != nil {
		s.log.Warn("rejecting undecodable predict request", loggingpkg.LogFields{"error": err.Error()})
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Instances) == 0 {
		http.Error(w, "request contains no instances", http.StatusBadRequest)
		return
	}

	resp := predictResponse{Predictions: make([]predictionResult, 0, len(req.Instances))}
	for _, inst := range req.Instances {
		label, probs := s.classifier.Classify(inst)
		resp.Predictions = append(resp.Predictions, predictionResult{
			Prediction:         label,
			ClassProbabilities: probs,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := jsoncodec.Encode(w, resp); err != nil {
		s.log.Error("failed to encode predict response", err, nil)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	jsoncodec.Encode(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	jsoncodec.Encode(w, map[string]any{
		"service": "iris model server",
		"classes": s.classifier.Classes(),
	})
}

package runtime

import (
	"net/http"

	"github.com/petalops/irisflow/internal/runtime/jsoncodec"
)

// StartStatsServer exposes the handler stats JSON endpoint when enabled.
func (s *Service) StartStatsServer() {
	if !s.Conf.StatsEnabled {
		return
	}

	port := s.Conf.StatsPort
	if port == 0 {
		port = 8081
	}

	s.RegisterHTTPHandler(port, "/api/handlers", http.HandlerFunc(s.handleGetHandlers))
	if s.metrics != nil {
		s.RegisterHTTPHandler(port, "/api/pipeline", http.HandlerFunc(s.handleGetPipeline))
	}
}

func (s *Service) handleGetHandlers(w http.ResponseWriter, r *http.Request) {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := jsoncodec.Encode(w, s.handlers); err != nil {
		s.Logger.Error("Failed to encode handlers", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Service) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := jsoncodec.Encode(w, s.metrics.GetSnapshot()); err != nil {
		s.Logger.Error("Failed to encode pipeline metrics", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

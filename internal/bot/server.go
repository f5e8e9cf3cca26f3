package bot

import (
	"encoding/json"
	"net/http"
	"time"

	"kasbook/internal/log"
)

// Server exposes the router over HTTP so a transport adapter (webhook
// receiver, long-poll bridge) can POST classified events and render the
// replies itself.
type Server struct {
	*http.Server
	router *Router
	log    *log.Logger
}

func NewServer(addr string, router *Router, logger *log.Logger) *Server {
	s := &Server{
		router: router,
		log:    logger.WithComponent(log.ComponentBot),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/events", s.handleEvent)

	s.Server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}
	if ev.UserID == 0 {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return
	}

	reply, err := s.router.Handle(r.Context(), ev)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Event handling failed",
			log.FieldUserID, ev.UserID, log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		s.log.ErrorContext(r.Context(), "Reply encoding failed", log.FieldError, err)
	}
}

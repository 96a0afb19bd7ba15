package telemetry

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router serves /metrics, /status and /status/monitors/{name}
func (t *Tracker) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/status", t.status).Methods(http.MethodGet)
	r.HandleFunc("/status/monitors/{name}", t.monitor).Methods(http.MethodGet)
	return r
}

func (t *Tracker) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, t.Snapshot())
}

func (t *Tracker) monitor(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s, ok := t.Snapshot().Monitors[name]
	if !ok {
		http.Error(w, "unknown monitor "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, s)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Serve listens on addr until ctx is done.  The returned channel receives the server's
// exit error, nil after a clean shutdown.
func Serve(ctx context.Context, addr string, h http.Handler) (net.Addr, <-chan error, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		err := srv.Serve(listener)
		if err == http.ErrServerClosed {
			err = nil
		}
		errc <- err
	}()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	return listener.Addr(), errc, nil
}

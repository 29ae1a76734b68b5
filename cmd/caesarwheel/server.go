package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"caesarwheel/internal/cipher"
)

// ============================================================================
// HTTP Server
// ============================================================================
// One listener serves the state WebSocket plus two plain JSON endpoints:
//
//	POST /transform  stateless encrypt/decrypt, never touches the wheel
//	GET  /state      the current snapshot, read through the event loop
// ============================================================================

// transformRequest is the body of POST /transform.
type transformRequest struct {
	Text  string      `json:"text"`
	Shift int         `json:"shift"`
	Mode  cipher.Mode `json:"mode"`
}

type transformResponse struct {
	Output         string `json:"output"`
	EffectiveShift int    `json:"effective_shift"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// maxTransformBody bounds the request body of POST /transform.
const maxTransformBody = 1 << 20

// newHTTPMux wires all HTTP routes. events may be nil, in which case /state
// answers 503.
func newHTTPMux(ws *StateServer, wsPath string, events chan<- Event, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	if ws != nil {
		ws.Register(mux, wsPath)
	}
	mux.HandleFunc("/transform", handleTransform(logger))
	mux.HandleFunc("/state", handleState(events, logger))
	return mux
}

func handleTransform(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}

		var req transformRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTransformBody))
		if err := dec.Decode(&req); err != nil {
			logger.Debug("transform request rejected", "error", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode request: %v", err)})
			return
		}

		writeJSON(w, http.StatusOK, transformResponse{
			Output:         cipher.Transform(req.Text, req.Shift, req.Mode),
			EffectiveShift: cipher.EffectiveShift(req.Shift, req.Mode),
		})
	}
}

func handleState(events chan<- Event, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}
		snap, err := requestSnapshot(r.Context(), events, time.Second)
		if err != nil {
			logger.Warn("state snapshot request failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestSnapshot asks the interaction loop for a snapshot and waits up to
// timeout (unless ctx already carries a deadline).
func requestSnapshot(ctx context.Context, events chan<- Event, timeout time.Duration) (StateSnapshot, error) {
	if events == nil {
		return StateSnapshot{}, errors.New("interaction loop not running")
	}

	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply := make(chan StateSnapshot, 1)
	select {
	case <-ctx.Done():
		return StateSnapshot{}, ctx.Err()
	case events <- RequestStateSnapshot{Reply: reply}:
	}

	select {
	case <-ctx.Done():
		return StateSnapshot{}, ctx.Err()
	case snap := <-reply:
		return snap, nil
	}
}

// runHTTPServer serves handler on addr and shuts it down gracefully when ctx
// is canceled.
func runHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	logger.Info("http server listening", "addr", addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		// ListenAndServe returns http.ErrServerClosed on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}

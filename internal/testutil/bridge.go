package testutil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cyberscoundrel/jobbossutils/internal/channel"
)

// NewBridgeHandler serves the HTTP bridge protocol spoken by
// channel.HTTPChannel on top of any channel.Channel, typically a FakeJobBOSS.
func NewBridgeHandler(backend channel.Channel) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+channel.SessionPath, func(w http.ResponseWriter, r *http.Request) {
		var req channel.SessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := channel.SessionResponse{}
		id, err := backend.CreateSession(r.Context(), req.User, req.Password)
		if err != nil {
			resp.ErrorMessage = err.Error()
		}
		resp.SessionID = id
		if resp.SessionID == "" && resp.ErrorMessage == "" {
			resp.ErrorMessage = "invalid credentials"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("POST "+channel.RequestPath, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, err := backend.ProcessRequest(r.Context(), body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(out)
	})

	mux.HandleFunc("DELETE "+channel.SessionPath+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := backend.CloseSession(r.Context(), r.PathValue("id")); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

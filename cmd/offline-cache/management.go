package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/neurospeech/offline-cache/cache"
	"github.com/neurospeech/offline-cache/lifecycle"
	"github.com/neurospeech/offline-cache/prompt"
	"github.com/neurospeech/offline-cache/push"
)

// management bundles what the management API operates on.
type management struct {
	registry      *lifecycle.Registry
	notifications *push.Manager
	prompt        *prompt.Holder
	provider      cache.Provider
}

// newManagementRouter serves the runtime surface next to the intercepted
// traffic: health, metrics, cache generations, and the event entry points
// for background sync, push messages, and notification clicks.
func newManagementRouter(m management) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/generations", func(w http.ResponseWriter, req *http.Request) {
		buckets, err := m.provider.Buckets()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"generations": buckets})
	})

	r.Post("/sync/{tag}", func(w http.ResponseWriter, req *http.Request) {
		ev := lifecycle.Event{Kind: lifecycle.Sync, Tag: chi.URLParam(req, "tag")}
		if err := m.registry.Dispatch(req.Context(), ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	r.Post("/push", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ev := lifecycle.Event{Kind: lifecycle.Push, Data: body}
		if err := m.registry.Dispatch(req.Context(), ev); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	r.Post("/notifications/{id}/click", func(w http.ResponseWriter, req *http.Request) {
		action := req.URL.Query().Get("action")
		url, err := m.notifications.Click(chi.URLParam(req, "id"), action)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if url == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		// the open action navigates to the notification's target
		w.Header().Set("Location", url)
		w.WriteHeader(http.StatusSeeOther)
	})

	r.Post("/prompt/captured", func(w http.ResponseWriter, req *http.Request) {
		writePromptTransition(w, m.prompt.Capture())
	})

	r.Post("/prompt/consumed", func(w http.ResponseWriter, req *http.Request) {
		writePromptTransition(w, m.prompt.Consume())
	})

	return r
}

func writePromptTransition(w http.ResponseWriter, err error) {
	if errors.Is(err, prompt.ErrAlreadyCaptured) || errors.Is(err, prompt.ErrNotCaptured) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Could not write response")
	}
}

package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"hanchat/hanchat/session"
	"hanchat/hanchat/types"

	"github.com/go-chi/chi/v5"
)

// SessionRoutes exposes the session store's actions to the chat view.
func SessionRoutes(store *session.Store) chi.Router {
	r := chi.NewRouter()

	// GET / : sidebar list, most recent first
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(store.Summaries())
	})

	// POST / : start a new chat, returns the fresh session
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		fresh := store.StartNewChat()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(fresh)
	})

	// GET /current : the session the view is displaying
	r.Get("/current", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(store.Current())
	})

	// POST /current : switch the current session; unknown id is a no-op
	r.Post("/current", func(w http.ResponseWriter, r *http.Request) {
		var req types.LoadChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		store.LoadChat(req.ID)
		w.WriteHeader(http.StatusNoContent)
	})

	// GET /{session_id}/messages : full message list for one session
	r.Get("/{session_id}/messages", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := store.Session(chi.URLParam(r, "session_id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sess.Messages)
	})

	// DELETE /{session_id} : delete one session (thread)
	r.Delete("/{session_id}", func(w http.ResponseWriter, r *http.Request) {
		store.DeleteSession(chi.URLParam(r, "session_id"))
		w.WriteHeader(http.StatusNoContent)
	})

	// POST /send : send on the current session; 204 when the input is
	// rejected silently, 409 while another send is in flight
	r.Post("/send", func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		msgs, err := store.SendMessage(r.Context(), req.Message, req.Romanize)
		if errors.Is(err, session.ErrSendInFlight) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if msgs == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(msgs)
	})

	return r
}

package routes

import (
	"encoding/json"
	"net/http"

	"hanchat/hanchat/controllers"
	"hanchat/hanchat/types"

	"github.com/go-chi/chi/v5"
)

// ChatRoutes is the stateless completion relay.
// POST / : {message, romanize?} -> {reply}. Non-POST gets 405 from the
// router; an upstream failure gets 500 but still carries a reply field.
func ChatRoutes(ctrl *controllers.TutorController) chi.Router {
	r := chi.NewRouter()
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Message == "" {
			http.Error(w, "message required", http.StatusBadRequest)
			return
		}
		reply, err := ctrl.Reply(r.Context(), req.Message, req.Romanize)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
		json.NewEncoder(w).Encode(types.ChatResponse{Reply: reply})
	})
	return r
}

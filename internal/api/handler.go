// Package api exposes the reply pipeline over two surfaces: a
// localhost HTTP API (chi) for the CLI and any chat front end, and an
// MCP server (stdio) for MCP-capable clients.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nilay/saathi/internal/chat"
	"github.com/nilay/saathi/internal/memory"
	"github.com/nilay/saathi/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds everything the HTTP handlers need.
type Deps struct {
	Engine *chat.Engine
	Store  *storage.Store
	Token  string
}

// NewHandler builds the full router. /health stays open; everything
// else requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/chat", handleChat(deps))
		r.Get("/profile", handleGetProfile(deps))
		r.Patch("/profile", handlePatchProfile(deps))
		r.Get("/history", handleHistory(deps))
		r.Get("/facts", handleFacts(deps))
		r.Get("/interactions", handleListInteractions(deps))
		r.Post("/notes", handleAddNote(deps))
		r.Get("/notes", handleListNotes(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type chatRequest struct {
	Message string `json:"message"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		reply, err := deps.Engine.Reply(r.Context(), req.Message)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "resolving reply: %v", err)
			return
		}

		writeJSON(w, map[string]string{
			"reply": reply.Text,
			"route": string(reply.Route),
		})
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := deps.Engine.Profile()
		writeJSON(w, p)
	}
}

type patchProfileRequest struct {
	Name     *string          `json:"name"`
	Gender   *string          `json:"gender"`
	Location *memory.Location `json:"location"`
}

func handlePatchProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req patchProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.Gender != nil {
			switch memory.Gender(*req.Gender) {
			case memory.GenderMale, memory.GenderFemale, memory.GenderUnknown, "":
			default:
				httpError(w, http.StatusBadRequest, "invalid_request_error", "gender must be one of male, female, unknown")
				return
			}
		}

		err := deps.Engine.UpdateProfile(func(p *memory.Profile) {
			if req.Name != nil {
				p.Name = strings.TrimSpace(*req.Name)
			}
			if req.Gender != nil {
				p.Gender = memory.Gender(*req.Gender)
			}
			if req.Location != nil {
				p.Location = *req.Location
			}
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "updating profile: %v", err)
			return
		}

		writeJSON(w, map[string]string{"status": "updated"})
	}
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, 50)
		writeJSON(w, deps.Engine.History(limit))
	}
}

func handleFacts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Engine.Profile().Facts)
	}
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, 20)
		interactions, err := deps.Store.GetRecentInteractions(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing interactions: %v", err)
			return
		}
		if interactions == nil {
			interactions = []storage.Interaction{}
		}
		writeJSON(w, interactions)
	}
}

type addNoteRequest struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

func handleAddNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req addNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}
		if req.Source == "" {
			req.Source = "api"
		}

		note := storage.Note{
			ID:        uuid.New().String(),
			CreatedAt: time.Now().UTC(),
			Source:    req.Source,
			Content:   strings.TrimSpace(req.Content),
		}
		if err := deps.Store.SaveNote(note); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving note: %v", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]string{"id": note.ID})
	}
}

func handleListNotes(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryLimit(r, 20)
		notes, err := deps.Store.ListNotes(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing notes: %v", err)
			return
		}
		if notes == nil {
			notes = []storage.Note{}
		}
		writeJSON(w, notes)
	}
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

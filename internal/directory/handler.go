package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// apiResponse is the envelope every directory endpoint answers with.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Register mounts the directory REST API on the mux.
func Register(mux *http.ServeMux, s *Store) {
	mux.HandleFunc("GET /api/rooms", s.handleList)
	mux.HandleFunc("POST /api/rooms", s.handleCreate)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleGet)
	mux.HandleFunc("PUT /api/rooms/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/rooms/{id}", s.handleDelete)
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("writing directory response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiResponse{Success: false, Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExists):
		return http.StatusConflict
	case errors.Is(err, ErrProtected):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Store) handleList(w http.ResponseWriter, r *http.Request) {
	sortKey := r.URL.Query().Get("sort")
	if sortKey == "" {
		sortKey = "name"
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	rooms := s.List(sortKey, limit)
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data:    rooms,
		Message: fmt.Sprintf("Retrieved %d chat rooms", len(rooms)),
	})
}

func (s *Store) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := s.Create(body.Name, body.Description)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Data:    room,
		Message: "Chat room created successfully",
	})
}

func (s *Store) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if r.URL.Query().Get("stats") == "true" {
		room, stats, err := s.GetStats(id)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{
			Success: true,
			Data: struct {
				Room
				Stats Stats `json:"stats"`
			}{Room: room, Stats: stats},
			Message: fmt.Sprintf("Retrieved room: %s", room.Name),
		})
		return
	}

	room, err := s.Get(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data:    room,
		Message: fmt.Sprintf("Retrieved room: %s", room.Name),
	})
}

func (s *Store) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := s.Update(id, body.Name, body.Description)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data:    room,
		Message: "Room updated successfully",
	})
}

func (s *Store) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	room, err := s.Delete(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("Room %q deleted successfully", room.Name),
	})
}

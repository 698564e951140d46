package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"todonotes/internal/app"
	"todonotes/internal/domain"
	"todonotes/internal/service"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.healthHandler)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.listTasksHandler)
		r.Post("/", s.createTaskHandler)
		r.Get("/search", s.searchTasksHandler)
		r.Get("/{id}", s.getTaskByIDHandler)
		r.Put("/{id}", s.updateTaskHandler)
		r.Patch("/{id}/done", s.toggleTaskHandler)
		r.Delete("/{id}", s.deleteTaskHandler)
	})

	r.Post("/sync", s.syncHandler)
	r.Post("/refresh", s.refreshHandler)

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.app.Load(r.Context())
	if err != nil {
		respondWithAppError(w, err, "Failed to retrieve tasks")
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTaskRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&req)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		if errors.As(err, &syntaxError) {
			msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
			respondWithError(w, http.StatusBadRequest, msg)
		} else if errors.Is(err, io.ErrUnexpectedEOF) {
			msg := "Request body contains badly-formed JSON"
			respondWithError(w, http.StatusBadRequest, msg)
		} else if errors.As(err, &unmarshalTypeError) {
			msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
			respondWithError(w, http.StatusBadRequest, msg)
		} else if strings.HasPrefix(err.Error(), "json: unknown field ") {
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			msg := fmt.Sprintf("Request body contains unknown field %s", fieldName)
			respondWithError(w, http.StatusBadRequest, msg)
		} else if errors.Is(err, io.EOF) {
			msg := "Request body must not be empty"
			respondWithError(w, http.StatusBadRequest, msg)
		} else {
			log.Printf("Error decoding create task request: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Error processing request")
		}
		return
	}

	tasks, err := s.app.Add(r.Context(), req)
	if err != nil {
		respondWithAppError(w, err, "Failed to create task")
		return
	}
	respondWithJSON(w, http.StatusCreated, tasks)
}

func (s *Server) searchTasksHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	respondWithJSON(w, http.StatusOK, s.app.Search(query))
}

func (s *Server) getTaskByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDFromURL(w, r)
	if !ok {
		return
	}

	task, err := s.app.Get(r.Context(), id)
	if err != nil {
		respondWithAppError(w, err, "Failed to retrieve task")
		return
	}
	respondWithJSON(w, http.StatusOK, task)
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDFromURL(w, r)
	if !ok {
		return
	}

	var req service.UpdateTaskRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		log.Printf("Error decoding update task request: %v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tasks, err := s.app.Edit(r.Context(), id, req)
	if err != nil {
		respondWithAppError(w, err, "Failed to update task")
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

// toggleTaskHandler flips the done flag, or sets it explicitly when
// the body carries {"done": …}.
func (s *Server) toggleTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDFromURL(w, r)
	if !ok {
		return
	}

	var body struct {
		Done *bool `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		tasks []service.TaskResponse
		err   error
	)
	if body.Done != nil {
		tasks, err = s.app.SetDone(r.Context(), id, *body.Done)
	} else {
		tasks, err = s.app.Toggle(r.Context(), id)
	}
	if err != nil {
		respondWithAppError(w, err, "Failed to update task")
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDFromURL(w, r)
	if !ok {
		return
	}

	tasks, err := s.app.Delete(r.Context(), id)
	if err != nil {
		respondWithAppError(w, err, "Failed to delete task")
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

type syncResponse struct {
	Inserted int                    `json:"inserted"`
	Message  string                 `json:"message"`
	Tasks    []service.TaskResponse `json:"tasks"`
}

func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	// The batch runs to completion even if the client goes away; a
	// disconnect must not cancel the in-flight fetch.
	result, tasks, err := s.app.Sync(context.WithoutCancel(r.Context()))
	if err != nil {
		respondWithAppError(w, err, "Failed to sync tasks")
		return
	}
	respondWithJSON(w, http.StatusOK, syncResponse{
		Inserted: result.Inserted,
		Message:  result.Message,
		Tasks:    tasks,
	})
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.app.Refresh(r.Context())
	if err != nil {
		respondWithAppError(w, err, "Failed to refresh tasks")
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

func taskIDFromURL(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid task ID provided")
		return 0, false
	}
	return uint(id), true
}

// respondWithAppError maps the domain error kinds onto HTTP statuses.
// Anything unrecognized is a 500 with a generic message.
func respondWithAppError(w http.ResponseWriter, err error, fallback string) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		syncErr       *domain.SyncError
	)
	switch {
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		respondWithError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &syncErr):
		respondWithError(w, http.StatusBadGateway, syncErr.Error())
	case errors.Is(err, app.ErrSyncInFlight):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("%s: %v", fallback, err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling JSON response: %v", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

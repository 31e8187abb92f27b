package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baxromumarov/page-analyzer/internal/core"
	"github.com/baxromumarov/page-analyzer/internal/observability"
	"github.com/baxromumarov/page-analyzer/internal/store"
)

const (
	levelSuccess = "success"
	levelDanger  = "danger"
)

// Notice is the transient message a client shows after an action.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type actionResponse struct {
	Notice   Notice          `json:"notice"`
	Redirect string          `json:"redirect,omitempty"`
	URL      *store.URL      `json:"url,omitempty"`
	Check    *store.URLCheck `json:"check,omitempty"`
}

type RegisterURLRequest struct {
	URL struct {
		Name string `json:"name"`
	} `json:"url"`
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name": "page-analyzer",
		"routes": []string{
			"GET /urls?page={n}",
			"POST /urls",
			"GET /urls/{id}",
			"POST /urls/{id}/checks",
		},
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, observability.Snapshot())
}

func (s *Server) handleListURLs(w http.ResponseWriter, r *http.Request) {
	page, err := s.urls.ListURLs(r.Context(), parsePage(r))
	if err != nil {
		s.logger.Error("list urls failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch urls")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleShowURL(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	detail, err := s.urls.ShowURL(r.Context(), id)
	if errors.Is(err, core.ErrURLNotFound) {
		respondNotice(w, http.StatusNotFound, levelDanger, "Url not found", "/urls")
		return
	}
	if err != nil {
		s.logger.Error("show url failed", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch url")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRegisterURL(w http.ResponseWriter, r *http.Request) {
	raw, err := readURLName(r)
	if err != nil {
		respondNotice(w, http.StatusBadRequest, levelDanger, "Invalid request body", "/")
		return
	}

	u, err := s.urls.RegisterURL(r.Context(), raw)
	if err != nil {
		status, message := registrationFailure(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("register url failed", "error", err)
		}
		respondNotice(w, status, levelDanger, message, "/")
		return
	}

	respondJSON(w, http.StatusCreated, actionResponse{
		Notice:   Notice{Level: levelSuccess, Message: fmt.Sprintf("Url '%s' added successfully!", u.Name)},
		Redirect: "/urls",
		URL:      &u,
	})
}

func (s *Server) handleRunCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	back := fmt.Sprintf("/urls/%d", id)

	check, err := s.urls.RunCheck(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrURLNotFound):
		respondNotice(w, http.StatusNotFound, levelDanger, "Url not found", "/urls")
		return
	case errors.Is(err, core.ErrUnavailable):
		respondNotice(w, http.StatusBadGateway, levelDanger, "The site not available", back)
		return
	case err != nil:
		s.logger.Error("run check failed", "id", id, "error", err)
		respondNotice(w, http.StatusInternalServerError, levelDanger, "Internal error", back)
		return
	}

	respondJSON(w, http.StatusCreated, actionResponse{
		Notice:   Notice{Level: levelSuccess, Message: "The Site has been verified successfully!"},
		Redirect: back,
		Check:    &check,
	})
}

func registrationFailure(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrEmptyURL):
		return http.StatusUnprocessableEntity, "URL must not be empty"
	case errors.Is(err, core.ErrMalformedURL):
		return http.StatusUnprocessableEntity, "Invalid URL"
	case errors.Is(err, core.ErrDuplicateURL):
		return http.StatusConflict, "Site already exists!"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func respondNotice(w http.ResponseWriter, status int, level, message, redirect string) {
	respondJSON(w, status, actionResponse{
		Notice:   Notice{Level: level, Message: message},
		Redirect: redirect,
	})
}

// readURLName accepts {"url": {"name": ...}} or a form field url[name].
func readURLName(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req RegisterURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		return req.URL.Name, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostForm.Get("url[name]"), nil
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid url ID")
		return 0, false
	}
	return id, true
}

func parsePage(r *http.Request) int {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return page
}

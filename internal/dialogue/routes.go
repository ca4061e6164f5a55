package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/scene-clarify/internal/llm"
)

// SceneExtractor turns an image into scene JSON text.
type SceneExtractor interface {
	Extract(ctx context.Context, img llm.Image) (string, error)
}

// RegisterRoutes mounts the dialogue API routes. extractor may be nil, in
// which case scene extraction answers 503.
func RegisterRoutes(r chi.Router, svc *Service, extractor SceneExtractor) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/scene", handleScene(svc, extractor))
		r.Post("/answer", handleAnswer(svc))
		r.Post("/sessions", handleCreateSession(svc))
		r.Get("/sessions/{id}", handleGetSession(svc))
		r.Delete("/sessions/{id}", handleDeleteSession(svc))
		r.Get("/dialogue/ws", handleWebSocket(svc))
	})
}

type sceneRequest struct {
	ImageDataURL  string `json:"imageDataUrl"`
	CreateSession bool   `json:"create_session"`
}

type sceneResponse struct {
	SceneJSONText string `json:"sceneJsonText"`
	SessionID     string `json:"session_id,omitempty"`
}

func handleScene(svc *Service, extractor SceneExtractor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if extractor == nil {
			writeError(w, http.StatusServiceUnavailable, "scene extraction is not configured")
			return
		}
		var req sceneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		img, err := llm.ParseDataURL(req.ImageDataURL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		text, err := extractor.Extract(r.Context(), img)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		resp := sceneResponse{SceneJSONText: text}
		if req.CreateSession {
			sess, err := svc.StartSession(r.Context(), text, req.ImageDataURL)
			if err != nil {
				writeError(w, statusFor(err), err.Error())
				return
			}
			resp.SessionID = sess.ID
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAnswer(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TurnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.Turn(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createSessionRequest struct {
	SceneJSONText string `json:"sceneJsonText"`
	ImageDataURL  string `json:"imageDataUrl"`
}

func handleCreateSession(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, err := svc.StartSession(r.Context(), req.SceneJSONText, req.ImageDataURL)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func handleGetSession(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Session(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func handleDeleteSession(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.EndSession(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// statusFor maps dialogue errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTurnLimit):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/hazyhaar/agriquery/pkg/answer"
	"github.com/hazyhaar/agriquery/pkg/kit"
	"github.com/hazyhaar/agriquery/pkg/source"
)

// NewRouter returns an http.Handler with all agriquery API routes.
func NewRouter(s *Service) http.Handler {
	mux := http.NewServeMux()
	h := &handler{
		ask:         askEndpoint(s),
		listRegions: listRegionsEndpoint(s),
		svc:         s,
	}

	mux.HandleFunc("GET /v1/ask", h.handleAskQuery)
	mux.HandleFunc("POST /v1/ask", h.handleAskBody)
	mux.HandleFunc("GET /v1/regions", h.handleListRegions)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(requestID(mux))
}

type handler struct {
	ask         kit.Endpoint
	listRegions kit.Endpoint
	svc         *Service
}

// --- ask ---

func (h *handler) handleAskQuery(w http.ResponseWriter, r *http.Request) {
	h.serveAsk(w, r, r.URL.Query().Get("q"))
}

type httpAskRequest struct {
	Question string `json:"question"`
}

func (h *handler) handleAskBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req httpAskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.serveAsk(w, r, req.Question)
}

// serveAsk writes the answer as a plain text block. The answer kind goes in
// X-Answer-Kind so clients can tell a report from a clarifying prompt.
func (h *handler) serveAsk(w http.ResponseWriter, r *http.Request, question string) {
	resp, err := h.ask(r.Context(), &askReq{Question: question})
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, errEmptyQuestion) || errors.Is(err, errLongQuestion) {
			code = http.StatusBadRequest
		}
		writeError(w, code, err.Error())
		return
	}
	res := resp.(*answer.Result)

	code := http.StatusOK
	if res.Kind == answer.KindError {
		code = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Answer-Kind", string(res.Kind))
	w.WriteHeader(code)
	w.Write([]byte(res.Text))
}

// --- list regions ---

func (h *handler) handleListRegions(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listRegions(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status  string          `json:"status"`
	Regions int             `json:"regions"`
	Sources []source.Record `json:"sources,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Regions: h.svc.Engine.Registry().Len()}
	if h.svc.Sources != nil {
		records, err := h.svc.Sources.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Sources = records
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// requestID propagates X-Request-ID, minting one when the client sent none.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Answer-Kind, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/viant/docrag/indexer/fs"
	"github.com/viant/docrag/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type promptRequest struct {
	Question string `json:"question"`
}

type promptSource struct {
	Filename   string `json:"filename"`
	Category   string `json:"category"`
	ChunkIndex int    `json:"chunkIndex"`
}

type promptResponse struct {
	Answer  string         `json:"answer"`
	Sources []promptSource `json:"sources"`
}

type rechunkResponse struct {
	Message      string `json:"message"`
	Documents    int    `json:"documents"`
	Chunks       int    `json:"chunks"`
	Stored       int    `json:"stored"`
	Skipped      int    `json:"skipped"`
	Stale        int    `json:"stale"`
	ChunkLength  int    `json:"chunkLength"`
	ChunkOverlap int    `json:"chunkOverlap"`
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file is too large", Details: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: service.ErrMissingUpload.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	category := r.FormValue("category")
	file, header, err := r.FormFile("file")
	if err != nil || strings.TrimSpace(category) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: service.ErrMissingUpload.Error()})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read file", Details: err.Error()})
		return
	}
	if data == nil {
		data = []byte{}
	}

	result, err := s.svc.Upload(r.Context(), &service.UploadRequest{Category: category, Filename: header.Filename, Data: data})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMissingUpload):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, service.ErrNoText):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: service.ErrNoText.Error(), Details: err.Error()})
		return
	case errors.Is(err, service.ErrNoChunks):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: service.ErrNoChunks.Error(), Details: err.Error()})
		return
	case errors.Is(err, fs.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid category or file name", Details: err.Error()})
		return
	default:
		s.logf("upload failed request_id=%s err=%v", RequestID(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to process upload", Details: err.Error()})
		return
	}
	s.metrics.observeIngest(result.Stored, result.Skipped)
	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("File %s uploaded to %s and indexed: %d chunks stored, %d skipped", result.Filename, displayCategory(result.Category), result.Stored, result.Skipped),
	})
}

func (s *Server) prompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Details: err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: service.ErrMissingQuestion.Error()})
		return
	}
	got, err := s.svc.Ask(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, service.ErrMissingQuestion) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.logf("prompt failed request_id=%s err=%v", RequestID(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to answer question", Details: err.Error()})
		return
	}
	if got.Fallback {
		s.metrics.fallbackAnswer.Inc()
	}
	resp := promptResponse{Answer: got.Answer, Sources: make([]promptSource, 0, len(got.Sources))}
	for _, source := range got.Sources {
		resp.Sources = append(resp.Sources, promptSource{Filename: source.Filename, Category: source.Category, ChunkIndex: source.ChunkIndex})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) rechunk(w http.ResponseWriter, r *http.Request) {
	req := &service.RechunkRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Details: err.Error()})
		return
	}
	result, err := s.svc.Rechunk(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNoDocuments):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "No matching documents found"})
		return
	case errors.Is(err, service.ErrInvalidChunking):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: service.ErrInvalidChunking.Error(), Details: err.Error()})
		return
	default:
		s.logf("rechunk failed request_id=%s err=%v", RequestID(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to rechunk documents", Details: err.Error()})
		return
	}
	s.metrics.observeIngest(result.Stored, result.Skipped)
	writeJSON(w, http.StatusOK, rechunkResponse{
		Message:      "Documents rechunked successfully",
		Documents:    result.Documents,
		Chunks:       result.Chunks,
		Stored:       result.Stored,
		Skipped:      result.Skipped,
		Stale:        result.Stale,
		ChunkLength:  result.ChunkLength,
		ChunkOverlap: result.ChunkOverlap,
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func displayCategory(category string) string {
	if category == "" {
		return "/"
	}
	return category
}

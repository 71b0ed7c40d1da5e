package httpapi

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/gophbackup/internal/common"
)

var listTemplate = template.Must(template.New("list").Parse(`<html><head><title>backup</title></head><body>
{{range .}}<a href='/download/{{.}}'>{{.}}</a><br>
{{end}}</body></html>
`))

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if !hasBody(r) {
		http.Error(w, "request body is required", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}

	if err := s.files.Upload(r.Context(), name, data); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names := s.files.List(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := listTemplate.Execute(w, names); err != nil {
		s.logger.Error(r.Context(), "render list", "error", err)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	data, err := s.files.Download(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn(r.Context(), "write response", "name", name, "error", err)
	}
}

// hasBody reports whether the client sent a body at all. An explicit
// Content-Length of zero is an empty file, no length and no chunking is a
// missing body.
func hasBody(r *http.Request) bool {
	if r.ContentLength != 0 || len(r.TransferEncoding) > 0 {
		return true
	}
	return r.Header.Get("Content-Length") != ""
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, common.ErrorValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		http.Error(w, fmt.Sprintf("internal error: %s", requestIDFrom(r.Context())), http.StatusInternalServerError)
	}
}

// Package server serves rendered grids over HTTP: on-the-fly OGP images
// and a small upload store for sharing them.
package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dotgrid/codec"
	"dotgrid/config"
	"dotgrid/palette"
	"dotgrid/render"
	"dotgrid/sharecode"
)

const (
	maxBodySize   = 1 << 20
	dataURLPrefix = "data:image/png;base64,"
)

type Server struct {
	Layout  config.LayoutConfig
	Palette palette.Palette
	Engine  render.Engine
	Store   Store

	CacheMaxAge int
	// PublicURL replaces the request origin in upload responses.
	PublicURL string

	now func() time.Time
}

func New(cfg *config.Config, pal palette.Palette, eng render.Engine, store Store) *Server {
	return &Server{
		Layout:      cfg.Layout,
		Palette:     pal,
		Engine:      eng,
		Store:       store,
		CacheMaxAge: cfg.Server.CacheMaxAge,
		PublicURL:   strings.TrimSuffix(cfg.Server.PublicURL, "/"),
		now:         time.Now,
	}
}

// Handler returns the routes. Unsupported methods on known paths get 405,
// OPTIONS gets 204 everywhere.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ogp", s.handleOGP)
	mux.HandleFunc("POST /images", s.handleUpload)
	mux.HandleFunc("GET /images/{key}", s.handleImage)
	return logRequests(cors(mux))
}

// cors allows every origin and answers preflight requests for any path.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			handleOptions(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start))
	})
}

func handleOptions(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Access-Control-Allow-Origin, Access-Control-Allow-Methods, Access-Control-Allow-Headers")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writePNG(w http.ResponseWriter, data []byte) {
	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", s.CacheMaxAge))
	w.Write(data)
}

// handleOGP renders the share code in the data query parameter. A missing
// parameter renders the empty grid.
func (s *Server) handleOGP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("data")
	data, err := render.RenderCode(r.Context(), s.Engine, s.Layout, s.Palette, code)
	if err != nil {
		s.fail(w, r, "could not render image", err)
		return
	}
	s.writePNG(w, data)
}

type uploadRequest struct {
	Data string `json:"data"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

// handleUpload stores an image and answers with its public URL. Data is
// either a share code, rendered with the configured layout, or a PNG data
// URL which is stored as is.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Data == "" {
		http.Error(w, "no data provided", http.StatusBadRequest)
		return
	}

	var data []byte
	if b64, ok := strings.CutPrefix(req.Data, dataURLPrefix); ok {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			http.Error(w, "invalid image data: "+err.Error(), http.StatusBadRequest)
			return
		}
		data = raw
	} else {
		rendered, err := render.RenderCode(r.Context(), s.Engine, s.Layout, s.Palette, req.Data)
		if err != nil {
			s.fail(w, r, "could not render image", err)
			return
		}
		data = rendered
	}

	img, err := codec.Decode(data)
	if err != nil {
		http.Error(w, "invalid image data: "+err.Error(), http.StatusBadRequest)
		return
	}
	b := img.Bounds()
	key := fmt.Sprintf("ogp-image-%d-%dx%d.png", s.now().UnixMilli(), b.Dx(), b.Dy())

	if err := s.Store.Put(r.Context(), key, data); err != nil {
		s.fail(w, r, "could not store image", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{URL: s.origin(r) + "/images/" + url.PathEscape(key)})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.Store.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		s.fail(w, r, "could not load image", err)
		return
	}
	s.writePNG(w, data)
}

func (s *Server) origin(r *http.Request) string {
	if s.PublicURL != "" {
		return s.PublicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrInvalidKey),
		errors.Is(err, sharecode.ErrInvalidCode),
		errors.Is(err, sharecode.ErrTruncated),
		errors.Is(err, sharecode.ErrCorrupt),
		errors.Is(err, sharecode.ErrTooLarge),
		errors.Is(err, render.ErrGridTooLarge):
		status = http.StatusBadRequest
	}

	logger := slog.Default().With("method", r.Method, "path", r.URL.Path)
	if status == http.StatusInternalServerError {
		logger.Error(msg, "error", err)
	} else {
		logger.Debug(msg, "status", status, "error", err)
	}
	http.Error(w, msg+": "+err.Error(), status)
}

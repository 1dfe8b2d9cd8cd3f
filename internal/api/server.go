package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dshills/diffpack/internal/differr"
	"github.com/dshills/diffpack/internal/diffpack"
	"github.com/dshills/diffpack/internal/gitctx"
)

// Server exposes the pipeline over HTTP. Responses on /diff are the same
// envelope the CLI prints.
type Server struct {
	version string
	open    diffpack.Opener
}

// New builds a server reporting the given tool version.
func New(version string, open diffpack.Opener) *Server {
	return &Server{version: version, open: open}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /diff", s.handleDiff)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

// diffRequest mirrors the run configuration fields. Omitted caps fall back
// to the defaults.
type diffRequest struct {
	RepoURL              string `json:"repo_url"`
	CommitGood           string `json:"commit_good"`
	CommitCandidate      string `json:"commit_candidate"`
	BranchName           string `json:"branch_name"`
	CapTotal             *int   `json:"cap_total"`
	CapFile              *int   `json:"cap_file"`
	ContextLines         *int   `json:"context_lines"`
	FindRenamesThreshold *int   `json:"find_renames_threshold"`
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeEnvelope(w, http.StatusBadRequest, diffpack.Envelope{
			OK:    false,
			Error: differr.CapsInvalid("malformed request body: " + err.Error()),
		})
		return
	}

	cfg := diffpack.DefaultConfig()
	cfg.RepoURL = req.RepoURL
	cfg.CommitGood = req.CommitGood
	cfg.CommitCandidate = req.CommitCandidate
	cfg.BranchName = req.BranchName
	if req.CapTotal != nil {
		cfg.CapTotal = *req.CapTotal
	}
	if req.CapFile != nil {
		cfg.CapFile = *req.CapFile
	}
	if req.ContextLines != nil {
		cfg.ContextLines = *req.ContextLines
	}
	if req.FindRenamesThreshold != nil {
		cfg.RenameThreshold = *req.FindRenamesThreshold
	}

	envelope := diffpack.Run(r.Context(), cfg, s.open)

	status := http.StatusOK
	if !envelope.OK {
		status = errorStatus(envelope.Error)
		slog.Warn("diff request failed", "code", envelope.Error.Code, "status", status)
	}
	s.writeEnvelope(w, status, envelope)
}

// errorStatus maps the failure taxonomy onto HTTP status codes.
func errorStatus(e *differr.Error) int {
	switch e.Code {
	case differr.CodeCapsInvalid:
		return http.StatusBadRequest
	case differr.CodeCommitNotFound:
		return http.StatusNotFound
	case differr.CodeNetworkTimeout:
		return http.StatusGatewayTimeout
	case differr.CodeCloneFailed, differr.CodeGitVersionUnsupported:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEnvelope(w http.ResponseWriter, status int, envelope diffpack.Envelope) {
	body, err := diffpack.CanonicalBytes(diffpack.EnvelopeView(envelope))
	if err != nil {
		http.Error(w, `{"ok":false,"error":{"code":"INTERNAL_ERROR","message":"encoding failed"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	gitVersion, err := gitctx.DetectVersion(r.Context())
	resp := map[string]any{
		"status":        "healthy",
		"version":       s.version,
		"git_available": err == nil,
	}
	if err == nil {
		resp["git_version"] = gitVersion
	} else {
		resp["git_version"] = nil
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	gitVersion, err := gitctx.DetectVersion(r.Context())
	resp := map[string]any{
		"version":     s.version,
		"api_version": "v1",
	}
	if err == nil {
		resp["git_version"] = gitVersion
	} else {
		resp["git_version"] = nil
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":        "diffpack",
		"version":     s.version,
		"description": "Deterministic commit-to-commit diff payloads",
		"endpoints": map[string]any{
			"diff":    "POST /diff - Create deterministic diff",
			"health":  "GET /health - Health check",
			"version": "GET /version - Version information",
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

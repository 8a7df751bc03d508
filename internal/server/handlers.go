package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bindery/foredge/internal/edge"
	"github.com/bindery/foredge/internal/faults"
	"github.com/bindery/foredge/internal/geom"
	"github.com/bindery/foredge/internal/pipeline"
)

// ProcessRequest is the POST /process manifest.
type ProcessRequest struct {
	PDF      string       `json:"pdf"` // base64
	DesignID string       `json:"design_id,omitempty"`
	Edges    EdgeManifest `json:"edges"`
	Options  RunOptions   `json:"options,omitempty"`
}

// EdgeManifest names the artwork per edge.
type EdgeManifest struct {
	Side   *EdgeEntry `json:"side,omitempty"`
	Top    *EdgeEntry `json:"top,omitempty"`
	Bottom *EdgeEntry `json:"bottom,omitempty"`
}

// EdgeEntry is one edge's artwork: a base64 image or a hex color.
type EdgeEntry struct {
	Image string `json:"image,omitempty"`
	Color string `json:"color,omitempty"`
}

// RunOptions are the optional processing knobs.
type RunOptions struct {
	Bleed     string `json:"bleed,omitempty"`
	EdgeMode  string `json:"edge_mode,omitempty"`
	Scale     string `json:"scale,omitempty"`
	PaperType string `json:"paper_type,omitempty"`
}

// ProcessResponse acknowledges an accepted run.
type ProcessResponse struct {
	RunID string `json:"run_id"`
}

// handleProcess validates the manifest, starts an async run, and returns
// its id.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request too large: %v", err)
		return
	}
	if err := validateManifest(body); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	var req ProcessRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid manifest: %v", err)
		return
	}
	pipeReq, err := buildPipelineRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	run := s.runs.Start(s.pipe, *pipeReq)
	s.logger.Info("accepted run", "run", run.ID, "design", req.DesignID)
	writeJSON(w, http.StatusAccepted, ProcessResponse{RunID: run.ID})
}

// buildPipelineRequest decodes the manifest into a pipeline request.
func buildPipelineRequest(req ProcessRequest) (*pipeline.Request, error) {
	source, err := base64.StdEncoding.DecodeString(req.PDF)
	if err != nil {
		return nil, fmt.Errorf("invalid pdf encoding: %w", err)
	}

	images := edge.ImageSet{}
	for _, e := range []struct {
		entry *EdgeEntry
		dst   **edge.Entry
	}{
		{req.Edges.Side, &images.Side},
		{req.Edges.Top, &images.Top},
		{req.Edges.Bottom, &images.Bottom},
	} {
		if e.entry == nil {
			continue
		}
		if e.entry.Color != "" {
			*e.dst = &edge.Entry{Color: e.entry.Color}
			continue
		}
		img, err := base64.StdEncoding.DecodeString(e.entry.Image)
		if err != nil {
			return nil, fmt.Errorf("invalid edge image encoding: %w", err)
		}
		*e.dst = &edge.Entry{Image: img}
	}

	mode := edge.Mode(req.Options.EdgeMode)
	if req.Options.EdgeMode == "" {
		mode = edge.SideOnly
	}
	bleed := geom.BleedMode(req.Options.Bleed)
	if req.Options.Bleed == "" {
		bleed = geom.BleedAdd
	}

	return &pipeline.Request{
		Source:    source,
		DesignID:  req.DesignID,
		Images:    images,
		Mode:      mode,
		Bleed:     bleed,
		ScaleMode: edge.ScaleMode(req.Options.Scale),
		PaperType: req.Options.PaperType,
	}, nil
}

// handleRunStatus reports a run's state, progress and warnings.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}
	writeJSON(w, http.StatusOK, run.Status())
}

// handleRunResult streams the finished document. 404 unknown, 409 while
// running, 410 once the result has been delivered and released.
func (s *Server) handleRunResult(w http.ResponseWriter, r *http.Request) {
	run, ok := s.runs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}

	data, state, delivered := run.TakeResult()
	switch {
	case state == StateFailed:
		writeError(w, http.StatusConflict, "run failed: %s", run.Status().Error)
	case state != StateComplete:
		writeError(w, http.StatusConflict, "run still in progress")
	case delivered:
		writeError(w, http.StatusGone, "result already delivered and cleaned up")
	default:
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

// handleAnalyze reports page count and trim dimensions of an uploaded
// document without processing it.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request too large: %v", err)
		return
	}
	a, err := pipeline.Analyze(body)
	if err != nil {
		status := http.StatusUnprocessableEntity
		var f *faults.Fault
		if errors.As(err, &f) && f.Kind == faults.KindValidation {
			status = http.StatusBadRequest
		}
		writeError(w, status, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns basic server health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opd-ai/readnotes/notecompiler"
	readnotes "github.com/opd-ai/readnotes/src"
	"github.com/opd-ai/readnotes/srv/exporter"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jobsM.RLock()
	running := len(s.jobs)
	s.jobsM.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"runningJobs": running,
	})
}

type fontInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleFonts(w http.ResponseWriter, r *http.Request) {
	var fonts []fontInfo
	for _, f := range readnotes.AllFonts() {
		fonts = append(fonts, fontInfo{ID: f.ID(), Name: f.Name()})
	}
	writeJSON(w, http.StatusOK, fonts)
}

func (s *Server) handleBackgrounds(w http.ResponseWriter, r *http.Request) {
	backgrounds, err := s.compiler.Backgrounds()
	if err != nil {
		s.logger.Error("failed to list backgrounds", "error", err)
		http.Error(w, "Failed to list backgrounds", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, backgrounds)
}

// handleExport renders the posted note and answers with the PDF itself.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	note, ok := s.decodeNote(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	result, err := s.compiler.Export(r.Context(), note, &buf)
	if err != nil {
		s.writeExportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition(note.Title))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Page-Count", strconv.Itoa(result.Pages))
	w.Header().Set("X-Skipped-Images", strconv.Itoa(result.SkippedImages))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("failed to send document", "error", err)
	}
}

// handleCreateJob starts a background export and returns its id right away.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	note, ok := s.decodeNote(w, r)
	if !ok {
		return
	}
	if err := note.Validate(); err != nil {
		s.writeExportError(w, err)
		return
	}

	jobID := uuid.New().String()
	progress := exporter.NewExportProgress(jobID, note.Title, s.AddMessage, s.logger)
	ctx := progress.Bind(s.baseCtx)

	s.jobsM.Lock()
	s.jobs[jobID] = progress
	s.jobsM.Unlock()
	s.AddMessage(jobID, exporter.NewWSMessage("update", string(exporter.StateQueued), "Export queued", ""))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer progress.MarkDone()
		defer s.finishJob(jobID, progress)
		if err := exporter.RunExport(ctx, s.compiler, progress, note, s.outputDir); err != nil {
			s.logger.Warn("export job failed", "job", jobID, "error", err)
		}
	}()

	w.Header().Set("X-Job-Id", jobID)
	writeJSON(w, http.StatusAccepted, progress.Status())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	progress, ok := s.jobFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, progress.Status())
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if !isValidJobID(jobID) {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return
	}
	messages, dropped := s.history(jobID)
	w.Header().Set("X-Dropped-Messages", strconv.Itoa(dropped))
	writeJSON(w, http.StatusOK, messages)
}

// handleDeleteJob cancels a running job, or forgets a finished one along
// with its document.
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	progress, ok := s.jobFromRequest(w, r)
	if !ok {
		return
	}
	if progress.Cancel() {
		writeJSON(w, http.StatusAccepted, progress.Status())
		return
	}
	<-progress.Done
	s.cache.Delete(progress.JobID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	progress, ok := s.jobFromRequest(w, r)
	if !ok {
		return
	}
	file, ready := progress.OutputFile()
	if !ready {
		http.Error(w, fmt.Sprintf("Job is %s", progress.GetState()), http.StatusConflict)
		return
	}

	f, err := os.Open(file)
	if err != nil {
		s.logger.Error("failed to open job output", "job", progress.JobID, "error", err)
		http.Error(w, "Document no longer available", http.StatusGone)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, "Document no longer available", http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", contentDisposition(progress.Title))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) jobFromRequest(w http.ResponseWriter, r *http.Request) (*exporter.ExportProgress, bool) {
	jobID := chi.URLParam(r, "jobID")
	if !isValidJobID(jobID) {
		http.Error(w, "Invalid job id", http.StatusBadRequest)
		return nil, false
	}
	progress, ok := s.lookupJob(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return nil, false
	}
	return progress, true
}

func (s *Server) decodeNote(w http.ResponseWriter, r *http.Request) (*readnotes.Note, bool) {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	note, err := readnotes.DecodeNote(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Note too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return note, true
}

func (s *Server) maxBodyBytes() int64 {
	if s.cfg.MaxBodyBytes > 0 {
		return s.cfg.MaxBodyBytes
	}
	return 1 << 20
}

func (s *Server) writeExportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, readnotes.ErrInvalidNote):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, notecompiler.ErrBackground):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Info("export abandoned", "error", err)
		http.Error(w, "Export cancelled", http.StatusServiceUnavailable)
	default:
		s.logger.Error("export failed", "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

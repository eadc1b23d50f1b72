package server

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nao1215/dupcheck/internal/model"
	"github.com/nao1215/dupcheck/internal/pipeline"
)

// Response messages.
const (
	msgCompleted        = "Duplicate content check completed successfully"
	msgFileNotFound     = "File not found"
	msgOutputNotAllowed = "Output path not allowed"
	downloadPrefix      = "/api/v1/download-result/"
)

// checkResponse is returned by both check endpoints on success.
type checkResponse struct {
	Message     string `json:"message"`
	OutputPath  string `json:"output_path"`
	DownloadURL string `json:"download_url"`
}

// errorResponse carries the failure description.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCheck returns the handler of the sync or async check endpoint.
//
// The two differ in lookup concurrency, admission, and cleanup: the sync
// endpoint removes a caller-supplied output file when the run fails, the
// async endpoint leaves it in place.
func (s *Server) handleCheck(async bool) http.HandlerFunc {
	endpoint := "sync"
	if async {
		endpoint = "async"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		outputPath := r.URL.Query().Get("output_path")
		callerOutput := outputPath != ""
		if callerOutput {
			if err := s.checkAllowed(outputPath); err != nil {
				s.logger.Warn("rejected output path", "endpoint", endpoint, "path", outputPath)
				writeError(w, http.StatusForbidden, msgOutputNotAllowed)
				return
			}
		}

		input, err := s.saveUpload(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		defer s.removeTemp(input)

		if !callerOutput {
			outputPath = pipeline.DefaultOutputPath(input, s.now())
		}

		concurrency := 1
		if async {
			if err := s.sem.Acquire(r.Context(), 1); err != nil {
				writeError(w, http.StatusServiceUnavailable, "Request cancelled while waiting for a worker")
				return
			}
			defer s.sem.Release(1)
			concurrency = s.concurrency
		}

		report, err := s.run(r, endpoint, input, outputPath, concurrency)
		if err != nil {
			s.logger.Error("duplicate check failed",
				"endpoint", endpoint,
				"run_id", report.ID,
				"error", err,
			)
			if !async && callerOutput {
				removeIfExists(outputPath)
			}
			writeError(w, http.StatusInternalServerError, "Error processing file: "+err.Error())
			return
		}

		writeJSON(w, http.StatusOK, checkResponse{
			Message:     msgCompleted,
			OutputPath:  outputPath,
			DownloadURL: DownloadURL(outputPath),
		})
	}
}

// run executes the pipeline and records metrics and history.
func (s *Server) run(r *http.Request, endpoint, input, output string, concurrency int) (*model.CheckReport, error) {
	if s.metrics != nil {
		done := s.metrics.RunStarted()
		defer done()
	}

	start := time.Now()
	report, err := pipeline.Run(r.Context(), input, output, pipeline.Options{
		Looker:        s.looker,
		Concurrency:   concurrency,
		Mode:          s.mode,
		SkipMalformed: s.skipMalformed,
		MinScore:      s.minScore,
		Overwrite:     true,
		Logger:        s.logger,
	})

	if s.metrics != nil {
		s.metrics.ObserveRun(endpoint, time.Since(start), len(report.Sentences), report.Matches.MatchCount(), err)
	}
	if s.history != nil {
		if herr := s.history.SaveRun(r.Context(), report); herr != nil {
			s.logger.Warn("failed to save run history", "run_id", report.ID, "error", herr)
		}
	}
	return report, err
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	// chi routes on RawPath when the request carried escapes that
	// Path cannot represent, such as %2F.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(path)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid file path")
			return
		}
		path = unescaped
	}

	if err := s.checkAllowed(path); err != nil {
		s.logger.Debug("download rejected", "path", path, "error", err)
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	f, err := os.Open(path) //nolint:gosec // path is checked against allowed directories
	if err != nil {
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/markdown")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filepath.Base(path))))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

// checkAllowed reports whether path may be downloaded.
// No allowed directories means any path is allowed.
func (s *Server) checkAllowed(path string) error {
	if len(s.allowedDirs) == 0 {
		return nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	for _, dir := range s.allowedDirs {
		base, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}
	return ErrPathNotAllowed
}

// DownloadURL returns the download route for a report path.
// Each path segment is escaped and the separators are kept, so
// "/tmp/a b.md" becomes "/api/v1/download-result//tmp/a%20b.md".
func DownloadURL(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return downloadPrefix + strings.Join(segments, "/")
}

func (s *Server) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove temporary upload", "path", path, "error", err)
	}
}

func removeIfExists(path string) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
}

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"musicetl/internal/catalog"
	"musicetl/internal/datasource/file"
	"musicetl/internal/jobs"
	"musicetl/internal/pipeline"
)

const maxMemory = 32 << 20

type startResponse struct {
	ProcessID string `json:"process_id"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"message": "musicetl API ready"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// handleStart saves files[] and starts a bulk job.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	srcName := r.FormValue("source_name")
	if srcName != "" {
		if _, err := catalog.ParseSource(srcName); err != nil {
			fail(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		fail(w, r, http.StatusBadRequest, "at least one file is required")
		return
	}

	paths := make([]string, 0, len(headers))
	for _, fh := range headers {
		p, err := s.save(fh, s.newID()+"_"+filepath.Base(fh.Filename))
		if err != nil {
			fail(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		paths = append(paths, p)
	}

	id := s.newID()
	if _, err := s.jobs.Create(r.Context(), id, jobs.KindBulk); err != nil {
		fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.background(id, func(ctx context.Context) {
		if _, err := s.runner.RunBulk(ctx, id, paths, srcName, s.cfg.ProcessedDir()); err != nil {
			s.log.Warn("bulk job failed", "id", id, "err", err)
		}
	})
	s.log.Info("bulk job queued", "id", id, "files", len(paths), "source", srcName)
	render.JSON(w, r, startResponse{ProcessID: id})
}

// handleIngest saves one file and starts a single-source job.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	src, err := catalog.ParseSource(r.FormValue("source_name"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		fail(w, r, http.StatusBadRequest, "file is required")
		return
	}
	f.Close()

	id := s.newID()
	in, err := s.save(fh, id+"-"+filepath.Base(fh.Filename))
	if err != nil {
		fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	out := filepath.Join(s.cfg.InterimDir(), fmt.Sprintf("%s-%s-clean.csv", id, src))
	if _, err := s.jobs.Create(r.Context(), id, jobs.KindIngest); err != nil {
		fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.background(id, func(ctx context.Context) {
		if _, err := s.runner.RunSingle(ctx, id, src, in, out); err != nil {
			s.log.Warn("ingest job failed", "id", id, "source", src, "err", err)
		}
	})
	s.log.Info("ingest job queued", "id", id, "source", src)
	render.JSON(w, r, startResponse{ProcessID: id})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, j)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(w, r)
	if !ok {
		return
	}
	if j.Output == "" {
		fail(w, r, http.StatusNotFound, "cleaned file not available")
		return
	}
	f, err := os.Open(j.Output)
	if err != nil {
		fail(w, r, http.StatusNotFound, "cleaned file not available")
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	name := filepath.Base(j.Output)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, fi.ModTime(), f)
}

type catalogResponse struct {
	Processed []string `json:"processed"`
	Interim   []string `json:"interim"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	processed, err := file.ListByExt(s.cfg.ProcessedDir(), ".csv")
	if err != nil {
		fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	interim, err := file.ListByExt(s.cfg.InterimDir(), ".csv")
	if err != nil {
		fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	render.JSON(w, r, catalogResponse{Processed: processed, Interim: interim})
}

// mergeRequest names interim files; only base names are used.
type mergeRequest struct {
	Songs   []string `json:"songs"`
	Artists string   `json:"artists"`
}

type mergeResponse struct {
	Status string              `json:"status"`
	Stats  pipeline.MergeStats `json:"stats"`
	Output string              `json:"output"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		fail(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	interim := s.cfg.InterimDir()
	in := pipeline.DefaultMergeInput(interim, s.cfg.ProcessedDir())
	if len(req.Songs) > 0 {
		in.Songs = in.Songs[:0]
		for _, name := range req.Songs {
			in.Songs = append(in.Songs, filepath.Join(interim, filepath.Base(name)))
		}
	}
	if req.Artists != "" {
		in.Artists = filepath.Join(interim, filepath.Base(req.Artists))
	}

	st, err := s.runner.RunMerge(r.Context(), in)
	switch {
	case errors.Is(err, pipeline.ErrMissingInput):
		fail(w, r, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Error("merge failed", "err", err)
		fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	render.JSON(w, r, mergeResponse{Status: "ok", Stats: st, Output: st.Output})
}

// job loads the job named by the id URL parameter, writing a 404 when it is
// unknown.
func (s *Server) job(w http.ResponseWriter, r *http.Request) (jobs.Job, bool) {
	j, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, jobs.ErrNotFound) {
		fail(w, r, http.StatusNotFound, "process id not found")
		return j, false
	}
	if err != nil {
		fail(w, r, http.StatusInternalServerError, err.Error())
		return j, false
	}
	return j, true
}

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	if mb := s.cfg.Server.MaxUploadMB; mb > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, mb<<20)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return fmt.Errorf("invalid multipart form: %w", err)
	}
	return nil
}

// save copies an uploaded file into the uploads directory.
func (s *Server) save(fh *multipart.FileHeader, name string) (string, error) {
	dir := s.cfg.UploadsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("api: uploads dir: %w", err)
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("api: open upload: %w", err)
	}
	defer src.Close()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("api: save upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("api: save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("api: save upload: %w", err)
	}
	return path, nil
}

package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/rdstat/analysis"
	"github.com/RyanBlaney/rdstat/cohort"
	"github.com/RyanBlaney/rdstat/internal/errors"
	"github.com/RyanBlaney/rdstat/record"
	"github.com/RyanBlaney/rdstat/report"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	htmlContentType = "text/html; charset=utf-8"
)

// handleCompare loads the group_a and group_b uploads as two cohorts and
// compares them. Labels come from the label_a and label_b form values.
// ?format=xlsx returns the workbook and ?format=html the rendered summary
// instead of JSON.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, wrapFormError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	dir, err := os.MkdirTemp(s.config.Server.UploadDir, "rdstat-compare-")
	if err != nil {
		s.writeError(w, r, errors.Wrap(err, "failed to create upload directory"))
		return
	}
	defer os.RemoveAll(dir)

	labelA := formValueOr(r, "label_a", "group_a")
	labelB := formValueOr(r, "label_b", "group_b")

	opts := s.config.LoadOptions()
	a, err := s.loadCohort(r, dir, "group_a", labelA, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.loadCohort(r, dir, "group_b", labelB, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	compareOpts := s.config.CompareOptions()
	cmp, err := analysis.Compare(r.Context(), a, b, compareOpts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "xlsx":
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="comparison-%s.xlsx"`, cmp.ID))
		if err := report.WriteXLSX(w, cmp, compareOpts.Significance); err != nil {
			s.logger.WithContext(r.Context()).Error(err, "failed to stream workbook")
		}
		return
	case "html":
		w.Header().Set("Content-Type", htmlContentType)
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, report.HTML(cmp)); err != nil {
			s.logger.WithContext(r.Context()).Error(err, "failed to write report")
		}
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*analysis.Comparison
	}{true, cmp})
}

// loadCohort saves the files of one form field under dir and loads them.
func (s *Server) loadCohort(r *http.Request, dir, field, label string, opts cohort.LoadOptions) (*cohort.Group, error) {
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("no files for %s", field))
	}

	target := filepath.Join(dir, field)
	if err := os.Mkdir(target, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create upload directory")
	}

	paths := make([]string, 0, len(headers))
	seen := make(map[string]bool, len(headers))
	for _, fh := range headers {
		name := filepath.Base(fh.Filename)
		if name == "." || name == string(filepath.Separator) || !record.IsRecordFile(name) {
			return nil, errors.InvalidInput(fmt.Sprintf("file %q in %s is not an rd000 recording", fh.Filename, field))
		}
		if seen[name] {
			return nil, errors.InvalidInput(fmt.Sprintf("file %q appears twice in %s", name, field))
		}
		seen[name] = true
		path := filepath.Join(target, name)
		if err := saveUploaded(fh, path); err != nil {
			return nil, errors.Wrapf(err, "failed to store %s", name)
		}
		paths = append(paths, path)
	}

	return cohort.LoadFiles(r.Context(), label, paths, opts)
}

func saveUploaded(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func formValueOr(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

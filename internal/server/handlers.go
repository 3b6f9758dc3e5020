package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/filter"
	"github.com/KaramelBytes/minedash/internal/pipeline"
	"github.com/KaramelBytes/minedash/internal/render"
	"github.com/KaramelBytes/minedash/internal/store"
	"github.com/KaramelBytes/minedash/internal/table"
	"github.com/go-chi/chi/v5"
)

const maxMultipartMemory = 8 << 20

type datasetInfo struct {
	Name    string         `json:"name"`
	Title   string         `json:"title"`
	Layout  dataset.Layout `json:"layout"`
	Unit    string         `json:"unit,omitempty"`
	YearMin int            `json:"year_min,omitempty"`
	YearMax int            `json:"year_max,omitempty"`
	Default filter.Policy  `json:"default"`
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	out := make([]datasetInfo, 0, len(s.catalog.Datasets))
	for _, d := range s.catalog.Datasets {
		out = append(out, datasetInfo{
			Name: d.Name, Title: d.Title, Layout: d.Layout, Unit: d.Unit,
			YearMin: d.YearMin, YearMax: d.YearMax, Default: d.Policy(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) descriptor(r *http.Request) (dataset.Descriptor, error) {
	return s.catalog.Lookup(chi.URLParam(r, "name"))
}

// runView runs the table pipeline for the request's query.
func (s *Server) runView(r *http.Request, desc dataset.Descriptor) (*pipeline.View, error) {
	q := r.URL.Query()
	sel, err := parseSelection(q)
	if err != nil {
		return nil, err
	}
	opt, err := parseOptions(q, s.topN)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(desc, sel, opt)
}

func (s *Server) viewDataset(w http.ResponseWriter, r *http.Request) {
	desc, err := s.descriptor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if desc.Layout == dataset.LayoutPoints {
		sv, err := pipeline.RunSites(desc, parseSiteSelection(r.URL.Query()))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sv)
		return
	}
	v, err := s.runView(r, desc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) markers(w http.ResponseWriter, r *http.Request) {
	desc, err := s.descriptor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var markers []pipeline.Marker
	if desc.Layout == dataset.LayoutPoints {
		sv, err := pipeline.RunSites(desc, parseSiteSelection(r.URL.Query()))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		markers = pipeline.SiteMarkers(sv.Sites)
	} else {
		if s.resolver == nil {
			s.fail(w, r, errors.New("geocoding is not configured"))
			return
		}
		year, err := intParam(r.URL.Query(), "year")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		v, err := s.runView(r, desc)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if year == 0 && len(v.Years) > 0 {
			year = v.Years[0]
		}
		markers = pipeline.Markers(r.Context(), v, year, s.resolver)
	}
	var buf bytes.Buffer
	if err := render.WriteGeoJSON(&buf, markers); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	desc, err := s.descriptor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	kind, err := render.ParseKind(q.Get("kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	format, err := render.ParseFormat(q.Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.runView(r, desc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := render.Chart(&buf, v, kind, format); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) exportXLSX(w http.ResponseWriter, r *http.Request) {
	desc, err := s.descriptor(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if desc.Layout == dataset.LayoutPoints {
		sv, err := pipeline.RunSites(desc, parseSiteSelection(r.URL.Query()))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		err = render.WriteSitesXLSX(&buf, sv)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	} else {
		v, err := s.runView(r, desc)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := render.WriteXLSX(&buf, v); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", desc.Name+".xlsx"))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) uploadDataset(w http.ResponseWriter, r *http.Request) {
	canUpload := s.gate.AllowRequest(r)
	if !canUpload {
		// the store refuses without reading the body
		_, err := s.uploads.Upload(false, "", "", http.NoBody)
		s.fail(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, store.MaxUploadBytes+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", pipeline.ErrBadQuery, err))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: file is required", pipeline.ErrBadQuery))
		return
	}
	defer file.Close()
	e, err := s.uploads.Upload(canUpload, r.FormValue("name"), r.FormValue("description"), file)
	if err != nil {
		var le *table.LoadError
		if errors.As(err, &le) {
			err = fmt.Errorf("%w: %v", pipeline.ErrBadQuery, err)
		}
		s.fail(w, r, err)
		return
	}
	s.log.Info("uploaded %s (%d rows)", e.Name, e.Rows)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) listUploads(w http.ResponseWriter, r *http.Request) {
	if !s.gate.AllowRequest(r) {
		s.fail(w, r, store.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, s.uploads.List())
}

func (s *Server) previewUpload(w http.ResponseWriter, r *http.Request) {
	if !s.gate.AllowRequest(r) {
		s.fail(w, r, store.ErrForbidden)
		return
	}
	e, err := s.uploads.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := intParam(r.URL.Query(), "rows")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n == 0 {
		n = 5
	}
	pv, err := s.uploads.Preview(e, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pv)
}

func (s *Server) removeUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.uploads.Remove(s.gate.AllowRequest(r), chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps an error to a status code and writes it as JSON.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.log.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var ce *table.ColumnError
	switch {
	case errors.Is(err, dataset.ErrUnknownDataset), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &ce),
		errors.Is(err, pipeline.ErrBadQuery),
		errors.Is(err, pipeline.ErrWrongLayout),
		errors.Is(err, render.ErrUnknownChart),
		errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

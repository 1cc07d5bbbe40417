// Package api exposes the year detection, filtering and chart pipeline over
// HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/nconklindev/yearview/internal/config"
	"github.com/nconklindev/yearview/internal/export"
	"github.com/nconklindev/yearview/internal/ingest"
	"github.com/nconklindev/yearview/internal/samples"
	"github.com/nconklindev/yearview/internal/selection"
	"github.com/nconklindev/yearview/internal/tabular"
	"github.com/nconklindev/yearview/internal/types"
)

// multipartOverhead is allowed on top of the file size limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Handler serves the HTTP API.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "api")),
		now:    time.Now,
	}
}

// Routes returns the router for every endpoint.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(StructuredLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/samples", h.Samples)
		r.Post("/ingest", h.Ingest)
		r.Post("/years", h.Years)
		r.Post("/header", h.Header)
		r.Post("/filter", h.Filter)
		r.Post("/series", h.Series)
		r.Post("/summary", h.Summary)
		r.Post("/selection", h.Selection)
		r.Post("/export/{format}", h.Export)
	})
	return r
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

type sampleResponse struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Years []int      `json:"years"`
	Grid  types.Grid `json:"grid"`
}

// Samples handles GET /api/samples
func (h *Handler) Samples(w http.ResponseWriter, r *http.Request) {
	var out []sampleResponse
	for _, t := range samples.All() {
		out = append(out, sampleResponse{ID: t.ID, Name: t.Name, Years: t.Years, Grid: t.Grid})
	}
	render.JSON(w, r, out)
}

type ingestResponse struct {
	Sheets   []types.Sheet `json:"sheets"`
	Years    []int         `json:"years"`
	Detected bool          `json:"detected"`
}

// Ingest handles POST /api/ingest with a multipart "file" field.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = newAPIError(http.StatusBadRequest, "INVALID_REQUEST", "expected a multipart form")
		}
		h.fail(w, r, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, newAPIError(http.StatusBadRequest, "MISSING_FILE", "form field \"file\" is required"))
		return
	}
	defer file.Close()

	charset := r.FormValue("charset")
	if charset == "" {
		charset = h.cfg.Ingest.Charset
	}
	sheets, err := ingest.Read(file, header.Filename, ingest.Options{MaxFileSize: limit, Charset: charset})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	grids := make([]types.Grid, len(sheets))
	for i, s := range sheets {
		grids[i] = s.Grid
	}
	years, detected := h.detect(grids, false)

	h.logger.InfoContext(r.Context(), "workbook ingested",
		slog.String("file", header.Filename),
		slog.Int("sheets", len(sheets)),
		slog.Int("years", len(years)),
		slog.Bool("detected", detected))
	render.JSON(w, r, ingestResponse{Sheets: sheets, Years: years, Detected: detected})
}

type yearsRequest struct {
	Grids []types.Grid `json:"grids" validate:"required,min=1"`
	Full  bool         `json:"full"`
}

func (req *yearsRequest) Bind(*http.Request) error { return validate.Struct(req) }

type yearsResponse struct {
	Years    []int `json:"years"`
	Detected bool  `json:"detected"`
}

// Years handles POST /api/years
func (h *Handler) Years(w http.ResponseWriter, r *http.Request) {
	var req yearsRequest
	if !h.bind(w, r, &req) {
		return
	}
	years, detected := h.detect(req.Grids, req.Full)
	render.JSON(w, r, yearsResponse{Years: years, Detected: detected})
}

type gridRequest struct {
	Grid types.Grid `json:"grid" validate:"required,min=1"`
}

func (req *gridRequest) Bind(*http.Request) error { return validate.Struct(req) }

// Header handles POST /api/header
func (h *Handler) Header(w http.ResponseWriter, r *http.Request) {
	var req gridRequest
	if !h.bind(w, r, &req) {
		return
	}
	render.JSON(w, r, tabular.ResolveHeader(req.Grid))
}

type filterRequest struct {
	Grid  types.Grid `json:"grid" validate:"required,min=1"`
	Years []int      `json:"years" validate:"required,min=1"`
}

func (req *filterRequest) Bind(*http.Request) error { return validate.Struct(req) }

type filterResponse struct {
	Grid    types.Grid `json:"grid"`
	Columns []int      `json:"columns"`
}

// Filter handles POST /api/filter
func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !h.bind(w, r, &req) {
		return
	}
	info := tabular.ResolveHeader(req.Grid)
	render.JSON(w, r, filterResponse{
		Grid:    tabular.FilterByYears(req.Grid, req.Years),
		Columns: tabular.MatchYearColumns(info.Headers, req.Years),
	})
}

type seriesRequest struct {
	Grid      types.Grid      `json:"grid" validate:"required,min=1"`
	ChartType types.ChartType `json:"chartType" validate:"omitempty,oneof=bar line pie doughnut"`
	Year      int             `json:"year"`
}

func (req *seriesRequest) Bind(*http.Request) error { return validate.Struct(req) }

// Series handles POST /api/series
func (h *Handler) Series(w http.ResponseWriter, r *http.Request) {
	var req seriesRequest
	if !h.bind(w, r, &req) {
		return
	}
	if req.ChartType == "" {
		req.ChartType = types.ChartBar
	}
	render.JSON(w, r, tabular.BuildSeries(req.Grid, req.ChartType.Mode(), req.Year))
}

type summaryResponse struct {
	Statistics *types.Statistics `json:"statistics"`
}

// Summary handles POST /api/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	var req gridRequest
	if !h.bind(w, r, &req) {
		return
	}
	render.JSON(w, r, summaryResponse{Statistics: tabular.Summarize(req.Grid)})
}

type selectionRequest struct {
	Sheets []types.Sheet `json:"sheets" validate:"omitempty,dive"`
	Tables []string      `json:"tables"`
	Years  []int         `json:"years"`
}

func (req *selectionRequest) Bind(*http.Request) error { return validate.Struct(req) }

type selectionResponse struct {
	Tables        []types.TableSelection `json:"tables"`
	SelectedYears []int                  `json:"selectedYears"`
}

// Selection handles POST /api/selection: it filters the chosen tables of the
// given sheets (or of the sample tables) to the chosen years.
func (h *Handler) Selection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !h.bind(w, r, &req) {
		return
	}
	tables, err := h.catalog(req.Sheets).Build(r.Context(), req.Tables, req.Years)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, selectionResponse{Tables: tables, SelectedYears: req.Years})
}

type exportRequest struct {
	export.Data
	ChartType    types.ChartType `json:"chartType" validate:"omitempty,oneof=bar line pie doughnut"`
	Year         int             `json:"year"`
	Table        int             `json:"table" validate:"gte=0"`
	IncludeChart bool            `json:"includeChart"`
}

func (req *exportRequest) Bind(*http.Request) error { return validate.Struct(req) }

var contentTypes = map[export.Format]string{
	export.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	export.FormatCSV:  "text/csv; charset=utf-8",
	export.FormatPDF:  "application/pdf",
	export.FormatPNG:  "image/png",
}

// Export handles POST /api/export/{format} and answers with the file.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req exportRequest
	if !h.bind(w, r, &req) {
		return
	}

	ex := export.New(export.Options{
		Orientation:  h.cfg.Export.Orientation,
		FontSize:     h.cfg.Export.FontSize,
		ChartWidth:   h.cfg.Export.ChartWidth,
		ChartHeight:  h.cfg.Export.ChartHeight,
		Chart:        req.ChartType,
		ChartYear:    req.Year,
		ChartTable:   req.Table,
		IncludeChart: req.IncludeChart,
	}, h.logger)

	var buf bytes.Buffer
	res, err := ex.Write(r.Context(), &buf, format, req.Data, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "export served",
		slog.String("format", res.Format),
		slog.Int("tables", res.Tables),
		slog.Int("rows", res.Rows))
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.FileName(format, h.now())))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) catalog(sheets []types.Sheet) *selection.Catalog {
	now := h.now()
	return selection.NewCatalog(sheets, selection.Options{
		Detect:   h.cfg.Years.DetectOptions(now, false),
		Fallback: tabular.FallbackYears(now, h.cfg.Years.FallbackSpan),
	})
}

// detect returns the years in grids, or the fallback range when there are
// none.
func (h *Handler) detect(grids []types.Grid, full bool) ([]int, bool) {
	now := h.now()
	years, ok := tabular.DetectYears(grids, h.cfg.Years.DetectOptions(now, full))
	if !ok {
		return tabular.FallbackYears(now, h.cfg.Years.FallbackSpan), false
	}
	return years, true
}

// bind decodes and validates the JSON body into v; on failure the error
// response is written and false returned.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, v render.Binder) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Ingest.MaxFileSize+multipartOverhead)
	if err := render.Bind(r, v); err != nil {
		var (
			verrs    validator.ValidationErrors
			maxBytes *http.MaxBytesError
		)
		if !errors.As(err, &verrs) && !errors.As(err, &maxBytes) {
			err = newAPIError(http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		}
		h.fail(w, r, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	level := slog.LevelWarn
	if apiErr.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("request_id", GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Int("status", apiErr.StatusCode),
		slog.String("error", err.Error()))
	render.Render(w, r, apiErr)
}

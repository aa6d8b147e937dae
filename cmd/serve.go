package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/wa-outreach/internal/config"
	"github.com/sells-group/wa-outreach/internal/leads"
	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/outreach"
)

const maxUploadBytes = 50 << 20

var (
	servePort   int
	serveDryRun bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for uploads, bulk runs and contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initOutreach(ctx, cfg, automationFor(cfg, serveDryRun))
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(ctx, env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			for _, id := range env.Orchestrator.Runs().Active() {
				env.Orchestrator.Stop(id)
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// api serves the JSON endpoints. runCtx bounds bulk runs started over HTTP,
// which outlive the request that started them.
type api struct {
	runCtx context.Context
	env    *outreachEnv
}

// newRouter builds the HTTP handler for env.
func newRouter(runCtx context.Context, env *outreachEnv) http.Handler {
	h := &api{runCtx: runCtx, env: env}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.status)
		r.Post("/single-contact", h.singleContact)
		r.Post("/upload-csv", h.uploadCSV)
		r.Post("/start-bulk", h.startBulk)
		r.Get("/bulk-runs", h.listRuns)
		r.Get("/bulk-progress/{id}", h.bulkProgress)
		r.Post("/stop-bulk/{id}", h.stopBulk)
		r.Post("/settings", h.settings)
		r.Get("/contacts", h.contacts)
		r.Get("/contacts/stats", h.contactStats)
		r.Delete("/contacts/{phone}", h.deleteContact)
		r.Get("/tracking/stats", h.trackingStats)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *api) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "WhatsApp Automation Server Running",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"activeRuns": h.env.Orchestrator.Runs().Active(),
		"ai":         h.env.Generator.Available(),
		"aiUsage":    h.env.Generator.Usage(),
	})
}

type singleContactRequest struct {
	Name        string            `json:"name"`
	Phone       string            `json:"phone"`
	Message     string            `json:"message"`
	MessageMode model.MessageMode `json:"messageMode"`
}

func (h *api) singleContact(w http.ResponseWriter, r *http.Request) {
	var req singleContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Phone == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: name, phone, message")
		return
	}

	out, err := h.env.Orchestrator.SendOne(r.Context(), model.Lead{Name: req.Name, Phone: req.Phone}, req.Message, req.MessageMode)
	if err != nil {
		zap.L().Error("single contact failed", zap.String("phone", req.Phone), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": out.Status == model.ContactStatusMessaged,
		"status":  out.Status,
		"detail":  out.Detail,
		"message": fmt.Sprintf("Contact %s processed: %s", req.Name, out.Status),
	})
}

func (h *api) uploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("csvFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No CSV file uploaded")
		return
	}
	defer file.Close() //nolint:errcheck

	parsed, err := parseUpload(file, header.Filename)
	if err != nil {
		var mh *leads.MissingHeadersError
		if errors.As(err, &mh) {
			writeError(w, http.StatusBadRequest, mh.Error())
			return
		}
		zap.L().Error("upload parse failed", zap.String("file", header.Filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process CSV file")
		return
	}
	if len(parsed) == 0 {
		writeError(w, http.StatusBadRequest, "No valid contacts found in CSV")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("CSV processed successfully. Found %d contacts.", len(parsed)),
		"data":    map[string]any{"contacts": parsed},
	})
}

// parseUpload reads an uploaded lead file. Spreadsheets go through a
// temporary file because the xlsx reader opens by path.
func parseUpload(r io.Reader, filename string) ([]model.Lead, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "read upload")
		}
		return leads.ParseCSV(string(data))
	}

	tmp, err := os.CreateTemp("", "leads-*.xlsx")
	if err != nil {
		return nil, eris.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "close temp file")
	}
	return leads.ReadFile(tmp.Name())
}

type startBulkRequest struct {
	Contacts       []model.Lead      `json:"contacts"`
	DefaultMessage string            `json:"defaultMessage"`
	MessageMode    model.MessageMode `json:"messageMode"`
	MaxSuccessful  int               `json:"maxSuccessful"`
}

func (h *api) startBulk(w http.ResponseWriter, r *http.Request) {
	var req startBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MessageMode == "" {
		req.MessageMode = model.MessageModeTemplate
	}

	id, err := h.env.Orchestrator.Start(h.runCtx, outreach.Request{
		Leads:         req.Contacts,
		Message:       req.DefaultMessage,
		Mode:          req.MessageMode,
		MaxSuccessful: req.MaxSuccessful,
	})
	switch {
	case errors.Is(err, outreach.ErrNoLeads):
		writeError(w, http.StatusBadRequest, "No contacts provided for bulk processing")
		return
	case errors.Is(err, outreach.ErrNoMessage):
		writeError(w, http.StatusBadRequest, "Message content is required")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Bulk processing started for %d contacts (%s mode)", len(req.Contacts), req.MessageMode),
		"sessionId": id,
	})
}

func (h *api) listRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": h.env.Orchestrator.Runs().List()})
}

func (h *api) bulkProgress(w http.ResponseWriter, r *http.Request) {
	p, ok := h.env.Orchestrator.Progress(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *api) stopBulk(w http.ResponseWriter, r *http.Request) {
	if !h.env.Orchestrator.Stop(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Bulk processing stopped"})
}

type settingsRequest struct {
	MinDelay *int `json:"minDelay"`
	MaxDelay *int `json:"maxDelay"`
}

func (h *api) settings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lo, hi := h.env.Pacer.Bounds()
	minMs, maxMs := int(lo.Milliseconds()), int(hi.Milliseconds())
	if req.MinDelay != nil {
		if *req.MinDelay < config.MinDelayFloorMs || *req.MinDelay > config.MaxDelayCapMs {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("minDelay must be between %d and %d ms", config.MinDelayFloorMs, config.MaxDelayCapMs))
			return
		}
		minMs = *req.MinDelay
	}
	if req.MaxDelay != nil {
		if *req.MaxDelay < config.MinDelayFloorMs || *req.MaxDelay > config.MaxDelayCapMs {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("maxDelay must be between %d and %d ms", config.MinDelayFloorMs, config.MaxDelayCapMs))
			return
		}
		maxMs = *req.MaxDelay
	}
	if minMs > maxMs {
		writeError(w, http.StatusBadRequest, "minDelay must not exceed maxDelay")
		return
	}

	h.env.Pacer.SetBounds(time.Duration(minMs)*time.Millisecond, time.Duration(maxMs)*time.Millisecond)
	zap.L().Info("pacing updated", zap.Int("min_delay_ms", minMs), zap.Int("max_delay_ms", maxMs))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Settings updated successfully",
		"settings": map[string]int{"minDelay": minMs, "maxDelay": maxMs},
	})
}

func (h *api) contacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var list []model.StoredContact
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.ContactStatus(s)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", s))
			return
		}
		list = h.env.Ledger.ByStatus(ctx, status)
	} else {
		list = h.env.Ledger.All(ctx)
	}
	if list == nil {
		list = []model.StoredContact{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": list, "total": len(list)})
}

func (h *api) contactStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.env.Ledger.Stats(r.Context()))
}

func (h *api) deleteContact(w http.ResponseWriter, r *http.Request) {
	if !h.env.Ledger.Delete(r.Context(), chi.URLParam(r, "phone")) {
		writeError(w, http.StatusNotFound, "Contact not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *api) trackingStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.env.Tracker.Stats(r.Context()))
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveDryRun, "dry-run", false, "log messages instead of opening WhatsApp Web")
	rootCmd.AddCommand(serveCmd)
}

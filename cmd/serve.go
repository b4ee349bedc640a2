package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/orientation-cli/internal/model"
	"github.com/sells-group/orientation-cli/internal/orient"
	"github.com/sells-group/orientation-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve persisted runs over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := requireStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(st),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the read API over st.
func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		limit, offset, err := paging(q.Get("limit"), q.Get("offset"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status := model.RunStatus(q.Get("status"))
		switch status {
		case "", model.RunStatusRunning, model.RunStatusComplete, model.RunStatusFailed:
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
			return
		}

		runs, err := st.ListRuns(req.Context(), store.RunFilter{Status: status, Limit: limit, Offset: offset})
		if err != nil {
			serverError(w, err)
			return
		}
		if runs == nil {
			runs = []model.Run{}
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Get("/runs/{id}/results", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		q := req.URL.Query()

		limit, offset, err := paging(q.Get("limit"), q.Get("offset"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		orientation := q.Get("orientation")
		if orientation != "" {
			if _, err := orient.ParseLabel(orientation); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown orientation %q", orientation))
				return
			}
		}

		if _, err := st.GetRun(req.Context(), id); err != nil {
			storeError(w, err)
			return
		}
		rows, err := st.ListResults(req.Context(), id, store.ResultFilter{
			Orientation: orientation,
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			serverError(w, err)
			return
		}
		if rows == nil {
			rows = []model.PropertyResult{}
		}
		writeJSON(w, http.StatusOK, rows)
	})

	return r
}

const maxPageSize = 1000

func paging(limitStr, offsetStr string) (int, int, error) {
	var limit, offset int
	var err error
	if limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil || limit < 0 {
			return 0, 0, eris.Errorf("invalid limit %q", limitStr)
		}
	}
	if offsetStr != "" {
		if offset, err = strconv.Atoi(offsetStr); err != nil || offset < 0 {
			return 0, 0, eris.Errorf("invalid offset %q", offsetStr)
		}
	}
	return min(limit, maxPageSize), offset, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func storeError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	serverError(w, err)
}

func serverError(w http.ResponseWriter, err error) {
	zap.L().Error("api: store error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

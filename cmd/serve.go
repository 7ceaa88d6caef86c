package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/draftforge/draftforge/internal"
	"github.com/draftforge/draftforge/internal/store"
	"github.com/draftforge/draftforge/internal/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopmonkeyus/go-common/logger"
	csys "github.com/shopmonkeyus/go-common/sys"
	"github.com/spf13/cobra"
)

func getOSInt(name string, def int) int {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, res apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(res)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, apiResponse{Success: false, Message: err.Error()})
}

func newServeHandler(log logger.Logger, db *store.Store) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/setups", func(w http.ResponseWriter, r *http.Request) {
		defer util.RecoverPanic(log)
		setups, err := db.ListSetups(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeData(w, setups)
	})
	mux.HandleFunc("GET /api/setups/{id}/schemas", func(w http.ResponseWriter, r *http.Request) {
		defer util.RecoverPanic(log)
		schemas, err := db.ListSchemas(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeData(w, schemas)
	})
	mux.HandleFunc("GET /api/setups/{id}/drafts", func(w http.ResponseWriter, r *http.Request) {
		defer util.RecoverPanic(log)
		drafts, err := db.ListDrafts(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeData(w, drafts)
	})
	mux.HandleFunc("POST /api/setups/{id}/drafts", func(w http.ResponseWriter, r *http.Request) {
		defer util.RecoverPanic(log)
		var input internal.DraftInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		draft, err := db.CreateDraft(r.Context(), r.PathValue("id"), input)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeData(w, draft)
	})
	mux.HandleFunc("PUT /api/drafts/{id}", func(w http.ResponseWriter, r *http.Request) {
		defer util.RecoverPanic(log)
		var body struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		draft, err := db.UpdateDraft(r.Context(), r.PathValue("id"), body.Content)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, internal.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		writeData(w, draft)
	})
	return mux
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the draft backend server on the offline store",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd).WithPrefix("[serve]")
		defer util.RecoverPanic(log)

		dataDir := mustFlagString(cmd, "data-dir", true)
		port := mustFlagInt(cmd, "port", true)
		seedFile := mustFlagString(cmd, "seed", false)
		memory := mustFlagBool(cmd, "memory", false)

		db, err := store.New(store.Config{Logger: log, Dir: dataDir, Memory: memory})
		if err != nil {
			log.Fatal("failed to open store: %s", err)
		}
		defer db.Close()

		if seedFile != "" {
			buf, err := os.ReadFile(seedFile)
			if err != nil {
				log.Fatal("failed to read seed file: %s", err)
			}
			var seed store.Seed
			if err := json.Unmarshal(buf, &seed); err != nil {
				log.Fatal("failed to parse seed file: %s", err)
			}
			if err := db.Import(seed); err != nil {
				log.Fatal("failed to import seed data: %s", err)
			}
			log.Info("imported %d setups, %d schemas, %d drafts", len(seed.Setups), len(seed.Schemas), len(seed.Drafts))
		}

		server := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newServeHandler(log, db),
		}
		go func() {
			log.Info("server is running version: %v on port %d", Version, port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("server error: %s", err)
			}
		}()

		<-csys.CreateShutdownChannel()
		log.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("error shutting down server: %s", err)
		}
		log.Info("👋 Bye")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", getOSInt("PORT", 3500), "the port to listen on")
	serveCmd.Flags().String("seed", "", "a JSON seed file to import on startup")
	serveCmd.Flags().Bool("memory", false, "use an in-memory database")
}

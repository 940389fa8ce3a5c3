package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

var servePort int

// eventStatus maps engagement events to the lead status they imply. Events
// absent here (delivered, opened) are recorded without a status change.
var eventStatus = map[model.EventType]model.LeadStatus{
	model.EventReplied:      model.LeadStatusReplied,
	model.EventBounced:      model.LeadStatusBounced,
	model.EventUnsubscribed: model.LeadStatusUnsubscribed,
}

// eventRequest is the webhook payload posted by the mail provider.
type eventRequest struct {
	Type      string `json:"type"`
	Email     string `json:"email"`
	MessageID string `json:"message_id"`
}

// newServeMux builds the webhook server routes over the given store.
func newServeMux(st store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /webhook/events", func(w http.ResponseWriter, r *http.Request) {
		var req eventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Email == "" {
			http.Error(w, `{"error":"email is required"}`, http.StatusBadRequest)
			return
		}
		eventType := model.EventType(req.Type)
		switch eventType {
		case model.EventDelivered, model.EventOpened, model.EventReplied,
			model.EventBounced, model.EventUnsubscribed:
		default:
			http.Error(w, `{"error":"unknown event type"}`, http.StatusBadRequest)
			return
		}

		lead, err := st.GetLeadByEmail(r.Context(), req.Email)
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				http.Error(w, `{"error":"unknown lead"}`, http.StatusNotFound)
				return
			}
			http.Error(w, `{"error":"lookup failed"}`, http.StatusInternalServerError)
			return
		}

		event := &model.Event{
			LeadID:    lead.ID,
			Type:      eventType,
			MessageID: req.MessageID,
		}
		if err := st.RecordEvent(r.Context(), event); err != nil {
			zap.L().Error("serve: record event failed", zap.Error(err))
			http.Error(w, `{"error":"record failed"}`, http.StatusInternalServerError)
			return
		}

		if status, ok := eventStatus[eventType]; ok {
			if err := st.UpdateLeadStatus(r.Context(), lead.ID, status); err != nil {
				zap.L().Error("serve: update lead status failed",
					zap.String("lead_id", lead.ID),
					zap.Error(err),
				)
			}
		}

		zap.L().Info("serve: event recorded",
			zap.String("lead_id", lead.ID),
			zap.String("type", req.Type),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	})

	return mux
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the engagement event webhook server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newServeMux(st),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
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

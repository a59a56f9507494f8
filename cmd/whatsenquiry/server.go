package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"whatsenquiry/internal/constants"
	"whatsenquiry/internal/errors"
	"whatsenquiry/internal/features"
	"whatsenquiry/internal/ingest"
	"whatsenquiry/internal/middleware"
	"whatsenquiry/internal/models"
	"whatsenquiry/internal/notify"
	"whatsenquiry/internal/service"
	"whatsenquiry/internal/tracing"
	"whatsenquiry/pkg/greenapi"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg      *models.Config
	router   *mux.Router
	logger   *logrus.Logger
	enquiry  *service.EnquiryService
	provider greenapi.Client
	hub      *notify.Hub
	flags    *features.FlagManager
	server   *http.Server
}

func NewServer(cfg *models.Config, enquiry *service.EnquiryService, provider greenapi.Client, hub *notify.Hub, flags *features.FlagManager, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		logger:   logger,
		enquiry:  enquiry,
		provider: provider,
		hub:      hub,
		flags:    flags,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
	s.router.Handle("/ws", s.hub).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/enquiries").Subrouter()

	webhook := api.PathPrefix("/whatsapp/webhook").Subrouter()
	webhook.Use(middleware.WebhookObservabilityMiddleware(s.logger, "whatsapp"))
	webhook.HandleFunc("", s.handleWebhook()).Methods(http.MethodPost)
	webhook.HandleFunc("/status", s.handleWebhookStatus()).Methods(http.MethodGet)
	webhook.HandleFunc("/extract", s.handleWebhookExtract()).Methods(http.MethodPost)

	api.HandleFunc("", s.handleListEnquiries()).Methods(http.MethodGet)
	api.HandleFunc("", s.handleCreateEnquiry()).Methods(http.MethodPost)
	api.HandleFunc("/stats", s.handleStats()).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", s.handleGetEnquiry()).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", s.handleUpdateEnquiry()).Methods(http.MethodPut)
	api.HandleFunc("/{id:[0-9]+}", s.handleDeleteEnquiry()).Methods(http.MethodDelete)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": Version,
		})
	}
}

// handleWebhook is the provider-facing ingestion endpoint. Everything
// except a non-JSON body or a bad signature is acknowledged with 200 so
// the provider never retry-storms an internal fault.
func (s *Server) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := s.readWebhookBody(r)
		if err != nil {
			s.logger.WithError(err).Warn("Rejecting webhook request")
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, err.Error()))
			return
		}

		result, err := s.enquiry.ProcessWebhook(r.Context(), body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"result":  result,
		})
	}
}

// readWebhookBody enforces the body size cap and, when a webhook secret
// is configured, verifies the HMAC signature before any parsing.
func (s *Server) readWebhookBody(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, constants.MaxWebhookBodyBytes)

	if s.flags.IsEnabled(features.FlagWebhookSignature) {
		return verifySignature(r, s.cfg.Server.WebhookSecret, s.signatureHeader())
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

func (s *Server) signatureHeader() string {
	if s.cfg.Server.WebhookSignature != "" {
		return s.cfg.Server.WebhookSignature
	}
	return "X-Webhook-Signature"
}

// handleWebhookStatus is a diagnostic surface: version, feature flags,
// classifier configuration, connection counts, and (when an outbound
// client exists) the provider instance state.
func (s *Server) handleWebhookStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"version":           Version,
			"flags":             s.flags.All(),
			"interest_keywords": ingest.InterestKeywords(),
			"reply_options":     ingest.ReplyOptions(),
			"notify_clients":    s.hub.ClientCount(),
		}

		if s.provider != nil {
			ctx, cancel := context.WithTimeout(r.Context(), time.Duration(constants.DefaultNotifyTimeoutSec)*time.Second)
			defer cancel()
			if state, err := s.provider.CheckState(ctx); err != nil {
				status["provider_state"] = "unreachable"
			} else {
				status["provider_state"] = state.StateInstance
			}
		}

		s.writeJSON(w, http.StatusOK, status)
	}
}

// handleWebhookExtract runs the normalizer, resolver and classifier on
// a literal payload without touching the store. Debug aid for checking
// how a given provider body would be interpreted.
func (s *Server) handleWebhookExtract() http.HandlerFunc {
	type extraction struct {
		IsMessage    bool   `json:"is_message"`
		TypeWebhook  string `json:"type_webhook,omitempty"`
		ChatID       string `json:"chat_id,omitempty"`
		MessageID    string `json:"message_id,omitempty"`
		Text         string `json:"text,omitempty"`
		MobileNumber string `json:"mobile_number,omitempty"`
		DisplayName  string `json:"display_name,omitempty"`
		Interested   bool   `json:"interested"`
		ReplyOption  bool   `json:"reply_option"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, constants.MaxWebhookBodyBytes))
		if err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "failed to read request body"))
			return
		}

		msg, err := ingest.Normalize(body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		out := extraction{
			IsMessage:   msg.IsMessage(),
			TypeWebhook: msg.TypeWebhook,
			ChatID:      msg.ChatID,
			MessageID:   msg.MessageID,
			Text:        msg.Text,
			Interested:  ingest.IsInterested(msg.Text),
			ReplyOption: ingest.IsReplyOption(msg.Text),
		}

		if msg.IsMessage() {
			if identity, err := ingest.ResolveIdentity(msg); err == nil {
				out.MobileNumber = identity.MobileNumber
				out.DisplayName = identity.DisplayName
			}
		}

		s.writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleListEnquiries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.enquiry.ListEnquiries(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleCreateEnquiry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e models.Enquiry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
			return
		}

		if err := s.enquiry.CreateManualEnquiry(r.Context(), &e); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, e)
	}
}

func (s *Server) handleGetEnquiry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}

		view, err := s.enquiry.GetEnquiry(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleUpdateEnquiry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}

		var req service.UpdateEnquiryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
			return
		}

		view, err := s.enquiry.UpdateEnquiry(r.Context(), id, &req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleDeleteEnquiry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r)
		if !ok {
			return
		}

		if err := s.enquiry.DeleteEnquiry(r.Context(), id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.enquiry.GetStats(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid enquiry id"))
		return 0, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestInfo := tracing.GetRequestInfo(r.Context())
	s.writeJSON(w, errors.HTTPStatusCode(err), errors.ToHTTPResponse(err, requestInfo.RequestID))
}

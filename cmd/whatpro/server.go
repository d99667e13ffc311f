package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/odanieltavares/whatpro-manager/internal/constants"
	"github.com/odanieltavares/whatpro-manager/internal/middleware"
	"github.com/odanieltavares/whatpro-manager/internal/models"
	"github.com/odanieltavares/whatpro-manager/internal/queue"
	"github.com/odanieltavares/whatpro-manager/internal/relay"
	"github.com/odanieltavares/whatpro-manager/internal/validation"
)

// webhookIngestor is the slice of the relay ingestor the HTTP layer uses.
type webhookIngestor interface {
	HandleChatwootEvent(ctx context.Context, hook *models.ChatwootWebhook) (string, error)
	HandleProviderEvent(ctx context.Context, instanceToken string, ev *models.ProviderEvent) (string, error)
}

// dlqAdmin is the slice of the retry manager exposed to operators.
type dlqAdmin interface {
	RetryDLQ(ctx context.Context, queueKey, dlqKey string, batch int) (int, error)
	ClearDLQ(ctx context.Context, dlqKey string) (int64, error)
	Stats(ctx context.Context, keys queue.JobKeys) (*relay.RetryStats, error)
}

type executionReader interface {
	RecentExecutions(ctx context.Context, filter models.ExecutionFilter) ([]*models.ExecutionRecord, error)
	CountByStatus(ctx context.Context) (*models.ExecutionCounts, error)
}

type instanceStore interface {
	SaveInstance(ctx context.Context, instance *models.Instance) error
}

type instanceResolver interface {
	InstanceByID(ctx context.Context, instanceID string) (*models.Instance, error)
	Invalidate(ctx context.Context, apiToken string)
}

// statusReporter is implemented by provider clients that can report the
// device's connection state.
type statusReporter interface {
	Status(ctx context.Context) (string, error)
}

type Server struct {
	router     *mux.Router
	logger     *logrus.Logger
	cfg        *models.Config
	ingestor   webhookIngestor
	retry      dlqAdmin
	queues     *queue.Manager
	executions executionReader
	instances  instanceStore
	resolver   instanceResolver
	provider   relay.ProviderFactory
	server     *http.Server
}

func NewServer(cfg *models.Config, ingestor webhookIngestor, retry dlqAdmin, queues *queue.Manager, executions executionReader, instances instanceStore, resolver instanceResolver, provider relay.ProviderFactory, logger *logrus.Logger) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		logger:     logger,
		cfg:        cfg,
		ingestor:   ingestor,
		retry:      retry,
		queues:     queues,
		executions: executions,
		instances:  instances,
		resolver:   resolver,
		provider:   provider,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestLogging(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)

	webhooks := s.router.PathPrefix("/webhooks").Subrouter()
	webhooks.HandleFunc("/chatwoot", s.handleChatwootWebhook()).Methods(http.MethodPost)
	webhooks.HandleFunc("/whatsapp/{instanceToken}", s.handleProviderWebhook()).Methods(http.MethodPost)

	admin := s.router.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/instances", s.handleSaveInstance()).Methods(http.MethodPost, http.MethodPut)
	admin.HandleFunc("/instances/{instanceId}/status", s.handleInstanceStatus()).Methods(http.MethodGet)
	admin.HandleFunc("/dlq", s.handleListDLQ()).Methods(http.MethodGet)
	admin.HandleFunc("/dlq/retry", s.handleRetryDLQ()).Methods(http.MethodPost)
	admin.HandleFunc("/dlq", s.handleClearDLQ()).Methods(http.MethodDelete)
	admin.HandleFunc("/queue", s.handleClearQueue()).Methods(http.MethodDelete)
	admin.HandleFunc("/queue/stats", s.handleQueueStats()).Methods(http.MethodGet)
	admin.HandleFunc("/executions", s.handleListExecutions()).Methods(http.MethodGet)
	admin.HandleFunc("/executions/counts", s.handleExecutionCounts()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	port := s.cfg.Server.Port
	if port == 0 {
		port = constants.DefaultServerPort
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  timeoutOrDefault(s.cfg.Server.ReadTimeoutSec, constants.DefaultServerReadTimeoutSec),
		WriteTimeout: timeoutOrDefault(s.cfg.Server.WriteTimeoutSec, constants.DefaultServerWriteTimeoutSec),
		IdleTimeout:  timeoutOrDefault(s.cfg.Server.IdleTimeoutSec, constants.DefaultServerIdleTimeoutSec),
	}

	s.logger.Infof("Starting server on port %d", port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func timeoutOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.queues.Store().Ping(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  "storage unreachable",
			})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleChatwootWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var hook models.ChatwootWebhook
		if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid webhook payload")
			return
		}

		action, err := s.ingestor.HandleChatwootEvent(r.Context(), &hook)
		if err != nil {
			s.logger.WithError(err).Error("Failed to handle Chatwoot webhook")
			s.writeError(w, http.StatusInternalServerError, "failed to process event")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"action": action})
	}
}

func (s *Server) handleProviderWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := mux.Vars(r)["instanceToken"]

		var ev models.ProviderEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid webhook payload")
			return
		}

		action, err := s.ingestor.HandleProviderEvent(r.Context(), token, &ev)
		if err != nil {
			s.logger.WithError(err).Error("Failed to handle provider webhook")
			s.writeError(w, http.StatusInternalServerError, "failed to process event")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"action": action})
	}
}

func (s *Server) handleSaveInstance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var instance models.Instance
		if err := json.NewDecoder(r.Body).Decode(&instance); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid instance payload")
			return
		}
		if instance.ID == "" || instance.TenantID == "" || instance.APIToken == "" {
			s.writeError(w, http.StatusBadRequest, "id, tenantId and apiToken are required")
			return
		}

		if err := s.instances.SaveInstance(r.Context(), &instance); err != nil {
			s.logger.WithError(err).Error("Failed to save instance")
			s.writeError(w, http.StatusInternalServerError, "failed to save instance")
			return
		}
		s.resolver.Invalidate(r.Context(), instance.APIToken)

		s.logger.WithFields(logrus.Fields{
			"instanceId": instance.ID,
			"tenantId":   instance.TenantID,
		}).Info("Instance configuration saved")
		s.writeJSON(w, http.StatusOK, map[string]string{"id": instance.ID})
	}
}

func (s *Server) handleInstanceStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instanceID := mux.Vars(r)["instanceId"]
		instance, err := s.resolver.InstanceByID(r.Context(), instanceID)
		if err != nil {
			s.writeError(w, http.StatusNotFound, "instance not found")
			return
		}

		client := s.provider(instance.BaseURL, instance.APIToken)
		reporter, ok := client.(statusReporter)
		if !ok {
			s.writeError(w, http.StatusNotImplemented, "provider does not report status")
			return
		}

		state, err := reporter.Status(r.Context())
		if err != nil {
			s.logger.WithError(err).WithField("instanceId", instanceID).Error("Failed to read instance status")
			s.writeError(w, http.StatusBadGateway, "failed to read instance status")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{
			"instanceId": instanceID,
			"state":      state,
		})
	}
}

func (s *Server) handleListDLQ() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, ok := s.jobKeysFromRequest(w, r)
		if !ok {
			return
		}

		jobs, err := s.queues.ListDLQ(r.Context(), keys.DLQ, 0, -1)
		if err != nil {
			s.logger.WithError(err).Error("Failed to list quarantined jobs")
			s.writeError(w, http.StatusInternalServerError, "failed to list quarantined jobs")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"dlqKey": keys.DLQ,
			"jobs":   jobs,
		})
	}
}

func (s *Server) handleRetryDLQ() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, ok := s.jobKeysFromRequest(w, r)
		if !ok {
			return
		}

		batch := constants.DefaultDLQRetryBatch
		if raw := r.URL.Query().Get("batch"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				s.writeError(w, http.StatusBadRequest, "batch must be a positive integer")
				return
			}
			batch = parsed
		}

		requeued, err := s.retry.RetryDLQ(r.Context(), keys.Queue, keys.DLQ, batch)
		if err != nil {
			s.logger.WithError(err).Error("Failed to replay quarantined jobs")
			s.writeError(w, http.StatusInternalServerError, "failed to replay quarantined jobs")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"requeued": requeued})
	}
}

func (s *Server) handleClearDLQ() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, ok := s.jobKeysFromRequest(w, r)
		if !ok {
			return
		}

		removed, err := s.retry.ClearDLQ(r.Context(), keys.DLQ)
		if err != nil {
			s.logger.WithError(err).Error("Failed to clear quarantine")
			s.writeError(w, http.StatusInternalServerError, "failed to clear quarantine")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
	}
}

func (s *Server) handleClearQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, ok := s.jobKeysFromRequest(w, r)
		if !ok {
			return
		}

		result, err := s.queues.ClearQueue(r.Context(), keys.Queue, keys.Retry, keys.DLQ, keys.Lock)
		if err != nil {
			s.logger.WithError(err).Error("Failed to clear queue")
			s.writeError(w, http.StatusInternalServerError, "failed to clear queue")
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleQueueStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, ok := s.jobKeysFromRequest(w, r)
		if !ok {
			return
		}

		stats, err := s.retry.Stats(r.Context(), keys)
		if err != nil {
			s.logger.WithError(err).Error("Failed to read queue stats")
			s.writeError(w, http.StatusInternalServerError, "failed to read queue stats")
			return
		}
		s.writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) handleListExecutions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := models.ExecutionFilter{
			TenantID:  query.Get("tenantId"),
			Direction: models.Direction(query.Get("direction")),
			Status:    models.ExecutionStatus(query.Get("status")),
		}
		if raw := query.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 {
				s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			filter.Limit = limit
		}

		records, err := s.executions.RecentExecutions(r.Context(), filter)
		if err != nil {
			s.logger.WithError(err).Error("Failed to list executions")
			s.writeError(w, http.StatusInternalServerError, "failed to list executions")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"executions": records})
	}
}

func (s *Server) handleExecutionCounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := s.executions.CountByStatus(r.Context())
		if err != nil {
			s.logger.WithError(err).Error("Failed to count executions")
			s.writeError(w, http.StatusInternalServerError, "failed to count executions")
			return
		}
		s.writeJSON(w, http.StatusOK, counts)
	}
}

// jobKeysFromRequest derives the queue/lock/retry/DLQ key set from the
// routing identifiers in the query string. Outbound requests carry
// accountId/inboxId, inbound requests carry tenantId/instanceId; both
// carry contact.
func (s *Server) jobKeysFromRequest(w http.ResponseWriter, r *http.Request) (queue.JobKeys, bool) {
	query := r.URL.Query()
	contact := query.Get("contact")
	if err := validation.ValidateContactKey(contact); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid contact: %v", err))
		return queue.JobKeys{}, false
	}

	switch models.Direction(query.Get("direction")) {
	case models.DirectionOutbound:
		accountID, err := strconv.Atoi(query.Get("accountId"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "accountId must be an integer")
			return queue.JobKeys{}, false
		}
		inboxID, err := strconv.Atoi(query.Get("inboxId"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "inboxId must be an integer")
			return queue.JobKeys{}, false
		}
		return queue.JobKeys{
			Queue: queue.OutboundQueueKey(accountID, inboxID, contact),
			Lock:  queue.OutboundLockKey(accountID, inboxID, contact),
			Retry: queue.OutboundRetryKey(accountID, inboxID, contact),
			DLQ:   queue.OutboundDLQKey(accountID, inboxID, contact),
		}, true
	case models.DirectionInbound:
		tenantID := query.Get("tenantId")
		instanceID := query.Get("instanceId")
		if tenantID == "" || instanceID == "" {
			s.writeError(w, http.StatusBadRequest, "tenantId and instanceId are required")
			return queue.JobKeys{}, false
		}
		return queue.JobKeys{
			Queue: queue.InboundQueueKey(tenantID, instanceID, contact),
			Lock:  queue.InboundLockKey(tenantID, instanceID, contact),
			Retry: queue.InboundRetryKey(tenantID, instanceID, contact),
			DLQ:   queue.InboundDLQKey(tenantID, instanceID, contact),
		}, true
	default:
		s.writeError(w, http.StatusBadRequest, "direction must be cw_to_wa or wa_to_cw")
		return queue.JobKeys{}, false
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/metering/internal/api/handler"
	mw "github.com/edvin/metering/internal/api/middleware"
	"github.com/edvin/metering/internal/billing"
	"github.com/edvin/metering/internal/config"
	"github.com/edvin/metering/internal/core"
	"github.com/edvin/metering/internal/meter"
	"github.com/edvin/metering/internal/objectstore"
)

type Server struct {
	router    chi.Router
	logger    zerolog.Logger
	services  *core.Services
	corePool  *pgxpool.Pool
	store     *objectstore.TenantAdapter
	collector *meter.Collector
	billing   *billing.Engine
	cfg       *config.Config
}

func NewServer(logger zerolog.Logger, coreDB *pgxpool.Pool, store *objectstore.TenantAdapter,
	collector *meter.Collector, billingEngine *billing.Engine, cfg *config.Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger,
		services:  core.NewServices(coreDB),
		corePool:  coreDB,
		store:     store,
		collector: collector,
		billing:   billingEngine,
		cfg:       cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.corePool))

		// Tenants
		tenant := handler.NewTenant(s.services.Tenant, s.cfg.DefaultStorageQuotaGB)
		r.Get("/tenants", tenant.List)
		r.Post("/tenants", tenant.Create)
		r.Get("/tenants/{tenantID}", tenant.Get)
		r.Put("/tenants/{tenantID}/status", tenant.UpdateStatus)
		r.Put("/tenants/{tenantID}/quota", tenant.UpdateQuota)

		// Buckets
		bucket := handler.NewBucket(s.services.Bucket, s.services.Tenant)
		r.Get("/tenants/{tenantID}/buckets", bucket.ListByTenant)
		r.Post("/tenants/{tenantID}/buckets", bucket.Create)
		r.Delete("/tenants/{tenantID}/buckets/{bucketID}", bucket.Delete)

		// Usage
		usage := handler.NewUsage(s.services.UsageRecord, s.billing)
		r.Get("/tenants/{tenantID}/usage", usage.ListByTenant)
		r.Get("/tenants/{tenantID}/projected-cost", usage.ProjectedCost)

		// Invoices
		invoice := handler.NewInvoice(s.services.Invoice)
		r.Get("/tenants/{tenantID}/invoices", invoice.ListByTenant)
		r.Get("/invoices/{invoiceID}", invoice.Get)
		r.Post("/invoices/{invoiceID}/pay", invoice.MarkPaid)

		// Notifications
		notification := handler.NewNotification(s.services.Notification)
		r.Get("/tenants/{tenantID}/notifications", notification.ListByTenant)
		r.Put("/notifications/{notificationID}/read", notification.MarkRead)

		// Manual triggers for the scheduled passes
		admin := handler.NewAdmin(s.collector, s.billing)
		r.Post("/admin/collect-usage", admin.CollectUsage)
		r.Get("/admin/collector-status", admin.CollectorStatus)
		r.Post("/admin/generate-invoices", admin.GenerateInvoices)
		r.Post("/admin/check-overdue", admin.CheckOverdue)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	if err := s.store.Ping(ctx); err != nil {
		checks["object_store"] = err.Error()
		healthy = false
	} else {
		checks["object_store"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

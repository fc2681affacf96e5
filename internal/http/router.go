package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"teleshop-backend/internal/handlers"
	"teleshop-backend/internal/middleware"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	uploadHandler *handlers.UploadHandler,
	stockHandler *handlers.StockHandler,
	reportHandler *handlers.ReportHandler,
	simBatchHandler *handlers.SimBatchHandler,
	staffHandler *handlers.StaffHandler,
	borrowHandler *handlers.BorrowHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected API routes - Account
	accountAPI := r.PathPrefix("/api/account").Subrouter()
	accountAPI.Use(authMiddleware.Authenticate)
	accountAPI.HandleFunc("/password", authHandler.SetPassword).Methods("PUT")
	accountAPI.HandleFunc("/totp/setup", authHandler.SetupTOTP).Methods("POST")
	accountAPI.HandleFunc("/totp/confirm", authHandler.ConfirmTOTP).Methods("POST")

	// Protected API routes - Uploads. Applying a workbook is open to every
	// staff member; reverting a day and importing pickup lists are admin only.
	uploadsAPI := r.PathPrefix("/api/uploads").Subrouter()
	uploadsAPI.Use(authMiddleware.Authenticate)
	uploadsAPI.HandleFunc("/sales", uploadHandler.ApplySales).Methods("POST")

	uploadsAdminAPI := r.PathPrefix("/api/uploads").Subrouter()
	uploadsAdminAPI.Use(authMiddleware.RequireAdmin)
	uploadsAdminAPI.HandleFunc("/revert", uploadHandler.RevertDay).Methods("POST")
	uploadsAdminAPI.HandleFunc("/sales/{sale_id}", uploadHandler.DeleteSale).Methods("DELETE")
	uploadsAdminAPI.HandleFunc("/pickup", uploadHandler.ImportPickup).Methods("POST")

	// Protected API routes - Stock reads
	stockAPI := r.PathPrefix("/api/stock").Subrouter()
	stockAPI.Use(authMiddleware.Authenticate)
	stockAPI.HandleFunc("", stockHandler.ListAll).Methods("GET")
	stockAPI.HandleFunc("/summary", stockHandler.Summary).Methods("GET")
	stockAPI.HandleFunc("/staff/{staff_id}", stockHandler.Balance).Methods("GET")
	stockAPI.HandleFunc("/staff/{staff_id}/history", stockHandler.History).Methods("GET")

	// Protected API routes - Stock movements (admin only)
	stockAdminAPI := r.PathPrefix("/api/stock").Subrouter()
	stockAdminAPI.Use(authMiddleware.RequireAdmin)
	stockAdminAPI.HandleFunc("/staff/{staff_id}/check", stockHandler.Check).Methods("GET")
	stockAdminAPI.HandleFunc("/backoffice", stockHandler.Backoffice).Methods("GET")
	stockAdminAPI.HandleFunc("/backoffice", stockHandler.AddBackoffice).Methods("POST")
	stockAdminAPI.HandleFunc("/transfer", stockHandler.Transfer).Methods("POST")

	// Protected API routes - Reports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("/sales", reportHandler.SalesByDate).Methods("GET")
	reportsAPI.HandleFunc("/sales/staff/{staff_id}", reportHandler.SalesByStaffDate).Methods("GET")
	reportsAPI.HandleFunc("/sales/xlsx", reportHandler.DailyWorkbook).Methods("GET")
	reportsAPI.HandleFunc("/sales/pdf", reportHandler.DailyPDF).Methods("GET")
	reportsAPI.HandleFunc("/counts", reportHandler.RangeCounts).Methods("GET")
	reportsAPI.HandleFunc("/regs", reportHandler.RegTotals).Methods("GET")
	reportsAPI.HandleFunc("/totals", reportHandler.DailyTotals).Methods("GET")

	// Protected API routes - SIM tracker
	simAPI := r.PathPrefix("/api/sim-batches").Subrouter()
	simAPI.Use(authMiddleware.Authenticate)
	simAPI.HandleFunc("/status-counts", simBatchHandler.StatusCounts).Methods("GET")
	simAPI.HandleFunc("/{gsm}", simBatchHandler.Status).Methods("GET")

	simAdminAPI := r.PathPrefix("/api/sim-batches").Subrouter()
	simAdminAPI.Use(authMiddleware.RequireAdmin)
	simAdminAPI.HandleFunc("/transfer", simBatchHandler.Transfer).Methods("POST")

	// Protected API routes - Staff management (admin only)
	staffAPI := r.PathPrefix("/api/staff").Subrouter()
	staffAPI.Use(authMiddleware.RequireAdmin)
	staffAPI.HandleFunc("", staffHandler.List).Methods("GET")
	staffAPI.HandleFunc("/admin", staffHandler.SetAdmin).Methods("PUT")
	staffAPI.HandleFunc("/chat-id", staffHandler.SetChatID).Methods("PUT")

	// Protected API routes - Borrow ledger (admin only, per-admin records)
	borrowAPI := r.PathPrefix("/api/borrows").Subrouter()
	borrowAPI.Use(authMiddleware.RequireAdmin)
	borrowAPI.HandleFunc("", borrowHandler.Add).Methods("POST")
	borrowAPI.HandleFunc("", borrowHandler.List).Methods("GET")
	borrowAPI.HandleFunc("/summary", borrowHandler.Summary).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

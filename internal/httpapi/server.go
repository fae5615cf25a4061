// Package httpapi exposes the engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hivedesk/hivedesk/pkg/booking"
	"github.com/hivedesk/hivedesk/pkg/cancellation"
	"github.com/hivedesk/hivedesk/pkg/escrow"
	"github.com/hivedesk/hivedesk/pkg/ledger"
	"github.com/hivedesk/hivedesk/pkg/payment"
	"github.com/hivedesk/hivedesk/pkg/reservation"
)

// Config controls the HTTP server.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
}

// Services bundles the engine services the API fronts.
type Services struct {
	Reservations  *reservation.Service
	Bookings      *booking.Service
	Ledger        *ledger.Service
	Escrow        *escrow.Service
	Cancellations *cancellation.Service
	Payments      *payment.Service
}

// Server is the HTTP façade over the engine.
type Server struct {
	cfg      Config
	services Services
	logger   *zap.Logger
}

// NewServer wires a Server.
func NewServer(cfg Config, services Services, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, services: services, logger: logger}
}

// Router builds the gin engine with every route mounted.
func (server *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if len(server.cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     server.cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	api.POST("/reservations", server.handleCreateReservation)
	api.POST("/reservations/:id/confirm", server.handleConfirmReservation)
	api.POST("/reservations/:id/cancel", server.handleCancelReservation)

	api.POST("/bookings", server.handleCreateBooking)
	api.GET("/bookings/:id", server.handleGetBooking)
	api.POST("/bookings/:id/confirm", server.handleConfirmBooking)
	api.POST("/bookings/:id/pay", server.handlePayBooking)
	api.POST("/bookings/:id/check-in", server.handleCheckIn)
	api.POST("/bookings/:id/check-out", server.handleCheckOut)
	api.POST("/bookings/:id/cancel", server.handleCancelBooking)

	api.GET("/cancellations/:id", server.handleGetCancellation)
	api.POST("/cancellations/:id/approve", server.handleApproveCancellation)
	api.POST("/cancellations/:id/reject", server.handleRejectCancellation)

	api.GET("/wallets/:userID", server.handleGetWallet)
	api.POST("/wallets/:userID/deposits", server.handleInitiateDeposit)
	api.POST("/deposits/verify", server.handleVerifyDeposit)

	api.GET("/workspace-wallets/:workspaceID", server.handleGetWorkspaceWallet)
	api.POST("/withdrawals", server.handleRequestWithdrawal)
	api.POST("/withdrawals/:id/process", server.handleProcessWithdrawal)
	api.POST("/withdrawals/:id/complete", server.handleCompleteWithdrawal)

	return router
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (server *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.cfg.ListenAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		server.logger.Info("http api listening", zap.String("addr", server.cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			server.logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

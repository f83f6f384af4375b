package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/localbites/kiosk-backend/api/controllers"
	webhookcontrollers "github.com/localbites/kiosk-backend/api/controllers/webhooks"
	"github.com/localbites/kiosk-backend/api/middleware"
	"github.com/localbites/kiosk-backend/internal/alerts"
	"github.com/localbites/kiosk-backend/internal/orders"
	"github.com/localbites/kiosk-backend/internal/terminals"
	"github.com/localbites/kiosk-backend/pkg/config"
	"github.com/localbites/kiosk-backend/pkg/logger"
	pkgredis "github.com/localbites/kiosk-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	Redis     *pkgredis.Client
	DB        controllers.Pinger
	PubSub    controllers.Pinger
	Terminals terminals.Service
	Orders    orders.Service
	Payments  controllers.PaymentService
	Webhook   webhookcontrollers.PaymentSignalHandler
	Verifier  interface {
		VerifyWebhookSignature(body []byte, signature string) bool
	}
	ReplayGuard webhookcontrollers.ReplayGuard
	Alerts      alerts.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	var idemStore pkgredis.IdempotencyStore
	var redisPinger controllers.Pinger
	if deps.Redis != nil {
		idemStore = deps.Redis
		redisPinger = deps.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.NamedPinger("db", deps.DB),
			controllers.NamedPinger("redis", redisPinger),
			controllers.NamedPinger("pubsub", deps.PubSub),
		))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSOrigins...))

		r.Post("/webhooks/square", webhookcontrollers.SquarePayment(deps.Webhook, deps.Verifier, deps.ReplayGuard, logg))

		// Session open issues the terminal token; everything else needs one.
		r.Post("/sessions", controllers.SessionOpen(deps.Terminals, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.TerminalAuth(cfg.JWT, deps.Terminals, logg),
				middleware.Idempotency(idemStore, logg),
			)

			r.Post("/sessions/heartbeat", controllers.SessionHeartbeat(deps.Terminals, logg))
			r.Post("/sessions/close", controllers.SessionClose(deps.Terminals, logg))

			r.Post("/orders", controllers.OrderCreate(deps.Orders, logg))
			r.Get("/orders/{orderID}", controllers.OrderGet(deps.Orders, logg))
			r.Post("/orders/{orderID}/payment/confirm", controllers.PaymentConfirm(deps.Payments, logg))
			r.Post("/orders/{orderID}/payment/cancel", controllers.PaymentCancel(deps.Payments, logg))

			r.Get("/alerts", controllers.AlertsPending(deps.Alerts, logg))
			r.Post("/alerts/{alertID}/ack", controllers.AlertAck(deps.Alerts, logg))
		})
	})

	return r
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hirelocal/hirelocal-backend/api/controllers"
	paymentcontrollers "github.com/hirelocal/hirelocal-backend/api/controllers/payments"
	webhookcontrollers "github.com/hirelocal/hirelocal-backend/api/controllers/webhooks"
	"github.com/hirelocal/hirelocal-backend/api/middleware"
	"github.com/hirelocal/hirelocal-backend/api/responses"
	"github.com/hirelocal/hirelocal-backend/pkg/config"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
	"github.com/hirelocal/hirelocal-backend/pkg/redis"
	pkgstripe "github.com/hirelocal/hirelocal-backend/pkg/stripe"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Redis      *redis.Client
	Stripe     *pkgstripe.Client
	Registry   *prometheus.Registry
	Listings   controllers.ListingsService
	Onboarding paymentcontrollers.OnboardingService
	Checkout   paymentcontrollers.CheckoutService
	WebhookSvc webhookcontrollers.StripeWebhookService
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
			responses.WriteSuccess(w, map[string]string{"status": "pong"})
		})
		r.Route("/v1/listings", func(r chi.Router) {
			r.Get("/", controllers.BrowseListings(deps.Listings, logg))
		})
		r.Get("/v1/providers/{providerID}/listings", controllers.ProviderListings(deps.Listings, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.WebhookSvc, deps.Stripe, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.MemberRoleCustomer), logg))
			r.Post("/checkout", paymentcontrollers.PayBooking(deps.Checkout, logg))
			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", paymentcontrollers.ListTransactions(deps.Checkout, logg))
				r.Get("/{transactionID}", paymentcontrollers.GetTransaction(deps.Checkout, logg))
			})
		})

		r.Route("/provider", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.MemberRoleProvider), logg))
			r.Route("/onboarding", func(r chi.Router) {
				r.Post("/", paymentcontrollers.StartOnboarding(deps.Onboarding, logg))
				r.Get("/", paymentcontrollers.OnboardingStatus(deps.Onboarding, logg))
				r.Post("/reconcile", paymentcontrollers.ReconcileOnboarding(deps.Onboarding, logg))
			})
			r.Get("/transactions", paymentcontrollers.ProviderTransactions(deps.Checkout, logg))
		})
	})

	return r
}

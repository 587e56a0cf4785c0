package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Catalog   *CatalogHandler
	Rates     *RateHandler
	Routing   *RoutingHandler
	Connector *ConnectorHandler
	Message   *MessageHandler
	DLR       *DLRHandler
}

// NewRouter builds the service's HTTP API. Provisioning calls pace
// themselves against the gateway and can run for minutes, so the request
// timeout is generous.
func NewRouter(h Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)
	r.Use(chimiddleware.Timeout(10 * time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/catalog", func(c chi.Router) {
			c.Post("/countries", h.Catalog.AddCountry)
			c.Get("/countries", h.Catalog.ListCountries)
			c.Get("/countries/export", h.Catalog.ExportCountries)
			c.Post("/operators", h.Catalog.AddOperator)
			c.Get("/operators", h.Catalog.ListOperators)
			c.Get("/operators/export", h.Catalog.ExportOperators)
			c.Post("/prefixes", h.Catalog.AddPrefix)
			c.Get("/prefixes", h.Catalog.ListPrefixes)
			c.Get("/prefixes/export", h.Catalog.ExportPrefixes)
		})

		api.Route("/rates", func(rt chi.Router) {
			rt.Post("/", h.Rates.UpsertRate)
			rt.Get("/resolve", h.Rates.ResolveCountryRates)
			rt.Get("/connector/{connectorID}", h.Rates.ResolveConnectorRates)
			rt.Post("/import", h.Rates.ImportRates)
			rt.Get("/template", h.Rates.SampleTemplate)
		})

		api.Route("/routing", func(rt chi.Router) {
			rt.Post("/provision", h.Routing.Provision)
			rt.Get("/configurations", h.Routing.ListConfigurations)
			rt.Get("/configurations/{username}/{country}", h.Routing.GetConfiguration)
			rt.Get("/usernames", h.Routing.ListUsernames)
		})

		api.Route("/connectors", func(c chi.Router) {
			c.Get("/", h.Connector.List)
			c.Post("/", h.Connector.Create)
			c.Get("/{connectorID}", h.Connector.Get)
			c.Delete("/{connectorID}", h.Connector.Delete)
			c.Patch("/{connectorID}", h.Connector.Update)
			c.Put("/{connectorID}/start", h.Connector.Start)
			c.Put("/{connectorID}/stop", h.Connector.Stop)
		})

		api.Post("/messages/send", h.Message.Send)
	})

	// The gateway posts DLR callbacks outside the versioned API.
	r.Post("/dlr", h.DLR.Receive)

	return r
}

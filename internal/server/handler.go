// Package server assembles the HTTP surface: routing, store wiring and
// operational endpoints.
package server

import (
	"context"
	_ "embed"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialdesk/trialdesk/internal/metrics"
	"github.com/trialdesk/trialdesk/internal/routing"
	"github.com/trialdesk/trialdesk/modules/therapeutic/infrastructure/persistence"
	"github.com/trialdesk/trialdesk/modules/therapeutic/presentation/controllers"
	"github.com/trialdesk/trialdesk/modules/therapeutic/services"
)

//go:embed routes.yaml
var embeddedRoutes []byte

// HandlerOptions lets tests inject store bundles; the zero value wires
// Postgres stores from the environment DSN.
type HandlerOptions struct {
	Stores *services.Stores
}

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	a, err := loadAllowlist()
	if err != nil {
		return nil, err
	}
	classifier, err := routing.NewClassifier(a, "server")
	if err != nil {
		return nil, err
	}

	stores := opts.Stores
	if stores == nil {
		pool, err := pgxpool.New(context.Background(), dbDSNFromEnv())
		if err != nil {
			return nil, err
		}
		s := newPGStores(pool)
		stores = &s
	}

	svc := services.NewTrialService(*stores)
	trials := controllers.TrialsController{Service: svc, Param: routing.Param}

	router := routing.NewRouter(classifier)

	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	router.Handle(routing.RouteClassOps, http.MethodGet, "/metrics", metrics.Handler())

	api := func(route string, h http.HandlerFunc) http.Handler {
		return metrics.Instrument(route, h)
	}

	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/v1/therapeutic/create-therapeutic",
		api("/api/v1/therapeutic/create-therapeutic", trials.HandleCreateTrial))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/v1/therapeutic/all-trials-with-data",
		api("/api/v1/therapeutic/all-trials-with-data", trials.HandleFetchAllTrials))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/v1/therapeutic/search",
		api("/api/v1/therapeutic/search", trials.HandleSearch))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/v1/therapeutic/trial/{trial_id}/all-data",
		api("/api/v1/therapeutic/trial/{trial_id}/all-data", trials.HandleFetchTrial))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPut, "/api/v1/therapeutic/trial/{trial_id}",
		api("/api/v1/therapeutic/trial/{trial_id}", trials.HandleUpdateOverview))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/v1/therapeutic/trial/{trial_id}/section/{section}",
		api("/api/v1/therapeutic/trial/{trial_id}/section/{section}", trials.HandleSection))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPut, "/api/v1/therapeutic/trial/{trial_id}/section/{section}",
		api("/api/v1/therapeutic/trial/{trial_id}/section/{section}", trials.HandleSection))
	router.Handle(routing.RouteClassPublicAPI, http.MethodDelete, "/api/v1/therapeutic/trial/{trial_id}/{user_id}/delete-all",
		api("/api/v1/therapeutic/trial/{trial_id}/{user_id}/delete-all", trials.HandleDeleteTrial))

	return router, nil
}

func loadAllowlist() (routing.Allowlist, error) {
	if path := os.Getenv("ROUTES_PATH"); path != "" {
		return routing.LoadAllowlist(path)
	}
	return routing.ParseAllowlistYAML(embeddedRoutes)
}

func newPGStores(pool *pgxpool.Pool) services.Stores {
	activity := services.NewActivityLogger(
		persistence.NewActivityPGStore(pool),
		persistence.NewUserPGStore(pool),
	)
	return services.Stores{
		Overview: persistence.NewOverviewPGStore(pool),
		Outcomes: persistence.NewOutcomePGStore(pool),
		Criteria: persistence.NewCriteriaPGStore(pool),
		Timing:   persistence.NewTimingPGStore(pool),
		Results:  persistence.NewResultsPGStore(pool),
		Sites:    persistence.NewSitePGStore(pool),
		Other:    persistence.NewOtherSourcePGStore(pool),
		Logs:     persistence.NewLogPGStore(pool),
		Notes:    persistence.NewNotePGStore(pool),
		Activity: activity,
	}
}

// NewMemoryStores assembles the in-memory bundle used by tests and by
// local runs without a database.
func NewMemoryStores() services.Stores {
	users := persistence.NewUserMemoryStore()
	activity := services.NewActivityLogger(persistence.NewActivityMemoryStore(users), users)
	return services.Stores{
		Overview: persistence.NewOverviewMemoryStore(),
		Outcomes: persistence.NewOutcomeMemoryStore(),
		Criteria: persistence.NewCriteriaMemoryStore(),
		Timing:   persistence.NewTimingMemoryStore(),
		Results:  persistence.NewResultsMemoryStore(),
		Sites:    persistence.NewSiteMemoryStore(),
		Other:    persistence.NewOtherSourceMemoryStore(),
		Logs:     persistence.NewLogMemoryStore(),
		Notes:    persistence.NewNoteMemoryStore(),
		Activity: activity,
	}
}

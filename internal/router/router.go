package router

import (
	"database/sql"
	"net/http"
	"os"

	mem "zerotouch-micropolicy/internal/adapters/storage/memory"
	pg "zerotouch-micropolicy/internal/adapters/storage/postgres"
	"zerotouch-micropolicy/internal/domain/events"
	"zerotouch-micropolicy/internal/domain/policies"
	"zerotouch-micropolicy/internal/middleware"
	"zerotouch-micropolicy/internal/platform/logger"
	"zerotouch-micropolicy/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Log logger.Logger
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	var (
		policyRepo policies.Repository
		eventRepo  events.Repository
	)

	if db != nil {
		policyRepo = pg.NewPoliciesRepo(db)
		eventRepo = pg.NewEventsRepo(db)
	} else {
		memPolicies := mem.NewPolicyRepo()
		policyRepo = memPolicies
		eventRepo = mem.NewEventRepo(memPolicies)
	}

	// Services por módulo
	policiesSvc := policies.NewService(policyRepo)
	eventsSvc := events.NewService(eventRepo)

	// Rutas por módulo
	policies.RegisterRoutes(r, policiesSvc, log)
	events.RegisterRoutes(r, eventsSvc, policiesSvc, log)

	return r
}

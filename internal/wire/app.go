package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/alanyang/lead-router/internal/adapter/memory"
	pgdb "github.com/alanyang/lead-router/internal/adapter/postgres"
	pgagent "github.com/alanyang/lead-router/internal/adapter/postgres/agent"
	pgassignment "github.com/alanyang/lead-router/internal/adapter/postgres/assignment"
	pgidempotency "github.com/alanyang/lead-router/internal/adapter/postgres/idempotency"
	pglead "github.com/alanyang/lead-router/internal/adapter/postgres/lead"
	"github.com/alanyang/lead-router/internal/config"
	"github.com/alanyang/lead-router/internal/metrics"
	portagent "github.com/alanyang/lead-router/internal/port/agent"
	portassignment "github.com/alanyang/lead-router/internal/port/assignment"
	"github.com/alanyang/lead-router/internal/port/clock"
	portidempotency "github.com/alanyang/lead-router/internal/port/idempotency"
	portlead "github.com/alanyang/lead-router/internal/port/lead"

	agentsvc "github.com/alanyang/lead-router/internal/service/agent"
	bulksvc "github.com/alanyang/lead-router/internal/service/bulk"
	"github.com/alanyang/lead-router/internal/service/capacity"
	leadsvc "github.com/alanyang/lead-router/internal/service/lead"
	"github.com/alanyang/lead-router/internal/service/pool"

	"github.com/alanyang/lead-router/internal/transport"
	mcptransport "github.com/alanyang/lead-router/internal/transport/mcp"
)

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Pool      *pgxpool.Pool // nil with the memory driver
	Memory    *memory.Store // nil with the postgres driver
	Server    *http.Server
	LeadSvc   *leadsvc.Service
	BulkSvc   *bulksvc.Service
	AgentSvc  *agentsvc.Service
	MCPServer *mcptransport.Server
	Registry  *prometheus.Registry
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

type stores struct {
	leads   portlead.Repository
	agents  portagent.Directory
	loads   portagent.LoadReader
	commits portassignment.Committer
	ops     portidempotency.Store
	ping    transport.Pinger
}

// Build is the composition root: the only place concrete types are wired to their
// interface dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{}

	// ── Stores ────────────────────────────────────────────────────────────────
	var st stores
	switch cfg.StoreDriver {
	case config.DriverMemory:
		app.Memory = memory.NewStore(cfg.DefaultMaxCapacity)
		st = stores{
			leads:   app.Memory.Leads(),
			agents:  app.Memory.Agents(),
			loads:   app.Memory.Agents(),
			commits: app.Memory,
			ops:     app.Memory.Operations(),
			ping:    app.Memory,
		}
	case config.DriverPostgres:
		dbPool, err := pgdb.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		app.Pool = dbPool
		agentRepo := pgagent.New(dbPool, cfg.DefaultMaxCapacity)
		st = stores{
			leads:   pglead.New(dbPool),
			agents:  agentRepo,
			loads:   agentRepo,
			commits: pgassignment.New(dbPool, cfg.DefaultMaxCapacity),
			ops:     pgidempotency.New(dbPool),
			ping:    dbPool,
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := metrics.NewPrometheus(reg, "")
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	app.Registry = reg

	// ── Services ──────────────────────────────────────────────────────────────
	policy, err := capacity.ParsePolicy(cfg.CapacityReadPolicy)
	if err != nil {
		app.Close()
		return nil, err
	}
	clk := clock.System{}
	oracle := capacity.NewOracle(st.loads, policy, rec)
	pools := pool.NewBuilder(st.agents, oracle)

	app.LeadSvc = leadsvc.NewService(st.leads, st.commits, oracle, clk, rec)
	app.BulkSvc = bulksvc.NewService(st.leads, st.commits, pools, oracle, clk,
		bulksvc.WithMaxItems(cfg.BulkMaxItems),
		bulksvc.WithMetrics(rec),
		bulksvc.WithIdempotency(st.ops),
	)
	app.AgentSvc = agentsvc.NewService(st.agents, oracle, clk)

	app.MCPServer = mcptransport.New(app.LeadSvc, app.BulkSvc, app.AgentSvc)

	// ── Transport ─────────────────────────────────────────────────────────────
	router := transport.NewRouter(transport.Deps{
		LeadSvc:        app.LeadSvc,
		BulkSvc:        app.BulkSvc,
		AgentSvc:       app.AgentSvc,
		Store:          st.ping,
		Gatherer:       reg,
		MCP:            app.MCPServer.Handler(),
		CORSAllowed:    cfg.CORSAllowed,
		RequestTimeout: cfg.RequestTimeout,
	})

	app.Server = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	slog.InfoContext(ctx, "application wired",
		"port", cfg.Port, "store", cfg.StoreDriver, "capacity_read_policy", policy)
	return app, nil
}

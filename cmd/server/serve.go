package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/spf13/cobra"

    "github.com/iliyamo/ballpark-reservation/internal/assign"
    "github.com/iliyamo/ballpark-reservation/internal/catalog"
    "github.com/iliyamo/ballpark-reservation/internal/config"
    "github.com/iliyamo/ballpark-reservation/internal/database"
    "github.com/iliyamo/ballpark-reservation/internal/events"
    "github.com/iliyamo/ballpark-reservation/internal/gate"
    "github.com/iliyamo/ballpark-reservation/internal/handler"
    "github.com/iliyamo/ballpark-reservation/internal/middleware"
    "github.com/iliyamo/ballpark-reservation/internal/queue"
    "github.com/iliyamo/ballpark-reservation/internal/repository"
    "github.com/iliyamo/ballpark-reservation/internal/router"
    "github.com/iliyamo/ballpark-reservation/internal/seatlock"
    "github.com/iliyamo/ballpark-reservation/internal/senior"
)

var serveCmd = &cobra.Command{
    Use:   "serve",
    Short: "Run the HTTP API and the background reapers",
    RunE: func(cmd *cobra.Command, args []string) error {
        return serve()
    },
}

func serve() error {
    cfg := config.Load()
    eng := config.LoadEngineConfig()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        return err
    }
    defer db.Close()
    if err := database.Migrate(db); err != nil {
        return err
    }

    rdb, err := config.NewRedisClient(ctx)
    if err != nil {
        return err
    }
    defer rdb.Close()

    cat, err := catalog.Load(cfg.CatalogPath)
    if err != nil {
        return err
    }
    log.Printf("catalog: %d zones loaded from %s", len(cat.Zones()), cfg.CatalogPath)

    amqpURL := events.AMQPURL()
    pub, err := events.New(cfg.EventsBackend, amqpURL, cfg.NATSURL)
    if err != nil {
        return err
    }
    defer pub.Close()

    games := repository.NewGameRepo(db)
    fans := repository.NewUserRepo(db)
    ledger := repository.NewReservationRepo(db)

    g := gate.New(rdb, gate.FromEngine(eng))
    locks := seatlock.New(rdb, cat, g, ledger, pub, seatlock.FromEngine(eng))
    auto := assign.New(cat, games, fans, locks, eng)
    sen := senior.New(rdb, cat, games, ledger, pub, eng)

    // Redis may have been flushed or replaced; rebuild from MySQL first.
    if err := locks.Recover(ctx); err != nil {
        return err
    }
    if err := sen.Restore(ctx); err != nil {
        return err
    }

    go g.Run(ctx)
    go locks.Run(ctx)
    if cfg.EventsBackend == "" || cfg.EventsBackend == "amqp" {
        go func() {
            if err := queue.StartBookingConsumer(ctx, amqpURL, cfg.BookingLogDir); err != nil && !errors.Is(err, context.Canceled) {
                log.Printf("booking-consumer: stopped: %v", err)
            }
        }()
    }

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(middleware.RequestID())
    e.Use(echomw.Logger())

    health := handler.NewHealthHandler(map[string]handler.Check{
        "mysql": db.PingContext,
        "redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
    })
    router.RegisterRoutes(e, health)
    router.RegisterPublic(e, handler.NewCatalogHandler(cat), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
    router.RegisterCustomer(e, router.Purchase{
        Gate:         handler.NewGateHandler(g, games),
        Seats:        handler.NewSeatHandler(locks, cat),
        Assign:       handler.NewAssignHandler(auto),
        Senior:       handler.NewSeniorHandler(sen, fans),
        Reservations: handler.NewReservationHandler(ledger),
    }, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    addr := ":" + cfg.Port
    go func() {
        log.Printf("listening on %s (env=%s)", addr, cfg.Env)
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Printf("http: %v", err)
            stop()
        }
    }()

    <-ctx.Done()
    log.Printf("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    return e.Shutdown(shutdownCtx)
}

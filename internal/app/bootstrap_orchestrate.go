package app

import (
	"context"
	"encoding/json"
	"time"

	"orchestrate/runtime/internal/infrastructure/config"
	database "orchestrate/runtime/internal/infrastructure/db"
	httpmiddleware "orchestrate/runtime/internal/infrastructure/http/middleware"
	"orchestrate/runtime/internal/infrastructure/logger"
	"orchestrate/runtime/internal/infrastructure/middleware"
	"orchestrate/runtime/internal/infrastructure/telemetry/metrics"
	"orchestrate/runtime/internal/infrastructure/telemetry/tracer"
	"orchestrate/runtime/internal/orchestrate/envelope"
	"orchestrate/runtime/internal/orchestrate/matcher"
	"orchestrate/runtime/internal/orchestrate/platform"
	"orchestrate/runtime/internal/orchestrate/samples"
	"orchestrate/runtime/internal/orchestrate/tracker"
	"orchestrate/runtime/internal/orchestrate/wrapper"
	"orchestrate/runtime/internal/pkg/arn"
	"orchestrate/runtime/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BootstrapLocalGatewayConfig wires the orchestration runtime's
// collaborators and registers its fiber routes — the local API-Gateway +
// Lambda emulator's equivalent of the teacher's BootstrapApiConfig.
type BootstrapLocalGatewayConfig struct {
	App     *fiber.App
	Log     logger.Logger
	Tracer  tracer.Tracer
	Metrics metrics.Metrics
	Config  *config.Config

	db  database.Database
	trk tracker.Store
}

// Run assembles the platform collaborators, registers every sample
// handler and the sequence tracker, and exposes them over HTTP.
func (b *BootstrapLocalGatewayConfig) Run() {
	b.setupMiddleware()
	b.setupTrackerStore()

	expander := arn.NewExpander(&b.Config.Orchestrate)
	invoker := platform.NewLocalInvoker()
	secretFetcher := platform.EnvSecretFetcher{}
	m := matcher.New("UNHANDLED_ERROR")

	trackerARN := expander.Expand("sequenceTracker")

	newOptions := func(fnName string) wrapper.Options {
		return wrapper.Options{
			Logger:             b.Log.WithField("function", fnName),
			SecretFetcher:      secretFetcher,
			Invoker:            invoker,
			Matcher:            m,
			ARNExpander:        expander,
			FunctionName:       fnName,
			SequenceTrackerARN: trackerARN,
			DefaultErrorCode:   "UNHANDLED_ERROR",
			Tracer:             b.Tracer,
			Metrics:            b.Metrics,
		}
	}

	validateOrder := wrapper.Wrap(samples.ValidateOrder, newOptions("validateOrder"))
	chargeOrder := wrapper.Wrap(samples.ChargeOrder, newOptions(samples.FnChargeOrder))
	notifyOrder := wrapper.Wrap(samples.NotifyOrder, newOptions(samples.FnNotifyOrder))
	trackerHandler := wrapper.Wrap(tracker.Handler(b.trk), newOptions("sequenceTracker"))

	samples.RegisterChargeFailedHandler()

	registerInvocable(invoker, expander.Expand(samples.FnChargeOrder), chargeOrder)
	registerInvocable(invoker, expander.Expand(samples.FnNotifyOrder), notifyOrder)
	registerInvocable(invoker, trackerARN, trackerHandler)

	b.App.Post("/invoke/validateOrder", httpInvoke(validateOrder))
	b.App.Post("/invoke/chargeOrder", httpInvoke(chargeOrder))
	b.App.Post("/invoke/notifyOrder", httpInvoke(notifyOrder))
	b.App.Post("/invoke/sequenceTracker", httpInvoke(trackerHandler))

	b.setupHealthRoute()
}

// Stop releases the collaborators opened during Run.
func (b *BootstrapLocalGatewayConfig) Stop() {
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			b.Log.WithField("error_detail", err.Error()).Warn("failed to close tracker database connection")
		}
	}
}

func (b *BootstrapLocalGatewayConfig) setupMiddleware() {
	t := middleware.NewTelemetrist(b.Log, b.Tracer, b.Metrics)

	b.App.Use(httpmiddleware.RequestID())
	b.App.Use(t.HandleMetrics())
	b.App.Use(t.HandleTrace())
	b.App.Use(t.HandleLog())
}

// setupTrackerStore builds the Store backing the sequence tracker per the
// configured backend (spec §4.6): "redis" (default) or "postgres".
func (b *BootstrapLocalGatewayConfig) setupTrackerStore() {
	switch b.Config.Orchestrate.Tracker.Backend {
	case "postgres":
		db := database.NewDatabase(&b.Config.Database, b.Log, b.Tracer)
		b.db = db
		b.trk = tracker.NewPostgresStore(db)
	default:
		cache := database.NewRedisCache(&b.Config.Cache, b.Log)
		b.trk = tracker.NewRedisStore(cache.GetClient())
	}
}

func (b *BootstrapLocalGatewayConfig) setupHealthRoute() {
	h := func(c *fiber.Ctx) error {
		return response.New(c).OK(response.Envelope{
			Message: "up",
			Data:    fiber.Map{"time": time.Now().Format(time.RFC3339)},
		})
	}
	b.App.Get("/", h)
	b.App.Get("/health", h)
}

// registerInvocable names a wrapped handler with the LocalInvoker under
// its fully-qualified ARN, so sequence continuation/forwarding/tracker
// notification (which all call through platform.Invoker) can reach it.
func registerInvocable(invoker *platform.LocalInvoker, name string, handler wrapper.PlatformHandler) {
	invoker.Register(name, func(payload []byte) ([]byte, error) {
		result, err := handler(context.Background(), payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	})
}

// httpInvoke adapts a wrapped PlatformHandler into a fiber route: the
// incoming HTTP request is reshaped into a gateway-proxy event, and the
// handler's result (a gateway response, a plain value, or an error) is
// rendered back onto the HTTP response.
func httpInvoke(handler wrapper.PlatformHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		event, err := buildGatewayEvent(c)
		if err != nil {
			return response.New(c).ServiceUnavailable(response.Envelope{Message: err.Error()})
		}

		result, err := handler(c.UserContext(), event)
		if err != nil {
			return response.New(c).ServiceUnavailable(response.Envelope{Message: err.Error()})
		}

		if gw, ok := result.(envelope.GatewayResponse); ok {
			for k, v := range gw.Headers {
				c.Set(k, v)
			}
			if gw.Body == "" {
				return c.SendStatus(gw.StatusCode)
			}
			return c.Status(gw.StatusCode).SendString(gw.Body)
		}
		return c.Status(fiber.StatusOK).JSON(result)
	}
}

func buildGatewayEvent(c *fiber.Ctx) ([]byte, error) {
	body := c.Body()
	if len(body) == 0 {
		body = []byte("{}")
	}

	headers := map[string]string{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		headers[string(key)] = string(value)
	})

	return json.Marshal(map[string]any{
		"headers":               headers,
		"body":                  string(body),
		"queryStringParameters": c.Queries(),
	})
}

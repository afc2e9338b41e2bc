package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/swiftinvoice-api/internal/application/auth"
	"github.com/jhoicas/swiftinvoice-api/internal/application/billing"
	"github.com/jhoicas/swiftinvoice-api/internal/application/cache"
	"github.com/jhoicas/swiftinvoice-api/internal/application/usecase"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
	infrafacturae "github.com/jhoicas/swiftinvoice-api/internal/infrastructure/facturae"
	"github.com/jhoicas/swiftinvoice-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/swiftinvoice-api/internal/infrastructure/pdf"
	"github.com/jhoicas/swiftinvoice-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/swiftinvoice-api/internal/interfaces/http"
	"github.com/jhoicas/swiftinvoice-api/pkg/config"
	"github.com/jhoicas/swiftinvoice-api/pkg/eventbus"
	"github.com/jhoicas/swiftinvoice-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var docStore store.DocumentStore
	switch cfg.Store.Driver {
	case "memory":
		// Backend volátil para desarrollo local y demos.
		docStore = memory.New()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		docStore = postgres.NewDocumentStore(pool)
	}

	bus := eventbus.New()
	defer bus.Close()
	logInvoiceEvents(bus, log)

	cacheSvc := cache.New(docStore)
	numbering := billing.NewNumberingService(docStore, log)

	invoiceUC := billing.NewInvoiceUseCase(cacheSvc, docStore, numbering, bus, log)
	exportUC := billing.NewExportUseCase(invoiceUC, infrapdf.NewMarotoPDFGenerator(), infrafacturae.NewBuilder())
	clientUC := usecase.NewClientUseCase(cacheSvc)
	templateUC := usecase.NewTemplateUseCase(cacheSvc)
	settingsUC := usecase.NewSettingsUseCase(docStore)
	authUC := auth.NewAuthUseCase(docStore, bus, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "SwiftInvoice API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:     authUC,
		ClientUC:   clientUC,
		TemplateUC: templateUC,
		SettingsUC: settingsUC,
		InvoiceUC:  invoiceUC,
		ExportUC:   exportUC,
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// logInvoiceEvents deja rastro estructurado del ciclo de vida de las facturas.
func logInvoiceEvents(bus *eventbus.Bus, log *logger.Logger) {
	for _, topic := range []string{
		eventbus.TopicInvoiceCreated,
		eventbus.TopicInvoiceUpdated,
		eventbus.TopicInvoiceDeleted,
	} {
		ch, _ := bus.Subscribe(topic)
		go func(topic string, ch <-chan eventbus.Event) {
			for ev := range ch {
				ie, ok := ev.Payload.(billing.InvoiceEvent)
				if !ok {
					continue
				}
				log.Info().
					Str("topic", topic).
					Str("invoice_id", ie.ID).
					Str("number", ie.Number).
					Str("status", ie.Status).
					Msg("evento de factura")
			}
		}(topic, ch)
	}
}

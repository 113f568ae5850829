// Package http is the REST surface of the queue service, built on fiber.
package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Handlers       *Handlers
	Health         *HealthHandler
	Auth           Authenticator
	Log            *slog.Logger
	RequestTimeout time.Duration
}

func NewApp(cfg Config) *fiber.App {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))

	app := fiber.New(fiber.Config{
		AppName:               "queuesmart",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestMetrics())
	app.Use(requestTimeout(cfg.RequestTimeout))

	RegisterRoutes(app, cfg)
	return app
}

func RegisterRoutes(app *fiber.App, cfg Config) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	h := cfg.Handlers
	v1 := app.Group("/v1")

	v1.Get("/staff/:staffId/slots", h.ListSlots)
	v1.Get("/staff/:staffId/open-slots", h.ListOpenSlots)

	protected := v1.Group("", bearerAuth(cfg.Auth))

	protected.Post("/appointments", h.CreateAppointment)
	protected.Get("/appointments", h.ListAppointments)
	protected.Get("/appointments/:id", h.GetAppointment)
	protected.Put("/appointments/:id", h.EditAppointment)
	protected.Delete("/appointments/:id", h.CancelAppointment)
	protected.Post("/appointments/:id/approve", h.ApproveAppointment)
	protected.Post("/appointments/:id/reject", h.RejectAppointment)
	protected.Post("/appointments/:id/serve", h.ServeAppointment)
	protected.Post("/appointments/:id/complete", h.CompleteAppointment)

	protected.Get("/staff/me/dashboard", h.StaffDashboard)
	protected.Get("/staff/me/schedule", h.DailySchedule)

	protected.Post("/availability", h.AddSlot)
	protected.Post("/availability/weekly", h.AddWeeklySlots)
	protected.Get("/availability/calendar", h.AvailabilityCalendar)
	protected.Post("/availability/:id/toggle", h.ToggleSlot)
	protected.Delete("/availability/:id", h.RemoveSlot)

	protected.Get("/notifications", h.ListNotifications)
	protected.Get("/notifications/unread", h.UnreadCount)
	protected.Post("/notifications/read", h.MarkAllRead)
	protected.Delete("/notifications/:id", h.DeleteNotification)
}

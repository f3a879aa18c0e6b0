package telegram

import (
	"fmt"
	"strings"

	"prayer_time_extractor/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RunController is the part of the scheduler the admin commands drive.
type RunController interface {
	TriggerNow() bool
	Running() bool
	LastReport() (*app.RunReport, error)
}

// RegisterAdminHandlers registers the admin commands for scheduled mode.
// Every command is restricted to adminTelegramID.
func RegisterAdminHandlers(b *telebot.Bot, runs RunController, adminTelegramID int64, baseLogger *logrus.Entry) {
	logger := baseLogger.WithField("handler_group", "admin")
	admin := b.Group()
	admin.Use(adminOnly(adminTelegramID, logger))

	admin.Handle("/start", func(c telebot.Context) error {
		return c.Send(fmt.Sprintf("Hello %s! The prayer time extractor is running. Use /help for the list of commands.", c.Sender().FirstName))
	})

	admin.Handle("/help", func(c telebot.Context) error {
		var helpText strings.Builder
		helpText.WriteString("Available commands:\n\n")
		helpText.WriteString("/last_run - Show the report of the last extraction run.\n")
		helpText.WriteString("/run_now - Start an extraction run immediately.\n")
		helpText.WriteString("/help - Show this message.")
		return c.Send(helpText.String())
	})

	admin.Handle("/last_run", func(c telebot.Context) error {
		report, err := runs.LastReport()
		var text string
		switch {
		case report == nil && err == nil:
			text = "No extraction run has finished yet."
		case report == nil:
			text = fmt.Sprintf("The last extraction run failed: %v", err)
		default:
			text = report.Summary()
			if err != nil {
				text += fmt.Sprintf("\nError: %v", err)
			}
		}
		if runs.Running() {
			text += "\n\nAn extraction run is in progress."
		}
		return c.Send(text)
	})

	admin.Handle("/run_now", func(c telebot.Context) error {
		if !runs.TriggerNow() {
			logger.WithField("sender_id", c.Sender().ID).Warn("Manual run rejected")
			return c.Send("An extraction run is already in progress.")
		}
		logger.WithField("sender_id", c.Sender().ID).Info("Manual run started")
		return c.Send("Extraction run started. The report will be sent when it finishes.")
	})
}

func adminOnly(adminTelegramID int64, logger *logrus.Entry) telebot.MiddlewareFunc {
	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if c.Sender() == nil {
				return nil // channel posts
			}
			log := logger.WithFields(logrus.Fields{
				"command":   c.Text(),
				"sender_id": c.Sender().ID,
			})
			if c.Sender().ID != adminTelegramID {
				log.Warn("Unauthorized access attempt")
				return c.Send("Error: you are not allowed to use this bot.")
			}
			log.Info("Command received")
			return next(c)
		}
	}
}

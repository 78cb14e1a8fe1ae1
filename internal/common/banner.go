package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved runtime locations
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("dupremover", GetVersion())

	logger.Info().
		Str("portal", config.Portal.RemoveMemberURL).
		Str("source_file", config.Data.SourceFile).
		Str("sessions_dir", config.Storage.SessionsDir).
		Str("logs_dir", config.Storage.LogsDir).
		Bool("headless", config.Browser.Headless).
		Msg("Runtime configuration")
}

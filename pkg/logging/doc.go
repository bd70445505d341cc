// Package logging configures the log/slog loggers used across soapdemo.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("server started", "addr", ":8787")
//
// Every logger carries a service=soapdemo attribute. Components accept a
// *slog.Logger in their constructor; nil means logging.Nop().
package logging

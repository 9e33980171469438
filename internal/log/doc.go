// Package log provides the run logger of banreview, built on top of the
// standard slog package.
//
// A review run authenticates with a saved browser session, so log lines
// can carry cookie values, bearer tokens or the session token itself.
// SecureHandler masks those before they reach the console or the run log
// file, even in verbose mode.
//
// # Usage
//
//	logFile, _ := os.Create("result/log.txt")
//	logger := log.NewRunLogger(os.Stderr, logFile, false)
//	logger.Info("page done", "page", 1, "users", 100)
//	logger.Debug("cookie loaded", "cookie", "token_v2=eyJ...") // masked
//
//	slog.SetDefault(logger)
package log

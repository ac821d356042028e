// Package log builds the slog loggers used by sitescrape. Every logger masks
// credentials before a record reaches the output.
//
// A crawl logs every URL it fetches. It also carries cookies and headers
// that users usually copy from a logged-in browser session into the job
// file. The SecureHandler therefore masks:
//   - attributes whose key names a credential (cookie, authorization, token, session, ...)
//   - values shaped like a credential (bearer and basic credentials, JWTs, AWS keys, PEM key blocks)
//   - the password of user:password@ URLs and credential-like query parameters,
//     also inside error messages such as fetch failures
//
// Masking applies in verbose mode too.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("failed to fetch page", "url", "https://example.com/?token=abc") // token=REDACTED
//	slog.SetDefault(logger)
//
// NewSecureJSONLogger writes the same records as JSON for --log-json.
package log

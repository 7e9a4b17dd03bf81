//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
// They keep outbound calls, logging and errors on the project's shared packages.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// SharedHTTPClient flags the default net/http client. Provider and webhook
// traffic goes through internal/httpclient so it gets the default timeout and
// user agent.
func SharedHTTPClient(m dsl.Matcher) {
	m.Match(`http.DefaultClient`, `http.Get($*_)`, `http.Post($*_)`, `http.PostForm($*_)`).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report("use internal/httpclient instead of the default net/http client")
}

// StructuredLogging flags stdlib log calls outside of tests; use a module
// logger from internal/logger with typed fields.
func StructuredLogging(m dsl.Matcher) {
	m.Import("log")
	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Print($*_)`, `log.Fatalf($*_)`, `log.Fatal($*_)`).
		Where(!m.File().Name.Matches(`_test\.go$`)).
		Report("use a logger.Logger from internal/logger instead of the log package")

	m.Match(`$l.Info(fmt.Sprintf($*_), $*_)`, `$l.Error(fmt.Sprintf($*_), $*_)`, `$l.Warn(fmt.Sprintf($*_), $*_)`, `$l.Debug(fmt.Sprintf($*_), $*_)`).
		Where(m["l"].Type.Implements("github.com/microtrax/microtrax/internal/logger.Logger")).
		Report("pass values as logger fields instead of formatting them into the message")
}

// ResponseBodyDrain suggests httpclient.DrainAndClose for deferred body closes
// so keep-alive connections are reused.
func ResponseBodyDrain(m dsl.Matcher) {
	m.Match(`defer $resp.Body.Close()`).
		Where(m["resp"].Type.Is("*http.Response") && !m.File().Name.Matches(`_test\.go$`)).
		Report("use defer httpclient.DrainAndClose($resp) to reuse the connection")
}

// WaitGroupGo detects the manual Add/Done pattern and suggests wg.Go (Go 1.25+).
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done pattern (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")
}

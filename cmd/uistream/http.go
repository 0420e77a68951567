package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"goa.design/clue/debug"
	"goa.design/clue/log"
	goahttp "goa.design/goa/v3/http"
)

// newHandler builds the HTTP handler serving the chat endpoints. In debug
// mode it also mounts the pprof and log level endpoints and logs bodies.
func newHandler(ctx context.Context, chat *chatServer, dbg bool) http.Handler {
	mux := goahttp.NewMuxer()
	if dbg {
		// Mount pprof handlers for memory profiling under /debug/pprof.
		debug.MountPprofHandlers(debug.Adapt(mux))
		// Mount /debug endpoint to enable or disable debug logs at runtime.
		debug.MountDebugLogEnabler(debug.Adapt(mux))
	}
	chat.vars = mux.Vars
	mux.Handle(http.MethodPost, "/api/chat", chat.handleChat)
	mux.Handle(http.MethodGet, "/api/chat/{id}/stream", chat.handleFollow)

	var handler http.Handler = mux
	if dbg {
		handler = debug.HTTP()(handler)
	}
	return log.HTTP(ctx)(handler)
}

// handleHTTPServer starts the server in the background and shuts it down
// when ctx is canceled.
func handleHTTPServer(ctx context.Context, cfg httpConfig, handler http.Handler, wg *sync.WaitGroup, errc chan error) {
	srv := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: cfg.ReadHeaderTimeout}
	log.Printf(ctx, "HTTP %q mounted on %s %s", "chat", http.MethodPost, "/api/chat")
	log.Printf(ctx, "HTTP %q mounted on %s %s", "follow", http.MethodGet, "/api/chat/{id}/stream")

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			log.Printf(ctx, "HTTP server listening on %q", cfg.Addr)
			errc <- srv.ListenAndServe()
		}()

		<-ctx.Done()
		log.Printf(ctx, "shutting down HTTP server at %q", cfg.Addr)

		// Shutdown gracefully with a 30s timeout.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf(ctx, "failed to shutdown: %v", err)
		}
	}()
}

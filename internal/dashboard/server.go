// Package dashboard serves a read-only status view of the swarm: the agent
// registry with pending-message counts, recent mailbox traffic, and a live
// event feed. It never writes to the store.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DefaultListen is the bind address used when the config leaves it empty
// but the dashboard is started anyway.
const DefaultListen = "127.0.0.1:8944"

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	DB     *gorm.DB
	Listen string
	Out    io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("dashboard: db is required")
	}
	if opts.Listen == "" {
		opts.Listen = DefaultListen
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(opts.DB)

	srv := &http.Server{
		Addr:    opts.Listen,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://%s\n", opts.Listen)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

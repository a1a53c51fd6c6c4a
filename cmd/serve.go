package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/embiggen/internal/api"
	"github.com/kiesman99/embiggen/internal/embiggen"
	"github.com/kiesman99/embiggen/internal/server"
	"github.com/kiesman99/embiggen/pkg/synth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the embiggen API",
	Long: `Start an HTTP server that provides a REST API for tiled upscaling.

The server provides endpoints for planning tile grids, rendering gradient
masks, and running full embiggen passes against a synthesis backend.

Examples:
  # Start server on default port 8080
  embiggen serve

  # Start server on custom port
  embiggen serve --port 3000

  # Point the server at a remote synthesis backend
  embiggen serve --synth-url http://gpu-box:7860`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 300*time.Second, "request timeout")
	serveCmd.Flags().String("synth-url", "http://127.0.0.1:7860", "base URL of the synthesis backend")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.synth-url", serveCmd.Flags().Lookup("synth-url"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")
	synthURL := viper.GetString("server.synth-url")

	addr := fmt.Sprintf("%s:%d", bind, port)

	// Create Chi router
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))

	// CORS middleware for API access
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Backend calls inherit the request context, so the request timeout
	// above bounds them and the client needs no timeout of its own.
	client := synth.NewClient(synthURL, 0)
	engine := embiggen.New(client, client, newLogger(viper.GetBool("verbose")))

	// Create server implementation
	apiServer := server.NewServer(engine, "1.0.0")

	// Mount API routes at /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		// Use the generated Chi handler
		handler := api.HandlerWithOptions(apiServer, api.ChiServerOptions{
			BaseRouter: r,
		})
		r.Mount("/", handler)
	})

	// Legacy health endpoint (without /api/v1 prefix for backward compatibility)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		// Redirect to the API health endpoint
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintf(cmd.ErrOrStderr(), "\nShutting down server...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting embiggen server on %s\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Plan endpoint: http://%s/api/v1/plan\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Embiggen endpoint: http://%s/api/v1/embiggen\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Synthesis backend: %s\n", synthURL)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}

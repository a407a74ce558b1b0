package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mediadeck/config"
	"mediadeck/handlers"
	"mediadeck/middleware"
	"mediadeck/services"
	"mediadeck/types"
	"mediadeck/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Server wires the photo viewer and the audio browser behind the HTTP API
type Server struct {
	Router     *gin.Engine
	Hub        websocket.Hub
	Controller services.PlaybackController
	Tracks     []types.AudioFile
}

// NewServer scans the library once and builds the router. Call Run before
// serving so toggles and the websocket feed are processed.
func NewServer(cfg *config.Config, fs afero.Fs, engine services.Engine) *Server {
	library := services.NewLibrary(fs, cfg.Extensions()...)
	tracks := services.LoadTracks(library, cfg.LibraryLocation, nil)
	log.WithField("location", cfg.LibraryLocation).WithField("tracks", len(tracks)).Info("library scanned")

	hub := websocket.NewHub()
	controller := services.NewPlaybackController(tracks, engine, hub, cfg.StopPreviousOnSwitch)
	photos := services.NewPhotoService(fs, cfg.PreviewSize, cfg.SignedGPSRefs)

	s := &Server{
		Hub:        hub,
		Controller: controller,
		Tracks:     tracks,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Origins()))
	r.Use(middleware.Logging())
	r.Use(middleware.Security())

	setupRoutes(r,
		handlers.NewHealthHandler(cfg.LibraryLocation, func() int { return len(tracks) }),
		handlers.NewPhotoHandler(photos, cfg.MaxUploadBytes),
		handlers.NewTrackHandler(library, cfg.LibraryLocation, tracks),
		handlers.NewPlaybackHandler(controller, hub),
		handlers.NewSettingsHandler(cfg.LibraryLocation),
	)
	s.Router = r
	return s
}

// Run starts the hub and the playback loop; both stop with ctx
func (s *Server) Run(ctx context.Context) {
	go s.Hub.Run(ctx)
	go s.Controller.Run(ctx)
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, healthHandler *handlers.HealthHandler, photoHandler *handlers.PhotoHandler, trackHandler *handlers.TrackHandler, playbackHandler *handlers.PlaybackHandler, settingsHandler *handlers.SettingsHandler) {
	r.GET("/health", healthHandler.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		// Photo viewer
		photosGroup := apiGroup.Group("/photos")
		{
			photosGroup.POST("", photoHandler.Pick)
			photosGroup.GET("/current", photoHandler.Current)
			photosGroup.GET("/current/preview", photoHandler.Preview)
			photosGroup.GET("/current/map", photoHandler.Map)
		}

		// Audio browser
		apiGroup.GET("/tracks", trackHandler.ListTracks)
		apiGroup.GET("/tracks/stream/*filepath", trackHandler.StreamTrack)

		apiGroup.GET("/playback", playbackHandler.GetState)
		apiGroup.POST("/playback/toggle", playbackHandler.Toggle)

		wsGroup := apiGroup.Group("/ws")
		{
			wsGroup.GET("/playback", playbackHandler.HandleWebSocket)
		}

		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.POST("/settings", settingsHandler.UpdateSettings)
	}
}

// newEngine returns the player process engine when a command is configured,
// and the logging engine otherwise. The returned func releases it.
func newEngine(cfg *config.Config, root string) (services.Engine, func(), error) {
	if cfg.PlayerCommand == "" {
		return services.LogEngine{}, func() {}, nil
	}
	engine, err := services.NewCommandEngine(root, cfg.PlayerCommand)
	if err != nil {
		return nil, nil, err
	}
	return engine, func() { engine.Close() }, nil
}

// StartWebServer serves the API until ctx is cancelled
func StartWebServer(ctx context.Context, cfg *config.Config) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	engine, release, err := newEngine(cfg, cfg.LibraryLocation)
	if err != nil {
		return err
	}
	defer release()

	s := NewServer(cfg, afero.NewOsFs(), engine)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.Run(runCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.ServerPort).Info("mediadeck web server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	log.Info("shutting down web server")
	return srv.Shutdown(shutdownCtx)
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config()
			if cmd.Flags().Changed("port") {
				cfg.ServerPort = port
			}
			return StartWebServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port for the web server (overrides SERVER_PORT)")
	return cmd
}

package routers

import (
	"io"
	"runtime"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	rr "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/controllers"
	"github.com/voxlive/voxlive-server/pkg/factory"
	"github.com/voxlive/voxlive-server/version"
)

// router holds the fiber app and the controllers while route groups are
// registered, keeping New() from growing into one giant function.
type router struct {
	app  *fiber.App
	ctrl *factory.ApplicationControllers
}

func New(appConfig *config.AppConfig, ctrl *factory.ApplicationControllers) *fiber.App {
	templateEngine := html.New(appConfig.Client.Path, ".html")

	if appConfig.Client.Debug {
		templateEngine.Reload(true)
		templateEngine.Debug(true)
	}

	cnf := fiber.Config{
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		Views:       templateEngine,
		AppName:     "voxlive version: " + version.Version + " runtime: " + runtime.Version(),
	}

	if appConfig.Client.ProxyHeader != "" {
		cnf.ProxyHeader = appConfig.Client.ProxyHeader
	}

	app := fiber.New(cnf)

	app.Use(logger.New(logger.Config{
		Done: func(c *fiber.Ctx, logString []byte) {
			appConfig.Logger.Debugln(string(logString))
		},
		Format: "${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}",
		Output: io.Discard,
	}))

	if appConfig.Client.PrometheusConf.Enable {
		prometheus := fiberprometheus.New("voxlive")
		prometheus.RegisterAt(app, appConfig.Client.PrometheusConf.MetricsPath)
		app.Use(prometheus.Middleware)
	}

	app.Use(rr.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "POST,GET,OPTIONS",
	}))
	app.Static("/assets", appConfig.Client.Path+"/assets")

	r := &router{
		app:  app,
		ctrl: ctrl,
	}

	r.registerBaseRoutes()
	r.registerIngestRoutes()
	r.registerAuthRoutes()
	r.registerAPIRoutes()

	// the catch-all 404 must be the last registered handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString("not found")
	})

	return app
}

func (r *router) registerBaseRoutes() {
	r.app.Get("/", func(c *fiber.Ctx) error {
		return c.Render("index", nil)
	})
	r.app.Get("/healthCheck", controllers.HandleHealthCheck)
	// artifact downloads carry their own short-lived token in the url
	r.app.Get("/download/artifact/:token", r.ctrl.ArtifactController.HandleDownloadArtifact)
}

func (r *router) registerIngestRoutes() {
	r.app.Use("/ws/ingest", r.ctrl.IngestController.HandleWebSocketUpgrade)
	r.app.Get("/ws/ingest", r.ctrl.IngestController.HandleIngest())
}

// registerAuthRoutes wires the server-to-server API. Every request here
// must carry a valid API-KEY and HASH-SIGNATURE header pair.
func (r *router) registerAuthRoutes() {
	auth := r.app.Group("/auth", r.ctrl.AuthController.HandleAuthHeaderCheck)

	session := auth.Group("/session")
	session.Post("/create", r.ctrl.SessionController.HandleCreateSession)
	session.Post("/end", r.ctrl.SessionController.HandleEndSession)
	session.Post("/isSessionActive", r.ctrl.SessionController.HandleIsSessionActive)
	session.Post("/getActiveSessionInfo", r.ctrl.SessionController.HandleGetActiveSessionInfo)
	session.Post("/getActiveSessionsList", r.ctrl.SessionController.HandleGetActiveSessionsList)
	session.Post("/fetchPastSessions", r.ctrl.SessionController.HandleFetchPastSessions)

	artifact := auth.Group("/artifact")
	artifact.Post("/fetch", r.ctrl.ArtifactController.HandleFetchArtifacts)
	artifact.Post("/info", r.ctrl.ArtifactController.HandleGetArtifactInfo)
	artifact.Post("/delete", r.ctrl.ArtifactController.HandleDeleteArtifact)
	artifact.Post("/getDownloadToken", r.ctrl.ArtifactController.HandleGetArtifactDownloadToken)

	assets := auth.Group("/assets")
	assets.Post("/status", r.ctrl.AssetController.HandleGetAssetsStatus)
	assets.Post("/sync", r.ctrl.AssetController.HandleSyncAssets)
}

// registerAPIRoutes wires the client API. Requests authenticate with the
// session token issued at create time.
func (r *router) registerAPIRoutes() {
	api := r.app.Group("/api", r.ctrl.AuthController.HandleVerifyHeaderToken)
	api.Post("/verifyToken", r.ctrl.AuthController.HandleVerifyToken)
	api.Post("/renewToken", r.ctrl.AuthController.HandleRenewToken)

	transcription := api.Group("/transcription")
	transcription.Post("/fetch", r.ctrl.TranscriptionController.HandleFetchTranscriptChunks)
	transcription.Post("/last", r.ctrl.TranscriptionController.HandleGetLastTranscription)
	transcription.Post("/file", r.ctrl.TranscriptionController.HandleTranscribeFile)
	transcription.Post("/supportedLangs", r.ctrl.TranscriptionController.HandleGetSupportedLanguages)

	summary := api.Group("/summary")
	summary.Post("/create", r.ctrl.SummaryController.HandleCreateSummaryJob)
	summary.Post("/status", r.ctrl.SummaryController.HandleGetSummaryJobStatus)
}

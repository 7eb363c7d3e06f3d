package main

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/melih/lighthouse-lxc/internal/adapters/http"
	"github.com/melih/lighthouse-lxc/internal/adapters/lxc"
	"github.com/melih/lighthouse-lxc/internal/adapters/metrics"
	"github.com/melih/lighthouse-lxc/internal/adapters/template"
	"github.com/melih/lighthouse-lxc/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "lighthouse-api"
	app.Usage = "HTTP API over the LXC container tools"
	app.Flags = append(config.Flags(),
		cli.StringFlag{
			Name:   "addr",
			Value:  ":3000",
			Usage:  "address the API listens on",
			EnvVar: "LIGHTHOUSE_ADDR",
		},
		cli.BoolFlag{
			Name:  "proxy",
			Usage: "reverse proxy <container>.<proxy-domain> requests to the container",
		},
		cli.StringFlag{
			Name:   "proxy-domain",
			Value:  http.DefaultProxyDomain,
			Usage:  "parent domain of proxied container hosts",
			EnvVar: "LIGHTHOUSE_PROXY_DOMAIN",
		},
		cli.IntFlag{
			Name:  "proxy-port",
			Value: 80,
			Usage: "container port proxied requests are sent to",
		},
	)
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func run(context *cli.Context) error {
	cfg := config.FromContext(context)
	log := logrus.StandardLogger()
	if err := cfg.SetupLogging(log); err != nil {
		return err
	}

	// 1. Initialize Adapters (Infrastructure)
	lxcAdapter := lxc.NewAdapter(lxc.NewExecRunner(cfg.BinDir, log), cfg.Adapter(), log)
	fetcher := template.NewFetcher(log)

	// 2. Initialize HTTP Handlers (Interface Adapters)
	containerHandler := http.NewContainerHandler(lxcAdapter, fetcher, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewExporter(lxcAdapter, cfg.Timeout, log))

	// 3. Setup Framework (Fiber)
	app := fiber.New()

	if context.Bool("proxy") {
		app.Use(http.NewProxyHandler(lxcAdapter, context.String("proxy-domain"), context.Int("proxy-port")).ProxyRequest)
	}

	// 4. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")
	containerHandler.Register(v1)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 5. Start Server
	addr := context.String("addr")
	log.WithField("addr", addr).Info("Server starting")
	return app.Listen(addr)
}

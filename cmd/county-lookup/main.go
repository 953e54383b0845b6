package main

import (
	"context"
	"net/http"
	"os"

	"github.com/diwise/county-lookup/internal/pkg/application/lookup"
	"github.com/diwise/county-lookup/internal/pkg/infrastructure/router"
	"github.com/diwise/county-lookup/internal/pkg/infrastructure/storage"
	"github.com/diwise/county-lookup/internal/pkg/presentation/api"
	"github.com/diwise/county-lookup/internal/pkg/presentation/api/auth"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const appName string = "county-lookup"

func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	cfgPath := env.GetVariableOrDefault(ctx, "DATASETS_CFGFILE", "/opt/diwise/config/datasets.yaml")

	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		log.Error("failed to open datasets configuration", "path", cfgPath, "err", err.Error())
		os.Exit(1)
	}

	cfg, err := lookup.LoadConfiguration(cfgFile)
	cfgFile.Close()
	if err != nil {
		log.Error("failed to load datasets configuration", "err", err.Error())
		os.Exit(1)
	}

	index, err := lookup.BuildIndex(ctx, cfg)
	if err != nil {
		log.Error("failed to build county index", "err", err.Error())
		os.Exit(1)
	}

	log.Info("county index ready", "counties", index.Size())

	var sink lookup.ResultSink = lookup.NewNoopSink()

	storageCfg := storage.LoadConfiguration(ctx)
	if storageCfg.Enabled() {
		s, err := storage.Connect(ctx, storageCfg)
		if err != nil {
			log.Error("failed to connect to database", "err", err.Error())
			os.Exit(1)
		}
		defer s.Close()

		sink = s
	}

	authenticator, err := newAuthenticator(ctx)
	if err != nil {
		log.Error("failed to create api authenticator", "err", err.Error())
		os.Exit(1)
	}

	app := lookup.New(index, sink)
	r := router.New(appName)

	err = api.RegisterHandlers(ctx, r, authenticator, app)
	if err != nil {
		log.Error("failed to register handlers", "err", err.Error())
		os.Exit(1)
	}

	port := env.GetVariableOrDefault(ctx, "SERVICE_PORT", "8080")
	log.Info("starting to listen for connections", "port", port)

	err = http.ListenAndServe(":"+port, otelhttp.NewHandler(r, appName))
	if err != nil {
		log.Error("failed to listen for connections", "err", err.Error())
		os.Exit(1)
	}
}

func newAuthenticator(ctx context.Context) (auth.Authenticator, error) {
	policyPath := env.GetVariableOrDefault(ctx, "AUTHZ_POLICIES_FILE", "")
	if policyPath == "" {
		return auth.NewAllowAll(), nil
	}

	f, err := os.Open(policyPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return auth.NewAuthenticator(ctx, f)
}

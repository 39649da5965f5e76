package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/confshare/confshare-go/api"
	"github.com/confshare/confshare-go/budget"
	"github.com/confshare/confshare-go/compose"
	"github.com/confshare/confshare-go/items"
	"github.com/confshare/confshare-go/qr"
	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/session"
	"github.com/confshare/confshare-go/tool"
)

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if cfg.UsePort > 0 {
		appCfg.Port = cfg.UsePort
	}
	if cfg.UseOrigin != "" {
		appCfg.Origin = cfg.UseOrigin
	}
	if cfg.UseStatePath != "" {
		appCfg.StatePath = cfg.UseStatePath
	}
	if cfg.UseMaxLinkLength > 0 {
		appCfg.MaxLinkLength = cfg.UseMaxLinkLength
	}
	if cfg.UseMaxQRLength > 0 {
		appCfg.MaxQRLength = cfg.UseMaxQRLength
	}

	tool.InitLogger()
	if cfg.Log == "" {
		tool.DefaultLogger.SetLevel(log.DebugLevel)
	} else {
		switch strings.ToLower(cfg.Log) {
		case "dev":
			tool.DefaultLogger.SetLevel(log.DebugLevel)
		case "prod":
			tool.DefaultLogger.SetLevel(log.InfoLevel)
		case "none":
			tool.DefaultLogger.SetLevel(log.FatalLevel)
		default:
			tool.DefaultLogger.Warnf("Unknown log mode %q, using debug level", cfg.Log)
			tool.DefaultLogger.SetLevel(log.DebugLevel)
		}
	}

	source := items.NewLocalSource(appCfg)

	var modelStore *items.ModelStore
	if appCfg.ModelsEndpoint != "" {
		modelStore = items.NewModelStore(appCfg.ModelsEndpoint, appCfg.APIKey)
	}
	var prober *items.Prober
	if !cfg.SkipProbe {
		prober = items.NewProber(0)
	}

	reg := registry.New()
	if err := items.RegisterAll(reg, source, items.Options{
		Models: modelStore,
		Probe:  prober,
	}); err != nil {
		tool.DefaultLogger.Fatalf("failed to register share items: %v", err)
	}

	store, err := tool.OpenStateStore(appCfg.StatePath)
	if err != nil {
		tool.DefaultLogger.Fatalf("failed to open state store: %v", err)
	}

	engine := budget.NewEngine(reg, budget.Config{
		Origin:          appCfg.Origin,
		Path:            appCfg.SharePath,
		MaxLinkLength:   appCfg.MaxLinkLength,
		WarningFraction: appCfg.WarningFraction,
	})

	sessionCfg := session.Config{
		Registry: reg,
		Engine:   engine,
		Composer: compose.NewComposer(reg),
		Renderer: qr.NewRenderer(appCfg.MaxQRLength, 0),
		Store:    store,
		Origin:   appCfg.Origin,
		Path:     appCfg.SharePath,
	}
	if modelStore != nil {
		sessionCfg.ModelCache = modelStore
	}
	ctrl := session.NewController(sessionCfg)

	apiServer := api.NewServer(appCfg.Port, ctrl, reg)
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctrl.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		tool.DefaultLogger.Warnf("API server shutdown: %v", err)
	}
}

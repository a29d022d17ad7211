package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"camsnap/internal/config"
	ui "camsnap/internal/ui"
	"camsnap/processing/capture"
	"camsnap/processing/preview"
	"camsnap/processing/relay"
	"camsnap/processing/snapshot"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

func main() {
	cfg := config.LoadConfigFile(config.DefaultConfigPath)
	logger := NewLogger(cfg.GetLogLevel())

	dev, err := capture.NewDeviceFromConfig(cfg, logger)
	if err != nil {
		logger.Error("capture backend", "error", err)
		os.Exit(1)
	}
	defer dev.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fyneApp := app.New()

	openErr := dev.Open()

	saver := snapshot.NewSaver(dev, cfg.GetJPEGQuality(), logger)

	if rc := cfg.GetRelay(); rc.Host != "" {
		r := relay.NewRelay(rc.Host, time.Duration(rc.RetrySeconds)*time.Second, logger)
		r.Start()
		defer r.Stop()
		saver.SetPublisher(r)
	}

	slot := &preview.Slot{}
	var loop *preview.Loop

	if openErr == nil {
		loop = preview.NewLoop(dev, slot, cfg.GetPreviewInterval(), logger)
		loop.Start(ctx)
	}

	captureApp := ui.CreateApp(fyneApp, cfg, saver, loop, slot, logger)

	go func() {
		select {
		case <-ctx.Done():
			fyne.Do(captureApp.Quit)
		case <-captureApp.Done():
		}
	}()

	captureApp.Run(openErr)

	stop()
	logger.Info("shutting down")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"github.com/valerio/go-dmgpacer/dmgpacer"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend/headless"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend/terminal"
	"github.com/valerio/go-dmgpacer/dmgpacer/pattern"
	"github.com/valerio/go-dmgpacer/dmgpacer/romload"
	"github.com/valerio/go-dmgpacer/dmgpacer/statsview"
)

func main() {
	app := cli.NewApp()
	app.Name = "dmgpacer"
	app.Description = "Runs a Gameboy cartridge at real-time speed, one frame every 16.7ms"
	app.Usage = "dmgpacer [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file (.gb, .gbc, .sgb, or a zip, 7z, rar, gz or tar.gz archive holding one)",
		},
		cli.StringFlag{
			Name:  "bios",
			Usage: "Path to a 256 byte boot ROM (optional)",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "paused",
			Usage: "Load the cartridge but wait for the run key before starting",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Minimum log level: debug, info, warn or error",
			Value: "info",
		},
		cli.StringFlag{
			Name:  "statsview",
			Usage: fmt.Sprintf("Serve live runtime charts on this address, e.g. %s (empty = disabled)", statsview.DefaultAddress),
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	rom, err := romload.Load(romPath, romload.CartridgeExtensions)
	if err != nil {
		return err
	}
	slog.Info("Loaded ROM image", "name", rom.Name, "format", rom.Format, "size", len(rom.Data))

	var bios []byte
	if biosPath := c.String("bios"); biosPath != "" {
		img, err := romload.Load(biosPath, romload.BIOSExtensions)
		if err != nil {
			return fmt.Errorf("failed to load boot rom: %w", err)
		}
		bios = img.Data
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		be   backend.Backend
		opts []dmgpacer.Option
	)
	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames option with a positive value")
		}

		snapshotConfig, err := headless.CreateSnapshotConfig(c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath)
		if err != nil {
			return err
		}

		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
		be = headless.New(frames, snapshotConfig)
	} else {
		term := terminal.New()
		opts = append(opts, dmgpacer.WithLogger(term.Logger()))
		be = term
	}

	if addr := c.String("statsview"); addr != "" {
		viewer := statsview.Launch(addr, os.Stderr)
		defer viewer.Stop()
	}

	controller := dmgpacer.NewController(pattern.Factory, opts...)
	defer controller.Close()

	if err := controller.Initialize(ctx, bios, rom.Data); err != nil {
		return err
	}

	title := rom.Name
	if header, err := pattern.ParseHeader(rom.Data); err == nil {
		title = header.Title
	}

	err = be.Init(backend.Config{
		Title:     title,
		ShowDebug: level <= slog.LevelDebug,
		Paused:    c.Bool("paused"),
		Controls:  controller,
		Router:    controller.Router(),
		Publisher: controller.Publisher(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			slog.Error("Backend cleanup failed", "error", err)
		}
	}()

	return be.Run(ctx)
}

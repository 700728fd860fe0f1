package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bioreactor/modulebus/pkg/can"
	_ "github.com/bioreactor/modulebus/pkg/can/socketcan"
	_ "github.com/bioreactor/modulebus/pkg/can/socketcanv2"
	_ "github.com/bioreactor/modulebus/pkg/can/virtual"
	"github.com/bioreactor/modulebus/pkg/config"
	"github.com/bioreactor/modulebus/pkg/driver"
	"github.com/bioreactor/modulebus/pkg/module"
	"github.com/lmittmann/tint"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "module configuration file (ini)")
	canInterface := flag.String("i", "", "controller type, one of "+strings.Join(can.Interfaces(), ","))
	channel := flag.String("c", "", "CAN channel e.g. can0, vcan0")
	send := flag.String("send", "", "comma separated frames to send on startup, candump notation e.g. 00010014#05")
	statsPeriod := flag.Duration("stats", 0, "period for logging transport statistics, 0 to disable")
	flag.Parse()

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg = config.Default()
		err = cfg.ApplyEnv()
		if err == nil {
			err = cfg.Validate()
		}
	}
	if err != nil {
		log.Fatalf("[MAIN] configuration error : %v", err)
	}
	if *canInterface != "" {
		cfg.Interface = *canInterface
	}
	if *channel != "" {
		cfg.Bus.Channel = *channel
	}
	setupLogging(cfg.LogLevel)

	// Parsed before the module owns the controller
	frames, err := parseFrames(*send)
	if err != nil {
		log.Fatalf("[MAIN] %v", err)
	}

	m, err := module.New(cfg, nil, driver.NewUnits())
	if err != nil {
		log.Fatalf("[MAIN] failed to start module : %v", err)
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, frame := range frames {
		pending, err := m.Send(frame)
		log.Infof("[MAIN] sent %v (pending %v, err %v)", frame, pending, err)
	}
	if *statsPeriod > 0 {
		go logStats(ctx, m, *statsPeriod)
	}

	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		log.Errorf("[MAIN] transport task failed : %v", err)
	}
}

// Parse comma separated frames in candump notation
func parseFrames(list string) ([]can.Frame, error) {
	var frames []can.Frame
	if strings.TrimSpace(list) == "" {
		return frames, nil
	}
	for _, text := range strings.Split(list, ",") {
		frame, err := can.ParseFrame(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("invalid frame %q : %w", text, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// Drivers log through slog, the stack through logrus. Both follow the configured level.
func setupLogging(level log.Level) {
	log.SetLevel(level)
	slogLevel := slog.LevelInfo
	switch {
	case level >= log.DebugLevel:
		slogLevel = slog.LevelDebug
	case level == log.WarnLevel:
		slogLevel = slog.LevelWarn
	case level <= log.ErrorLevel:
		slogLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.TimeOnly,
		}),
	))
}

func logStats(ctx context.Context, m *module.Module, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Infof("[MAIN] transport %+v driver %+v", m.TransportStats(), m.DriverStats())
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTBurke/bathctl"
	"github.com/BTBurke/bathctl/pkg/datalog"
	"github.com/BTBurke/bathctl/pkg/eventbus"
	"github.com/BTBurke/bathctl/pkg/logging"
	"github.com/BTBurke/bathctl/pkg/program"
	"github.com/BTBurke/bathctl/pkg/telemetry"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/rs/xid"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Could not read .env: %s\n", err)
		os.Exit(1)
	}

	args, opts, err := bathctl.ParseCommandLine()
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Printf("Could not parse configuration: %s\n\nUse bathctl --help for options\n", err)
		}
		os.Exit(1)
	}
	if len(args) != 1 {
		fmt.Println("Expected exactly one program file\n\nUse bathctl --help for options")
		os.Exit(1)
	}

	cfg, errs := bathctl.NewConfig(append([]bathctl.ConfigOption{bathctl.Environment()}, opts...)...)
	if len(errs) > 0 {
		fmt.Println("Error in config:")
		for _, e := range errs {
			fmt.Println(e)
		}
		os.Exit(1)
	}

	text, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("Could not read program: %s\n", err)
		os.Exit(1)
	}
	prog, err := program.Parse(string(text), cfg.Limits)
	if err != nil {
		fmt.Printf("Invalid program %s: %s\n", args[0], err)
		os.Exit(1)
	}
	if cfg.ValidateOnly {
		fmt.Printf("%s: %d commands OK\n", args[0], prog.Len())
		os.Exit(0)
	}

	atexit.Exit(run(cfg, prog))
}

// run executes the program and returns the process exit code
func run(cfg *bathctl.Config, prog *program.Program) int {
	log := logging.New(os.Stderr, cfg.LogLevel)
	reporter := bathctl.NewErrorReporter(cfg.RollbarToken)
	if cfg.RollbarToken != "" {
		atexit.Register(bathctl.FlushReports)
	}

	runID := xid.New().String()
	start := time.Now()
	csv, path, err := datalog.CreateCSV(cfg.OutputDir, start, cfg.Channels)
	if err != nil {
		fmt.Printf("Could not create log: %s\n", err)
		return 1
	}
	recorder := datalog.Multi{csv}
	if cfg.SQLite != "" {
		db, err := datalog.OpenSQLite(cfg.SQLite, runID, start, cfg.Channels)
		if err != nil {
			csv.Close()
			fmt.Printf("Could not open database: %s\n", err)
			return 1
		}
		recorder = append(recorder, db)
	}
	atexit.Register(func() {
		if err := recorder.Close(); err != nil {
			fmt.Printf("Error closing log: %s\n", err)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New()
	if cfg.MetricsAddr != "" {
		tracker := telemetry.NewTracker(cfg.Channels)
		events, done, err := bus.Subscribe()
		if err != nil {
			fmt.Printf("Could not subscribe to events: %s\n", err)
			return 1
		}
		go tracker.Consume(events, done)
		addr, _, err := telemetry.Serve(ctx, cfg.MetricsAddr, tracker.Router())
		if err != nil {
			fmt.Printf("Could not serve metrics: %s\n", err)
			return 1
		}
		log.Info("serving metrics", "addr", addr)
	}
	if cfg.MQTTBroker != "" {
		client, err := telemetry.ConnectMQTT(cfg.MQTTBroker, "bathctl-"+runID, cfg.MQTTPassword)
		if err != nil {
			fmt.Printf("Could not connect to MQTT broker: %s\n", err)
			return 1
		}
		defer client.Disconnect(250)
		events, done, err := bus.Subscribe(bathctl.TopicState, bathctl.TopicSample)
		if err != nil {
			fmt.Printf("Could not subscribe to events: %s\n", err)
			return 1
		}
		go telemetry.NewPublisher(client, cfg.MQTTTopic, log).Consume(events, done)
	}
	defer func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bus.Shutdown(shutdown); err != nil {
			log.Warn("event subscribers did not finish", "err", err)
		}
	}()

	ctrl, err := bathctl.New(cfg, bathctl.NewDevices(cfg), recorder,
		bathctl.WithLogger(log),
		bathctl.WithEventBus(bus),
		bathctl.WithReporter(reporter),
		bathctl.WithRunID(runID),
	)
	if err != nil {
		fmt.Printf("Could not start controller: %s\n", err)
		return 1
	}

	log.Info("logging samples", "csv", path, "sqlite", cfg.SQLite, "simulate", cfg.Simulate)
	if err := ctrl.Run(ctx, prog); err != nil {
		if csv.Rows() == 0 {
			if derr := csv.Discard(); derr != nil {
				log.Warn("could not remove empty log", "csv", path, "err", derr)
			}
		}
		fmt.Println("Run error:", err)
		return 1
	}
	if info, err := os.Stat(path); err == nil {
		log.Info("run finished", "csv", path, "size", humanize.Bytes(uint64(info.Size())), "took", humanize.RelTime(start, time.Now(), "", ""))
	}
	return 0
}

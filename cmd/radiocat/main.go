// go-nrfradio
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nrfradio.
//
// go-nrfradio is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nrfradio is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nrfradio; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command radiocat sends and receives packets through a radio backend.
//
//	radiocat -hw serial -device /dev/ttyACM0 -listen channel=42
//	radiocat -hw mqtt -broker tcp://localhost:1883 -send hello group=3
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	radio "github.com/ZaparooProject/go-nrfradio"
	"github.com/ZaparooProject/go-nrfradio/hardware/serial"
	"github.com/ZaparooProject/go-nrfradio/listen"
)

type config struct {
	hw         string
	device     string
	irqPin     string
	broker     string
	topic      string
	profile    string
	send       string
	sendHex    string
	logDir     string
	args       []string
	count      int
	timeout    time.Duration
	listen     bool
	typed      bool
	list       bool
	dumpConfig bool
	debug      bool
}

func newFlagSet(cfg *config) *flag.FlagSet {
	fs := flag.NewFlagSet("radiocat", flag.ContinueOnError)
	fs.StringVar(&cfg.hw, "hw", "sim", "Hardware backend: sim, serial, spi or mqtt")
	fs.StringVar(&cfg.device, "device", "", "Serial or SPI device (first known board if empty)")
	fs.StringVar(&cfg.irqPin, "irq", "", "GPIO name of the SPI data-ready line")
	fs.StringVar(&cfg.broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	fs.StringVar(&cfg.topic, "topic", "", "MQTT root topic")
	fs.StringVar(&cfg.profile, "config", "", "YAML radio profile applied before arguments")
	fs.StringVar(&cfg.send, "send", "", "Send this text as a string packet (\"-\" reads lines from stdin)")
	fs.StringVar(&cfg.sendHex, "send-hex", "", "Send these hex bytes as a raw packet")
	fs.StringVar(&cfg.logDir, "log", "", "Write a session log to this directory")
	fs.IntVar(&cfg.count, "count", 0, "Stop listening after this many packets (0 = no limit)")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "Stop listening after this long (0 = no limit)")
	fs.BoolVar(&cfg.listen, "listen", false, "Print received packets")
	fs.BoolVar(&cfg.typed, "string", false, "Decode received packets as strings")
	fs.BoolVar(&cfg.list, "list", false, "List serial ports and exit")
	fs.BoolVar(&cfg.dumpConfig, "dump-config", false, "Print the effective configuration as YAML")
	fs.BoolVar(&cfg.debug, "debug", false, "Enable debug output")
	return fs
}

func parseConfig(argv []string) (*config, error) {
	cfg := &config{}
	fs := newFlagSet(cfg)
	if err := fs.Parse(argv); err != nil {
		return nil, err //nolint:wrapcheck // flag already reports the problem
	}
	cfg.args = fs.Args()
	return cfg, nil
}

// radioOptions gathers options in increasing precedence: profile file,
// NRFRADIO_* environment, then key=value arguments.
func radioOptions(cfg *config) ([]radio.Option, error) {
	var opts []radio.Option
	if cfg.profile != "" {
		fileOpts, err := radio.LoadProfile(cfg.profile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fileOpts...)
	}

	envOpts, err := radio.ProfileFromEnv()
	if err != nil {
		return nil, err
	}
	opts = append(opts, envOpts...)

	argOpts, err := radio.ParseOptions(cfg.args)
	if err != nil {
		return nil, err
	}
	return append(opts, argOpts...), nil
}

func listPorts(out io.Writer) error {
	ports, err := serial.ListPorts(serial.ListOptions{})
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		mark := " "
		if p.Known {
			mark = "*"
		}
		_, _ = fmt.Fprintf(out, "%s %-20s %-10s %s\n", mark, p.Path, p.VIDPID, p.Product)
	}
	return nil
}

func runSend(engine *radio.Engine, cfg *config, in io.Reader, out io.Writer) error {
	if cfg.sendHex != "" {
		payload, err := hex.DecodeString(cfg.sendHex)
		if err != nil {
			return fmt.Errorf("invalid -send-hex value: %w", err)
		}
		if err := engine.Send(payload); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "sent %d bytes\n", len(payload))
	}

	switch cfg.send {
	case "":
		return nil
	case "-":
		if isTerminal(in) {
			_, _ = fmt.Fprintln(out, "Reading lines to send, Ctrl+D to finish...")
		}
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if err := engine.SendString(scanner.Text()); err != nil {
				return err
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		return nil
	default:
		if err := engine.SendString(cfg.send); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "sent %q\n", cfg.send)
		return nil
	}
}

func formatPacket(pkt radio.Packet) string {
	if pkt.Typed {
		return fmt.Sprintf("%q", pkt.Text)
	}
	return hex.EncodeToString(pkt.Payload)
}

func runListen(ctx context.Context, engine *radio.Engine, cfg *config, out io.Writer) error {
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	session := listen.New(engine, &listen.Config{
		PollInterval: 5 * time.Millisecond,
		Typed:        cfg.typed,
	})
	defer func() { _ = session.Close() }()

	session.SetOnError(func(err error) {
		_, _ = fmt.Fprintf(out, "! %v\n", err)
	})
	session.SetOnPacket(func(pkt radio.Packet) error {
		_, _ = fmt.Fprintf(out, "%s %s\n", time.Now().Format("15:04:05.000"), formatPacket(pkt))
		if cfg.count > 0 && session.Received() >= uint64(cfg.count) {
			_ = session.Close()
		}
		return nil
	})

	err := session.Start(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func run(ctx context.Context, cfg *config, in io.Reader, out io.Writer) error {
	if cfg.list {
		return listPorts(out)
	}

	opts, err := radioOptions(cfg)
	if err != nil {
		return err
	}

	hw, closeHW, err := newHardware(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeHW(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close hardware: %v\n", err)
		}
	}()

	engineOpts := []radio.EngineOption{radio.WithConfig(opts...)}
	if cfg.hw == "serial" || cfg.hw == "spi" {
		engineOpts = append(engineOpts, radio.WithRetry(radio.DefaultRetryConfig()))
	}
	engine, err := radio.New(hw, engineOpts...)
	if err != nil {
		return err
	}
	if err := engine.Enable(); err != nil {
		return fmt.Errorf("failed to enable radio: %w", err)
	}
	defer func() { _ = engine.Disable() }()

	if cfg.debug || cfg.dumpConfig {
		doc, err := radio.ProfileOf(engine.Config()).Marshal()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(out, string(doc))
	}

	if err := runSend(engine, cfg, in, out); err != nil {
		return err
	}
	if cfg.listen {
		return runListen(ctx, engine, cfg, out)
	}
	return nil
}

func main() {
	os.Exit(mainWithExitCode(os.Args[1:]))
}

func mainWithExitCode(argv []string) int {
	cfg, err := parseConfig(argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if cfg.debug {
		radio.SetDebugEnabled(true)
	}
	if cfg.logDir != "" {
		path, err := radio.InitSessionLog(cfg.logDir)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer func() { _ = radio.CloseSessionLog() }()
		_, _ = fmt.Fprintf(os.Stderr, "Session log: %s\n", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		if key, ok := radio.IsConfigError(err); ok {
			_, _ = fmt.Fprintf(os.Stderr, "Error in option %q: %v\n", key, err)
			return 2
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/earlyalpha/espdeploy/cmd/espdeploy/directory"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

const (
	monitorPollInterval = 100 * time.Millisecond
	// Output without a newline is printed once it grows this long.
	maxLineLength = 4096
)

func MonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "monitor",
		Short:        "Monitor the serial output of an ESP32",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}

			port, err := cmd.Flags().GetString("port")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = ConfiguredPort(cfg)
			}

			baud, err := cmd.Flags().GetUint("baud")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("baud") {
				baud = cfg.GetUint(directory.BaudCfgKey)
			}

			reset, err := cmd.Flags().GetBool("reset")
			if err != nil {
				return err
			}

			ep := Endpoint{Port: port, Baud: int(baud)}
			if err := ep.Validate(); err != nil {
				return err
			}
			return RunMonitor(cmd.Context(), ep, reset, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringP("port", "p", directory.DefaultPort(), "port to monitor")
	cmd.Flags().Uint("baud", directory.DefaultBaud, "the baud rate for serial monitoring")
	cmd.Flags().Bool("reset", false, "reboot the device before monitoring")
	return cmd
}

// RunMonitor opens the endpoint and prints its output until ctx is done.
func RunMonitor(ctx context.Context, ep Endpoint, reset bool, out io.Writer) error {
	if err := checkPort(out, ep.Port, serial.GetPortsList); err != nil {
		return err
	}
	dev, err := serialOpen(ep.Port, &serial.Mode{
		BaudRate: ep.Baud,
	})
	if err != nil {
		fmt.Fprintf(out, "❌ Error: %v\n", err)
		return fmt.Errorf("%w: %v", ErrMonitorIO, err)
	}
	if err := dev.SetReadTimeout(monitorPollInterval); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %v", ErrMonitorIO, err)
	}
	if reset {
		dev.Reboot()
	}

	fmt.Fprintf(out, "🔌 Connected to ESP32 on %s\n", ep.Port)
	fmt.Fprintln(out, "📡 Monitoring output (Press Ctrl+C to stop)...")
	fmt.Fprintln(out, strings.Repeat("-", 50))
	return NewMonitor(dev, out).Run(ctx)
}

// Port is the part of a serial port the monitor needs. A Read that times
// out returns 0 bytes and no error.
type Port interface {
	io.Reader
	io.Closer
}

// Monitor prints the lines received on a port. It owns the port and closes
// it exactly once when Run returns.
type Monitor struct {
	port         Port
	out          io.Writer
	pollInterval time.Duration
}

func NewMonitor(port Port, out io.Writer) *Monitor {
	return &Monitor{
		port:         port,
		out:          out,
		pollInterval: monitorPollInterval,
	}
}

func (m *Monitor) Run(ctx context.Context) error {
	var closeOnce sync.Once
	closePort := func() {
		closeOnce.Do(func() {
			if err := m.port.Close(); err != nil {
				glog.Warningf("failed to close port: %v", err)
			}
		})
	}
	defer closePort()

	// Closing the port unblocks a pending Read.
	stop := context.AfterFunc(ctx, closePort)
	defer stop()

	var pending []byte
	buf := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return m.stopped(pending)
		}

		n, err := m.port.Read(buf)
		if ctx.Err() != nil {
			return m.stopped(m.printLines(append(pending, buf[:n]...)))
		}
		if n > 0 {
			glog.V(2).Infof("read %d bytes", n)
			pending = m.printLines(append(pending, buf[:n]...))
		}
		if err != nil {
			m.printLine(pending)
			fmt.Fprintf(m.out, "❌ Error: %v\n", err)
			return fmt.Errorf("%w: %v", ErrMonitorIO, err)
		}
		if n == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(m.pollInterval):
			}
		}
	}
}

// stopped prints what is left of an unterminated line.
func (m *Monitor) stopped(pending []byte) error {
	m.printLine(pending)
	fmt.Fprintln(m.out, "\n⏹️  Monitoring stopped")
	return nil
}

// printLines prints every complete line in data and returns the rest.
func (m *Monitor) printLines(data []byte) []byte {
	for {
		end, next := bytes.IndexByte(data, '\n'), 0
		if end >= 0 {
			next = end + 1
		} else if len(data) >= maxLineLength {
			end = runeBoundary(data)
			next = end
		} else {
			return data
		}
		m.printLine(data[:end])
		data = data[next:]
	}
}

func (m *Monitor) printLine(raw []byte) {
	if line := decodeLine(raw); line != "" {
		fmt.Fprintf(m.out, "📤 %s\n", line)
	}
}

// runeBoundary returns the length of data without a trailing incomplete
// UTF-8 sequence.
func runeBoundary(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if utf8.FullRune(data[i:]) {
				return len(data)
			}
			return i
		}
	}
	return len(data)
}

// decodeLine drops bytes that are not valid UTF-8 and trims surrounding
// whitespace, carriage returns included.
func decodeLine(raw []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
}

func serialOpen(port string, mode *serial.Mode) (*serialPort, error) {
	dev, err := serial.Open(port, mode)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("the port '%s' was not found", port)
	}
	if err != nil {
		return nil, err
	}

	return &serialPort{dev}, err
}

type serialPort struct {
	serial.Port
}

// Reboot pulses the reset line of the auto-reset circuit found on most
// ESP32 boards.
func (s *serialPort) Reboot() {
	s.SetDTR(false)
	s.SetRTS(true)
	time.Sleep(100 * time.Millisecond)
	s.SetRTS(false)
}

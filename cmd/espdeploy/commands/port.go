// Copyright (C) 2026 Early Alpha Engineering. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/earlyalpha/espdeploy/cmd/espdeploy/directory"
	"github.com/golang/glog"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

func SetPortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "set-port",
		Short:        "Select the serial port you want to use",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return err
			}

			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}

			port, err := pickPort(all)
			if err != nil {
				return err
			}
			cfg.Set(directory.PortCfgKey, port)
			if err := directory.WriteConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default port set to '%s'\n", port)
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "if set, will show all available ports")
	return cmd
}

type PortInfo struct {
	Name         string `yaml:"name" json:"name"`
	USB          bool   `yaml:"usb" json:"usb"`
	VID          string `yaml:"vid,omitempty" json:"vid,omitempty"`
	PID          string `yaml:"pid,omitempty" json:"pid,omitempty"`
	SerialNumber string `yaml:"serial_number,omitempty" json:"serial_number,omitempty"`
	Product      string `yaml:"product,omitempty" json:"product,omitempty"`
}

func (p PortInfo) Short() string {
	if !p.USB {
		return p.Name
	}
	desc := fmt.Sprintf("%s:%s", p.VID, p.PID)
	if p.Product != "" {
		desc = p.Product + " " + desc
	}
	return fmt.Sprintf("%s\t%s", p.Name, desc)
}

type PortList struct {
	Ports []PortInfo `yaml:"ports" json:"ports"`
}

func (l PortList) Elements() []Short {
	res := make([]Short, len(l.Ports))
	for i, p := range l.Ports {
		res[i] = p
	}
	return res
}

func PortsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ports",
		Short:        "List the serial ports an ESP32 may be attached to",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return err
			}

			enc, err := parseOutputFlag(cmd)
			if err != nil {
				return err
			}

			details, err := detailedPorts()
			if err != nil {
				return err
			}

			list := portList(details, all)
			if len(list.Ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No serial ports detected.")
				return nil
			}
			return enc.Encode(list)
		},
	}

	cmd.Flags().Bool("all", false, "if set, will show all available ports")
	cmd.Flags().StringP("output", "o", "short", "set output format to json, yaml or short")
	return cmd
}

func portList(details []*enumerator.PortDetails, all bool) PortList {
	names := make([]string, len(details))
	byName := map[string]*enumerator.PortDetails{}
	for i, d := range details {
		names[i] = d.Name
		byName[d.Name] = d
	}
	if !all {
		names = filterPorts(names)
	}

	var res PortList
	for _, name := range names {
		d := byName[name]
		res.Ports = append(res.Ports, PortInfo{
			Name:         d.Name,
			USB:          d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return res
}

var detailedPorts = enumerator.GetDetailedPortsList

func PortExists(port string, ports []string) bool {
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}

// reportPorts tells the operator when port is missing from the system and
// lists the ports an ESP32 is likely attached to.
func reportPorts(out io.Writer, port string, ports []string) {
	if !PortExists(port, ports) {
		fmt.Fprintf(out, "Port %s is not present.\n", port)
	}
	candidates := filterPorts(ports)
	if len(candidates) == 0 {
		fmt.Fprintln(out, "No serial ports detected. Have you installed the driver to the ESP32 you have connected?")
		return
	}
	fmt.Fprintln(out, "Available ports:")
	for _, p := range candidates {
		if p == port {
			continue
		}
		fmt.Fprintf(out, "  %s\n", p)
	}
}

// checkPort fails when port is not one of the ports listed by list. A
// failing list is logged and ignored; opening the port will report the
// problem instead.
func checkPort(out io.Writer, port string, list func() ([]string, error)) error {
	ports, err := list()
	if err != nil {
		glog.V(1).Infof("could not list serial ports: %v", err)
		return nil
	}
	glog.V(1).Infof("serial ports: %v", ports)
	if PortExists(port, ports) {
		return nil
	}
	reportPorts(out, port, ports)
	return fmt.Errorf("%w: port %s not present", ErrMonitorIO, port)
}

// ConfiguredPort returns the stored port, falling back to the platform default.
func ConfiguredPort(cfg *viper.Viper) string {
	if cfg != nil {
		if port := cfg.GetString(directory.PortCfgKey); port != "" {
			return port
		}
	}
	return directory.DefaultPort()
}

func pickPort(all bool) (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", err
	}
	if !all {
		ports = filterPorts(ports)
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports detected. Have you installed the driver to the ESP32 you have connected?")
	}

	prompt := promptui.Select{
		Label:     "Choose what serial port you want to use",
		Items:     ports,
		Templates: &promptui.SelectTemplates{},
	}

	i, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("you didn't select anything")
	}

	return ports[i], nil
}

func filterPorts(ports []string) []string {
	switch runtime.GOOS {
	case "darwin":
		return darwinFilterPaths(ports)
	case "linux":
		return linuxFilterPaths(ports)
	default:
		return ports
	}
}

func darwinFilterPaths(paths []string) []string {
	existing := map[string]struct{}{}
	for _, p := range paths {
		existing[p] = struct{}{}
	}
	var res []string
	for _, path := range paths {
		if strings.HasPrefix(path, "/dev/cu") && !strings.Contains(path, "Bluetooth") {
			res = append(res, path)
		} else if strings.HasPrefix(path, "/dev/tty") && !strings.Contains(path, "Bluetooth") {
			candidate := "/dev/cu" + strings.TrimPrefix(path, "/dev/tty")
			if _, exists := existing[candidate]; !exists {
				res = append(res, path)
			}
		}
	}
	return res
}

func linuxFilterPaths(paths []string) []string {
	res := []string(nil)
	for _, path := range paths {
		if strings.Contains(path, "tty") {
			if strings.Contains(path, "USB") || strings.Contains(path, "ACM") {
				res = append(res, path)
			}
		}
	}
	return res
}

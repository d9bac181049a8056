package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gobmc/host/logger"
	"gobmc/protocol"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	useSim  bool
	verbose bool
	retries int
	timeout time.Duration

	log = zap.NewNop().Sugar()
)

var rootCmd = &cobra.Command{
	Use:   "bmc-host",
	Short: "Talk to a BMC over its SPI register interface",
	Long: `bmc-host reads and writes BMC registers through a USB SPI bridge.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  Simulator: --sim

For WebSocket authentication, the password is read from the
BMC_BRIDGE_PASSWORD environment variable, or prompted interactively if
not set.`,
	Version:       protocol.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.New(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port of the SPI bridge")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL of a shared bridge (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().BoolVar(&useSim, "sim", false, "Use an in-process simulated BMC")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 3, "Retries per register operation")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 500*time.Millisecond, "Bridge read timeout")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

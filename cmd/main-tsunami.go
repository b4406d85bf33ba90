// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// set at build time via -ldflags
var TsunamiVersion = "0.0.0"
var BuildTime = "0"

const listenAddrEnvVar = "TSUNAMI_LISTENADDR"
const manifestOnlyEnvVar = "TSUNAMI_MANIFEST_ONLY"

var rootCmd = &cobra.Command{
	Use:   "tsunami",
	Short: "Tsunami - A VDOM-based UI framework",
	Long:  `Tsunami is a VDOM-based UI framework for building modern applications.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print Tsunami version",
	Long:  `Print Tsunami version`,
	Run: func(cmd *cobra.Command, args []string) {
		v := "v" + TsunamiVersion
		if !semver.IsValid(v) {
			fmt.Println(TsunamiVersion)
			return
		}
		fmt.Println(v)
	},
}

// runApp compiles and runs the Tsunami application package at apppath via
// "go run", forwarding this process's stdio and the given extra env vars.
func runApp(apppath string, extraEnv ...string) error {
	if _, err := os.Stat(apppath); err != nil {
		return fmt.Errorf("app path %q not found: %w", apppath, err)
	}
	cmd := exec.Command("go", "run", apppath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	cmd.Env = append(os.Environ(), extraEnv...)
	return cmd.Run()
}

var serveCmd = &cobra.Command{
	Use:          "serve [apppath]",
	Short:        "Run a Tsunami application's HTTP server",
	Long:         `Build and run a Tsunami application, serving it over HTTP with SSE-based live updates.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		var extraEnv []string
		if listenAddr != "" {
			extraEnv = append(extraEnv, listenAddrEnvVar+"="+listenAddr)
		}
		return runApp(args[0], extraEnv...)
	},
}

var schemaCmd = &cobra.Command{
	Use:          "schema [apppath]",
	Short:        "Print a Tsunami application's manifest (config/data JSON schema)",
	Long:         `Build and run a Tsunami application just long enough to print its app manifest (title, config schema, data schema, declared secrets) as JSON, then exit.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(args[0], manifestOnlyEnvVar+"=1")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	serveCmd.Flags().String("listen", "", "address to listen on (default: localhost:0, a random port)")
	rootCmd.AddCommand(serveCmd)

	rootCmd.AddCommand(schemaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

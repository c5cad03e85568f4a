package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dLoad/cmd/generate"
	"github.com/ValentinKolb/dLoad/cmd/load"
	"github.com/ValentinKolb/dLoad/cmd/ping"
	"github.com/ValentinKolb/dLoad/cmd/util"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dload",
		Short: "synthetic document loader",
		Long: fmt.Sprintf(`dLoad (v%s)

Generates synthetic documents, either invoices or random copies of a
sample document, and bulk-loads them into MongoDB, a bbolt file or memory.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dLoad",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dLoad v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(load.LoadCmd)
	RootCmd.AddCommand(ping.PingCmd)
	RootCmd.AddCommand(generate.GenerateCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	RootCmd.PersistentFlags().StringVar(&util.ConfigFile, "config", "", util.WrapString("Configuration file (yaml, json, toml or env); MongoLoader property names like userDB or numdocs are accepted"))
	key := "log-level"
	RootCmd.PersistentFlags().String(key, common.DefaultLogLevel, util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"github.com/emrgen/exploration/internal/config"
	"github.com/emrgen/exploration/internal/server"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var grpcPort string
	var httpPort string

	command := &cobra.Command{
		Use:   "serve",
		Short: "start the exploration server",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.LoadConfig()
			if err != nil {
				color.Red("error loading config: %v", err)
				return
			}
			if grpcPort != "" {
				cfg.GrpcPort = grpcPort
			}
			if httpPort != "" {
				cfg.HttpPort = httpPort
			}
			cfg.SetupLogging()

			server.NewServer(cfg).Start()
		},
	}

	command.Flags().StringVarP(&grpcPort, "grpc-port", "g", "", "grpc health port")
	command.Flags().StringVarP(&httpPort, "http-port", "p", "", "http api port")
	command.Flags().SortFlags = false

	return command
}

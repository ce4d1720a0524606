package cmd

import (
	"github.com/emrgen/exploration/internal/config"
	"github.com/emrgen/exploration/internal/model"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "db commands",
}

func init() {
	dbCmd.AddCommand(Migrate())
}

func Migrate() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.LoadConfig()
			if err != nil {
				color.Red("error loading config: %v", err)
				return
			}
			db, err := config.GetDb(cfg)
			if err != nil {
				color.Red("error opening database: %v", err)
				return
			}
			if err := model.Migrate(db); err != nil {
				color.Red("error migrating database: %v", err)
				return
			}
			color.Green("database migrated")
		},
	}

	return command
}

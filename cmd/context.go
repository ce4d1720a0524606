package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	contextDir      = "./.tmp"
	contextFileName = "exploration-cli"
)

var contextCommand = &cobra.Command{
	Use:   "context",
	Short: "context commands",
}

func init() {
	contextCommand.AddCommand(setContextCommand())
	contextCommand.AddCommand(currentContextCommand())
	contextCommand.AddCommand(resetContextCommand())
}

// Context holds the defaults of cli commands that act on behalf of a user.
type Context struct {
	UserID string `mapstructure:"user_id"`
}

// saves the context info to ./.tmp/exploration-cli.yml
func setContextCommand() *cobra.Command {
	var userID string
	command := &cobra.Command{
		Use:   "set",
		Short: "set context",
		Run: func(cmd *cobra.Command, args []string) {
			if userID == "" {
				color.Red(`missing: --user`)
				return
			}

			if err := writeContext(Context{UserID: userID}); err != nil {
				color.Red("error writing config file: %v", err)
				return
			}
			fmt.Println("context saved")
		},
	}

	command.Flags().StringVarP(&userID, "user", "u", "", "user id")

	return command
}

func currentContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "current",
		Short: "current context",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := readContext()
			if ctx.UserID == "" {
				color.Yellow("no context set")
				return
			}
			printField("user", ctx.UserID)
		},
	}

	return command
}

func resetContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "reset",
		Short: "reset context",
		Run: func(cmd *cobra.Command, args []string) {
			err := os.Remove(contextPath())
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				color.Red("error removing config file: %v", err)
				return
			}
			fmt.Println("context reset")
		},
	}

	return command
}

func contextPath() string {
	return filepath.Join(contextDir, contextFileName+".yml")
}

func contextViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(contextFileName)
	v.AddConfigPath(contextDir)
	v.SetConfigType("yml")
	return v
}

func writeContext(ctx Context) error {
	if err := os.MkdirAll(contextDir, 0o755); err != nil {
		return err
	}

	v := contextViper()
	v.Set("context.user_id", ctx.UserID)

	return v.WriteConfigAs(contextPath())
}

func readContext() Context {
	var ctx Context

	v := contextViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Println("error reading config file: ", err)
		}
		return ctx
	}

	if err := v.UnmarshalKey("context", &ctx); err != nil {
		fmt.Println("error unmarshalling config file: ", err)
	}

	return ctx
}

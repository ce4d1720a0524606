package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emrgen/exploration/internal/config"
	"github.com/emrgen/exploration/internal/server"
	"github.com/emrgen/exploration/internal/service"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// openServices wires the services straight to the configured database.
func openServices() (*server.Services, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg.SetupLogging()

	db, err := config.GetDb(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts, cleanup, err := server.Collaborators(cfg)
	if err != nil {
		return nil, nil, err
	}

	return server.NewServices(db, opts), cleanup, nil
}

func logCmd() *cobra.Command {
	var size int
	var cursor string
	var nonPrivate bool

	command := &cobra.Command{
		Use:   "log",
		Short: "show the commit log, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			services, cleanup, err := openServices()
			if err != nil {
				color.Red("%v", err)
				return
			}
			defer cleanup()

			page, err := services.Queries.CommitLog(context.Background(), service.PageRequest{
				Size:       size,
				Cursor:     cursor,
				NonPrivate: nonPrivate,
			})
			if err != nil {
				color.Red("%v", err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Seq", "Exploration", "Version", "User", "Type", "Status", "Message"})
			for _, entry := range page.Entries {
				version := "-"
				if entry.Version != nil {
					version = strconv.FormatInt(*entry.Version, 10)
				}
				table.Append([]string{
					strconv.FormatUint(entry.Seq, 10),
					entry.ExplorationID,
					version,
					entry.UserID,
					entry.CommitType,
					entry.PostCommitStatus,
					entry.CommitMessage,
				})
			}
			table.Render()

			if page.More {
				printField("next", page.Cursor)
			}
		},
	}

	command.Flags().IntVarP(&size, "size", "n", service.DefaultPageSize, "page size")
	command.Flags().StringVarP(&cursor, "cursor", "c", "", "cursor of the page")
	command.Flags().BoolVarP(&nonPrivate, "public", "p", false, "only commits of non private explorations")
	command.Flags().SortFlags = false

	return command
}

func getCmd() *cobra.Command {
	var explorationID string
	var version int64

	var required = []string{"exploration-id"}

	command := &cobra.Command{
		Use:   "get",
		Short: "get an exploration",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			services, cleanup, err := openServices()
			if err != nil {
				color.Red("%v", err)
				return
			}
			defer cleanup()

			exp, err := services.Revisions.GetExplorationAtVersion(context.Background(), explorationID, version)
			if err != nil {
				color.Red("%v", err)
				return
			}

			printField("ID", exp.ID)
			printField("Version", strconv.FormatInt(exp.Version, 10))
			printField("Title", exp.Title)
			printField("Category", exp.Category)
			printField("Objective", exp.Objective)
			printField("Language", exp.LanguageCode)
			printField("Tags", strings.Join(exp.Tags, ", "))
			printField("Init state", exp.InitStateName)
			printField("States", strconv.Itoa(len(exp.States)))
		},
	}

	command.Flags().StringVarP(&explorationID, "exploration-id", "e", "", "exploration id (required)")
	command.Flags().Int64VarP(&version, "version", "v", 0, "version, the live one when omitted")
	command.Flags().SortFlags = false

	return command
}

func historyCmd() *cobra.Command {
	var explorationID string

	var required = []string{"exploration-id"}

	command := &cobra.Command{
		Use:   "history",
		Short: "list the versions of an exploration",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			services, cleanup, err := openServices()
			if err != nil {
				color.Red("%v", err)
				return
			}
			defer cleanup()

			snapshots, err := services.Explorations.SnapshotsMetadata(context.Background(), explorationID)
			if err != nil {
				color.Red("%v", err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Version", "Committer", "Type", "Message", "Created"})
			for _, s := range snapshots {
				table.Append([]string{
					strconv.FormatInt(s.Version, 10),
					s.CommitterID,
					s.CommitType,
					s.CommitMessage,
					s.CreatedAt.Format(time.RFC3339),
				})
			}
			table.Render()
		},
	}

	command.Flags().StringVarP(&explorationID, "exploration-id", "e", "", "exploration id (required)")

	return command
}

func exportCmd() *cobra.Command {
	var explorationID string
	var version int64
	var output string

	var required = []string{"exploration-id"}

	command := &cobra.Command{
		Use:   "export",
		Short: "export an exploration as a zip bundle",
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}

			services, cleanup, err := openServices()
			if err != nil {
				color.Red("%v", err)
				return
			}
			defer cleanup()

			bundle, err := services.Revisions.Export(context.Background(), explorationID, version)
			if err != nil {
				color.Red("%v", err)
				return
			}

			if output == "" {
				output = bundle.Name + ".zip"
			}
			f, err := os.Create(output)
			if err != nil {
				color.Red("%v", err)
				return
			}
			defer f.Close()

			if err := bundle.WriteZip(f); err != nil {
				color.Red("%v", err)
				return
			}

			printField("exported", output)
			printField("assets", strconv.Itoa(len(bundle.Assets)))
		},
	}

	command.Flags().StringVarP(&explorationID, "exploration-id", "e", "", "exploration id (required)")
	command.Flags().Int64VarP(&version, "version", "v", 0, "version, the live one when omitted")
	command.Flags().StringVarP(&output, "output", "o", "", "output file")
	command.Flags().SortFlags = false

	return command
}

func revertCmd() *cobra.Command {
	var explorationID string
	var current int64
	var target int64
	var userID string

	var required = []string{"exploration-id", "current", "target"}

	command := &cobra.Command{
		Use:   "revert",
		Short: "revert an exploration to an older version",
		Long: `Revert an exploration to an older version.

The revert is committed as a new version. It fails when current is not the
live version, or when target is not older than current.
`,
		Run: func(cmd *cobra.Command, args []string) {
			if checkMissingFlags(cmd, required) {
				return
			}
			if userID == "" {
				userID = readContext().UserID
			}
			if userID == "" {
				color.Red("missing: --user or a saved context")
				return
			}

			services, cleanup, err := openServices()
			if err != nil {
				color.Red("%v", err)
				return
			}
			defer cleanup()

			exp, err := services.Revisions.RevertExploration(context.Background(), userID, explorationID, current, target)
			if err != nil {
				color.Red("%v", err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Version", "Reverted To"})
			table.Append([]string{exp.ID, strconv.FormatInt(exp.Version, 10), strconv.FormatInt(target, 10)})
			table.Render()
		},
	}

	command.Flags().StringVarP(&explorationID, "exploration-id", "e", "", "exploration id (required)")
	command.Flags().Int64VarP(&current, "current", "c", 0, "live version (required)")
	command.Flags().Int64VarP(&target, "target", "t", 0, "version to revert to (required)")
	command.Flags().StringVarP(&userID, "user", "u", "", "committer id")
	command.Flags().SortFlags = false

	return command
}

func printField(label, value string) {
	color.Set(color.FgCyan)
	fmt.Print(label)
	color.Unset()
	fmt.Printf(": %s\n", value)
}

// checkMissingFlags checks if the required flags are set and returns true if any is missing
func checkMissingFlags(cmd *cobra.Command, flags []string) bool {
	var missingFlags []string
	var providedFlags []string
	for _, required := range flags {
		if !cmd.Flag(required).Changed {
			missingFlags = append(missingFlags, required)
		} else {
			value := cmd.Flag(required).Value.String()
			providedFlags = append(providedFlags, fmt.Sprintf("--%s=%s", required, value))
		}
	}

	if len(missingFlags) > 0 {
		var msg string
		for _, f := range missingFlags {
			msg += fmt.Sprintf("--%s ", f)
		}

		color.Red("missing: %s\n", msg)
		if len(providedFlags) > 0 {
			provided := strings.Join(providedFlags, " ")
			color.Green("provide: %s\n", provided)
		}

		cmd.Println("")
		_ = cmd.Usage()

		return true
	}

	return false
}

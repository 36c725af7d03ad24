/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/inkpost/apiserver/internal/server"
	"github.com/inkpost/apiserver/internal/services"
	"github.com/inkpost/apiserver/internal/storage"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a JSON snapshot of all posts to object storage",
	Long: `Reads every post from the configured store and uploads them as one
JSON document under exports/ in the STORAGE_BACKEND bucket. Usage:

	inkpost export
	inkpost export get posts-1760000000.json
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		repos, err := server.OpenRepositories(ctx, cfg)
		if err != nil {
			return err
		}
		defer repos.Close()

		objects, err := storage.Open(ctx, cfg)
		if err != nil {
			return err
		}

		result, err := services.NewExportService(repos.Posts, objects).Export(ctx)
		if err != nil {
			return err
		}

		logger.Info("posts exported",
			slog.String("bucket", result.Bucket),
			slog.String("key", result.Key),
			slog.Int("count", result.Count),
		)
		fmt.Fprintln(cmd.OutOrStdout(), result.Key)
		return nil
	},
}

var exportGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored snapshot to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		objects, err := storage.Open(ctx, cfg)
		if err != nil {
			return err
		}

		reader, err := services.NewExportService(nil, objects).Open(ctx, args[0])
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				return fmt.Errorf("snapshot %s not found", args[0])
			}
			return err
		}
		defer reader.Close()

		_, err = io.Copy(cmd.OutOrStdout(), reader)
		return err
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportGetCmd)
}

/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tasklist/apiserver/config"
	"github.com/tasklist/apiserver/internal/storage"
	"github.com/tasklist/apiserver/internal/web"
)

// assetsCmd represents the assets command.
var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage static assets",
}

var assetsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload the embedded static assets to the configured bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.Assets.Backend == "" || cfg.Assets.Backend == "embedded" {
			return errors.New("ASSETS_BACKEND must be minio or gcs to sync assets")
		}

		store, err := storage.Open(cmd.Context(), cfg.Assets)
		if err != nil {
			return err
		}

		keys, err := storage.Sync(cmd.Context(), store, web.Static())
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s/%s\n", store.Bucket(), key)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assetsCmd)
	assetsCmd.AddCommand(assetsSyncCmd)
}

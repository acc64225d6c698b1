package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xl-idp/reference-inn/internal/ident"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the local resolution cache",
}

var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the cache schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := initCache(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()
		fmt.Println("cache schema is up to date")
		return nil
	},
}

var (
	cacheLookupID      string
	cacheLookupCountry string
)

var cacheLookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up a cached company name by identifier and country",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := initCache(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		name, found, err := store.GetName(cmd.Context(), cacheLookupID, ident.Jurisdiction(cacheLookupCountry))
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("not cached")
			return nil
		}
		fmt.Println(name)
		return nil
	},
}

func init() {
	cacheLookupCmd.Flags().StringVar(&cacheLookupID, "id", "", "taxpayer identifier (required)")
	cacheLookupCmd.Flags().StringVar(&cacheLookupCountry, "country", "russia", "jurisdiction key")
	_ = cacheLookupCmd.MarkFlagRequired("id")
	cacheCmd.AddCommand(cacheMigrateCmd, cacheLookupCmd)
	rootCmd.AddCommand(cacheCmd)
}

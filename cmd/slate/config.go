package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/slate/internal/api"
	"github.com/jackzampolin/slate/internal/config"
	"github.com/jackzampolin/slate/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var (
	configForce    bool
	configDescribe bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		path := h.ConfigPath()
		if h.ConfigExists() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if f := mgr.ConfigFile(); f != "" {
			fmt.Fprintf(os.Stderr, "# from %s\n", f)
		}
		return api.Output(mgr.Get())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of one key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		v, err := mgr.GetKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		if configDescribe {
			if entry := config.GetDefault(args[0]); entry != nil {
				fmt.Fprintf(os.Stderr, "# %s (default: %v)\n", entry.Description, entry.Value)
			}
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every config key with its default",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := config.DefaultEntries()
		if !wantTable(os.Stdout) {
			return api.Output(entries)
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Key, fmt.Sprint(e.Value), e.Description})
		}
		fmt.Println(renderTable([]string{"Key", "Default", "Description"}, rows, nil))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configGetCmd.Flags().BoolVar(&configDescribe, "describe", false, "Also print the key's description and default")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

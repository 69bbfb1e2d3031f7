package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// clientServerName is the key of our entry under mcpServers.
const clientServerName = "ipredict"

func newGenerateConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-config <path>",
		Short: "Add this server to a Claude Desktop client config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			execPath, err := os.Executable()
			if err != nil {
				execPath = os.Args[0]
			}
			if err := generateClientConfig(args[0], execPath, serveArgs(opts)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", clientServerName, args[0])
			return nil
		},
	}
}

// serveArgs are the arguments the client passes when launching the server.
func serveArgs(opts *rootOptions) []string {
	args := []string{"serve"}
	if opts.configPath != "" {
		if abs, err := filepath.Abs(opts.configPath); err == nil {
			args = append(args, "--config", abs)
		}
	}
	if pos := opts.devicePosition(); pos != nil {
		args = append(args,
			"--lat", fmt.Sprint(pos.Lat),
			"--lng", fmt.Sprint(pos.Lng))
	}
	return args
}

// generateClientConfig creates or updates a Claude Desktop client config
// file, keeping any other servers already configured there.
func generateClientConfig(outputPath, execPath string, args []string) error {
	logger := slog.Default()

	absExecPath, err := filepath.Abs(execPath)
	if err != nil {
		absExecPath = execPath
	}

	serverConfig := map[string]any{
		"command": absExecPath,
		"args":    args,
	}

	config := make(map[string]any)
	if data, err := os.ReadFile(outputPath); err == nil {
		if err := json.Unmarshal(data, &config); err != nil {
			logger.Warn("existing config is not valid JSON, will create new", "error", err)
			config = make(map[string]any)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing config: %w", err)
	}

	mcpServers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		mcpServers = make(map[string]any)
		config["mcpServers"] = mcpServers
	}
	mcpServers[clientServerName] = serverConfig

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

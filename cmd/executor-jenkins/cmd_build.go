package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"executorjenkins/internal/engine"
)

const commandTimeout = 2 * time.Minute

var (
	buildID   int64
	container string
	token     string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Create or update the job for a build and trigger it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := deadlineContext(cmd.Context())
		defer cancel()

		exec, _ := newExecutor(configData, nil)
		if err := exec.Start(ctx, engine.StartConfig{BuildID: buildID, Container: container, Token: token}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Build %d started as %s\n", buildID, exec.JobName(buildID))
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the last build of a job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := deadlineContext(cmd.Context())
		defer cancel()

		exec, _ := newExecutor(configData, nil)
		if err := exec.Stop(ctx, engine.StopConfig{BuildID: buildID}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Build %d stopped\n", buildID)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last build of a job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := deadlineContext(cmd.Context())
		defer cancel()

		exec, _ := newExecutor(configData, nil)
		status, err := exec.Status(ctx, engine.StatusConfig{BuildID: buildID})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), status)
	},
}

func init() {
	startCmd.Flags().Int64Var(&buildID, "build-id", 0, "Build identifier")
	startCmd.Flags().StringVar(&container, "container", "", "Container image the build runs in")
	startCmd.Flags().StringVar(&token, "token", "", "Token the build uses to call back into the API")
	for _, name := range []string{"build-id", "container", "token"} {
		_ = startCmd.MarkFlagRequired(name)
	}

	for _, cmd := range []*cobra.Command{stopCmd, statusCmd} {
		cmd.Flags().Int64Var(&buildID, "build-id", 0, "Build identifier")
		_ = cmd.MarkFlagRequired("build-id")
	}

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd)
}

func deadlineContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

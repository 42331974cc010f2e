package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"octpack/internal/notifications"
	"octpack/internal/services"
)

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Notifications.NtfyTopic == "" {
				return services.Wrap(services.ErrConfiguration, "notify", "test", "notifications.ntfy_topic is not set", nil)
			}
			if err := notifications.NewService(cfg).TestNotification(ctx.runContext(cmd)); err != nil {
				return services.Wrap(services.ErrExternalTool, "notify", "test", cfg.Notifications.NtfyTopic, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to %s\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}

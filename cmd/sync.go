package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push, pull and inspect the shared cloud document",
	Long: `While cloud mode is on, every change is pushed to the shared document after a
quiet interval (SYNC_DEBOUNCE). Pull replaces the local collections with the
remote ones; the remote document wins.`,
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the whole local state now",
	Args:  cobra.NoArgs,
	RunE:  runSyncPush,
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace local state with the remote document",
	Args:  cobra.NoArgs,
	RunE:  runSyncPull,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cloud mode and the remote document id",
	Args:  cobra.NoArgs,
	RunE:  runSyncStatus,
}

var syncEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn cloud mode on and push the local state",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return setCloud(cmd, true) },
}

var syncDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Work local-only",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return setCloud(cmd, false) },
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncPushCmd, syncPullCmd, syncStatusCmd, syncEnableCmd, syncDisableCmd)
}

func runSyncPush(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.sync.Push(ctx); err != nil {
			return err
		}
		fmt.Println("Pushed local state to", a.cfg.RemoteFileName)
		return nil
	})
}

func runSyncPull(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.sync.Pull(ctx)
		if err != nil {
			return err
		}
		if res.Initialized {
			fmt.Println("Remote document was empty; uploaded local state")
			return nil
		}
		fmt.Printf("Replaced %s from remote (updated %s)\n", strings.Join(res.Replaced, ", "), res.LastUpdated)
		return nil
	})
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		session := a.store.Session()
		st := a.sync.Status()

		fmt.Printf("Phase:        %s\n", st.Phase)
		fmt.Printf("Cloud mode:   %t\n", session.CloudEnabled)
		fmt.Printf("Credentials:  %t\n", a.cfg.HasDriveCredentials())
		fmt.Printf("Remote file:  %s\n", a.cfg.RemoteFileName)
		if session.RemoteFileID != "" {
			fmt.Printf("Remote id:    %s\n", session.RemoteFileID)
		}
		if st.LastError != "" {
			fmt.Printf("Last error:   %s\n", st.LastError)
		}
		return nil
	})
}

func setCloud(cmd *cobra.Command, enabled bool) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.sync.SetCloudEnabled(enabled); err != nil {
			return err
		}
		if !enabled {
			fmt.Println("Cloud mode off; changes stay local")
			return nil
		}
		if err := a.sync.Push(ctx); err != nil {
			return err
		}
		fmt.Println("Cloud mode on; local state pushed")
		return nil
	})
}

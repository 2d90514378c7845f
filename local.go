package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"skylift/internal/lifecycle"
)

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Manage the local Kubernetes development cluster",
	Long: `Bring a local kind cluster up or down. Up switches the kubeconfig
current-context to the new cluster; down deletes the cluster and restores
the context that was current before up ran.`,
}

func localManager() *lifecycle.Manager {
	kubeconfig := kubeconfigPath()
	return lifecycle.NewManager(
		kubeconfig,
		lifecycle.NewKindDriver(kubeconfig),
		lifecycle.NewSessionStore(skyliftDir()),
		logrus.StandardLogger(),
	)
}

// localSession reads the stored session without going through a manager, for
// status reporting.
func localSession() (*lifecycle.Session, error) {
	return lifecycle.NewSessionStore(skyliftDir()).Load()
}

var localUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create the local cluster and switch to its context",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("🚀 Creating local cluster...")
		sess, err := localManager().Up(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("✅ Local cluster %s ready\n", sess.ClusterName)
		fmt.Printf("   Context switched to %s", sess.ContextName)
		if sess.PriorContext != "" {
			fmt.Printf(" (was %s)", sess.PriorContext)
		}
		fmt.Println()
		return nil
	},
}

var localDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Delete the local cluster and restore the previous context",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Deleting local cluster...")
		if err := localManager().Down(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("✅ Local cluster removed, previous context restored")
		return nil
	},
}

var localStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the local cluster session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := localManager().Status()
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Println("No local cluster")
			return nil
		}
		fmt.Printf("Cluster:  %s\n", sess.ClusterName)
		fmt.Printf("State:    %s\n", sess.State)
		fmt.Printf("Context:  %s\n", sess.ContextName)
		fmt.Printf("Created:  %s\n", sess.CreatedAt.Format(time.RFC3339))
		if sess.PriorContext != "" {
			fmt.Printf("Restores: %s\n", sess.PriorContext)
		}
		return nil
	},
}

func init() {
	localCmd.AddCommand(localUpCmd)
	localCmd.AddCommand(localDownCmd)
	localCmd.AddCommand(localStatusCmd)
}

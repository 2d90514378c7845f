package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage clusters through the Skylift control plane",
	Long:  "Create, list, and terminate clusters via the control plane API instead of local credentials.",
}

func init() {
	remoteCmd.AddCommand(remoteLaunchCmd)
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remoteDownCmd)

	remoteLaunchCmd.Flags().String("cpus", "", "Minimum vCPUs, e.g. 2 or 2+")
	remoteLaunchCmd.Flags().String("memory", "", "Minimum memory in GB")
	remoteLaunchCmd.Flags().String("gpus", "", "Accelerator spec, e.g. A10 or A10:2")
	remoteLaunchCmd.Flags().StringP("name", "n", "", "Cluster name")

	rootCmd.AddCommand(remoteCmd)
}

// apiRequest sends an authenticated JSON request to the control plane.
func apiRequest(method, path string, body interface{}, out interface{}) error {
	token, err := loadToken()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, apiURL()+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error == "" {
			errResp.Error = resp.Status
		}
		return fmt.Errorf("API error: %s", errResp.Error)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

type remoteCluster struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	Error     string    `json:"error,omitempty"`
}

var remoteLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Provision a cluster through the control plane",
	RunE: func(cmd *cobra.Command, args []string) error {
		cpus, _ := cmd.Flags().GetString("cpus")
		memory, _ := cmd.Flags().GetString("memory")
		gpus, _ := cmd.Flags().GetString("gpus")
		name, _ := cmd.Flags().GetString("name")

		body := map[string]string{
			"name":        name,
			"cpus":        cpus,
			"memory":      memory,
			"accelerator": gpus,
		}

		var created remoteCluster
		if err := apiRequest("POST", "/v1/clusters", body, &created); err != nil {
			return err
		}

		fmt.Printf("✅ Cluster %s created on %s (state %s)\n", created.ID, created.Provider, created.State)
		fmt.Printf("   Follow events: %s/v1/clusters/%s/events\n", apiURL(), created.ID)
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clusters on the control plane",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Clusters []remoteCluster `json:"clusters"`
		}
		if err := apiRequest("GET", "/v1/clusters", nil, &resp); err != nil {
			return err
		}

		if len(resp.Clusters) == 0 {
			fmt.Println("No clusters")
			return nil
		}

		fmt.Println("ID                         NAME             STATE      CLOUD       CREATED")
		for _, c := range resp.Clusters {
			fmt.Printf("%-25s  %-15s  %-9s  %-10s  %s\n",
				c.ID, c.Name, c.State, c.Provider, c.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var remoteDownCmd = &cobra.Command{
	Use:   "down [cluster-id]",
	Short: "Terminate a cluster on the control plane",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiRequest("DELETE", "/v1/clusters/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Printf("✅ Cluster %s terminated\n", args[0])
		return nil
	},
}

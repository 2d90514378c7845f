package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"skylift/internal/cloud/catalog"
	"skylift/internal/cloud/provider"
	"skylift/internal/cloud/registry"
	"skylift/internal/metrics"
	"skylift/internal/optimizer"
	"skylift/internal/provision"
	"skylift/ui"
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Provision the cheapest instance that satisfies a resource request",
	Long: `Filter every enabled cloud's catalog against the requested resources,
rank the feasible offers by hourly cost, and provision the cheapest one.
Bounds are minimums: --cpus 2 accepts any offer with 2 or more vCPUs.`,
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().String("cpus", "", "Minimum vCPUs, e.g. 2 or 2+")
	launchCmd.Flags().String("memory", "", "Minimum memory in GB, e.g. 8 or 8+")
	launchCmd.Flags().String("gpus", "", "Accelerator spec, e.g. A10 or A10:2")
	launchCmd.Flags().String("cloud", "", "Restrict the search to one cloud")
	launchCmd.Flags().StringP("name", "n", "skylift-task", "Cluster name for the provisioned instance")
	launchCmd.Flags().Duration("provision-timeout", 0,
		"Override the provider's readiness timeout (raise for autoscaling clusters)")
	launchCmd.Flags().Bool("dry-run", false, "Show the ranked offers without provisioning")
}

// loadCatalog reads the built-in offers plus any overlay in the state dir.
func loadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(skyliftDir())
}

// buildRegistry registers every provider in fixed order; registration order
// is the optimizer's cost tie-break. Kubernetes is first so an in-cluster
// free offer wins ties against paid clouds.
func buildRegistry(cat *catalog.Catalog) (*registry.Registry, error) {
	reg := registry.New()

	k8s, err := provider.NewKubernetes(kubeconfigPath(), cat)
	if err != nil {
		logrus.WithError(err).Debug("kubernetes provider unavailable")
	} else if err := reg.Register(k8s); err != nil {
		return nil, err
	}

	for _, p := range []provider.Provider{
		provider.NewAWS(cat),
		provider.NewGCP(cat),
		provider.NewAzure(cat),
		provider.NewIBM(cat),
		provider.NewLambda(cat),
	} {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// accessibleProviders narrows the registry to providers whose credentials
// check out, optionally restricted to a single cloud.
func accessibleProviders(ctx context.Context, reg *registry.Registry, only string) ([]provider.Provider, error) {
	if only != "" {
		p, err := reg.Get(only)
		if err != nil {
			return nil, err
		}
		if err := p.CheckAccess(ctx); err != nil {
			return nil, fmt.Errorf("cloud %s is not accessible: %w", only, err)
		}
		return []provider.Provider{p}, nil
	}

	var out []provider.Provider
	for _, p := range reg.List() {
		if err := p.CheckAccess(ctx); err != nil {
			logrus.WithError(err).WithField("provider", p.Name()).Debug("skipping inaccessible provider")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func parseRequest(cmd *cobra.Command) (optimizer.Request, error) {
	var req optimizer.Request

	if s, _ := cmd.Flags().GetString("cpus"); s != "" {
		v, err := optimizer.ParseQuantity(s)
		if err != nil {
			return req, err
		}
		req.MinVCPUs = v
	}
	if s, _ := cmd.Flags().GetString("memory"); s != "" {
		v, err := optimizer.ParseQuantity(s)
		if err != nil {
			return req, err
		}
		req.MinMemoryGB = v
	}
	if s, _ := cmd.Flags().GetString("gpus"); s != "" {
		acc, err := optimizer.ParseAccelerator(s)
		if err != nil {
			return req, err
		}
		req.Accelerator = acc
	}
	req.ProvisionTimeout, _ = cmd.Flags().GetDuration("provision-timeout")

	return req, nil
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := parseRequest(cmd)
	if err != nil {
		return err
	}

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cat)
	if err != nil {
		return err
	}

	only, _ := cmd.Flags().GetString("cloud")
	providers, err := accessibleProviders(ctx, reg, only)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		return fmt.Errorf("no cloud is accessible; run 'skylift check' to see why")
	}

	fmt.Printf("Optimizing for: %s\n\n", req)

	candidates, err := optimizer.Filter(ctx, req, providers)
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues("error").Inc()
		return err
	}
	plan, err := optimizer.Rank(req, candidates, reg.Priority)
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues("infeasible").Inc()
		return err
	}
	metrics.OptimizerRuns.WithLabelValues("ok").Inc()

	ui.RenderPlan(os.Stdout, plan, candidates)
	fmt.Println()

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return nil
	}

	chosen := plan.Chosen
	chosenProvider, err := reg.Get(chosen.Offer.Provider)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	fmt.Printf("🚀 Provisioning %s...\n", chosen.Offer)

	p := provision.NewProvisioner(logrus.StandardLogger())
	attempt, err := p.Start(ctx, provision.Request{
		ClusterName: name,
		Provider:    chosenProvider,
		Offer:       chosen,
		Timeout:     req.ProvisionTimeout,
	})
	if err != nil {
		return err
	}

	for ev := range attempt.Events() {
		fmt.Printf("   [%s] %s\n", ev.State, ev.Message)
	}

	rec, err := attempt.Wait()
	if err != nil {
		return err
	}

	fmt.Printf("✅ Instance %s ready on %s (%s)\n", rec.InstanceID, rec.Provider, rec.InstanceType)
	if err := saveRecord(rec); err != nil {
		logrus.WithError(err).Warn("failed to save provision record")
	}
	return nil
}

// saveRecord appends the provision record so 'skylift status' can report it.
func saveRecord(rec *provision.Record) error {
	dir := skyliftDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path := filepath.Join(dir, "records.json")
	var records []provision.Record
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			return err
		}
	}
	records = append(records, *rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// loadRecords reads the provision records saved by launch.
func loadRecords() ([]provision.Record, error) {
	data, err := os.ReadFile(filepath.Join(skyliftDir(), "records.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []provision.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provisioned instances and the local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := loadRecords()
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No provisioned instances")
		} else {
			fmt.Println("CLUSTER          CLOUD       INSTANCE         ID                    $/HR    READY")
			for _, r := range records {
				fmt.Printf("%-15s  %-10s  %-15s  %-20s  %-6.3f  %s\n",
					r.ClusterName, r.Provider, r.InstanceType, r.InstanceID,
					r.HourlyCost, r.ReadyAt.Format(time.RFC3339))
			}
		}

		sess, err := localSession()
		if err != nil {
			return err
		}
		if sess != nil {
			fmt.Printf("\nLocal session: %s (%s), context %s, created %s\n",
				sess.ClusterName, sess.State, sess.ContextName,
				sess.CreatedAt.Format(time.RFC3339))
		}
		return nil
	},
}

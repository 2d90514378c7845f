package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"skylift/internal/auth"
	"skylift/internal/cloud/catalog"
	"skylift/internal/cloud/provider"
	"skylift/internal/cloud/registry"
	"skylift/internal/errdefs"
	"skylift/internal/metrics"
	"skylift/internal/optimizer"
	"skylift/internal/provision"
	"skylift/internal/stream"
)

var version = "0.1.0"

// OptimizeRequest is the wire form of a resource request.
type OptimizeRequest struct {
	CPUs             string `json:"cpus,omitempty"`
	MemoryGB         string `json:"memory,omitempty"`
	Accelerator      string `json:"accelerator,omitempty"`
	Cloud            string `json:"cloud,omitempty"`
	ProvisionTimeout string `json:"provision_timeout,omitempty"`
}

// OptimizeResponse carries the ranked feasible offers.
type OptimizeResponse struct {
	Request string            `json:"request"`
	Chosen  catalog.Offer     `json:"chosen"`
	Ranked  []rankedOfferJSON `json:"ranked"`
}

type rankedOfferJSON struct {
	catalog.Offer
	Chosen bool `json:"chosen"`
}

// CreateClusterRequest asks for the cheapest feasible instance.
type CreateClusterRequest struct {
	Name string `json:"name"`
	OptimizeRequest
}

// ClusterResponse describes a provisioning attempt and, once ready, its
// record.
type ClusterResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	State     provision.State   `json:"state"`
	Provider  string            `json:"provider"`
	Offer     catalog.Offer     `json:"offer"`
	EventsURL string            `json:"events_url"`
	CreatedAt time.Time         `json:"created_at"`
	Record    *provision.Record `json:"record,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// cluster tracks one provisioning attempt started through the API.
type cluster struct {
	id        string
	name      string
	provider  string
	offer     catalog.Offer
	attempt   *provision.Attempt
	createdAt time.Time
}

// Server is the control plane: it owns the registry, the provisioner, and
// the set of clusters created through the API.
type Server struct {
	cfg         *Config
	reg         *registry.Registry
	provisioner *provision.Provisioner
	hub         *stream.Hub
	tokens      *auth.TokenManager
	router      chi.Router
	log         logrus.FieldLogger

	mu       sync.RWMutex
	clusters map[string]*cluster
}

// NewServer wires the control plane together.
func NewServer(cfg *Config, reg *registry.Registry, tokens *auth.TokenManager, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		cfg:         cfg,
		reg:         reg,
		provisioner: provision.NewProvisioner(log),
		hub:         stream.NewHub(log),
		tokens:      tokens,
		router:      chi.NewRouter(),
		log:         log,
		clusters:    make(map[string]*cluster),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(chimw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(chimw.Timeout(60 * time.Second))
	s.router.Use(requestMetrics)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Post("/v1/auth/exchange", s.handleAuthExchange)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(s.tokens.Middleware)
		r.Post("/optimize", s.handleOptimize)
		r.Post("/clusters", s.handleCreateCluster)
		r.Get("/clusters", s.handleListClusters)
		r.Get("/clusters/{id}", s.handleGetCluster)
		r.Delete("/clusters/{id}", s.handleDeleteCluster)
		r.Get("/clusters/{id}/events", s.handleClusterEvents)
	})
}

// requestMetrics observes request durations per route pattern.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

// handleAuthExchange trades a GitHub token for an API token.
func (s *Server) handleAuthExchange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GitHubToken string `json:"github_token"`
		GitHubID    int64  `json:"github_id"`
		GitHubLogin string `json:"github_login"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.GitHubToken == "" || req.GitHubID == 0 {
		writeError(w, http.StatusBadRequest, "github_token and github_id are required")
		return
	}

	if !verifyGitHubToken(r.Context(), req.GitHubToken, req.GitHubID) {
		writeError(w, http.StatusUnauthorized, "invalid GitHub token")
		return
	}

	token, err := s.tokens.GenerateUserToken(fmt.Sprintf("gh-%d", req.GitHubID), s.cfg.TokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func parseOptimizeRequest(in OptimizeRequest) (optimizer.Request, error) {
	var req optimizer.Request
	if in.CPUs != "" {
		v, err := optimizer.ParseQuantity(in.CPUs)
		if err != nil {
			return req, err
		}
		req.MinVCPUs = v
	}
	if in.MemoryGB != "" {
		v, err := optimizer.ParseQuantity(in.MemoryGB)
		if err != nil {
			return req, err
		}
		req.MinMemoryGB = v
	}
	if in.Accelerator != "" {
		acc, err := optimizer.ParseAccelerator(in.Accelerator)
		if err != nil {
			return req, err
		}
		req.Accelerator = acc
	}
	if in.ProvisionTimeout != "" {
		d, err := time.ParseDuration(in.ProvisionTimeout)
		if err != nil {
			return req, fmt.Errorf("invalid provision_timeout %q", in.ProvisionTimeout)
		}
		req.ProvisionTimeout = d
	}
	return req, nil
}

// optimize runs filter and rank for a wire request.
func (s *Server) optimize(ctx context.Context, in OptimizeRequest) (optimizer.Request, *optimizer.Plan, error) {
	req, err := parseOptimizeRequest(in)
	if err != nil {
		return req, nil, errdefs.AsConfiguration(err)
	}

	providers := s.reg.List()
	if in.Cloud != "" {
		p, err := s.reg.Get(in.Cloud)
		if err != nil {
			return req, nil, err
		}
		providers = []provider.Provider{p}
	}

	candidates, err := optimizer.Filter(ctx, req, providers)
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues("error").Inc()
		return req, nil, err
	}
	plan, err := optimizer.Rank(req, candidates, s.reg.Priority)
	if err != nil {
		metrics.OptimizerRuns.WithLabelValues("infeasible").Inc()
		return req, nil, err
	}
	metrics.OptimizerRuns.WithLabelValues("ok").Inc()
	return req, plan, nil
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var in OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, plan, err := s.optimize(r.Context(), in)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	resp := OptimizeResponse{
		Request: req.String(),
		Chosen:  plan.Chosen.Offer,
	}
	for _, c := range plan.Ranked {
		resp.Ranked = append(resp.Ranked, rankedOfferJSON{Offer: c.Offer, Chosen: c.Chosen})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleCreateCluster(w http.ResponseWriter, r *http.Request) {
	var in CreateClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Name == "" {
		in.Name = fmt.Sprintf("skylift-%d", time.Now().Unix())
	}

	req, plan, err := s.optimize(r.Context(), in.OptimizeRequest)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	chosenProvider, err := s.reg.Get(plan.Chosen.Offer.Provider)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	// The request context dies with this response; provisioning runs on
	// its own.
	attempt, err := s.provisioner.Start(context.Background(), provision.Request{
		ClusterName:  in.Name,
		Provider:     chosenProvider,
		Offer:        plan.Chosen,
		Timeout:      req.ProvisionTimeout,
		PollInterval: s.cfg.PollInterval,
	})
	if err != nil {
		s.writeAPIError(w, err)
		return
	}

	c := &cluster{
		id:        attempt.ID,
		name:      in.Name,
		provider:  chosenProvider.Name(),
		offer:     plan.Chosen.Offer,
		attempt:   attempt,
		createdAt: time.Now(),
	}
	s.mu.Lock()
	s.clusters[c.id] = c
	s.mu.Unlock()
	s.hub.Track(attempt)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(s.clusterResponse(c))
}

func (s *Server) clusterResponse(c *cluster) ClusterResponse {
	resp := ClusterResponse{
		ID:        c.id,
		Name:      c.name,
		State:     c.attempt.State(),
		Provider:  c.provider,
		Offer:     c.offer,
		EventsURL: fmt.Sprintf("/v1/clusters/%s/events", c.id),
		CreatedAt: c.createdAt,
	}
	if resp.State.Terminal() {
		rec, err := c.attempt.Wait()
		resp.Record = rec
		if err != nil {
			resp.Error = err.Error()
		}
	}
	return resp
}

func (s *Server) getCluster(id string) (*cluster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clusters[id]
	return c, ok
}

func (s *Server) handleGetCluster(w http.ResponseWriter, r *http.Request) {
	c, ok := s.getCluster(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "cluster not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.clusterResponse(c))
}

func (s *Server) handleListClusters(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]ClusterResponse, 0, len(s.clusters))
	for _, c := range s.clusters {
		out = append(out, s.clusterResponse(c))
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"clusters": out})
}

func (s *Server) handleDeleteCluster(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, ok := s.getCluster(id)
	if !ok {
		writeError(w, http.StatusNotFound, "cluster not found")
		return
	}

	rec, _ := c.attempt.Wait()
	if rec != nil {
		p, err := s.reg.Get(c.provider)
		if err != nil {
			s.writeAPIError(w, err)
			return
		}
		if err := p.Terminate(r.Context(), rec.InstanceID); err != nil && !errdefs.IsNotFound(err) {
			s.writeAPIError(w, err)
			return
		}
		metrics.InstancesTerminated.WithLabelValues(c.provider).Inc()
	}

	s.mu.Lock()
	delete(s.clusters, id)
	s.mu.Unlock()
	s.hub.Forget(id)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClusterEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.getCluster(id); !ok {
		writeError(w, http.StatusNotFound, "cluster not found")
		return
	}
	s.hub.HandleEvents(id)(w, r)
}

// writeAPIError maps error kinds to HTTP statuses.
func (s *Server) writeAPIError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errdefs.IsConfiguration(err):
		status = http.StatusBadRequest
	case errdefs.IsNotFound(err):
		status = http.StatusNotFound
	case errdefs.IsAlreadyExists(err):
		status = http.StatusConflict
	case errdefs.IsNoFeasibleResource(err):
		status = http.StatusUnprocessableEntity
	case errdefs.IsProvisioningTimeout(err):
		status = http.StatusGatewayTimeout
	case errdefs.IsProviderAPI(err):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("internal error")
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// verifyGitHubToken checks that the token belongs to the claimed GitHub user.
func verifyGitHubToken(ctx context.Context, token string, expectedID int64) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://api.github.com/user", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return false
	}
	return user.ID == expectedID
}

// buildRegistry registers providers per the config. The fake provider backs
// development and tests; kubernetes serves real clusters.
func buildRegistry(cfg *Config) (*registry.Registry, error) {
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	switch cfg.Provider {
	case "kubernetes":
		k8s, err := provider.NewKubernetes(cfg.Kubeconfig, cat)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(k8s); err != nil {
			return nil, err
		}
	default:
		// The fake stands in for the kubernetes provider so optimizer
		// output routes back to it. Every accelerator the catalog lists
		// for kubernetes counts as a labelled node, otherwise the gate
		// would reject accelerator requests in fake mode.
		fake := provider.NewFake("kubernetes", cat.OffersFor("kubernetes"))
		for _, o := range fake.Offers() {
			if o.Accelerator != nil {
				fake.AcceleratorNodes = append(fake.AcceleratorNodes, o.Accelerator.Name)
			}
		}
		if err := reg.Register(fake); err != nil {
			return nil, err
		}
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

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	log.WithField("version", version).Info("starting skylift control plane")

	reg, err := buildRegistry(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to build provider registry")
	}

	var tokens *auth.TokenManager
	if cfg.PrivateKeyPEM != "" {
		tokens, err = auth.NewTokenManagerFromKeys([]byte(cfg.PrivateKeyPEM), []byte(cfg.PublicKeyPEM), cfg.Issuer)
	} else {
		log.Warn("no signing keys configured, using an ephemeral key pair")
		tokens, err = auth.NewTokenManager(cfg.Issuer)
	}
	if err != nil {
		log.WithError(err).Fatal("failed to initialize token manager")
	}

	server := NewServer(cfg, reg, tokens, log)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.router,
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("shutdown error")
	}
}

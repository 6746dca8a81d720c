// Package mockapi is an in-process stand-in for the cluster API. It owns one
// versioned store per resource kind, gates every call on a connection state
// machine, injects simulated latency and transient failures, and runs a
// background loop that mutates agent status the way a reconciler would.
package mockapi

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agentkube/mockcluster/internal/api"
	"github.com/agentkube/mockcluster/internal/fault"
	"github.com/agentkube/mockcluster/internal/storage"
)

// ConnectionState is the facade lifecycle state.
type ConnectionState string

const (
	Disconnected ConnectionState = "Disconnected"
	Connecting   ConnectionState = "Connecting"
	Connected    ConnectionState = "Connected"
)

// Options configures a Client. Zero durations fall back to defaults; a zero
// Fault config disables injection entirely.
type Options struct {
	Fault          fault.Config
	ConnectLatency time.Duration
	StatusInterval time.Duration // status simulation tick
	Seed           *SeedData     // nil loads the built-in fixtures
	Logger         *slog.Logger
}

// Client is the mock cluster API. Each instance is fully independent; tests
// construct as many as they need.
type Client struct {
	log      *slog.Logger
	injector *fault.Injector

	connectLatency time.Duration
	statusInterval time.Duration

	modelAPIs   *storage.Store[*api.ModelAPI]
	mcpServers  *storage.Store[*api.MCPServer]
	agents      *storage.Store[*api.Agent]
	pods        *storage.Store[*api.Pod]
	deployments *storage.Store[*api.Deployment]
	pvcs        *storage.Store[*api.PersistentVolumeClaim]

	mu      sync.Mutex
	state   ConnectionState
	simStop chan struct{}
	simDone chan struct{}
}

// New builds a disconnected Client with all stores seeded.
func New(opts Options) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConnectLatency <= 0 {
		opts.ConnectLatency = 300 * time.Millisecond
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 5 * time.Second
	}
	seed := opts.Seed
	if seed == nil {
		seed = DefaultSeed()
	}

	c := &Client{
		log:            opts.Logger,
		injector:       fault.New(opts.Fault),
		connectLatency: opts.ConnectLatency,
		statusInterval: opts.StatusInterval,
		state:          Disconnected,
		modelAPIs:      storage.NewStore("ModelAPI", func() *api.ModelAPI { return &api.ModelAPI{} }),
		mcpServers:     storage.NewStore("MCPServer", func() *api.MCPServer { return &api.MCPServer{} }),
		agents:         storage.NewStore("Agent", func() *api.Agent { return &api.Agent{} }),
		pods:           storage.NewStore("Pod", func() *api.Pod { return &api.Pod{} }),
		deployments:    storage.NewStore("Deployment", func() *api.Deployment { return &api.Deployment{} }),
		pvcs:           storage.NewStore("PersistentVolumeClaim", func() *api.PersistentVolumeClaim { return &api.PersistentVolumeClaim{} }),
	}

	if err := c.modelAPIs.Seed(seed.ModelAPIs); err != nil {
		return nil, err
	}
	if err := c.mcpServers.Seed(seed.MCPServers); err != nil {
		return nil, err
	}
	if err := c.agents.Seed(seed.Agents); err != nil {
		return nil, err
	}
	if err := c.pods.Seed(seed.Pods); err != nil {
		return nil, err
	}
	if err := c.deployments.Seed(seed.Deployments); err != nil {
		return nil, err
	}
	if err := c.pvcs.Seed(seed.PersistentVolumeClaims); err != nil {
		return nil, err
	}
	return c, nil
}

// SetFaultConfig swaps the fault injection tuning at runtime, so a dashboard
// (or a test) can dial flakiness up and down without rebuilding the client.
func (c *Client) SetFaultConfig(cfg fault.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.injector = fault.New(cfg)
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect moves the client to Connected after a simulated handshake delay and
// starts the status simulation loop. Connecting an already connected client
// is a no-op; concurrent Connects share one handshake and at most one
// simulation loop is ever running.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Connected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	c.mu.Unlock()

	timer := time.NewTimer(c.connectLatency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		c.mu.Lock()
		if c.state == Connecting {
			c.state = Disconnected
		}
		c.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
	}

	// The state may have moved while the handshake was in flight: a
	// concurrent Connect can have won, or a Disconnect can have intervened.
	// Only the call that still finds Connecting completes the transition.
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Connected:
		return nil
	case Disconnected:
		return api.NewUnauthorized("connect aborted: client disconnected")
	}
	c.state = Connected
	c.simStop = make(chan struct{})
	c.simDone = make(chan struct{})
	go c.runStatusSimulation(c.simStop, c.simDone)
	c.log.Info("mock cluster connected", "statusInterval", c.statusInterval)
	return nil
}

// Disconnect moves the client to Disconnected from any state. The status
// simulation loop is fully stopped before Disconnect returns, so no further
// background mutation can occur. In-flight calls are not cancelled.
func (c *Client) Disconnect() {
	c.mu.Lock()
	stop, done := c.simStop, c.simDone
	c.simStop, c.simDone = nil, nil
	c.state = Disconnected
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	c.log.Info("mock cluster disconnected")
}

// guard is the common prefix of every CRUD/log call: connection check first
// (no injector, no store touch when disconnected), then fault injection.
func (c *Client) guard(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Connected {
		c.mu.Unlock()
		return api.NewUnauthorized("not connected to cluster")
	}
	inj := c.injector
	c.mu.Unlock()
	return inj.Inject(ctx)
}

func (c *Client) checkConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Connected {
		return api.NewUnauthorized("not connected to cluster")
	}
	return nil
}

// watchNamespace registers fn on a store, filtered to one namespace ("" means
// all). Registration is synchronous and not fault-injected; only the
// connection gate applies.
func watchNamespace[T api.Object](c *Client, s *storage.Store[T], namespace string, fn storage.EventHandler[T]) (func(), error) {
	if err := c.checkConnected(); err != nil {
		return nil, err
	}
	cancel := s.Watch(func(e storage.Event[T]) {
		if namespace != "" && e.Object.GetObjectMeta().Namespace != namespace {
			return
		}
		fn(e)
	})
	return cancel, nil
}

// ModelAPIs

func (c *Client) ListModelAPIs(ctx context.Context, namespace string) (*api.ModelAPIList, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	items, err := c.modelAPIs.List(namespace)
	if err != nil {
		return nil, err
	}
	list := &api.ModelAPIList{
		TypeMeta: api.TypeMeta{Kind: "ModelAPIList", APIVersion: api.GroupVersion},
		ListMeta: api.ListMeta{ResourceVersion: c.modelAPIs.ResourceVersion()},
		Items:    make([]api.ModelAPI, 0, len(items)),
	}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (c *Client) GetModelAPI(ctx context.Context, name, namespace string) (*api.ModelAPI, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.modelAPIs.Get(name, namespace)
}

func (c *Client) CreateModelAPI(ctx context.Context, m *api.ModelAPI) (*api.ModelAPI, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.modelAPIs.Create(m)
}

func (c *Client) UpdateModelAPI(ctx context.Context, m *api.ModelAPI) (*api.ModelAPI, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.modelAPIs.Update(m)
}

func (c *Client) DeleteModelAPI(ctx context.Context, name, namespace string) error {
	if err := c.guard(ctx); err != nil {
		return err
	}
	return c.modelAPIs.Delete(name, namespace)
}

func (c *Client) WatchModelAPIs(namespace string, fn storage.EventHandler[*api.ModelAPI]) (func(), error) {
	return watchNamespace(c, c.modelAPIs, namespace, fn)
}

// MCPServers

func (c *Client) ListMCPServers(ctx context.Context, namespace string) (*api.MCPServerList, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	items, err := c.mcpServers.List(namespace)
	if err != nil {
		return nil, err
	}
	list := &api.MCPServerList{
		TypeMeta: api.TypeMeta{Kind: "MCPServerList", APIVersion: api.GroupVersion},
		ListMeta: api.ListMeta{ResourceVersion: c.mcpServers.ResourceVersion()},
		Items:    make([]api.MCPServer, 0, len(items)),
	}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (c *Client) GetMCPServer(ctx context.Context, name, namespace string) (*api.MCPServer, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.mcpServers.Get(name, namespace)
}

func (c *Client) CreateMCPServer(ctx context.Context, m *api.MCPServer) (*api.MCPServer, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.mcpServers.Create(m)
}

func (c *Client) UpdateMCPServer(ctx context.Context, m *api.MCPServer) (*api.MCPServer, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.mcpServers.Update(m)
}

func (c *Client) DeleteMCPServer(ctx context.Context, name, namespace string) error {
	if err := c.guard(ctx); err != nil {
		return err
	}
	return c.mcpServers.Delete(name, namespace)
}

func (c *Client) WatchMCPServers(namespace string, fn storage.EventHandler[*api.MCPServer]) (func(), error) {
	return watchNamespace(c, c.mcpServers, namespace, fn)
}

// Agents

func (c *Client) ListAgents(ctx context.Context, namespace string) (*api.AgentList, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	items, err := c.agents.List(namespace)
	if err != nil {
		return nil, err
	}
	list := &api.AgentList{
		TypeMeta: api.TypeMeta{Kind: "AgentList", APIVersion: api.GroupVersion},
		ListMeta: api.ListMeta{ResourceVersion: c.agents.ResourceVersion()},
		Items:    make([]api.Agent, 0, len(items)),
	}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (c *Client) GetAgent(ctx context.Context, name, namespace string) (*api.Agent, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.agents.Get(name, namespace)
}

func (c *Client) CreateAgent(ctx context.Context, a *api.Agent) (*api.Agent, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.agents.Create(a)
}

func (c *Client) UpdateAgent(ctx context.Context, a *api.Agent) (*api.Agent, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.agents.Update(a)
}

func (c *Client) DeleteAgent(ctx context.Context, name, namespace string) error {
	if err := c.guard(ctx); err != nil {
		return err
	}
	return c.agents.Delete(name, namespace)
}

func (c *Client) WatchAgents(namespace string, fn storage.EventHandler[*api.Agent]) (func(), error) {
	return watchNamespace(c, c.agents, namespace, fn)
}

// Pods (read-only)

func (c *Client) ListPods(ctx context.Context, namespace string) (*api.PodList, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	items, err := c.pods.List(namespace)
	if err != nil {
		return nil, err
	}
	list := &api.PodList{
		TypeMeta: api.TypeMeta{Kind: "PodList", APIVersion: "v1"},
		ListMeta: api.ListMeta{ResourceVersion: c.pods.ResourceVersion()},
		Items:    make([]api.Pod, 0, len(items)),
	}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (c *Client) GetPod(ctx context.Context, name, namespace string) (*api.Pod, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.pods.Get(name, namespace)
}

// Deployments (read-only)

func (c *Client) ListDeployments(ctx context.Context, namespace string) (*api.DeploymentList, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	items, err := c.deployments.List(namespace)
	if err != nil {
		return nil, err
	}
	list := &api.DeploymentList{
		TypeMeta: api.TypeMeta{Kind: "DeploymentList", APIVersion: "apps/v1"},
		ListMeta: api.ListMeta{ResourceVersion: c.deployments.ResourceVersion()},
		Items:    make([]api.Deployment, 0, len(items)),
	}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (c *Client) GetDeployment(ctx context.Context, name, namespace string) (*api.Deployment, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.deployments.Get(name, namespace)
}

// PersistentVolumeClaims (read-only)

func (c *Client) ListPersistentVolumeClaims(ctx context.Context, namespace string) (*api.PersistentVolumeClaimList, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	items, err := c.pvcs.List(namespace)
	if err != nil {
		return nil, err
	}
	list := &api.PersistentVolumeClaimList{
		TypeMeta: api.TypeMeta{Kind: "PersistentVolumeClaimList", APIVersion: "v1"},
		ListMeta: api.ListMeta{ResourceVersion: c.pvcs.ResourceVersion()},
		Items:    make([]api.PersistentVolumeClaim, 0, len(items)),
	}
	for _, it := range items {
		list.Items = append(list.Items, *it)
	}
	return list, nil
}

func (c *Client) GetPersistentVolumeClaim(ctx context.Context, name, namespace string) (*api.PersistentVolumeClaim, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	return c.pvcs.Get(name, namespace)
}

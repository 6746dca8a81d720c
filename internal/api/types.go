package api

import "time"

const (
	// GroupVersion is the API group/version served for the custom kinds.
	GroupVersion = "agents.example.dev/v1alpha1"

	// DefaultNamespace is assumed when a resource carries no namespace.
	DefaultNamespace = "default"
)

// TypeMeta describes an individual object in an API response or request
type TypeMeta struct {
	Kind       string `json:"kind,omitempty"`
	APIVersion string `json:"apiVersion,omitempty"`
}

// ObjectMeta is metadata that all persisted resources must have
type ObjectMeta struct {
	Name              string            `json:"name,omitempty"`
	Namespace         string            `json:"namespace,omitempty"` // default is "default"
	Labels            map[string]string `json:"labels,omitempty"`
	Annotations       map[string]string `json:"annotations,omitempty"`
	UID               string            `json:"uid,omitempty"`             // assigned once at creation
	ResourceVersion   string            `json:"resourceVersion,omitempty"` // store-assigned, monotonic
	CreationTimestamp time.Time         `json:"creationTimestamp,omitempty"`
}

// Object is implemented by every kind the versioned store can hold.
type Object interface {
	GetObjectMeta() *ObjectMeta
}

// ListMeta carries list-level metadata.
type ListMeta struct {
	ResourceVersion string `json:"resourceVersion,omitempty"`
}

// Lifecycle phases for the custom kinds.
const (
	PhasePending = "Pending"
	PhaseRunning = "Running"
	PhaseError   = "Error"
)

// ModelAPI exposes a served model endpoint.
type ModelAPI struct {
	TypeMeta   `json:",inline"`
	ObjectMeta `json:"metadata,omitempty"`

	Spec   ModelAPISpec   `json:"spec,omitempty"`
	Status ModelAPIStatus `json:"status,omitempty"`
}

type ModelAPISpec struct {
	Model    string `json:"model"`
	Mode     string `json:"mode,omitempty"` // Raw, OpenAI
	Replicas *int32 `json:"replicas,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

type ModelAPIStatus struct {
	Phase   string `json:"phase,omitempty"` // Pending, Running, Error
	Message string `json:"message,omitempty"`
}

func (m *ModelAPI) GetObjectMeta() *ObjectMeta { return &m.ObjectMeta }

// MCPServer runs a Model Context Protocol server for tool access.
type MCPServer struct {
	TypeMeta   `json:",inline"`
	ObjectMeta `json:"metadata,omitempty"`

	Spec   MCPServerSpec   `json:"spec,omitempty"`
	Status MCPServerStatus `json:"status,omitempty"`
}

type MCPServerSpec struct {
	Transport string   `json:"transport,omitempty"` // stdio, streamable-http
	Image     string   `json:"image,omitempty"`
	Tools     []string `json:"tools,omitempty"`
}

type MCPServerStatus struct {
	Phase   string `json:"phase,omitempty"`
	Message string `json:"message,omitempty"`
}

func (m *MCPServer) GetObjectMeta() *ObjectMeta { return &m.ObjectMeta }

// Agent wires a model to a set of MCP servers behind a system prompt.
type Agent struct {
	TypeMeta   `json:",inline"`
	ObjectMeta `json:"metadata,omitempty"`

	Spec   AgentSpec   `json:"spec,omitempty"`
	Status AgentStatus `json:"status,omitempty"`
}

type AgentSpec struct {
	ModelAPIRef   string   `json:"modelAPIRef"`
	MCPServerRefs []string `json:"mcpServerRefs,omitempty"`
	SystemPrompt  string   `json:"systemPrompt,omitempty"`
	Replicas      *int32   `json:"replicas,omitempty"`
}

type AgentStatus struct {
	Phase   string `json:"phase,omitempty"`
	Message string `json:"message,omitempty"`
}

func (a *Agent) GetObjectMeta() *ObjectMeta { return &a.ObjectMeta }

// Pod is a collection of containers that can run on a host. Read-only in the
// mock; populated from seed data.
type Pod struct {
	TypeMeta   `json:",inline"`
	ObjectMeta `json:"metadata,omitempty"`

	Spec   PodSpec   `json:"spec,omitempty"`
	Status PodStatus `json:"status,omitempty"`
}

type PodSpec struct {
	Containers []Container `json:"containers"`
	NodeName   string      `json:"nodeName,omitempty"`
}

type Container struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type PodStatus struct {
	Phase             string            `json:"phase,omitempty"` // Pending, Running, Succeeded, Failed, Unknown
	PodIP             string            `json:"podIP,omitempty"`
	ContainerStatuses []ContainerStatus `json:"containerStatuses,omitempty"`
}

type ContainerStatus struct {
	Name         string `json:"name"`
	Ready        bool   `json:"ready"`
	RestartCount int    `json:"restartCount"`
	Image        string `json:"image"`
}

func (p *Pod) GetObjectMeta() *ObjectMeta { return &p.ObjectMeta }

// Deployment enables declarative updates for Pods. Read-only in the mock.
type Deployment struct {
	TypeMeta   `json:",inline"`
	ObjectMeta `json:"metadata,omitempty"`

	Spec   DeploymentSpec   `json:"spec,omitempty"`
	Status DeploymentStatus `json:"status,omitempty"`
}

type DeploymentSpec struct {
	Replicas *int32            `json:"replicas,omitempty"`
	Selector map[string]string `json:"selector,omitempty"`
}

type DeploymentStatus struct {
	Replicas          int32 `json:"replicas,omitempty"`
	ReadyReplicas     int32 `json:"readyReplicas,omitempty"`
	AvailableReplicas int32 `json:"availableReplicas,omitempty"`
}

func (d *Deployment) GetObjectMeta() *ObjectMeta { return &d.ObjectMeta }

// PersistentVolumeClaim requests storage. Read-only in the mock.
type PersistentVolumeClaim struct {
	TypeMeta   `json:",inline"`
	ObjectMeta `json:"metadata,omitempty"`

	Spec   PVCSpec   `json:"spec,omitempty"`
	Status PVCStatus `json:"status,omitempty"`
}

type PVCSpec struct {
	StorageRequest string   `json:"storageRequest,omitempty"` // e.g. "10Gi"
	AccessModes    []string `json:"accessModes,omitempty"`    // ReadWriteOnce, ReadOnlyMany
	StorageClass   string   `json:"storageClassName,omitempty"`
}

type PVCStatus struct {
	Phase string `json:"phase,omitempty"` // Pending, Bound, Lost
}

func (p *PersistentVolumeClaim) GetObjectMeta() *ObjectMeta { return &p.ObjectMeta }

// List types
type ModelAPIList struct {
	TypeMeta `json:",inline"`
	ListMeta `json:"metadata,omitempty"`
	Items    []ModelAPI `json:"items"`
}

type MCPServerList struct {
	TypeMeta `json:",inline"`
	ListMeta `json:"metadata,omitempty"`
	Items    []MCPServer `json:"items"`
}

type AgentList struct {
	TypeMeta `json:",inline"`
	ListMeta `json:"metadata,omitempty"`
	Items    []Agent `json:"items"`
}

type PodList struct {
	TypeMeta `json:",inline"`
	ListMeta `json:"metadata,omitempty"`
	Items    []Pod `json:"items"`
}

type DeploymentList struct {
	TypeMeta `json:",inline"`
	ListMeta `json:"metadata,omitempty"`
	Items    []Deployment `json:"items"`
}

type PersistentVolumeClaimList struct {
	TypeMeta `json:",inline"`
	ListMeta `json:"metadata,omitempty"`
	Items    []PersistentVolumeClaim `json:"items"`
}

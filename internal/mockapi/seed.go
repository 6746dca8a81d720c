package mockapi

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentkube/mockcluster/internal/api"
)

// SeedData is the fixed initial data set loaded into the stores at
// construction. It is purely in-memory and reset on every restart.
type SeedData struct {
	ModelAPIs              []*api.ModelAPI              `json:"modelAPIs"`
	MCPServers             []*api.MCPServer             `json:"mcpServers"`
	Agents                 []*api.Agent                 `json:"agents"`
	Pods                   []*api.Pod                   `json:"pods"`
	Deployments            []*api.Deployment            `json:"deployments"`
	PersistentVolumeClaims []*api.PersistentVolumeClaim `json:"persistentVolumeClaims"`
}

// LoadSeed reads seed data from a YAML file. The YAML is decoded through a
// JSON round trip so field names follow the same json tags the API types use
// on the wire.
func LoadSeed(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert seed file: %w", err)
	}
	var seed SeedData
	if err := json.Unmarshal(jsonBytes, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &seed, nil
}

func int32Ptr(i int32) *int32 { return &i }

// DefaultSeed is the built-in demo data set.
func DefaultSeed() *SeedData {
	return &SeedData{
		ModelAPIs: []*api.ModelAPI{
			{
				TypeMeta:   api.TypeMeta{Kind: "ModelAPI", APIVersion: api.GroupVersion},
				ObjectMeta: api.ObjectMeta{Name: "llama-3-8b", Namespace: api.DefaultNamespace},
				Spec: api.ModelAPISpec{
					Model:    "meta-llama/Llama-3-8B-Instruct",
					Mode:     "OpenAI",
					Replicas: int32Ptr(2),
					Endpoint: "http://llama-3-8b.default.svc:8000/v1",
				},
				Status: api.ModelAPIStatus{Phase: api.PhaseRunning},
			},
			{
				TypeMeta:   api.TypeMeta{Kind: "ModelAPI", APIVersion: api.GroupVersion},
				ObjectMeta: api.ObjectMeta{Name: "qwen-coder", Namespace: api.DefaultNamespace},
				Spec: api.ModelAPISpec{
					Model:    "Qwen/Qwen2.5-Coder-7B",
					Mode:     "Raw",
					Replicas: int32Ptr(1),
				},
				Status: api.ModelAPIStatus{Phase: api.PhasePending},
			},
		},
		MCPServers: []*api.MCPServer{
			{
				TypeMeta:   api.TypeMeta{Kind: "MCPServer", APIVersion: api.GroupVersion},
				ObjectMeta: api.ObjectMeta{Name: "github-tools", Namespace: api.DefaultNamespace},
				Spec: api.MCPServerSpec{
					Transport: "streamable-http",
					Image:     "ghcr.io/example/mcp-github:latest",
					Tools:     []string{"search_issues", "create_pr"},
				},
				Status: api.MCPServerStatus{Phase: api.PhaseRunning},
			},
		},
		Agents: []*api.Agent{
			{
				TypeMeta:   api.TypeMeta{Kind: "Agent", APIVersion: api.GroupVersion},
				ObjectMeta: api.ObjectMeta{Name: "code-reviewer", Namespace: api.DefaultNamespace},
				Spec: api.AgentSpec{
					ModelAPIRef:   "llama-3-8b",
					MCPServerRefs: []string{"github-tools"},
					SystemPrompt:  "You review pull requests for correctness and style.",
					Replicas:      int32Ptr(1),
				},
				Status: api.AgentStatus{Phase: api.PhaseRunning},
			},
			{
				TypeMeta:   api.TypeMeta{Kind: "Agent", APIVersion: api.GroupVersion},
				ObjectMeta: api.ObjectMeta{Name: "issue-triager", Namespace: api.DefaultNamespace},
				Spec: api.AgentSpec{
					ModelAPIRef:  "qwen-coder",
					SystemPrompt: "You label and prioritize incoming issues.",
					Replicas:     int32Ptr(1),
				},
				Status: api.AgentStatus{Phase: api.PhasePending},
			},
		},
		Pods: []*api.Pod{
			{
				TypeMeta:   api.TypeMeta{Kind: "Pod", APIVersion: "v1"},
				ObjectMeta: api.ObjectMeta{Name: "llama-3-8b-0", Namespace: api.DefaultNamespace, Labels: map[string]string{"app": "llama-3-8b"}},
				Spec: api.PodSpec{
					Containers: []api.Container{{Name: "vllm", Image: "vllm/vllm-openai:v0.6.2"}},
					NodeName:   "gpu-node-1",
				},
				Status: api.PodStatus{
					Phase: "Running",
					PodIP: "10.244.1.17",
					ContainerStatuses: []api.ContainerStatus{
						{Name: "vllm", Ready: true, RestartCount: 0, Image: "vllm/vllm-openai:v0.6.2"},
					},
				},
			},
			{
				TypeMeta:   api.TypeMeta{Kind: "Pod", APIVersion: "v1"},
				ObjectMeta: api.ObjectMeta{Name: "code-reviewer-0", Namespace: api.DefaultNamespace, Labels: map[string]string{"app": "code-reviewer"}},
				Spec: api.PodSpec{
					Containers: []api.Container{{Name: "agent", Image: "ghcr.io/example/agent-runtime:1.4.0"}},
					NodeName:   "worker-2",
				},
				Status: api.PodStatus{
					Phase: "Running",
					PodIP: "10.244.2.31",
					ContainerStatuses: []api.ContainerStatus{
						{Name: "agent", Ready: true, RestartCount: 1, Image: "ghcr.io/example/agent-runtime:1.4.0"},
					},
				},
			},
		},
		Deployments: []*api.Deployment{
			{
				TypeMeta:   api.TypeMeta{Kind: "Deployment", APIVersion: "apps/v1"},
				ObjectMeta: api.ObjectMeta{Name: "llama-3-8b", Namespace: api.DefaultNamespace},
				Spec:       api.DeploymentSpec{Replicas: int32Ptr(2), Selector: map[string]string{"app": "llama-3-8b"}},
				Status:     api.DeploymentStatus{Replicas: 2, ReadyReplicas: 2, AvailableReplicas: 2},
			},
		},
		PersistentVolumeClaims: []*api.PersistentVolumeClaim{
			{
				TypeMeta:   api.TypeMeta{Kind: "PersistentVolumeClaim", APIVersion: "v1"},
				ObjectMeta: api.ObjectMeta{Name: "model-weights", Namespace: api.DefaultNamespace},
				Spec:       api.PVCSpec{StorageRequest: "50Gi", AccessModes: []string{"ReadWriteOnce"}, StorageClass: "fast-ssd"},
				Status:     api.PVCStatus{Phase: "Bound"},
			},
		},
	}
}

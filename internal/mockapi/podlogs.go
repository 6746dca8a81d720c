package mockapi

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

var logSeverities = []string{"INFO", "INFO", "INFO", "INFO", "DEBUG", "WARN", "ERROR"}

// GetPodLogs synthesizes tailLines log lines for a pod, oldest first with
// monotonically increasing timestamps. Fails NotFound if the pod does not
// exist. Stateless beyond the pod lookup.
func (c *Client) GetPodLogs(ctx context.Context, name, namespace string, tailLines int) (string, error) {
	if err := c.guard(ctx); err != nil {
		return "", err
	}
	pod, err := c.pods.Get(name, namespace)
	if err != nil {
		return "", err
	}
	if tailLines <= 0 {
		tailLines = 100
	}

	container := "main"
	if len(pod.Spec.Containers) > 0 {
		container = pod.Spec.Containers[0].Name
	}

	start := time.Now().UTC().Add(-time.Duration(tailLines) * time.Second)
	lines := make([]string, 0, tailLines)
	for i := 0; i < tailLines; i++ {
		ts := start.Add(time.Duration(i) * time.Second)
		sev := logSeverities[rand.Intn(len(logSeverities))]
		lines = append(lines, fmt.Sprintf("%s %s [%s] request handled path=/v1/chat/completions status=200 latency=%dms",
			ts.Format(time.RFC3339), sev, container, 10+rand.Intn(240)))
	}
	return strings.Join(lines, "\n"), nil
}

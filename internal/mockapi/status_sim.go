package mockapi

import (
	"math/rand"
	"time"

	"github.com/agentkube/mockcluster/internal/api"
)

var simulatedPhases = []string{api.PhaseRunning, api.PhasePending, api.PhaseError}

// runStatusSimulation mimics asynchronous reconciliation: every tick it picks
// a random agent and flips its phase to a random target if it differs. The
// change goes through the store's Update so watchers see a real MODIFIED
// event and the version counter advances.
func (c *Client) runStatusSimulation(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.simulateAgentStatus()
		}
	}
}

func (c *Client) simulateAgentStatus() {
	agents, err := c.agents.List("")
	if err != nil || len(agents) == 0 {
		return
	}
	agent := agents[rand.Intn(len(agents))]
	target := simulatedPhases[rand.Intn(len(simulatedPhases))]
	if agent.Status.Phase == target {
		return
	}

	agent.Status.Phase = target
	if target == api.PhaseError {
		agent.Status.Message = "simulated failure: agent runtime exited, restarting"
	} else {
		agent.Status.Message = ""
	}

	if _, err := c.agents.Update(agent); err != nil {
		// A concurrent writer won the race; next tick tries again.
		c.log.Warn("status simulation update failed", "agent", agent.Name, "err", err)
		return
	}
	c.log.Debug("simulated agent phase change", "agent", agent.Name, "phase", target)
}

package model

// NodeID is the handle for a node in a model graph. Names are resolved to
// NodeIDs once, when a model or sampler is constructed; nothing in a sampler
// hot path looks nodes up by string.
type NodeID int

// A LogDensityFunc evaluates the log-density of a stochastic node's value
// given its parents' current values. It must be a pure function: chains
// share these closures across clones.
type LogDensityFunc func(value float64, parents []float64) float64

// A DetermineFunc computes a deterministic node's value from its parents'
// current values. It must be a pure function.
type DetermineFunc func(parents []float64) float64

// Node represents a single named scalar in a model graph. A node is either
// stochastic (it has a log-density of its own value given its parents) or
// deterministic (its value is a pure function of its parents). Nodes are
// immutable after the model is built; all mutable state (values, cached
// log-densities) lives in the owning Model's stores.
type Node struct {
	ID      NodeID   // Dense index, also the topological order
	Name    string   // Unique name within the owning model
	Parents []NodeID // Direct parents (always lower IDs)

	LogDensity LogDensityFunc // Set for stochastic nodes only
	Determine  DetermineFunc  // Set for deterministic nodes only

	dependents []NodeID // Direct children, in add order
}

// Stochastic is true when the node carries its own log-density.
func (n *Node) Stochastic() bool {
	return n.LogDensity != nil
}

// Check returns an error if any problem is found
func (n *Node) Check() error {
	if n.ID < 0 {
		return ConfigErrorf("Node %s has invalid ID %d", n.Name, n.ID)
	}
	if len(n.Name) < 1 {
		return ConfigErrorf("Node %d has an empty name", n.ID)
	}

	if (n.LogDensity == nil) == (n.Determine == nil) {
		return ConfigErrorf("Node %s must be exactly one of stochastic or deterministic", n.Name)
	}

	for _, p := range n.Parents {
		if p < 0 || p >= n.ID {
			return ConfigErrorf("Node %s has parent %d outside [0,%d)", n.Name, p, n.ID)
		}
	}

	return nil
}

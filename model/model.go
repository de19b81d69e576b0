package model

import (
	"math"
	"sort"
)

// Store selects one of a model's two value/log-probability stores for bulk
// copies: the live state the samplers mutate, and the saved state holding the
// last accepted values.
type Store int

// The two stores every model carries.
const (
	Live Store = iota
	Saved
)

// Model is a directed graph of scalar nodes plus the live and saved stores
// for their values and cached log-densities. Nodes must be added parents
// first, so node IDs are a topological order of the graph. The graph is
// immutable once built; per-run mutable state is confined to the stores, so
// a Clone is cheap and two clones never share mutable state.
type Model struct {
	Name string

	nodes  []*Node
	byName map[string]NodeID

	vals     []float64
	logProbs []float64

	savedVals     []float64
	savedLogProbs []float64

	scratch []float64 // parent-value buffer, sized to the widest node
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{
		Name:   name,
		byName: make(map[string]NodeID),
	}
}

func (m *Model) addNode(n *Node, init float64) (NodeID, error) {
	if _, ok := m.byName[n.Name]; ok {
		return -1, ConfigErrorf("Duplicate node name %s in model %s", n.Name, m.Name)
	}
	if err := n.Check(); err != nil {
		return -1, err
	}

	for _, p := range n.Parents {
		m.nodes[p].dependents = append(m.nodes[p].dependents, n.ID)
	}

	m.nodes = append(m.nodes, n)
	m.byName[n.Name] = n.ID

	m.vals = append(m.vals, init)
	m.logProbs = append(m.logProbs, 0)
	m.savedVals = append(m.savedVals, init)
	m.savedLogProbs = append(m.savedLogProbs, 0)

	if len(n.Parents) > len(m.scratch) {
		m.scratch = make([]float64, len(n.Parents))
	}

	return n.ID, nil
}

func (m *Model) resolveParents(parents []string) ([]NodeID, error) {
	ids := make([]NodeID, len(parents))
	for i, p := range parents {
		id, ok := m.byName[p]
		if !ok {
			return nil, ConfigErrorf("Unknown parent node %s in model %s", p, m.Name)
		}
		ids[i] = id
	}
	return ids, nil
}

// AddStochastic appends a stochastic node with the given log-density and
// initial value. Parents must already exist.
func (m *Model) AddStochastic(name string, parents []string, ld LogDensityFunc, init float64) (NodeID, error) {
	pids, err := m.resolveParents(parents)
	if err != nil {
		return -1, err
	}

	n := &Node{
		ID:         NodeID(len(m.nodes)),
		Name:       name,
		Parents:    pids,
		LogDensity: ld,
	}

	return m.addNode(n, init)
}

// AddDeterministic appends a deterministic node. Its initial value is
// computed immediately from its parents' current values.
func (m *Model) AddDeterministic(name string, parents []string, fn DetermineFunc) (NodeID, error) {
	pids, err := m.resolveParents(parents)
	if err != nil {
		return -1, err
	}

	n := &Node{
		ID:        NodeID(len(m.nodes)),
		Name:      name,
		Parents:   pids,
		Determine: fn,
	}

	if fn == nil {
		return -1, ConfigErrorf("Node %s must be exactly one of stochastic or deterministic", name)
	}

	pv := make([]float64, len(pids))
	for i, p := range pids {
		pv[i] = m.vals[p]
	}

	return m.addNode(n, fn(pv))
}

// Lookup resolves a node name to its handle.
func (m *Model) Lookup(name string) (NodeID, error) {
	id, ok := m.byName[name]
	if !ok {
		return -1, ConfigErrorf("No node named %s in model %s", name, m.Name)
	}
	return id, nil
}

// Node returns the (immutable) node for a handle.
func (m *Model) Node(id NodeID) *Node {
	return m.nodes[id]
}

// Len returns the node count.
func (m *Model) Len() int {
	return len(m.nodes)
}

// AllNodes returns every node handle in topological order.
func (m *Model) AllNodes() []NodeID {
	ids := make([]NodeID, len(m.nodes))
	for i := range m.nodes {
		ids[i] = NodeID(i)
	}
	return ids
}

// Get reads a node's current (live) value.
func (m *Model) Get(id NodeID) float64 {
	return m.vals[id]
}

// Set writes a node's current (live) value. Dependents are NOT recomputed;
// callers follow a Set with Calculate over the affected dependency set.
func (m *Model) Set(id NodeID, v float64) {
	m.vals[id] = v
}

// Dependencies returns the nodes whose values or log-densities change when
// the given nodes change: the nodes themselves (when includeSelf is true),
// every deterministic descendant reachable through deterministic paths, and
// the stochastic nodes at the frontier of those paths. Traversal does not
// continue past a stochastic node - given its value, deeper densities are
// unaffected. The result is in topological (ascending handle) order.
func (m *Model) Dependencies(ids []NodeID, includeSelf bool) []NodeID {
	seen := make(map[NodeID]bool, len(ids)*4)

	var visit func(id NodeID)
	visit = func(id NodeID) {
		for _, d := range m.nodes[id].dependents {
			if seen[d] {
				continue
			}
			seen[d] = true
			if !m.nodes[d].Stochastic() {
				visit(d)
			}
		}
	}

	for _, id := range ids {
		visit(id)
	}
	for _, id := range ids {
		if includeSelf {
			seen[id] = true
		} else {
			delete(seen, id)
		}
	}

	out := make([]NodeID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// Calculate recomputes the given nodes in order: deterministic nodes get new
// values, stochastic nodes get new cached log-densities. Returns the sum of
// the stochastic log-densities. The node list must be in topological order
// (Dependencies and AllNodes both are). A NaN log-density is a numerical
// error; -Inf is a legal value for a proposal into a zero-density region.
func (m *Model) Calculate(ids []NodeID) (float64, error) {
	total := 0.0
	for _, id := range ids {
		n := m.nodes[id]
		pv := m.parentVals(n)
		if n.Stochastic() {
			lp := n.LogDensity(m.vals[id], pv)
			if math.IsNaN(lp) {
				return 0, NumericErrorf("NaN log-density for node %s at value %v", n.Name, m.vals[id])
			}
			m.logProbs[id] = lp
			total += lp
		} else {
			m.vals[id] = n.Determine(pv)
		}
	}

	return total, nil
}

// CalculateAll recomputes every node. Chains call this once before their
// first iteration so all caches are valid.
func (m *Model) CalculateAll() (float64, error) {
	return m.Calculate(m.AllNodes())
}

// LogProb sums the already-cached log-densities for the given nodes without
// any recomputation.
func (m *Model) LogProb(ids []NodeID) float64 {
	total := 0.0
	for _, id := range ids {
		if m.nodes[id].Stochastic() {
			total += m.logProbs[id]
		}
	}
	return total
}

// Copy bulk-copies values (and optionally cached log-densities) for the
// given nodes between the live and saved stores. Accepting a proposal is
// Copy(Live, Saved, ...); rejecting is Copy(Saved, Live, ...).
func (m *Model) Copy(src Store, dst Store, ids []NodeID, withLogProb bool) {
	srcVals, srcLPs := m.store(src)
	dstVals, dstLPs := m.store(dst)

	for _, id := range ids {
		dstVals[id] = srcVals[id]
		if withLogProb {
			dstLPs[id] = srcLPs[id]
		}
	}
}

func (m *Model) store(s Store) ([]float64, []float64) {
	if s == Saved {
		return m.savedVals, m.savedLogProbs
	}
	return m.vals, m.logProbs
}

func (m *Model) parentVals(n *Node) []float64 {
	pv := m.scratch[:len(n.Parents)]
	for i, p := range n.Parents {
		pv[i] = m.vals[p]
	}
	return pv
}

// Clone returns a copy of the current model with independent stores. The
// node graph and density closures are shared: they are immutable and pure,
// so clones are safe to run on separate goroutines.
func (m *Model) Clone() *Model {
	cp := &Model{
		Name:          m.Name,
		nodes:         m.nodes,
		byName:        m.byName,
		vals:          make([]float64, len(m.vals)),
		logProbs:      make([]float64, len(m.logProbs)),
		savedVals:     make([]float64, len(m.savedVals)),
		savedLogProbs: make([]float64, len(m.savedLogProbs)),
		scratch:       make([]float64, len(m.scratch)),
	}

	copy(cp.vals, m.vals)
	copy(cp.logProbs, m.logProbs)
	copy(cp.savedVals, m.savedVals)
	copy(cp.savedLogProbs, m.savedLogProbs)

	return cp
}

// Check returns an error if there is a problem with the model
func (m *Model) Check() error {
	if len(m.nodes) < 1 {
		return ConfigErrorf("Model %s has no nodes", m.Name)
	}

	stochCount := 0
	for i, n := range m.nodes {
		if NodeID(i) != n.ID {
			return ConfigErrorf("Model %s node %s has ID %d at index %d", m.Name, n.Name, n.ID, i)
		}
		if err := n.Check(); err != nil {
			return err
		}
		if n.Stochastic() {
			stochCount++
		}
	}
	if stochCount < 1 {
		return ConfigErrorf("Model %s has no stochastic nodes - nothing to sample", m.Name)
	}

	return nil
}

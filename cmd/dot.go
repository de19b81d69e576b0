package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rjmcmc/rjmcmc/rand"
)

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Output the demo model graph in graphviz format",
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := newStartupParams()
		if err != nil {
			return err
		}
		return DotOutput(sp)
	},
}

// DotOutput builds the spike-and-slab demo model and writes a graphviz
// description of its parent->child edges.
func DotOutput(sp *startupParams) error {
	gen, err := rand.NewGenerator(sp.cfg.Seed)
	if err != nil {
		return err
	}

	xs, ys := spikeSlabData(gen, 8, 0.75)
	mod, err := spikeSlabModel(xs, ys, sp.cfg.Prior, true)
	if err != nil {
		return err
	}
	sp.verbosef("Model %s has %d nodes\n", mod.Name, mod.Len())

	// Start graph
	sp.out.Printf("strict digraph G {\n")

	for _, id := range mod.AllNodes() {
		n := mod.Node(id)
		shape := "ellipse"
		if !n.Stochastic() {
			shape = "box"
		}
		sp.out.Printf("    %q [shape=%s];\n", n.Name, shape)
	}

	for _, id := range mod.AllNodes() {
		n := mod.Node(id)
		for _, p := range n.Parents {
			sp.out.Printf("    %q -> %q;\n", mod.Node(p).Name, n.Name)
		}
	}

	// Finish graph
	sp.out.Printf("}\n")

	return nil
}

package shell

import (
	"errors"
	"sort"

	"github.com/abiosoft/ishell"

	"github.com/juruen/digitpad/classify"
)

type nodeValue struct {
	node  int
	value float32
}

// topNodes returns the n most active nodes, strongest first.
func topNodes(act []float32, n int) []nodeValue {
	nodes := make([]nodeValue, len(act))
	for i, v := range act {
		nodes[i] = nodeValue{node: i, value: v}
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].value > nodes[j].value })
	if len(nodes) > n {
		nodes = nodes[:n]
	}
	return nodes
}

func layersCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "layers",
		Help: "show the dense layers and their activations for the current grid",
		Func: func(c *ishell.Context) {
			dense, ok := ctx.Session.Classifier().(*classify.Dense)
			if !ok {
				c.Err(errors.New("layers needs a dense classifier"))
				return
			}

			acts, err := dense.Activations(ctx.Session.Input())
			if err != nil {
				c.Err(err)
				return
			}

			for i, l := range dense.Layers() {
				c.Printf("Layer %d: %s (%s) %d -> %d\n", i+1, l.Name, l.Activation, l.Inputs, l.Nodes)
				for _, nv := range topNodes(acts[i], 5) {
					c.Printf("  node %3d  %8.4f\n", nv.node, nv.value)
				}
			}
		},
	}
}

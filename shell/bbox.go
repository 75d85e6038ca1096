package shell

import (
	"github.com/abiosoft/ishell"
)

func bboxCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "bbox",
		Help: "show the bounding box of the ink",
		Func: func(c *ishell.Context) {
			box, ok := ctx.Session.BoundingBox()
			if !ok {
				c.Println("no ink")
				return
			}
			c.Printf("x: %d..%d y: %d..%d (%dx%d)\n", box.MinX, box.MaxX, box.MinY, box.MaxY, box.Width(), box.Height())
		},
	}
}

package shell

import (
	"context"

	"github.com/abiosoft/ishell"
)

func predictCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "predict",
		Help: "classify the current drawing",
		Func: func(c *ishell.Context) {
			p := ctx.Session.Predict(context.Background())
			if ctx.JSONOutput {
				if err := displayJSON(c, PredictionToJSON(p)); err != nil {
					c.Err(err)
				}
				return
			}
			c.Println(formatPrediction(p))
		},
	}
}

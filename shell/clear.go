package shell

import (
	"github.com/abiosoft/ishell"
)

func clearCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "clear",
		Help: "wipe the canvas",
		Func: func(c *ishell.Context) {
			ctx.Session.Clear()
			c.SetPrompt(ctx.prompt())
			c.Println("OK")
		},
	}
}

package shell

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/juruen/digitpad/config"
	"github.com/juruen/digitpad/session"
)

type ShellCtxt struct {
	Session    *session.Session
	Config     config.Config
	JSONOutput bool
}

func (ctx *ShellCtxt) prompt() string {
	return fmt.Sprintf("[digitpad %s]>", ctx.Session.State())
}

// RunShell starts the interactive shell, or runs args as a single command.
func RunShell(ctx *ShellCtxt, args []string) error {
	shell := ishell.New()

	shell.SetPrompt(ctx.prompt())

	shell.AddCmd(strokeCmd(ctx))
	shell.AddCmd(clearCmd(ctx))
	shell.AddCmd(gridCmd(ctx))
	shell.AddCmd(bboxCmd(ctx))
	shell.AddCmd(predictCmd(ctx))
	shell.AddCmd(layersCmd(ctx))
	shell.AddCmd(saveCmd(ctx))
	shell.AddCmd(loadCmd(ctx))
	shell.AddCmd(importCmd(ctx))
	shell.AddCmd(exportCmd(ctx))

	if len(args) > 0 {
		return shell.Process(args...)
	}

	shell.Printf("digitpad, canvas %dx%d, type help for commands\n", ctx.Config.Canvas.Width, ctx.Config.Canvas.Height)
	shell.Run()
	return nil
}

package shell

import (
	"github.com/abiosoft/ishell"
	flag "github.com/ogier/pflag"
)

func gridCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "grid",
		Help: "show the normalized grid",
		LongHelp: `Usage: grid [options]

Options:
  -r, --raw     print gray values instead of shades
  -i, --input   with --json, include the model input`,
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("grid", flag.ContinueOnError)
			raw := flagSet.BoolP("raw", "r", false, "print gray values")
			withInput := flagSet.BoolP("input", "i", false, "include model input")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}

			snap := ctx.Session.Snapshot()
			if ctx.JSONOutput {
				if err := displayJSON(c, SnapshotToJSON(snap, *withInput)); err != nil {
					c.Err(err)
				}
				return
			}

			if *raw {
				c.Print(renderRaw(snap.Grid))
				return
			}
			c.Print(renderGrid(snap.Grid))
		},
	}
}

package shell

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/juruen/digitpad/report"
)

func exportCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "export",
		Help:      "write the drawing, grid and prediction to a PDF",
		Completer: createFsEntryCompleter(),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing destination file"))
				return
			}
			dst := c.Args[0]
			if filepath.Ext(dst) == "" {
				dst += ".pdf"
			}

			p := ctx.Session.Predict(context.Background())
			sheet := report.Sheet{
				Title:     strings.TrimSuffix(filepath.Base(dst), filepath.Ext(dst)),
				Recording: ctx.Session.Recording(),
				Grid:      ctx.Session.Grid(),
				Digit:     p.Digit,
				Available: p.Available,
			}
			if err := report.Generate(dst, sheet); err != nil {
				c.Err(err)
				return
			}
			c.Println("exported to", dst)
		},
	}
}

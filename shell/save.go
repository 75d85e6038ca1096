package shell

import (
	"errors"
	"fmt"
	"os"

	"github.com/abiosoft/ishell"

	"github.com/juruen/digitpad/encoding/stroke"
)

func saveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "save",
		Help:      "save the strokes to a file",
		Completer: createFsEntryCompleter(),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing destination file"))
				return
			}
			dst := c.Args[0]

			rec := ctx.Session.Recording()
			data, err := rec.MarshalBinary()
			if err != nil {
				c.Err(err)
				return
			}
			if err := os.WriteFile(dst, data, 0644); err != nil {
				c.Err(fmt.Errorf("failed to write %s: %w", dst, err))
				return
			}
			c.Printf("saved %d strokes to %s\n", len(rec.Strokes), dst)
		},
	}
}

func loadCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "load",
		Help:      "replay strokes from a file",
		Completer: createFsEntryCompleter(),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing source file"))
				return
			}
			src := c.Args[0]

			data, err := os.ReadFile(src)
			if err != nil {
				c.Err(err)
				return
			}
			var rec stroke.Recording
			if err := rec.UnmarshalBinary(data); err != nil {
				c.Err(fmt.Errorf("failed to read %s: %w", src, err))
				return
			}

			ctx.Session.Replay(rec)
			c.SetPrompt(ctx.prompt())
			c.Print(renderGrid(ctx.Session.Grid()))
		},
	}
}

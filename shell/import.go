package shell

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/abiosoft/ishell"

	"github.com/juruen/digitpad/raster"
)

func importCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "import",
		Help:      "load an image onto the canvas",
		Completer: createFsEntryCompleter(),
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing image file"))
				return
			}

			img, err := decodeImage(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}

			ctx.Session.LoadImage(img)
			c.SetPrompt(ctx.prompt())
			c.Print(renderGrid(ctx.Session.Grid()))
		},
	}
}

func decodeImage(name string) (image.Image, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	img, err := raster.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("can't decode %s: %w", name, err)
	}
	return img, nil
}

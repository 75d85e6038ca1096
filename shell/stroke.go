package shell

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	flag "github.com/ogier/pflag"

	"github.com/juruen/digitpad/raster"
)

func strokeCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "stroke",
		Help: "draw a stroke through the given points",
		LongHelp: `Usage: stroke [options] x1 y1 [x2 y2 ...]

Coordinates are canvas pixels; points outside the canvas are clamped.

Options:
  -q, --quiet   don't print the grid afterwards`,
		Func: func(c *ishell.Context) {
			flagSet := flag.NewFlagSet("stroke", flag.ContinueOnError)
			quiet := flagSet.BoolP("quiet", "q", false, "don't print the grid")
			if err := flagSet.Parse(c.Args); err != nil {
				if err != flag.ErrHelp {
					c.Err(err)
				}
				return
			}

			points, err := parsePoints(flagSet.Args())
			if err != nil {
				c.Err(err)
				return
			}

			ctx.Session.PointerDown(points[0])
			for _, p := range points[1:] {
				ctx.Session.PointerMove(p)
			}
			ctx.Session.PointerUp()

			c.SetPrompt(ctx.prompt())
			if !*quiet {
				c.Print(renderGrid(ctx.Session.Grid()))
			}
		},
	}
}

func parsePoints(args []string) ([]raster.Point, error) {
	if len(args) == 0 {
		return nil, errors.New("missing points")
	}
	if len(args)%2 != 0 {
		return nil, errors.New("points need an x and a y")
	}

	points := make([]raster.Point, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		x, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, fmt.Errorf("bad x %q", args[i])
		}
		y, err := strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad y %q", args[i+1])
		}
		points = append(points, raster.Point{X: x, Y: y})
	}
	return points, nil
}

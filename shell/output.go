package shell

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/juruen/digitpad/normalize"
	"github.com/juruen/digitpad/session"
)

// from background to full ink
const shades = " .:-=+*#%@"

type GridJSON struct {
	State string                 `json:"state"`
	Box   *normalize.BoundingBox `json:"bbox,omitempty"`
	Grid  [][]int                `json:"grid"`
	Input []float32              `json:"input,omitempty"`
}

func SnapshotToJSON(snap session.Snapshot, withInput bool) GridJSON {
	out := GridJSON{
		State: snap.State.String(),
		Grid:  intRows(snap.Grid),
	}
	if snap.HasBox {
		box := snap.Box
		out.Box = &box
	}
	if withInput {
		out.Input = snap.Input
	}
	return out
}

// intRows avoids encoding/json turning []uint8 rows into base64.
func intRows(g normalize.Grid) [][]int {
	rows := make([][]int, g.Size())
	for y := range rows {
		rows[y] = make([]int, g.Size())
		for x := range rows[y] {
			rows[y][x] = int(g.At(x, y))
		}
	}
	return rows
}

func renderGrid(g normalize.Grid) string {
	var sb strings.Builder
	n := g.Size()
	sb.WriteString("+" + strings.Repeat("--", n) + "+\n")
	for y := 0; y < n; y++ {
		sb.WriteByte('|')
		for x := 0; x < n; x++ {
			ink := 255 - int(g.At(x, y))
			ch := shades[ink*(len(shades)-1)/255]
			sb.WriteByte(ch)
			sb.WriteByte(ch)
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("+" + strings.Repeat("--", n) + "+\n")
	return sb.String()
}

func renderRaw(g normalize.Grid) string {
	var sb strings.Builder
	for _, row := range g.Rows() {
		for i, v := range row {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%3d", v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatPrediction(p session.Prediction) string {
	if p.Available {
		return fmt.Sprintf("Prediction: %d", p.Digit)
	}
	if p.Err == normalize.ErrEmpty {
		return "Draw a digit to see prediction..."
	}
	return fmt.Sprintf("Prediction unavailable: %v", p.Err)
}

func displayJSON(c *ishell.Context, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	c.Println(string(output))
	return nil
}

type PredictionJSON struct {
	Digit     int    `json:"digit"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

func PredictionToJSON(p session.Prediction) PredictionJSON {
	out := PredictionJSON{Digit: p.Digit, Available: p.Available}
	if p.Err != nil {
		out.Error = p.Err.Error()
	}
	return out
}

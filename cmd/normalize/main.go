package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/juruen/digitpad/classify"
	"github.com/juruen/digitpad/config"
	"github.com/juruen/digitpad/log"
	"github.com/juruen/digitpad/normalize"
	"github.com/juruen/digitpad/raster"
)

func main() {
	inputName := flag.String("i", "", "image to normalize")
	outputName := flag.String("o", "", "output file, or output directory with -batch")
	batchDir := flag.String("batch", "", "normalize every image in this directory")
	csvOut := flag.Bool("csv", false, "write model input values as CSV instead of a PNG grid")
	classifyOut := flag.Bool("classify", false, "print the classified digit")
	configPath := flag.String("config", "", "config file")
	weights := flag.String("weights", "", "dense classifier weights, overrides the config")
	flag.Parse()

	err := run(*inputName, *outputName, *batchDir, *csvOut, *classifyOut, *configPath, *weights)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputName, outputName, batchDir string, csvOut, classifyOut bool, configPath, weights string) error {
	var cfg config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	if weights != "" {
		cfg.UseWeights(weights)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var c classify.Classifier
	if classifyOut {
		c, err = classify.FromConfig(cfg.Classifier)
		if err != nil {
			log.Warning.Printf("classifier unavailable: %v", err)
		}
	}

	n := normalize.New(cfg.NormalizeOptions())
	ctx := context.Background()

	if batchDir != "" {
		return batch(ctx, n, c, classifyOut, batchDir, outputName, csvOut, cfg.Batch.Parallelism)
	}
	return convert(ctx, n, c, classifyOut, inputName, outputName, csvOut)
}

func convert(ctx context.Context, n *normalize.Normalizer, c classify.Classifier, classifyOut bool, inputName, outputName string, csvOut bool) error {
	if inputName == "" {
		return errors.New("missing input file")
	}

	if outputName == "" {
		outputName = outputPath(inputName, "", csvOut)
	}

	grid, err := normalizeFile(n, inputName)
	if err == normalize.ErrEmpty {
		log.Warning.Printf("%s: %v", inputName, err)
	} else if err != nil {
		return err
	}

	if err := writeOutput(outputName, grid, csvOut); err != nil {
		return err
	}

	if classifyOut {
		fmt.Println(describe(ctx, c, grid, err))
	}
	return nil
}

func batch(ctx context.Context, n *normalize.Normalizer, c classify.Classifier, classifyOut bool, dir, outDir string, csvOut bool, parallelism int64) error {
	files, err := listImages(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("can't create output directory %w", err)
		}
	}

	results := normalizeAll(ctx, n, files, outDir, csvOut, parallelism)

	failed := 0
	var inputs []normalize.ModelInput
	var names []string
	for i, r := range results {
		if r.err != nil && r.err != normalize.ErrEmpty {
			log.Error.Printf("%s: %v", files[i], r.err)
			failed++
			continue
		}
		if r.err == normalize.ErrEmpty {
			log.Warning.Printf("%s: %v", files[i], r.err)
		}
		inputs = append(inputs, normalize.ToModelInput(r.grid))
		names = append(names, files[i])
	}

	if classifyOut {
		for i, res := range classify.Batch(ctx, c, inputs, parallelism) {
			if res.Err != nil {
				fmt.Printf("%s\tunavailable\t%v\n", names[i], res.Err)
				continue
			}
			fmt.Printf("%s\t%d\n", names[i], res.Digit)
		}
	}

	log.Info.Printf("normalized %d of %d images", len(files)-failed, len(files))
	if failed > 0 {
		return fmt.Errorf("%d images failed", failed)
	}
	return nil
}

type fileResult struct {
	grid normalize.Grid
	err  error
}

// normalizeAll converts files with at most parallelism workers. Results are
// in file order.
func normalizeAll(ctx context.Context, n *normalize.Normalizer, files []string, outDir string, csvOut bool, parallelism int64) []fileResult {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]fileResult, len(files))

	sem := semaphore.NewWeighted(parallelism)
	for i := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Trace.Printf("Failed to acquire semaphore: %v", err)
			for j := i; j < len(files); j++ {
				results[j].err = err
			}
			break
		}
		go func(i int) {
			defer sem.Release(1)
			grid, err := normalizeFile(n, files[i])
			if err != nil && err != normalize.ErrEmpty {
				results[i].err = err
				return
			}
			if werr := writeOutput(outputPath(files[i], outDir, csvOut), grid, csvOut); werr != nil {
				results[i].err = werr
				return
			}
			results[i] = fileResult{grid: grid, err: err}
		}(i)
	}

	// wait for all goroutines to finish
	if err := sem.Acquire(context.Background(), parallelism); err != nil {
		log.Trace.Printf("Failed to acquire semaphore: %v", err)
	}

	return results
}

func describe(ctx context.Context, c classify.Classifier, grid normalize.Grid, normErr error) string {
	if normErr == normalize.ErrEmpty {
		return "no ink, nothing to classify"
	}
	if c == nil {
		return "classifier unavailable"
	}
	digit, err := c.Classify(ctx, normalize.ToModelInput(grid))
	if err != nil {
		return fmt.Sprintf("classifier unavailable: %v", err)
	}
	return strconv.Itoa(digit)
}

// normalizeFile returns the grid for an image file. An image without ink
// yields the blank grid together with normalize.ErrEmpty.
func normalizeFile(n *normalize.Normalizer, path string) (normalize.Grid, error) {
	canvas, err := loadCanvas(path)
	if err != nil {
		return normalize.Grid{}, err
	}

	box, ok := n.ComputeBoundingBox(canvas)
	if !ok {
		return normalize.NewGrid(n.Options().GridSize), normalize.ErrEmpty
	}
	return n.Normalize(canvas, box), nil
}

func loadCanvas(path string) (*raster.Canvas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't open file %w", err)
	}

	img, err := raster.Decode(data)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "can't decode %s", path)
	}

	b := img.Bounds()
	return raster.FromImage(img, b.Dx(), b.Dy()), nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func outputPath(inputName, outDir string, csvOut bool) string {
	ext := ".png"
	if csvOut {
		ext = ".csv"
	}
	nameOnly := strings.TrimSuffix(inputName, filepath.Ext(inputName))
	if outDir != "" {
		nameOnly = filepath.Join(outDir, filepath.Base(nameOnly))
	}
	return nameOnly + "_grid" + ext
}

func writeOutput(outputName string, grid normalize.Grid, csvOut bool) error {
	outputFile, err := os.Create(outputName)
	if err != nil {
		return fmt.Errorf("can't create outputfile %w", err)
	}
	defer outputFile.Close()

	if csvOut {
		return writeCSV(outputFile, normalize.ToModelInput(grid))
	}
	return png.Encode(outputFile, grid.Image())
}

// writeCSV writes the model input as a single row of values.
func writeCSV(w io.Writer, input normalize.ModelInput) error {
	record := make([]string, len(input))
	for i, v := range input {
		record[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(record); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Command bintree-build reads a weighted point cloud from CSV, builds an
// adaptive k-d partition over it, and reports the resulting leaves (and,
// optionally, a grid-projected histogram, smoothed width field, or 2-D
// boundary lines) to stdout or to files.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davecheney/profile"

	flag "github.com/docker/docker/pkg/mflag"

	"github.com/voxelpart/bintree/binleaf"
	"github.com/voxelpart/bintree/bintree"
	"github.com/voxelpart/bintree/grid"
	"github.com/voxelpart/bintree/project"
)

var (
	dataFile   = flag.String([]string{"d", "-data"}, "", "input CSV of points, one per row")
	hasWeight  = flag.Bool([]string{"w", "-weighted"}, false, "treat the last CSV column as a per-point weight instead of weighting every point 1")
	leavesFile = flag.String([]string{"-leaves"}, "", "file to write the leaf report to (defaults to stdout)")
	histFile   = flag.String([]string{"-histogram"}, "", "file to write a grid-projected histogram to; requires -grid")
	widthsFile = flag.String([]string{"-widths"}, "", "file to write smoothed per-axis leaf widths to; requires -grid")
	boundsFile = flag.String([]string{"-boundaries"}, "", "file to write 2-D leaf boundary segments to (2-D trees only)")
	gridSpec   = flag.String([]string{"-grid"}, "", "comma-separated bin count per axis, e.g. 50,50, required for -histogram/-widths")

	minLeaf    = flag.Int([]string{"-min_leaf"}, 200, "a leaf is split only while its effective sample size is at least twice this value")
	maxAsymm   = flag.Float64([]string{"-max_asymmetry"}, 2.0, "maximum allowed ratio between a split's long and short axis widths")
	runProfile = flag.Bool([]string{"-profile"}, false, "cpu profile")
)

func main() {
	flag.Parse()

	if *runProfile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	if *dataFile == "" {
		fmt.Fprintf(os.Stderr, "Usage of bintree-build:\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(*dataFile)
	if err != nil {
		fatal("error opening data file", err.Error())
	}
	defer f.Close()

	data, err := parseCSV(f, *hasWeight)
	if err != nil {
		fatal("error parsing input data", err.Error())
	}
	if len(data.X) == 0 {
		fatal("no rows parsed from", *dataFile)
	}

	root := bintree.New(bintree.Config{
		Bounds:           inferBounds(data.X),
		Entries:          data.X,
		Weights:          data.W,
		MinLeafEntries:   *minLeaf,
		MaxAxisAsymmetry: *maxAsymm,
	})

	var g grid.Grid
	if *gridSpec != "" {
		g = parseGrid(*gridSpec, root)
		root.SetGridConstraint(g)
	}

	root.Build()

	if err := reportLeaves(root, *leavesFile); err != nil {
		fatal("error writing leaf report", err.Error())
	}

	if *histFile != "" {
		if g == nil {
			fatal("-histogram requires -grid")
		}
		if err := reportHistogram(root, g, *histFile); err != nil {
			fatal("error writing histogram", err.Error())
		}
	}

	if *widthsFile != "" {
		if g == nil {
			fatal("-widths requires -grid")
		}
		if err := reportWidths(root, g, *widthsFile); err != nil {
			fatal("error writing widths", err.Error())
		}
	}

	if *boundsFile != "" {
		if err := reportBoundaries(root, *boundsFile); err != nil {
			fatal("error writing boundaries", err.Error())
		}
	}
}

// inferBounds derives a bounding box tight enough to hold every point,
// padded outward by a relative epsilon so that points exactly on the
// input's min/max still satisfy binleaf's inclusive-both-sides InBin.
func inferBounds(x [][]float64) []binleaf.Bounds {
	d := len(x[0])
	mins := make([]float64, d)
	maxs := make([]float64, d)
	for a := 0; a < d; a++ {
		mins[a] = x[0][a]
		maxs[a] = x[0][a]
	}
	for _, row := range x {
		for a := 0; a < d; a++ {
			if row[a] < mins[a] {
				mins[a] = row[a]
			}
			if row[a] > maxs[a] {
				maxs[a] = row[a]
			}
		}
	}
	bounds := make([]binleaf.Bounds, d)
	for a := 0; a < d; a++ {
		width := maxs[a] - mins[a]
		if width == 0 {
			width = 1
		}
		pad := width * 1e-6
		bounds[a] = binleaf.Bounds{Min: mins[a] - pad, Max: maxs[a] + pad}
	}
	return bounds
}

func parseGrid(spec string, root *bintree.Node) *grid.Uniform {
	parts := strings.Split(spec, ",")
	if len(parts) != root.Dim() {
		fatal(fmt.Sprintf("-grid has %d axes, data has %d", len(parts), root.Dim()))
	}
	nbins := make([]int, len(parts))
	min := make([]float64, len(parts))
	max := make([]float64, len(parts))
	for a, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			fatal("invalid -grid bin count", p, err.Error())
		}
		nbins[a] = n
		min[a] = root.GetMin(a)
		max[a] = root.GetMax(a)
	}
	return grid.NewUniform(min, max, nbins)
}

func reportLeaves(root *bintree.Node, fName string) error {
	w, closeFn, err := openOutput(fName)
	if err != nil {
		return err
	}
	defer closeFn()

	bw := bufio.NewWriter(w)
	for _, leaf := range root.GetLeaves() {
		fmt.Fprintf(bw, "leaf %d: n=%d w=%g", leaf.Index(), leaf.NEntries(), leaf.SumOfWeights())
		for a := 0; a < leaf.Dim(); a++ {
			fmt.Fprintf(bw, " [%g,%g]", leaf.Min(a), leaf.Max(a))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func reportHistogram(root *bintree.Node, g grid.Grid, fName string) error {
	hist := project.FillHistogram(root, g)

	w, closeFn, err := openOutput(fName)
	if err != nil {
		return err
	}
	defer closeFn()

	bw := bufio.NewWriter(w)
	forEachGridCell(g, func(cell project.Cell) {
		fmt.Fprintf(bw, "%v %g\n", []int(cell), hist.At(cell))
	})
	return bw.Flush()
}

func reportWidths(root *bintree.Node, g grid.Grid, fName string) error {
	widths := project.FillWidths(root, g)

	w, closeFn, err := openOutput(fName)
	if err != nil {
		return err
	}
	defer closeFn()

	bw := bufio.NewWriter(w)
	forEachGridCell(g, func(cell project.Cell) {
		fmt.Fprintf(bw, "%v", []int(cell))
		for a := 0; a < g.Dim(); a++ {
			fmt.Fprintf(bw, " %g", widths.At(a, cell))
		}
		bw.WriteByte('\n')
	})
	return bw.Flush()
}

func reportBoundaries(root *bintree.Node, fName string) error {
	segments := project.GetBoundaryLines(root)

	w, closeFn, err := openOutput(fName)
	if err != nil {
		return err
	}
	defer closeFn()

	bw := bufio.NewWriter(w)
	for _, s := range segments {
		fmt.Fprintf(bw, "%g %g %g %g\n", s.A.X, s.A.Y, s.B.X, s.B.Y)
	}
	return bw.Flush()
}

func forEachGridCell(g grid.Grid, f func(project.Cell)) {
	d := g.Dim()
	idx := make([]int, d)
	nbins := make([]int, d)
	for a := 0; a < d; a++ {
		nbins[a] = g.NBins(a)
	}
	for {
		f(append(project.Cell(nil), idx...))
		a := d - 1
		for a >= 0 {
			idx[a]++
			if idx[a] < nbins[a] {
				break
			}
			idx[a] = 0
			a--
		}
		if a < 0 {
			return
		}
	}
}

func openOutput(fName string) (io.Writer, func() error, error) {
	if fName == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(fName)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func fatal(a ...interface{}) {
	fmt.Fprintln(os.Stderr, a...)
	os.Exit(1)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/newtonopt/internal/optimization"
	"github.com/copyleftdev/newtonopt/internal/optimization/functions"
)

type minimizeOptions struct {
	function         string
	start            []float64
	tolerance        float64
	maxIterations    int
	lineSearch       bool
	lineSearchMethod string
	output           string
}

// summary is the printed outcome of a run.
type summary struct {
	Function      string                        `json:"function"`
	Point         []float64                     `json:"point"`
	Value         float64                       `json:"value"`
	GradientNorm  float64                       `json:"gradient_norm"`
	Iterations    int                           `json:"iterations"`
	ReasonForExit optimization.ExitCondition    `json:"reason_for_exit"`
	LineSearch    *optimization.LineSearchStats `json:"line_search,omitempty"`
	Elapsed       string                        `json:"elapsed"`
}

func newMinimizeCmd(a *app) *cobra.Command {
	o := &minimizeOptions{}

	cmd := &cobra.Command{
		Use:   "minimize",
		Short: "Minimize a registered objective",
		Example: `  newton minimize --function rosenbrock --start -1.2,1
  newton minimize --function wood --line-search --line-search-method more-thuente`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMinimize(cmd, a, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.function, "function", "rosenbrock", "Objective to minimize (see 'newton functions')")
	f.Float64SliceVar(&o.start, "start", nil, "Initial guess, comma separated (default: the function's conventional start)")
	f.Float64Var(&o.tolerance, "tolerance", 0, "Gradient norm tolerance (default from configuration)")
	f.IntVar(&o.maxIterations, "max-iterations", 0, "Newton iteration budget (default from configuration)")
	f.BoolVar(&o.lineSearch, "line-search", false, "Run a line search along every Newton direction")
	f.StringVar(&o.lineSearchMethod, "line-search-method", "", "Line search: weak-wolfe, more-thuente, bisection or backtracking")
	f.StringVarP(&o.output, "output", "o", "text", "Output format: text or json")

	return cmd
}

func runMinimize(cmd *cobra.Command, a *app, o *minimizeOptions) error {
	if o.output != "text" && o.output != "json" {
		return fmt.Errorf("unknown output format %q", o.output)
	}

	def, ok := functions.Default().Lookup(o.function)
	if !ok {
		return fmt.Errorf("unknown function %q (want one of %s)", o.function, strings.Join(functions.Default().Names(), ", "))
	}
	start := o.start
	if len(start) == 0 {
		start = def.DefaultStart
	}
	if err := def.CheckDimension(len(start)); err != nil {
		return err
	}

	settings := a.cfg.Minimization
	flags := cmd.Flags()
	if flags.Changed("tolerance") {
		settings.GradientTolerance = o.tolerance
	}
	if flags.Changed("max-iterations") {
		settings.MaximumIterations = o.maxIterations
	}
	if flags.Changed("line-search") {
		settings.UseLineSearch = o.lineSearch
	}
	if flags.Changed("line-search-method") {
		settings.LineSearch.Method = o.lineSearchMethod
	}

	logger := a.logger.With(zap.String("function", def.Name))
	minimizer, err := settings.NewMinimizer(logger)
	if err != nil {
		return err
	}

	began := time.Now()
	result, err := minimizer.FindMinimum(def.New(), mat.NewVecDense(len(start), append([]float64(nil), start...)))
	elapsed := time.Since(began)
	if err != nil {
		if e, ok := optimization.IsOptimizationError(err); ok && e.Evaluation != nil && e.Evaluation.Point() != nil {
			logger.Info("Last evaluated point",
				zap.Float64s("point", mat.Col(nil, 0, e.Evaluation.Point())),
				zap.Float64("value", e.Evaluation.Value()),
			)
		}
		return err
	}

	s := summary{
		Function:      def.Name,
		Point:         mat.Col(nil, 0, result.MinimizingPoint()),
		Value:         result.FunctionInfoAtMinimum.Value(),
		Iterations:    result.Iterations,
		ReasonForExit: result.ReasonForExit,
		LineSearch:    result.LineSearch,
		Elapsed:       elapsed.String(),
	}
	if g, ok := result.FunctionInfoAtMinimum.(optimization.GradientEvaluation); ok {
		s.GradientNorm = floats.Norm(mat.Col(nil, 0, g.Gradient()), 2)
	}

	if o.output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	return printSummary(cmd.OutOrStdout(), s)
}

func printSummary(out io.Writer, s summary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "function\t%s\n", s.Function)
	fmt.Fprintf(w, "point\t%s\n", formatVector(s.Point))
	fmt.Fprintf(w, "value\t%g\n", s.Value)
	fmt.Fprintf(w, "gradient norm\t%g\n", s.GradientNorm)
	fmt.Fprintf(w, "iterations\t%d\n", s.Iterations)
	fmt.Fprintf(w, "exit\t%s\n", s.ReasonForExit)
	if s.LineSearch != nil {
		fmt.Fprintf(w, "line search iterations\t%d\n", s.LineSearch.TotalLineSearchIterations)
		fmt.Fprintf(w, "non-trivial line searches\t%d\n", s.LineSearch.IterationsWithNonTrivialLineSearch)
	}
	fmt.Fprintf(w, "elapsed\t%s\n", s.Elapsed)
	return w.Flush()
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', 10, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

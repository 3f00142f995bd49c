// Command cli runs a complete SIR sensitivity study from the terminal:
// sample, simulate, aggregate, analyze every outcome, and export the
// results as markdown, SVG and xlsx next to the JSON archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"episens/adapters/archive"
	"episens/adapters/excel"
	"episens/app"
	"episens/domain/core"
	"episens/domain/design"
	"episens/domain/experiment"
	"episens/internal"
	"episens/internal/chart"
	"episens/internal/epidemic"
	"episens/internal/report"
	"episens/internal/runner"

	"github.com/joho/godotenv"
)

func main() {
	baseSize := flag.Int("n", 128, "base sample size (total rows are n*(p+2))")
	reps := flag.Int("reps", 10, "stochastic replications per sample row")
	horizon := flag.Int("horizon", 150, "simulation steps per run")
	seed := flag.Int64("seed", 42, "sampling seed")
	secondOrder := flag.Bool("second-order", false, "estimate second-order interaction indices")
	population := flag.Int("population", 10000, "SIR population size")
	seeded := flag.Int("initial-infected", 10, "initially infected individuals")
	workers := flag.Int("workers", 8, "concurrent simulator invocations")
	outDir := flag.String("out", "./experiments", "output directory")
	name := flag.String("name", "sir-study", "experiment name")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}
	logger := internal.NewDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := archive.NewFileArchive(*outDir)
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}

	service := app.NewExperimentService(
		epidemic.NewSIR(),
		store,
		newConsoleObserver(),
		runner.Options{Workers: *workers, CellTimeout: time.Minute},
		logger,
	)

	space := epidemic.Space(*population, *seeded, *reps)
	bundle, err := service.RunExperiment(ctx, app.RunRequest{
		Name:        *name,
		Space:       space,
		BaseSize:    *baseSize,
		SecondOrder: *secondOrder,
		Seed:        *seed,
		Horizon:     *horizon,
		Reduction:   design.ReduceMean,
	})
	if err != nil {
		log.Fatalf("Experiment failed: %v", err)
	}
	fmt.Printf("Experiment %s: %d rows x %d replications, %d failed cells\n",
		bundle.Manifest.ID, bundle.Manifest.SampleCount, *reps, bundle.Manifest.FailedCells)

	// Scalar outcomes analyze at their single value; trajectories at the
	// epidemic peak, the step analysts care about.
	for _, o := range space.Outcomes {
		sel := experiment.TimeSelection{Mode: experiment.TimeFinal}
		if o.TimeSeries && o.Name == epidemic.OutcomeInfected {
			sel = experiment.TimeSelection{Mode: experiment.TimePeak}
		}
		rep, err := service.AnalyzeOutcome(ctx, app.AnalyzeRequest{
			ID:      bundle.Manifest.ID,
			Outcome: o.Name,
			Time:    sel,
		})
		if err != nil {
			log.Fatalf("Analysis of %q failed: %v", o.Name, err)
		}
		printReport(rep)
	}

	if err := export(service, bundle.Manifest.ID, *outDir); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	fmt.Printf("Wrote report.md, report.xlsx and one chart per outcome to %s\n", *outDir)
}

func printReport(rep *experiment.SensitivityReport) {
	fmt.Printf("\nOutcome %s:\n", rep.Outcome)
	for _, p := range rep.Parameters {
		fmt.Printf("  %-20s S1=%6.3f ±%.3f  ST=%6.3f ±%.3f\n",
			p.Name, p.S1, p.S1Conf, p.ST, p.STConf)
	}
}

// export writes the rendered artifacts for the finished experiment
func export(service *app.ExperimentService, id core.ExperimentID, dir string) error {
	bundle, err := service.GetExperiment(context.Background(), id)
	if err != nil {
		return err
	}

	md := report.Markdown(bundle)
	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(md), 0o644); err != nil {
		return err
	}
	for _, rep := range bundle.Reports {
		svg := chart.Render(rep)
		path := filepath.Join(dir, fmt.Sprintf("chart_%s.svg", rep.Outcome))
		if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
			return err
		}
	}
	return excel.NewReportWriter().Write(bundle, filepath.Join(dir, "report.xlsx"))
}

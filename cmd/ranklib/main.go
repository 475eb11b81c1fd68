// Command ranklib trains and evaluates tree-ensemble rankers on LETOR files.
//
//	ranklib -train train.txt -validate vali.txt -test test.txt -save lambdamart
//	ranklib -load lambdamart -test test.txt -metric ERR@10
//	ranklib -forest -train train.txt -save rf -plot curve.png
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/ranklib/config"
	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/metrics"
	"github.com/YuminosukeSato/ranklib/modelstore"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"github.com/YuminosukeSato/ranklib/pkg/log"
	"github.com/YuminosukeSato/ranklib/pkg/report"
	"github.com/YuminosukeSato/ranklib/pkg/telemetry"
	"github.com/YuminosukeSato/ranklib/rank/trees"
)

// Flags holds the command line.
type Flags struct {
	Config     string
	Train      string
	Validate   string
	Test       string
	Save       string
	Load       string
	Metric     string
	Forest     bool
	Plot       string
	Rank       string
	Prom       string
	Importance bool
}

func (f *Flags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "YAML configuration file")
	fs.StringVar(&f.Train, "train", "", "LETOR training file")
	fs.StringVar(&f.Validate, "validate", "", "LETOR validation file (enables early stopping)")
	fs.StringVar(&f.Test, "test", "", "LETOR test file to evaluate")
	fs.StringVar(&f.Save, "save", "", "store the trained model under this name")
	fs.StringVar(&f.Load, "load", "", "load a stored model instead of training")
	fs.StringVar(&f.Metric, "metric", "", "training and evaluation metric, e.g. NDCG@10")
	fs.BoolVar(&f.Forest, "forest", false, "train Random Forests instead of boosting")
	fs.StringVar(&f.Plot, "plot", "", "write the training curve to this image (png, svg, pdf)")
	fs.StringVar(&f.Rank, "rank", "", "write the test lists reordered by model score to this LETOR file")
	fs.StringVar(&f.Prom, "prom", "", "write training metrics in Prometheus text format to this file")
	fs.BoolVar(&f.Importance, "importance", false, "log split counts per feature")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		log.GetLogger().Error("ranklib failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("ranklib", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f Flags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.Train == "" && f.Load == "" {
		fs.Usage()
		return errors.NewValidationError("train", "either -train or -load is required", "")
	}

	cfg, err := config.Load(f.Config)
	if err != nil {
		return err
	}
	if f.Metric != "" {
		cfg.Training.Metric = f.Metric
		cfg.Forest.Boosting.Metric = f.Metric
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	level, _ := log.ParseLevel(cfg.Log.Level)
	prev := log.SetProvider(log.NewZerologProvider(stderr, level))
	defer log.SetProvider(prev)
	logger := log.GetLoggerWithName("cli")

	store, err := modelstore.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	var ranker modelstore.Ranker
	if f.Load != "" {
		h, r, err := modelstore.LoadRanker(ctx, store, f.Load)
		if err != nil {
			return err
		}
		logger.Info("model loaded",
			log.OperationKey, log.OperationLoad,
			log.ModelNameKey, h.Ranker,
		)
		ranker = r
	} else {
		r, err := train(ctx, &f, cfg, store, logger)
		if err != nil {
			return err
		}
		ranker = r
	}

	if f.Importance {
		logImportance(logger, ranker.FeatureImportance())
	}
	if f.Test != "" {
		return test(&f, cfg, ranker, logger)
	}
	return nil
}

func train(ctx context.Context, f *Flags, cfg *config.Config, store modelstore.Store, logger log.Logger) (modelstore.Ranker, error) {
	trainLists, err := data.ReadLETORFile(f.Train)
	if err != nil {
		return nil, err
	}
	var validation []*data.RankList
	if f.Validate != "" {
		if validation, err = data.ReadLETORFile(f.Validate); err != nil {
			return nil, err
		}
	}

	m := telemetry.NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		return nil, err
	}
	history := &trees.EvaluationHistory{}
	opts := []trees.Option{
		trees.WithLogger(log.GetLoggerWithName("trees")),
		trees.WithCallbacks(m.Callback(), trees.RecordEvaluation(history)),
	}

	start := time.Now()
	var (
		ranker     modelstore.Ranker
		rankerName string
		saveErr    error
	)
	if f.Forest {
		rankerName = trees.RandomForestsName
		rf, err := trees.NewRandomForests(cfg.Forest, opts...)
		if err != nil {
			return nil, err
		}
		forest, err := rf.Fit(ctx, trainLists, validation)
		m.ObserveRun(rankerName, runStatus(err), time.Since(start))
		if err != nil {
			return nil, err
		}
		ranker = forest
		if f.Save != "" {
			saveErr = modelstore.SaveForest(ctx, store, f.Save, rf.Header(), forest)
		}
	} else {
		opts = append(opts, trees.WithCallbacks(trees.LogEvaluation(logger, 10)))
		trainer, err := trees.NewTrainer(cfg.Training, opts...)
		if err != nil {
			return nil, err
		}
		rankerName = cfg.Training.Algorithm.DisplayName()
		history.Metric = trainer.Scorer().Name()
		ens, err := trainer.Fit(ctx, trainLists, validation)
		m.ObserveRun(rankerName, runStatus(err), time.Since(start))
		if err != nil {
			return nil, err
		}
		ranker = ens
		if f.Save != "" {
			saveErr = modelstore.SaveEnsemble(ctx, store, f.Save, trainer.Header(), ens)
		}
		if f.Plot != "" {
			if err := report.SaveCurve(f.Plot, history, report.CurveOptions{Title: rankerName}); err != nil {
				return nil, err
			}
		}
	}
	if saveErr != nil {
		return nil, saveErr
	}
	if f.Save != "" {
		logger.Info("model saved",
			log.OperationKey, log.OperationSave,
			log.ModelNameKey, rankerName,
			"store", store.Name(),
			"name", f.Save,
		)
	}
	if f.Plot != "" && f.Forest {
		logger.Warn("training curve is only drawn for boosting", log.ModelNameKey, rankerName)
	}
	if f.Prom != "" {
		if err := prometheus.WriteToTextfile(f.Prom, reg); err != nil {
			return nil, errors.Wrap(err, "write prometheus metrics")
		}
	}
	return ranker, nil
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return telemetry.StatusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return telemetry.StatusCanceled
	default:
		return telemetry.StatusFailure
	}
}

func test(f *Flags, cfg *config.Config, ranker modelstore.Ranker, logger log.Logger) error {
	lists, err := data.ReadLETORFile(f.Test)
	if err != nil {
		return err
	}
	name := cfg.Training.Metric
	if f.Forest {
		name = cfg.Forest.Boosting.Metric
	}
	scorer, err := metrics.NewScorer(name)
	if err != nil {
		return err
	}

	ranked := make([]*data.RankList, len(lists))
	for i, l := range lists {
		if ranked[i], err = ranker.Rank(l); err != nil {
			return errors.Wrapf(err, "rank query %s", l.QueryID())
		}
	}
	score, err := metrics.Evaluate(scorer, ranked)
	if err != nil {
		return err
	}
	logger.Info("test evaluation",
		log.OperationKey, log.OperationScore,
		log.PhaseKey, log.PhaseTesting,
		log.MetricNameKey, scorer.Name(),
		log.MetricValueKey, score,
		log.QueriesKey, len(lists),
		log.SamplesKey, data.CountPoints(lists),
	)

	if f.Rank != "" {
		out, err := os.Create(f.Rank)
		if err != nil {
			return errors.Wrapf(err, "create %s", f.Rank)
		}
		defer out.Close()
		if err := data.WriteLETOR(out, ranked); err != nil {
			return err
		}
		return out.Close()
	}
	return nil
}

func logImportance(logger log.Logger, counts map[int]int) {
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		if counts[ids[a]] != counts[ids[b]] {
			return counts[ids[a]] > counts[ids[b]]
		}
		return ids[a] < ids[b]
	})
	for _, id := range ids {
		logger.Info("feature importance", "feature", fmt.Sprintf("f%d", id), "splits", counts[id])
	}
}

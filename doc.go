// Package ranklib is a learning-to-rank toolkit for Go built on tree ensembles.
//
// It trains LambdaMART, MART and Random Forests rankers on LETOR-formatted
// relevance judgments, evaluates them with IR metrics and stores them in a
// readable text format.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/YuminosukeSato/ranklib/core/data"
//	    "github.com/YuminosukeSato/ranklib/metrics"
//	    "github.com/YuminosukeSato/ranklib/rank/trees"
//	)
//
//	func main() {
//	    train, err := data.ReadLETORFile("train.txt")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    params := trees.DefaultTrainingParams()
//	    params.NumTrees = 300
//	    trainer, err := trees.NewTrainer(params)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    ens, err := trainer.Fit(context.Background(), train, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    ranked, _ := ens.Rank(train[0])
//	    ndcg, _ := metrics.NewScorer("NDCG@10")
//	    log.Println(ndcg.Score(ranked))
//	}
//
// # Packages
//
//   - core/data: DataPoint, RankList, LETOR reader/writer, bootstrap sampling
//   - core/parallel: bounded fan-out over contiguous chunks
//   - metrics: NDCG, DCG, Precision, MAP and ERR scorers with swap deltas
//   - rank/trees: histograms, regression trees, boosting, Random Forests, model text format
//   - config: YAML and environment configuration
//   - modelstore: file and Redis model storage
//   - pkg/log, pkg/errors: structured logging and typed errors
//   - pkg/telemetry, pkg/report: Prometheus collectors and training curves
//
// The ranklib command (cmd/ranklib) wraps these packages for the command line.
package ranklib

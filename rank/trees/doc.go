/*
Package trees implements gradient-boosted regression trees for learning to
rank: LambdaMART, MART and a Random Forests bagging wrapper.

Training is histogram based. Every feature gets a bounded table of candidate
thresholds, each training sample is assigned to one threshold bin once per
run, and split search scans cumulative bin statistics instead of samples.
Child histograms are derived from their parent by subtraction.

# Basic usage

	params := trees.DefaultTrainingParams()
	params.NumTrees = 300
	trainer, err := trees.NewTrainer(params)
	if err != nil {
		return err
	}
	ens, err := trainer.Fit(ctx, train, validation)
	if err != nil {
		return err
	}
	ranked, err := ens.Rank(list)

Trained ensembles serialize to a line-oriented text format (see WriteModel
and ParseModel) that is stable across platforms and locales.

# Concurrency

Sorting, histogram construction, histogram updates, split search and
pseudo-response computation fan out over a fixed worker budget
(TrainingParams.Workers). Work is partitioned into contiguous chunks and
results are merged in chunk order, so the trained model does not depend on
the worker budget.
*/
package trees

package modelstore

import (
	"bytes"
	"context"
	"strings"

	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/rank/trees"
)

// Ranker is a loaded model that can score and order rank lists.
type Ranker interface {
	Score(p *data.DataPoint) (float64, error)
	ScoreList(rl *data.RankList) ([]float64, error)
	Rank(rl *data.RankList) (*data.RankList, error)
	FeatureImportance() map[int]int
}

var (
	_ Ranker = (*trees.Ensemble)(nil)
	_ Ranker = (*trees.Forest)(nil)
)

// SaveEnsemble serializes e with h and stores it under name.
func SaveEnsemble(ctx context.Context, s Store, name string, h trees.Header, e *trees.Ensemble) error {
	var buf bytes.Buffer
	if err := trees.WriteModel(&buf, h, e); err != nil {
		return err
	}
	return s.Save(ctx, name, buf.Bytes())
}

// SaveForest serializes f with h and stores it under name.
func SaveForest(ctx context.Context, s Store, name string, h trees.Header, f *trees.Forest) error {
	var buf bytes.Buffer
	if err := trees.WriteForest(&buf, h, f); err != nil {
		return err
	}
	return s.Save(ctx, name, buf.Bytes())
}

// LoadEnsemble loads and parses a boosted model.
func LoadEnsemble(ctx context.Context, s Store, name string) (trees.Header, *trees.Ensemble, error) {
	b, err := s.Load(ctx, name)
	if err != nil {
		return trees.Header{}, nil, err
	}
	return trees.ParseModel(bytes.NewReader(b))
}

// LoadRanker loads either a boosted model or a Random Forests model,
// depending on the ranker named in the first header line.
func LoadRanker(ctx context.Context, s Store, name string) (trees.Header, Ranker, error) {
	b, err := s.Load(ctx, name)
	if err != nil {
		return trees.Header{}, nil, err
	}
	first, _, _ := bytes.Cut(b, []byte("\n"))
	if strings.TrimSpace(strings.TrimPrefix(string(first), "##")) == trees.RandomForestsName {
		h, f, err := trees.ParseForest(bytes.NewReader(b))
		if err != nil {
			return trees.Header{}, nil, err
		}
		return h, f, nil
	}
	h, e, err := trees.ParseModel(bytes.NewReader(b))
	if err != nil {
		return trees.Header{}, nil, err
	}
	return h, e, nil
}

// Package report は学習履歴を学習曲線として描画します。
package report

import (
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"github.com/YuminosukeSato/ranklib/rank/trees"
)

// デフォルトの画像サイズ
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// CurveOptions は学習曲線の描画設定です。
type CurveOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

func (o CurveOptions) withDefaults() CurveOptions {
	if o.Title == "" {
		o.Title = "Training curve"
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// NewCurve は学習・検証スコアの推移を折れ線で表す plot を作成します。
// 横軸は1始まりのイテレーション番号です。
func NewCurve(h *trees.EvaluationHistory, opts CurveOptions) (*plot.Plot, error) {
	if h == nil || len(h.Train) == 0 {
		return nil, errors.NewEmptyDataError("report.NewCurve", "evaluation history is empty")
	}
	opts = opts.withDefaults()

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = h.Metric
	p.Add(plotter.NewGrid())

	series := []struct {
		name   string
		values []float64
	}{
		{"train", h.Train},
		{"validation", h.Validation},
	}
	for i, s := range series {
		if len(s.values) == 0 {
			continue
		}
		line, err := plotter.NewLine(toXYs(s.values))
		if err != nil {
			return nil, errors.Wrapf(err, "%s series", s.name)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = false
	p.Legend.Left = false
	return p, nil
}

func toXYs(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i + 1)
		pts[i].Y = v
	}
	return pts
}

// SaveCurve は学習曲線をファイルに保存します。形式は拡張子（.png, .svg, .pdf など）で決まります。
func SaveCurve(path string, h *trees.EvaluationHistory, opts CurveOptions) error {
	p, err := NewCurve(h, opts)
	if err != nil {
		return err
	}
	opts = opts.withDefaults()
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return errors.Wrapf(err, "save curve to %s", filepath.Base(path))
	}
	return nil
}

// WriteCurve は学習曲線を指定形式（"png", "svg" など）で w に書き込みます。
func WriteCurve(w io.Writer, format string, h *trees.EvaluationHistory, opts CurveOptions) error {
	p, err := NewCurve(h, opts)
	if err != nil {
		return err
	}
	opts = opts.withDefaults()
	wt, err := p.WriterTo(opts.Width, opts.Height, strings.ToLower(format))
	if err != nil {
		return errors.Wrapf(err, "unsupported curve format %q", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write curve")
	}
	return nil
}

package trees

import (
	"bufio"
	"encoding/xml"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// Header keys written to model files.
const (
	HeaderTrees         = "No. of trees"
	HeaderLeaves        = "No. of leaves"
	HeaderThresholds    = "No. of threshold candidates"
	HeaderLearningRate  = "Learning rate"
	HeaderStopEarly     = "Stop early"
	HeaderFeaturePolicy = "Feature policy"
	HeaderBags          = "No. of bags"
	HeaderSubSampling   = "Sub-sampling"
	HeaderFeatureSample = "Feature-sampling"
	HeaderInnerRanker   = "Base ranker"
)

// Header is the "## key = value" preamble of a model file. Its first line
// names the ranker.
type Header struct {
	Ranker  string
	Entries []HeaderEntry
}

// HeaderEntry is one key/value line.
type HeaderEntry struct {
	Key   string
	Value string
}

// Set replaces the value of key, appending it when absent.
func (h *Header) Set(key, value string) {
	for i := range h.Entries {
		if h.Entries[i].Key == key {
			h.Entries[i].Value = value
			return
		}
	}
	h.Entries = append(h.Entries, HeaderEntry{Key: key, Value: value})
}

// Get returns the value of key.
func (h Header) Get(key string) (string, bool) {
	for _, e := range h.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// FormatFloat renders v independent of locale: integral values with one
// decimal place, everything else with the shortest exact representation.
func FormatFloat(v float64) string {
	if !math.IsInf(v, 0) && v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteModel writes a header followed by one ensemble block. An ensemble
// without trees has nothing to write and yields a NotFittedError.
func WriteModel(w io.Writer, h Header, e *Ensemble) error {
	if e == nil || e.Len() == 0 {
		return errors.NewNotFittedError(h.Ranker, "WriteModel")
	}
	bw := bufio.NewWriter(w)
	writeHeader(bw, h)
	writeEnsemble(bw, e)
	return errors.Wrap(bw.Flush(), "write model")
}

// ModelString returns the text WriteModel would produce.
func ModelString(h Header, e *Ensemble) string {
	var sb strings.Builder
	_ = WriteModel(&sb, h, e)
	return sb.String()
}

func writeHeader(w *bufio.Writer, h Header) {
	if h.Ranker != "" {
		w.WriteString("## " + h.Ranker + "\n")
	}
	for _, e := range h.Entries {
		w.WriteString("## " + e.Key + " = " + e.Value + "\n")
	}
	w.WriteString("\n")
}

func writeEnsemble(w *bufio.Writer, e *Ensemble) {
	w.WriteString("<ensemble>\n")
	for i, t := range e.trees {
		w.WriteString("\t<tree id=\"" + strconv.Itoa(i+1) + "\" weight=\"" + FormatFloat(e.weights[i]) + "\">\n")
		writeSplit(w, t.root, "", 2)
		w.WriteString("\t</tree>\n")
	}
	w.WriteString("</ensemble>\n")
}

func writeSplit(w *bufio.Writer, s *Split, pos string, depth int) {
	indent := strings.Repeat("\t", depth)
	if pos == "" {
		w.WriteString(indent + "<split>\n")
	} else {
		w.WriteString(indent + "<split pos=\"" + pos + "\">\n")
	}
	if s.IsLeaf() {
		w.WriteString(indent + "\t<output> " + FormatFloat(s.output) + " </output>\n")
	} else {
		w.WriteString(indent + "\t<feature> " + strconv.Itoa(s.featureID) + " </feature>\n")
		w.WriteString(indent + "\t<threshold> " + FormatFloat(s.threshold) + " </threshold>\n")
		writeSplit(w, s.left, "left", depth+1)
		writeSplit(w, s.right, "right", depth+1)
	}
	w.WriteString(indent + "</split>\n")
}

// ParseModel reads a model written by WriteModel. Exactly one ensemble block
// is expected.
func ParseModel(r io.Reader) (Header, *Ensemble, error) {
	h, ensembles, err := parseDocument(r)
	if err != nil {
		return Header{}, nil, err
	}
	if len(ensembles) != 1 {
		return Header{}, nil, errors.NewParseError("model", 0, "ensemble",
			errors.Newf("expected one ensemble block, found %d", len(ensembles)))
	}
	return h, ensembles[0], nil
}

// ParseModelString is ParseModel over a string.
func ParseModelString(s string) (Header, *Ensemble, error) {
	return ParseModel(strings.NewReader(s))
}

// xmlEnsemble keeps the source line of every tree so errors can point at it.
type xmlEnsemble struct {
	trees []xmlTree
	lines []int
}

type xmlTree struct {
	ID      string       `xml:"id,attr"`
	Weight  *string      `xml:"weight,attr"`
	Splits  []xmlSplit   `xml:"split"`
	Unknown []xmlUnknown `xml:",any"`
}

type xmlSplit struct {
	Pos       string       `xml:"pos,attr"`
	Feature   *string      `xml:"feature"`
	Threshold *string      `xml:"threshold"`
	Output    *string      `xml:"output"`
	Children  []xmlSplit   `xml:"split"`
	Unknown   []xmlUnknown `xml:",any"`
}

// xmlUnknown catches any element the format does not define.
type xmlUnknown struct {
	XMLName xml.Name
}

func unknownElement(u []xmlUnknown) error {
	return errors.Newf("unexpected element <%s>", u[0].XMLName.Local)
}

func parseDocument(r io.Reader) (Header, []*Ensemble, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Header{}, nil, errors.Wrap(err, "read model")
	}

	var h Header
	lines := strings.SplitAfter(string(raw), "\n")
	bodyStart := len(lines)
	for i, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if !strings.HasPrefix(text, "#") {
			bodyStart = i
			break
		}
		text = strings.TrimSpace(strings.TrimLeft(text, "#"))
		if k, v, ok := strings.Cut(text, "="); ok {
			h.Entries = append(h.Entries, HeaderEntry{Key: strings.TrimSpace(k), Value: strings.TrimSpace(v)})
		} else if h.Ranker == "" {
			h.Ranker = text
		}
	}

	dec := xml.NewDecoder(strings.NewReader(strings.Join(lines[bodyStart:], "")))
	lineOf := func() int {
		l, _ := dec.InputPos()
		return bodyStart + l
	}

	var ensembles []*Ensemble
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Header{}, nil, errors.NewParseError("model", lineOf(), "xml", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "ensemble" {
				return Header{}, nil, errors.NewParseError("model", lineOf(), "ensemble",
					errors.Newf("unexpected element <%s>", t.Name.Local))
			}
			xe, err := decodeEnsemble(dec, lineOf)
			if err != nil {
				return Header{}, nil, err
			}
			e, err := xe.build()
			if err != nil {
				return Header{}, nil, err
			}
			if p, ok := h.Get(HeaderFeaturePolicy); ok {
				policy, err := data.ParseFeaturePolicy(p)
				if err != nil {
					return Header{}, nil, errors.NewParseError("model", 0, "feature policy", err)
				}
				e.policy = policy
			}
			ensembles = append(ensembles, e)
		case xml.CharData:
			if len(strings.TrimSpace(string(t))) > 0 {
				return Header{}, nil, errors.NewParseError("model", lineOf(), "ensemble",
					errors.Newf("unexpected text %q", strings.TrimSpace(string(t))))
			}
		}
	}
	if len(ensembles) == 0 {
		return Header{}, nil, errors.NewParseError("model", 0, "ensemble", errors.New("no ensemble block"))
	}
	return h, ensembles, nil
}

// decodeEnsemble reads the children of an <ensemble> element one tree at a
// time. Only <tree> children are allowed and at least one is required.
func decodeEnsemble(dec *xml.Decoder, lineOf func() int) (xmlEnsemble, error) {
	start := lineOf()
	var xe xmlEnsemble
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return xe, errors.NewParseError("model", lineOf(), "ensemble", errors.New("unterminated block"))
		}
		if err != nil {
			return xe, errors.NewParseError("model", lineOf(), "ensemble", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			line := lineOf()
			if t.Name.Local != "tree" {
				return xe, errors.NewParseError("model", line, "ensemble",
					errors.Newf("unexpected element <%s>", t.Name.Local))
			}
			var xt xmlTree
			if err := dec.DecodeElement(&xt, &t); err != nil {
				return xe, errors.NewParseError("model", lineOf(), "tree", err)
			}
			xe.trees = append(xe.trees, xt)
			xe.lines = append(xe.lines, line)
		case xml.CharData:
			if text := strings.TrimSpace(string(t)); text != "" {
				return xe, errors.NewParseError("model", lineOf(), "ensemble",
					errors.Newf("unexpected text %q", text))
			}
		case xml.EndElement:
			if len(xe.trees) == 0 {
				return xe, errors.NewParseError("model", start, "ensemble", errors.New("no trees"))
			}
			return xe, nil
		}
	}
}

func (xe xmlEnsemble) build() (*Ensemble, error) {
	e := NewEnsemble()
	for i, xt := range xe.trees {
		line := xe.lines[i]
		if len(xt.Unknown) > 0 {
			return nil, errors.NewParseError("model", line, "tree", unknownElement(xt.Unknown))
		}
		if xt.Weight == nil {
			return nil, errors.NewParseError("model", line, "weight", errors.Newf("tree %d has no weight", i+1))
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(*xt.Weight), 64)
		if err != nil {
			return nil, errors.NewParseError("model", line, "weight", err)
		}
		if len(xt.Splits) != 1 {
			return nil, errors.NewParseError("model", line, "split",
				errors.Newf("tree %d must have exactly one root split, found %d", i+1, len(xt.Splits)))
		}
		root, err := xt.Splits[0].build(line)
		if err != nil {
			return nil, err
		}
		e.Add(NewRegressionTree(root), w)
	}
	return e, nil
}

func (xs xmlSplit) build(line int) (*Split, error) {
	if len(xs.Unknown) > 0 {
		return nil, errors.NewParseError("model", line, "split", unknownElement(xs.Unknown))
	}
	if xs.Output != nil {
		if xs.Feature != nil || xs.Threshold != nil || len(xs.Children) > 0 {
			return nil, errors.NewParseError("model", line, "output", errors.New("leaf carries a test or children"))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(*xs.Output), 64)
		if err != nil {
			return nil, errors.NewParseError("model", line, "output", err)
		}
		return &Split{output: v}, nil
	}

	if xs.Feature == nil {
		return nil, errors.NewParseError("model", line, "feature", errors.New("missing"))
	}
	if xs.Threshold == nil {
		return nil, errors.NewParseError("model", line, "threshold", errors.New("missing"))
	}
	fid, err := strconv.Atoi(strings.TrimSpace(*xs.Feature))
	if err != nil {
		return nil, errors.NewParseError("model", line, "feature", err)
	}
	if fid < 1 {
		return nil, errors.NewParseError("model", line, "feature", errors.Newf("id %d is not positive", fid))
	}
	th, err := strconv.ParseFloat(strings.TrimSpace(*xs.Threshold), 64)
	if err != nil {
		return nil, errors.NewParseError("model", line, "threshold", err)
	}
	if len(xs.Children) != 2 {
		return nil, errors.NewParseError("model", line, "split",
			errors.Newf("internal node needs two children, found %d", len(xs.Children)))
	}

	var left, right *xmlSplit
	for i := range xs.Children {
		switch xs.Children[i].Pos {
		case "left":
			left = &xs.Children[i]
		case "right":
			right = &xs.Children[i]
		}
	}
	if left == nil || right == nil {
		return nil, errors.NewParseError("model", line, "split", errors.New("children must be tagged left and right"))
	}

	s := &Split{featureID: fid, threshold: th}
	if s.left, err = left.build(line); err != nil {
		return nil, err
	}
	if s.right, err = right.build(line); err != nil {
		return nil, err
	}
	return s, nil
}

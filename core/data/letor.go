package data

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// ReadLETORFile reads a LETOR/SVMLight ranking file from disk.
func ReadLETORFile(path string) ([]*RankList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadLETOR(f)
}

// ReadLETOR parses lines of the form
//
//	<label> qid:<id> <fid>:<value> ... [# description]
//
// Consecutive lines with the same qid form one RankList. Feature ids are
// 1-based; sparse vectors are densified up to the largest id in the input so
// every point has the same length. Blank lines and lines starting with '#'
// are skipped.
func ReadLETOR(r io.Reader) ([]*RankList, error) {
	type row struct {
		label float64
		qid   string
		desc  string
		feats map[int]float64
	}

	var (
		rows   []row
		maxFID int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var desc string
		if i := strings.IndexByte(line, '#'); i >= 0 {
			desc = strings.TrimSpace(line[i+1:])
			line = strings.TrimSpace(line[:i])
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, errors.NewParseError("letor", lineNo, "line", errors.New("expected label and qid"))
		}

		label, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.NewParseError("letor", lineNo, "label", err)
		}
		if label < 0 {
			return nil, errors.NewParseError("letor", lineNo, "label", errors.Newf("negative relevance %v", label))
		}
		qid, ok := strings.CutPrefix(fields[1], "qid:")
		if !ok || qid == "" {
			return nil, errors.NewParseError("letor", lineNo, "qid", errors.Newf("got %q", fields[1]))
		}

		feats := make(map[int]float64, len(fields)-2)
		for _, tok := range fields[2:] {
			k, v, found := strings.Cut(tok, ":")
			if !found {
				return nil, errors.NewParseError("letor", lineNo, "feature", errors.Newf("got %q", tok))
			}
			fid, err := strconv.Atoi(k)
			if err != nil {
				return nil, errors.NewParseError("letor", lineNo, "feature id", err)
			}
			if fid < 1 {
				return nil, errors.NewParseError("letor", lineNo, "feature id", errors.Newf("id %d is not positive", fid))
			}
			val, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.NewParseError("letor", lineNo, "feature value", err)
			}
			feats[fid] = val
			maxFID = max(maxFID, fid)
		}
		rows = append(rows, row{label: label, qid: qid, desc: desc, feats: feats})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read letor")
	}

	var (
		lists   []*RankList
		current []*DataPoint
	)
	flush := func() {
		if len(current) > 0 {
			lists = append(lists, &RankList{points: current})
			current = nil
		}
	}
	for _, rw := range rows {
		if len(current) > 0 && current[0].QueryID != rw.qid {
			flush()
		}
		dense := make([]float64, maxFID)
		for fid, v := range rw.feats {
			dense[fid-1] = v
		}
		current = append(current, &DataPoint{Label: rw.label, QueryID: rw.qid, Description: rw.desc, features: dense})
	}
	flush()
	return lists, nil
}

// WriteLETOR writes lists back in LETOR format with every feature listed.
func WriteLETOR(w io.Writer, lists []*RankList) error {
	bw := bufio.NewWriter(w)
	for _, l := range lists {
		for _, p := range l.points {
			var sb strings.Builder
			sb.WriteString(strconv.FormatFloat(p.Label, 'g', -1, 64))
			sb.WriteString(" qid:")
			sb.WriteString(p.QueryID)
			for i, v := range p.features {
				sb.WriteByte(' ')
				sb.WriteString(strconv.Itoa(i + 1))
				sb.WriteByte(':')
				sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			}
			if p.Description != "" {
				sb.WriteString(" # ")
				sb.WriteString(p.Description)
			}
			sb.WriteByte('\n')
			if _, err := bw.WriteString(sb.String()); err != nil {
				return errors.Wrap(err, "write letor")
			}
		}
	}
	return errors.Wrap(bw.Flush(), "flush letor")
}

package transform

import (
	"sort"

	"github.com/FocuswithJustin/mdliaison/core/errors"
	"github.com/FocuswithJustin/mdliaison/core/host"
)

// Target is the part of a host document a transform touches.
type Target interface {
	SelectRegions(selector string) ([]host.Region, error)
	Read(r host.Region) string
	Replace(r host.Region, text string) error
}

// Result summarizes one Apply call.
type Result struct {
	Regions int // regions selected
	Changed int // regions whose text was replaced
	Delta   int // total change in document size, in bytes
}

// Apply rewrites every region of doc matched by selector in direction d.
//
// Regions are selected once and processed left to right. A replacement
// shifts every later byte by the change in length, so each later region is
// moved by the running delta before it is read; text outside the regions is
// never touched.
func Apply(doc Target, selector string, d Direction) (Result, error) {
	regions, err := doc.SelectRegions(selector)
	if err != nil {
		return Result{}, errors.Wrapf(err, "select regions %q", selector)
	}

	ordered := make([]host.Region, len(regions))
	copy(ordered, regions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Begin < ordered[j].Begin })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Begin < ordered[i-1].End {
			return Result{}, &errors.ValidationError{
				Field:   "regions",
				Message: "selected regions overlap",
			}
		}
	}

	res := Result{Regions: len(ordered)}
	for _, r := range ordered {
		r = r.Shift(res.Delta)
		old := doc.Read(r)
		rewritten := Rewrite(d, old)
		if rewritten == old {
			continue
		}
		if err := doc.Replace(r, rewritten); err != nil {
			return res, errors.Wrapf(err, "replace region [%d,%d)", r.Begin, r.End)
		}
		res.Changed++
		res.Delta += len(rewritten) - len(old)
	}
	return res, nil
}

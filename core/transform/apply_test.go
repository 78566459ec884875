package transform

import (
	"errors"
	"testing"

	liaisonerrors "github.com/FocuswithJustin/mdliaison/core/errors"
	"github.com/FocuswithJustin/mdliaison/core/host"
)

// fixedDoc returns the regions it was built with, computed against the
// original text, so Apply has to account for earlier replacements itself.
type fixedDoc struct {
	text     string
	regions  []host.Region
	selector string
	replaced int
}

func (d *fixedDoc) SelectRegions(selector string) ([]host.Region, error) {
	d.selector = selector
	return d.regions, nil
}

func (d *fixedDoc) Read(r host.Region) string {
	return d.text[r.Begin:r.End]
}

func (d *fixedDoc) Replace(r host.Region, text string) error {
	d.text = d.text[:r.Begin] + text + d.text[r.End:]
	d.replaced++
	return nil
}

// regionsOf returns the spans of each marked piece inside text.
func regionsOf(text string, pieces ...string) []host.Region {
	var out []host.Region
	from := 0
	for _, p := range pieces {
		i := from + indexOf(text[from:], p)
		out = append(out, host.Region{Begin: i, End: i + len(p)})
		from = i + len(p)
	}
	return out
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	panic("piece not found: " + sub)
}

func TestApplyShiftsLaterRegions(t *testing.T) {
	text := "First. Second.\n```\ncode. stays\n```\nThird. Fourth."
	doc := &fixedDoc{
		text:    text,
		regions: regionsOf(text, "First. Second.", "Third. Fourth."),
	}

	res, err := Apply(doc, "prose", ToDisk)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	want := "First.\nSecond.\n```\ncode. stays\n```\nThird.\nFourth."
	if doc.text != want {
		t.Errorf("text = %q, want %q", doc.text, want)
	}
	if res.Regions != 2 || res.Changed != 2 || res.Delta != 0 {
		t.Errorf("Result = %+v", res)
	}
	if doc.selector != "prose" {
		t.Errorf("selector = %q", doc.selector)
	}
}

func TestApplyFromDisk(t *testing.T) {
	text := "A.\n\nB.\n| t. x |\nC.\nD."
	doc := &fixedDoc{
		text:    text,
		regions: regionsOf(text, "A.\n\nB.", "C.\nD."),
	}

	res, err := Apply(doc, "", FromDisk)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	want := "A. \nB.\n| t. x |\nC. D."
	if doc.text != want {
		t.Errorf("text = %q, want %q", doc.text, want)
	}
	if res.Changed != 2 || res.Delta != 0 {
		t.Errorf("Result = %+v", res)
	}
}

func TestApplyUnorderedRegions(t *testing.T) {
	text := "One. Two.\n---\nThree. Four."
	rs := regionsOf(text, "One. Two.", "Three. Four.")
	doc := &fixedDoc{text: text, regions: []host.Region{rs[1], rs[0]}}

	if _, err := Apply(doc, "", ToDisk); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if want := "One.\nTwo.\n---\nThree.\nFour."; doc.text != want {
		t.Errorf("text = %q, want %q", doc.text, want)
	}
}

func TestApplyRegionIsolation(t *testing.T) {
	outside := "| a. b |\n    code. here\n"
	text := outside + "Prose. More prose."
	doc := &fixedDoc{text: text, regions: regionsOf(text, "Prose. More prose.")}

	for _, d := range []Direction{ToDisk, FromDisk, ToDisk} {
		if _, err := Apply(doc, "", d); err != nil {
			t.Fatal(err)
		}
		if doc.text[:len(outside)] != outside {
			t.Fatalf("text outside regions changed: %q", doc.text)
		}
		doc.regions = []host.Region{{Begin: len(outside), End: len(doc.text)}}
	}
}

func TestApplyUnchangedSkipsReplace(t *testing.T) {
	doc := &fixedDoc{text: "Split.\nAlready.", regions: []host.Region{{Begin: 0, End: 15}}}
	res, err := Apply(doc, "", ToDisk)
	if err != nil {
		t.Fatal(err)
	}
	if doc.replaced != 0 || res.Changed != 0 {
		t.Errorf("replaced = %d, Changed = %d", doc.replaced, res.Changed)
	}
}

func TestApplyOverlapRejected(t *testing.T) {
	doc := &fixedDoc{text: "abc. def.", regions: []host.Region{{Begin: 0, End: 6}, {Begin: 4, End: 9}}}
	_, err := Apply(doc, "", ToDisk)
	if !errors.Is(err, liaisonerrors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if doc.text != "abc. def." {
		t.Error("document changed despite overlap")
	}
}

type failingSelect struct{ fixedDoc }

func (f *failingSelect) SelectRegions(string) ([]host.Region, error) {
	return nil, liaisonerrors.NewParse("selector", "", "bad")
}

func TestApplySelectError(t *testing.T) {
	_, err := Apply(&failingSelect{}, "(", ToDisk)
	if !errors.Is(err, liaisonerrors.ErrInvalidInput) {
		t.Errorf("error = %v, want wrapped ParseError", err)
	}
}

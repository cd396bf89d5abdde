// Package pdfdoc adapts pdfcpu to the merge and page-count interfaces used by
// the pipeline.
package pdfdoc

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Library is the pdfcpu-backed document library.
type Library struct {
	conf *model.Configuration
}

// New returns a Library with relaxed validation; OCR engines and scanners
// emit PDFs that fail strict validation.
func New() *Library {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Library{conf: conf}
}

// Merge writes the pages of inputs, in order, to a new file at out.
func (l *Library) Merge(inputs []string, out string) error {
	if err := api.MergeCreateFile(inputs, out, false, l.conf); err != nil {
		return fmt.Errorf("pdfcpu merge into %s: %w", out, err)
	}
	return nil
}

// PageCount returns the number of pages in the PDF at path.
func (l *Library) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading page count of %s: %w", path, err)
	}
	return n, nil
}

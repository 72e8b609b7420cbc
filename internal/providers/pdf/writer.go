package pdf

import "github.com/smallbiznis/gstinvoice/internal/providers/pdf/layout"

// Output is a finished document.
type Output struct {
	PDF   []byte
	Pages int
}

// Writer draws a paginated plan.
type Writer interface {
	Spec() layout.PageSpec
	Write(doc layout.Document, plan layout.Plan, fonts FontSet) (Output, error)
}

// internal/output/views.go
package output

import (
	"ipLensGo/internal/modules/reconnaissance"
)

// CPEView pairs a CPE string with its product description.
type CPEView struct {
	CPE         string `json:"cpe"`
	Description string `json:"description"`
}

// CVEView is the detail panel for one CVE: either Detail or Error is set.
type CVEView struct {
	ID     string                    `json:"id"`
	Detail *reconnaissance.CVEDetail `json:"detail,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

// HostView is everything shown for a single address.
type HostView struct {
	Record *reconnaissance.IPRecord `json:"record"`
	CPEs   []CPEView                `json:"cpes"`
	CVEs   []CVEView                `json:"cve_details,omitempty"`
}

// BulkView is the bulk report plus run metadata.
type BulkView struct {
	Report  *reconnaissance.AnalysisReport `json:"report"`
	Source  string                         `json:"source"`
	Lines   int                            `json:"lines"`
	Dropped int                            `json:"dropped"`
}

// NewHostView builds the view for one analysed address.
func NewHostView(rec *reconnaissance.IPRecord) HostView {
	v := HostView{Record: rec, CPEs: []CPEView{}}
	for _, cpe := range rec.CPEs {
		v.CPEs = append(v.CPEs, CPEView{CPE: cpe, Description: reconnaissance.DescribeCPE(cpe)})
	}
	return v
}

// NewCVEView turns a fetch outcome into a view. A failed fetch becomes an
// inline message rather than an error.
func NewCVEView(id string, detail *reconnaissance.CVEDetail, err error) CVEView {
	v := CVEView{ID: id, Detail: detail}
	if err != nil {
		v.Detail = nil
		v.Error = "Could not load CVE details: " + err.Error()
	}
	return v
}

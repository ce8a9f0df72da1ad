package loader

import (
	"time"

	"github.com/andaru/uanodeset/nserr"
)

// Report is the outcome of loading one nodeset
type Report struct {
	// OK is true when no error level diagnostic was reported
	OK     bool   `yaml:"ok"`
	Source string `yaml:"source,omitempty"`
	// Nodes counts the nodes added to the backend by node class
	Nodes     map[string]int `yaml:"nodes"`
	DataTypes int            `yaml:"dataTypes"`
	// Excluded lists nodes on a dependency cycle or with an unresolved
	// reference, and the nodes depending on them
	Excluded          []string           `yaml:"excluded,omitempty"`
	UnknownReferences []UnknownReference `yaml:"unknownReferences,omitempty"`
	Diagnostics       []*nserr.Error     `yaml:"diagnostics,omitempty"`
	Duration          time.Duration      `yaml:"duration"`
}

// UnknownReference is a parent or type definition edge to a node the
// nodeset does not define.
type UnknownReference struct {
	Source        string `yaml:"source"`
	Target        string `yaml:"target"`
	ReferenceType string `yaml:"referenceType"`
}

func newReport() *Report { return &Report{Nodes: map[string]int{}} }

func (r *Report) add(diags ...*nserr.Error) {
	r.Diagnostics = append(r.Diagnostics, diags...)
}

func (r *Report) failed() bool {
	return len(r.Errors()) > 0 || len(r.Excluded) > 0
}

// Errors returns the error level diagnostics
func (r *Report) Errors() []*nserr.Error {
	return r.filter(nserr.SeverityError)
}

// Warnings returns the warning level diagnostics
func (r *Report) Warnings() []*nserr.Error {
	return r.filter(nserr.SeverityWarning)
}

func (r *Report) filter(s nserr.Severity) (out []*nserr.Error) {
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// Emitted returns the number of nodes added to the backend
func (r *Report) Emitted() (n int) {
	for _, c := range r.Nodes {
		n += c
	}
	return n
}

// Package loader imports nodeset documents into a Backend.
//
// A Loader parses a document into a nodeset.Nodeset, sorts it, builds
// data type descriptors and hands every node to the Backend in
// dependency order with its value decoded. References are added once
// all nodes are present. The Loader keeps its data types and reference
// classification across loads, so a companion nodeset may be loaded
// after the nodeset it builds on.
package loader

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/viant/afs"

	"github.com/andaru/uanodeset/datatype"
	"github.com/andaru/uanodeset/nodeset"
	"github.com/andaru/uanodeset/nserr"
	"github.com/andaru/uanodeset/parser"
	"github.com/andaru/uanodeset/ua"
	"github.com/andaru/uanodeset/value"
)

// Loader imports nodesets into a Backend. A Loader is not safe for
// concurrent use.
type Loader struct {
	backend    Backend
	cfg        *Config
	log        logr.Logger
	metrics    *Metrics
	fs         afs.Service
	importer   *datatype.Importer
	classifier nodeset.ReferenceClassifier
	known      []*datatype.Descriptor
}

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the logger of the Loader and everything it drives
func WithLogger(l logr.Logger) Option { return func(ld *Loader) { ld.log = l } }

// WithConfig sets the import configuration. The default is
// DefaultConfig().
func WithConfig(cfg *Config) Option { return func(ld *Loader) { ld.cfg = cfg } }

// WithMetrics records import metrics to m
func WithMetrics(m *Metrics) Option { return func(ld *Loader) { ld.metrics = m } }

// WithFileSystem sets the file system LoadURL reads from
func WithFileSystem(fs afs.Service) Option { return func(ld *Loader) { ld.fs = fs } }

// WithKnownTypes preloads data type descriptors, for types already
// present in the backend but not defined by any loaded nodeset.
func WithKnownTypes(types ...*datatype.Descriptor) Option {
	return func(ld *Loader) { ld.known = append(ld.known, types...) }
}

// New returns a Loader adding nodes to backend
func New(backend Backend, opts ...Option) *Loader {
	ld := &Loader{backend: backend, log: logr.Discard()}
	for _, opt := range opts {
		opt(ld)
	}
	if ld.cfg == nil {
		ld.cfg = DefaultConfig()
	}
	if ld.fs == nil {
		ld.fs = afs.New()
	}
	if cb, ok := backend.(ClassifierBackend); ok {
		ld.classifier = cb.Classifier()
	} else {
		ld.classifier = nodeset.NewStandardClassifier()
	}
	imOpts := []datatype.Option{datatype.WithLogger(ld.log.WithName("datatype"))}
	for _, d := range ld.known {
		imOpts = append(imOpts, datatype.WithKnownType(d))
	}
	ld.importer = datatype.NewImporter(imOpts...)
	ld.known = nil
	return ld
}

// Types returns the data type descriptors built by all loads so far
func (ld *Loader) Types() []*datatype.Descriptor { return ld.importer.Types() }

// LoadURL loads the nodeset at url, which may be any location the
// Loader's file system supports (file://, mem://, s3://, ...).
func (ld *Loader) LoadURL(ctx context.Context, url string) (*Report, error) {
	content, err := ld.fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", url)
	}
	report, err := ld.LoadBytes(ctx, content)
	if report != nil {
		report.Source = url
	}
	return report, err
}

// LoadFiles loads the nodesets named by the configuration's Files, in
// order, stopping at the first document level error.
func (ld *Loader) LoadFiles(ctx context.Context) ([]*Report, error) {
	var reports []*Report
	for _, url := range ld.cfg.Files {
		report, err := ld.LoadURL(ctx, url)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// LoadBytes loads the nodeset document held in b
func (ld *Loader) LoadBytes(ctx context.Context, b []byte) (*Report, error) {
	return ld.Load(ctx, bytes.NewReader(b))
}

// Load imports the nodeset document read from r. The error is non-nil
// only when the document itself could not be read; problems with
// individual nodes are listed in the Report.
func (ld *Loader) Load(ctx context.Context, r io.Reader) (*Report, error) {
	start := time.Now()
	ns := nodeset.New(
		nodeset.WithLogger(ld.log.WithName("nodeset")),
		nodeset.WithClassifier(ld.classifier),
		nodeset.WithNamespaceFunc(ld.namespace),
		nodeset.WithArena(ld.cfg.ArenaChunkSize),
	)
	defer ns.Release()

	if err := parser.Parse(r, ns, parser.WithLogger(ld.log.WithName("parser"))); err != nil {
		ld.observe(start, nil)
		return nil, err
	}
	report := newReport()
	report.add(ns.Diagnostics()...)

	res := ns.Sort()
	report.add(res.Errors...)
	for _, n := range res.Excluded {
		report.Excluded = append(report.Excluded, n.Base().ID.String())
	}
	for _, u := range res.UnknownReferences {
		report.UnknownReferences = append(report.UnknownReferences, UnknownReference{
			Source:        u.Source.String(),
			Target:        u.Target.String(),
			ReferenceType: u.RefType.String(),
		})
	}

	if ld.cfg.Strict && report.failed() {
		ld.log.Info("strict import aborted", "severity", "warning", "diagnostics", len(report.Diagnostics))
		report.OK = false
		ld.observe(start, report)
		return report, nil
	}

	e := &emitter{ld: ld, ns: ns, report: report}
	e.decoder = value.NewDecoder(ld.importer,
		value.WithLogger(ld.log.WithName("value")),
		value.WithLegacyScalarArray(ld.cfg.LegacyScalarArray),
		value.WithNamespaces(ns.Namespaces()),
	)
	if err := e.run(ctx, res.Order); err != nil {
		ld.observe(start, nil)
		return nil, err
	}
	report.OK = !report.failed()
	ld.observe(start, report)
	ld.log.V(1).Info("loaded nodeset", "nodes", report.Emitted(), "diagnostics", len(report.Diagnostics),
		"ok", report.OK)
	return report, nil
}

// namespace maps the configured standard namespace URI to index 0 and
// every other URI through the backend.
func (ld *Loader) namespace(uri string) uint16 {
	if uri == ld.cfg.StandardNamespace || uri == ua.StandardNamespace {
		return 0
	}
	return ld.backend.AddNamespace(uri)
}

func (ld *Loader) observe(start time.Time, report *Report) {
	elapsed := time.Since(start)
	if report != nil {
		report.Duration = elapsed
	}
	if ld.metrics == nil {
		return
	}
	if report != nil {
		ld.metrics.observeDiagnostics(report.Diagnostics)
	}
	ld.metrics.observeImport(elapsed.Seconds(), report != nil && report.OK)
}

// emitter hands the sorted nodes of one nodeset to the backend
type emitter struct {
	ld      *Loader
	ns      *nodeset.Nodeset
	decoder *value.Decoder
	report  *Report
	typesOK bool
	emitted []nodeset.Node
}

func (e *emitter) run(ctx context.Context, order []nodeset.Node) error {
	for _, n := range order {
		if !e.typesOK && n.Class().Precedence() > ua.NodeClassDataType.Precedence() {
			if err := e.dataTypes(ctx); err != nil {
				return err
			}
		}
		e.node(ctx, n)
	}
	if !e.typesOK {
		if err := e.dataTypes(ctx); err != nil {
			return err
		}
	}
	for _, n := range e.emitted {
		b := n.Base()
		refs := b.References()
		if td := nodeset.TypeDefinitionOf(n); td != nil {
			refs = append([]*nodeset.Reference{td}, refs...)
		}
		for _, ref := range refs {
			if err := e.ld.backend.AddReference(ctx, b.ID, ref); err != nil {
				e.report.add(nserr.UnknownReferenceTarget(b.ID.String(), ref.Target.String(),
					nserr.WithMessage("reference rejected: "+err.Error())))
			}
		}
	}
	return nil
}

// dataTypes builds the descriptors of the nodeset's data types and
// passes them to the backend.
func (e *emitter) dataTypes(ctx context.Context) error {
	e.typesOK = true
	before := len(e.ld.importer.Unresolved())
	types := e.ld.importer.Import(e.ns)
	e.report.add(e.ld.importer.Unresolved()[before:]...)
	e.report.DataTypes += len(types)
	if len(types) == 0 {
		return nil
	}
	return errors.Wrap(e.ld.backend.AddDataTypes(ctx, types), "backend rejected data types")
}

func (e *emitter) node(ctx context.Context, n nodeset.Node) {
	b := n.Base()
	em := &Emission{Node: n}
	if parent, refType, ok := nodeset.ParentOf(n); ok {
		em.Parent, em.ParentRefType = parent, refType
	}
	if td := nodeset.TypeDefinitionOf(n); td != nil {
		em.TypeDefinition = td.Target
	}

	var (
		buf *value.Buffer
		err error
	)
	switch v := n.(type) {
	case *nodeset.VariableNode:
		em.ArrayDimensions = e.decoder.ArrayDimensions(ua.NodeClassVariable, v.ValueRank, v.ArrayDimensions, v.Value)
		buf, err = e.decoder.DecodeVariable(v)
	case *nodeset.VariableTypeNode:
		em.ArrayDimensions = e.decoder.ArrayDimensions(ua.NodeClassVariableType, v.ValueRank, v.ArrayDimensions, v.Value)
		buf, err = e.decoder.DecodeVariableType(v)
	}
	if err != nil {
		// the node is emitted without a value
		e.diagnostic(err, b.ID)
	}
	if buf != nil {
		e.report.add(buf.Warnings...)
		em.Value = buf
	}

	if err := e.ld.backend.AddNode(ctx, em); err != nil {
		e.report.add(nserr.MalformedNode("", "UA"+n.Class().String(),
			nserr.WithNodeID(b.ID.String()), nserr.WithMessage("rejected by backend: "+err.Error())))
		return
	}
	e.emitted = append(e.emitted, n)
	e.report.Nodes[n.Class().String()]++
	if e.ld.metrics != nil {
		e.ld.metrics.observeNode(n.Class())
	}
}

func (e *emitter) diagnostic(err error, id ua.NodeID) {
	if d, ok := nserr.As(err); ok {
		e.report.add(d)
		return
	}
	e.report.add(nserr.MalformedNode("Value", "", nserr.WithNodeID(id.String()), nserr.WithMessage(err.Error())))
}

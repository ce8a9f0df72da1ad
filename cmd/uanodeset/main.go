// Command uanodeset loads nodeset files into an in-memory address space
// and prints the import reports as YAML.
//
//	uanodeset load Opc.Ua.Di.NodeSet2.xml Opc.Ua.Machinery.NodeSet2.xml
//	uanodeset load --config import.yaml -v=1 -logtostderr
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/glogr"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/andaru/uanodeset/loader"
	"github.com/andaru/uanodeset/memory"
)

var (
	configFlag string
	strictFlag bool
	legacyFlag bool
)

// output is the document printed by load
type output struct {
	Namespaces []string           `yaml:"namespaces"`
	Nodes      int                `yaml:"nodes"`
	Reports    []*loader.Report   `yaml:"reports"`
	Metrics    map[string]float64 `yaml:"metrics,omitempty"`
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "uanodeset",
		Short:         "Import OPC UA nodeset files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	// glog registers -v, -logtostderr and friends on the go flag set
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	cmd.AddCommand(newLoadCommand())
	return cmd
}

func newLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [flags] [url...]",
		Short: "Load nodesets in order and print the import reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config(cmd)
			if err != nil {
				return err
			}
			for _, arg := range args {
				url, err := fileURL(arg)
				if err != nil {
					return err
				}
				cfg.Files = append(cfg.Files, url)
			}
			if len(cfg.Files) == 0 {
				return errors.New("no nodeset files given")
			}
			return load(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "YAML import configuration")
	cmd.Flags().BoolVar(&strictFlag, "strict", false, "Emit nothing from a nodeset with errors")
	cmd.Flags().BoolVar(&legacyFlag, "legacy-scalar-array", true,
		"Give scalar values of value rank 1 variables the dimensions [0]")
	return cmd
}

// config reads the configuration file, if any, then applies flags the
// user set explicitly.
func config(cmd *cobra.Command) (*loader.Config, error) {
	cfg := loader.DefaultConfig()
	if configFlag != "" {
		b, err := os.ReadFile(configFlag)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config")
		}
		if cfg, err = loader.LoadConfig(b); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = strictFlag
	}
	if cmd.Flags().Changed("legacy-scalar-array") {
		cfg.LegacyScalarArray = legacyFlag
	}
	return cfg, nil
}

// fileURL returns arg as a URL, treating arguments without a scheme as
// local paths.
func fileURL(arg string) (string, error) {
	if strings.Contains(arg, "://") {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", errors.Wrapf(err, "invalid path %q", arg)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func load(ctx context.Context, cfg *loader.Config, w io.Writer) error {
	registry := prometheus.NewRegistry()
	metrics := loader.NewMetrics()
	metrics.MustRegister(registry)

	srv := memory.NewServer()
	ld := loader.New(srv,
		loader.WithLogger(glogr.New().WithName("loader")),
		loader.WithConfig(cfg),
		loader.WithMetrics(metrics),
	)
	reports, loadErr := ld.LoadFiles(ctx)
	if loadErr != nil {
		glog.Errorf("load failed: %v", loadErr)
	}

	out := output{Namespaces: srv.Namespaces(), Nodes: srv.Len(), Reports: reports}
	if families, err := registry.Gather(); err == nil {
		out.Metrics = map[string]float64{}
		for _, f := range families {
			for _, m := range f.GetMetric() {
				switch {
				case m.GetCounter() != nil:
					out.Metrics[f.GetName()] += m.GetCounter().GetValue()
				case m.GetHistogram() != nil:
					out.Metrics[f.GetName()+"_count"] += float64(m.GetHistogram().GetSampleCount())
				}
			}
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if loadErr != nil {
		return loadErr
	}
	for _, r := range reports {
		if !r.OK {
			return errors.Errorf("%s: import reported %d errors", r.Source, len(r.Errors()))
		}
	}
	return nil
}

func main() {
	defer glog.Flush()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		glog.Flush()
		os.Exit(1)
	}
}

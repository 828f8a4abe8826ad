package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-wfs/internal/server"
	"github.com/joeblew999/plat-wfs/internal/service"
)

// Options defines all CLI flags and env vars for the editing server.
// Flags: --host, --port, --data-dir, --timeout
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_TIMEOUT
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir string `doc:"Directory for the dataset catalogue, snapshots and history" default:".data"`
	Timeout int    `doc:"Feature service request timeout in seconds" default:"30"`
}

func newServer(opts *Options, noHistory bool) *server.Server {
	return server.New(server.Config{
		Host:      opts.Host,
		Port:      fmt.Sprintf("%d", opts.Port),
		DataDir:   opts.DataDir,
		Timeout:   time.Duration(opts.Timeout) * time.Second,
		NoHistory: noHistory,
	})
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server
		var httpSrv *http.Server

		hooks.OnStart(func() {
			srv = newServer(opts, false)
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-wfs editing server starting...\n")
			fmt.Printf("  Server:   %s\n", baseURL)
			fmt.Printf("  Data:     %s\n", opts.DataDir)
			fmt.Printf("  Datasets: %d\n", len(srv.Datasets().List()))
			fmt.Println()
			fmt.Printf("  Docs:     %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI:  %s/openapi.json\n", baseURL)
			fmt.Println()

			httpSrv = &http.Server{Addr: addr, Handler: srv}
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				glog.Exitf("Server error: %v", err)
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if httpSrv != nil {
				httpSrv.Shutdown(ctx)
			}
			if srv != nil {
				if err := srv.Close(); err != nil {
					glog.Warningf("close: %v", err)
				}
			}
			glog.Flush()
		})
	})

	cli.Root().Use = "wfsedit"
	cli.Root().Short = "Edit WFS-T feature services through a local REST API"
	cli.Root().Version = "0.1.0"

	// glog flags (--v, --logtostderr, ...) as long-only persistent flags.
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		pf := pflag.PFlagFromGoFlag(f)
		pf.Shorthand = ""
		cli.Root().PersistentFlags().AddFlag(pf)
	})

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts, true)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fail("Error marshaling spec: %v", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// datasets subcommand: print the catalogue
	cli.Root().AddCommand(&cobra.Command{
		Use:   "datasets",
		Short: "Print the dataset catalogue as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			datasets := service.NewDatasetService(opts.DataDir, nil)
			out, err := yaml.Marshal(map[string]any{"datasets": datasets.List()})
			if err != nil {
				fail("Error marshaling catalogue: %v", err)
			}
			fmt.Print(string(out))
		}),
	})

	// check subcommand: load a dataset and report what came back
	cli.Root().AddCommand(&cobra.Command{
		Use:   "check <dataset-id>",
		Short: "Load a dataset from its feature service and report the result",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			datasets := service.NewDatasetService(opts.DataDir, nil)
			d, err := datasets.Get(args[0])
			if err != nil {
				fail("%v", err)
			}
			sessions := service.NewSessionService(datasets, nil, nil,
				&http.Client{Timeout: time.Duration(opts.Timeout) * time.Second})

			client := sessions.Client(d)
			target, _ := client.GetFeatureURL()
			fmt.Printf("GET %s\n", target)

			features, err := client.Load(cmd.Context())
			if err != nil {
				fail("Load failed: %s", service.Describe(err))
			}

			types := map[string]int{}
			for _, f := range features {
				types[f.GeometryType()]++
			}
			names := make([]string, 0, len(types))
			for t := range types {
				names = append(names, t)
			}
			sort.Strings(names)

			fmt.Printf("%d features of %s\n", len(features), client.Config().TypeName())
			for _, t := range names {
				mark := ""
				if d.GeometryType != "" && t != d.GeometryType {
					mark = "  (does not match dataset geometry type " + d.GeometryType + ")"
				}
				fmt.Printf("  %-16s %d%s\n", t, types[t], mark)
			}
		}),
	})

	cli.Run()
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/nornicrt/pkg/config"
	"github.com/orneryd/nornicrt/pkg/expr"
	"github.com/orneryd/nornicrt/pkg/graph"
	"github.com/orneryd/nornicrt/pkg/ir"
	"github.com/orneryd/nornicrt/pkg/logging"
	"github.com/orneryd/nornicrt/pkg/predicate"
	"github.com/orneryd/nornicrt/pkg/query"
	"github.com/orneryd/nornicrt/pkg/value"
)

// setup loads configuration and the logger shared by all commands.
func setup(cmd *cobra.Command) (*config.Config, *logrus.Logger, io.Closer, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Runtime.ApplyRuntimeMemory()

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	log.WithField("config", cfg.String()).Debug("configuration loaded")
	return cfg, log, closer, nil
}

// readExpr returns the expression named by --expr or --file, and its wire
// form when it was given as wire bytes.
func readExpr(cmd *cobra.Command) (*ir.Node, []byte, error) {
	inline, _ := cmd.Flags().GetString("expr")
	file, _ := cmd.Flags().GetString("file")
	switch {
	case inline != "" && file != "":
		return nil, nil, fmt.Errorf("--expr and --file are mutually exclusive")
	case inline != "":
		n, err := ir.ParseYAML(strings.NewReader(inline))
		return n, nil, err
	case file == "":
		return nil, nil, fmt.Errorf("one of --expr or --file is required")
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		n, err := ir.ParseYAMLFile(file)
		return n, nil, err
	}
	wire, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, err
	}
	n, err := ir.Unmarshal(wire)
	return n, wire, err
}

func loadFixture(cmd *cobra.Command, cfg *config.Config) (*graph.MemoryGraph, error) {
	path, _ := cmd.Flags().GetString("fixture")
	if path == "" {
		path = cfg.Graph.Fixture
	}
	if path == "" {
		return nil, fmt.Errorf("no fixture: pass --fixture or set graph.fixture")
	}
	return graph.LoadFixtureFile(path)
}

func parseParams(raw []string) (map[string]value.Value, error) {
	params := make(map[string]value.Value, len(raw))
	for _, kv := range raw {
		name, text, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: want name=value", kv)
		}
		var x any
		if err := yaml.Unmarshal([]byte(text), &x); err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", kv, err)
		}
		v, err := value.FromGo(x)
		if err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", kv, err)
		}
		params[name] = v
	}
	return params, nil
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()
	cli := logging.Component(log, "cli")

	mem, err := loadFixture(cmd, cfg)
	if err != nil {
		return err
	}
	rawParams, _ := cmd.Flags().GetStringArray("param")
	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}

	var reader graph.Reader = mem
	badgerDir, _ := cmd.Flags().GetString("badger-dir")
	inMemory, _ := cmd.Flags().GetBool("badger-in-memory")
	if badgerDir == "" {
		badgerDir = cfg.Graph.BadgerDir
	}
	inMemory = inMemory || cfg.Graph.BadgerInMemory
	if badgerDir != "" || inMemory {
		bg, err := graph.OpenBadger(mem.Schema(), graph.BadgerOptions{
			DataDir:   badgerDir,
			InMemory:  inMemory,
			CacheSize: cfg.Cache.RecordSize,
			Logger:    logging.Component(log, "badger"),
			Log:       log,
		})
		if err != nil {
			return err
		}
		defer bg.Close()
		if err := bg.CopyFrom(mem); err != nil {
			return err
		}
		snap, err := bg.Snapshot()
		if err != nil {
			return err
		}
		defer snap.Discard()
		reader = snap
		cli.WithField("dir", badgerDir).Info("reading through badger snapshot")
	}

	eng, err := query.NewEngine(cfg, log)
	if err != nil {
		return err
	}
	q, err := eng.NewQuery(reader, nil, params)
	if err != nil {
		return err
	}

	n, wire, err := readExpr(cmd)
	if err != nil {
		return err
	}
	if wire != nil {
		// through the engine cache so decode errors carry the query id
		if n, err = q.Decode(wire); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	edgeTypes, _ := cmd.Flags().GetStringSlice("edge")
	if len(edgeTypes) > 0 {
		err = evalEdges(out, q, mem, n, edgeTypes)
	} else {
		labels, _ := cmd.Flags().GetStringSlice("label")
		err = evalVertices(out, q, mem, n, labels)
	}
	if err != nil {
		return err
	}

	if withStats, _ := cmd.Flags().GetBool("stats"); withStats {
		st := q.LastStats()
		fmt.Fprintf(out, "# query %s: %d/%d matched, %d workers, arena peak %s, %s\n",
			q.ID(), st.Matches, st.Rows, st.Workers, config.FormatMemorySize(st.ArenaPeak), st.Duration)
	}
	return nil
}

func evalVertices(out io.Writer, q *query.Query, mem *graph.MemoryGraph, n *ir.Node, names []string) error {
	schema := mem.Schema()
	var labels []value.Label
	if len(names) == 0 {
		for l := 0; l < schema.VertexLabelCount(); l++ {
			labels = append(labels, value.Label(l))
		}
	}
	for _, name := range names {
		l, ok := schema.VertexLabel(name)
		if !ok {
			return fmt.Errorf("unknown vertex label %q", name)
		}
		labels = append(labels, l)
	}

	var rows []predicate.VertexRow
	for _, l := range labels {
		for vid := value.VID(0); int(vid) < mem.VertexCount(l); vid++ {
			rows = append(rows, predicate.VertexRow{Label: l, VID: vid, Row: -1})
		}
	}

	p, err := q.VertexPredicate(n)
	if err != nil {
		return err
	}
	matched, err := q.FilterVertices(p, rows)
	if err != nil {
		return err
	}
	for _, i := range matched {
		r := rows[i]
		fmt.Fprintf(out, "%s/%s\n", schema.VertexLabelName(r.Label), mem.ExternalID(r.Label, r.VID))
	}
	return nil
}

func evalEdges(out io.Writer, q *query.Query, mem *graph.MemoryGraph, n *ir.Node, edgeTypes []string) error {
	schema := mem.Schema()
	var triplets []value.LabelTriplet
	for _, et := range edgeTypes {
		parts := strings.Split(et, ":")
		if len(parts) != 3 {
			return fmt.Errorf("invalid --edge %q: want src:label:dst", et)
		}
		t, ok := schema.Triplet(parts[0], parts[1], parts[2])
		if !ok {
			return fmt.Errorf("unknown edge type %q", et)
		}
		triplets = append(triplets, t)
	}

	var rows []predicate.EdgeRow
	for _, t := range triplets {
		for _, e := range mem.Edges(t) {
			rows = append(rows, predicate.EdgeRow{Edge: e, Dir: predicate.Out, Row: -1})
		}
	}

	p, err := q.EdgePredicate(n, triplets...)
	if err != nil {
		return err
	}
	matched, err := q.FilterEdges(p, rows)
	if err != nil {
		return err
	}
	for _, i := range matched {
		e := rows[i].Edge
		fmt.Fprintf(out, "%s -[%s]-> %s\n",
			mem.ExternalID(e.Triplet.Src, e.Src),
			schema.EdgeLabelName(e.Triplet.Edge),
			mem.ExternalID(e.Triplet.Dst, e.Dst))
	}
	return nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	n, wire, err := readExpr(cmd)
	if err != nil {
		return err
	}
	if wire == nil {
		if wire, err = ir.Marshal(n); err != nil {
			return err
		}
	}
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		_, err = cmd.OutOrStdout().Write(wire)
		return err
	}
	return os.WriteFile(path, wire, 0o644)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	var vt expr.VarType
	switch as, _ := cmd.Flags().GetString("as"); as {
	case "vertex":
		vt = expr.VertexVar
	case "edge":
		vt = expr.EdgeVar
	case "path":
		vt = expr.PathVar
	default:
		return fmt.Errorf("invalid --as %q: want vertex, edge or path", as)
	}

	mem, err := loadFixture(cmd, cfg)
	if err != nil {
		return err
	}
	n, _, err := readExpr(cmd)
	if err != nil {
		return err
	}
	q, err := query.New(mem, nil, nil, cfg, log)
	if err != nil {
		return err
	}
	e, err := q.Compile(n, vt)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "expression: %s\n", e)
	fmt.Fprintf(out, "entry:      %s\n", e.VarType())
	fmt.Fprintf(out, "type:       %s\n", e.Type())
	fmt.Fprintf(out, "context:    %t\n", e.ReadsContext())
	return nil
}

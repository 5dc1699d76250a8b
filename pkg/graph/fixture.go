package graph

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/nornicrt/pkg/value"
)

// Fixture is the YAML form of a small property graph.
//
//	schema:
//	  vertices:
//	    - label: Person
//	      properties: [{name: name, type: string}, {name: age, type: int64}]
//	  edges:
//	    - {src: Person, label: knows, dst: Person, properties: [{name: since, type: date}]}
//	vertices:
//	  - {label: Person, id: alice, properties: {name: Alice, age: 30}}
//	edges:
//	  - {src: Person/alice, label: knows, dst: Person/bob, properties: {since: "2020-01-01"}}
type Fixture struct {
	Schema   FixtureSchema   `yaml:"schema"`
	Vertices []FixtureVertex `yaml:"vertices"`
	Edges    []FixtureEdge   `yaml:"edges"`
}

// FixtureSchema declares labels and edge types.
type FixtureSchema struct {
	Vertices []FixtureLabel    `yaml:"vertices"`
	Edges    []FixtureEdgeType `yaml:"edges"`
}

// FixtureLabel declares a vertex label.
type FixtureLabel struct {
	Label      string            `yaml:"label"`
	Properties []FixtureProperty `yaml:"properties"`
}

// FixtureEdgeType declares an edge type.
type FixtureEdgeType struct {
	Src        string            `yaml:"src"`
	Label      string            `yaml:"label"`
	Dst        string            `yaml:"dst"`
	Properties []FixtureProperty `yaml:"properties"`
}

// FixtureProperty declares one property; Type is a value type name.
type FixtureProperty struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// FixtureVertex is one vertex.
type FixtureVertex struct {
	Label      string         `yaml:"label"`
	ID         string         `yaml:"id"`
	Properties map[string]any `yaml:"properties"`
}

// FixtureEdge is one edge; endpoints are written "Label/id".
type FixtureEdge struct {
	Src        string         `yaml:"src"`
	Label      string         `yaml:"label"`
	Dst        string         `yaml:"dst"`
	Properties map[string]any `yaml:"properties"`
}

// LoadFixtureFile reads a YAML fixture from path.
func LoadFixtureFile(path string) (*MemoryGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

// LoadFixture decodes a YAML fixture and builds a MemoryGraph from it.
func LoadFixture(r io.Reader) (*MemoryGraph, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return fx.Build()
}

// Build creates the schema and the graph described by the fixture.
func (fx *Fixture) Build() (*MemoryGraph, error) {
	schema := NewSchema()
	for _, l := range fx.Schema.Vertices {
		props, err := fixtureProps(l.Properties)
		if err != nil {
			return nil, fmt.Errorf("vertex label %s: %w", l.Label, err)
		}
		if _, err := schema.AddVertexLabel(l.Label, props...); err != nil {
			return nil, err
		}
	}
	for _, e := range fx.Schema.Edges {
		props, err := fixtureProps(e.Properties)
		if err != nil {
			return nil, fmt.Errorf("edge type %s: %w", e.Label, err)
		}
		if _, err := schema.AddEdgeType(e.Src, e.Label, e.Dst, props...); err != nil {
			return nil, err
		}
	}

	g := NewMemoryGraph(schema)
	for _, v := range fx.Vertices {
		label, ok := schema.VertexLabel(v.Label)
		if !ok {
			return nil, fmt.Errorf("%w: vertex label %q", ErrUnknownLabel, v.Label)
		}
		props := make(map[string]value.Value, len(v.Properties))
		for k, raw := range v.Properties {
			idx, ok := schema.VertexPropertyIndex(label, k)
			if !ok {
				return nil, fmt.Errorf("vertex %s/%s: unknown property %q", v.Label, v.ID, k)
			}
			pv, err := ConvertProperty(schema.VertexProperties(label)[idx], raw)
			if err != nil {
				return nil, fmt.Errorf("vertex %s/%s property %s: %w", v.Label, v.ID, k, err)
			}
			props[k] = pv
		}
		if _, err := g.AddVertex(label, v.ID, props); err != nil {
			return nil, err
		}
	}

	for _, e := range fx.Edges {
		srcLabel, srcID, err := splitEndpoint(e.Src)
		if err != nil {
			return nil, err
		}
		dstLabel, dstID, err := splitEndpoint(e.Dst)
		if err != nil {
			return nil, err
		}
		t, ok := schema.Triplet(srcLabel, e.Label, dstLabel)
		if !ok {
			return nil, fmt.Errorf("%w: edge type %s-[%s]->%s", ErrUnknownLabel, srcLabel, e.Label, dstLabel)
		}
		src, ok := g.LookupVertex(t.Src, srcID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrVertexNotFound, e.Src)
		}
		dst, ok := g.LookupVertex(t.Dst, dstID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrVertexNotFound, e.Dst)
		}
		defs, _ := schema.EdgeProperties(t)
		vals := make([]value.Value, len(defs))
		for i := range vals {
			vals[i] = value.Null()
		}
		for k, raw := range e.Properties {
			idx, ok := schema.EdgePropertyIndex(t, k)
			if !ok {
				return nil, fmt.Errorf("edge %s->%s: unknown property %q", e.Src, e.Dst, k)
			}
			pv, err := ConvertProperty(defs[idx], raw)
			if err != nil {
				return nil, fmt.Errorf("edge %s->%s property %s: %w", e.Src, e.Dst, k, err)
			}
			vals[idx] = pv
		}
		if err := g.AddEdge(t, src, dst, EdgeData(vals)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func fixtureProps(in []FixtureProperty) ([]PropertyDef, error) {
	out := make([]PropertyDef, len(in))
	for i, p := range in {
		t, ok := value.ParseType(p.Type)
		if !ok {
			return nil, fmt.Errorf("unknown type %q for property %s", p.Type, p.Name)
		}
		out[i] = PropertyDef{Name: p.Name, Type: t}
	}
	return out, nil
}

func splitEndpoint(s string) (label, id string, err error) {
	label, id, ok := strings.Cut(s, "/")
	if ok && label != "" && id != "" {
		return label, id, nil
	}
	return "", "", fmt.Errorf("graph: endpoint %q must be Label/id", s)
}

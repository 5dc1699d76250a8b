package graph

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/orneryd/nornicrt/pkg/evalerr"
	"github.com/orneryd/nornicrt/pkg/value"
)

// Key prefixes for BadgerDB storage organization
const (
	prefixVertex = byte(0x01) // vertex:label:vid -> gob([]storedValue)
	prefixEdge   = byte(0x02) // edge:src:edge:dst:srcVID:dstVID -> gob(storedValue)
	prefixCount  = byte(0x03) // count:label -> uint32
)

// BadgerOptions configures a BadgerGraph.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool

	// CacheSize is the number of decoded vertex records each snapshot keeps.
	// Zero disables the cache.
	CacheSize int

	// Logger for BadgerDB internal logging. If nil, Badger logging is off.
	Logger badger.Logger

	// Log receives the graph's own diagnostics. If nil, the standard logrus
	// logger is used.
	Log logrus.FieldLogger
}

// BadgerGraph persists a property graph in BadgerDB. Reads go through
// snapshots, which see a consistent view and implement Reader.
//
// Key Structure:
//   - Vertices: 0x01 + label + vid(be32) -> gob(properties in schema order)
//   - Edges: 0x02 + src + edge + dst + srcVID + dstVID -> gob(payload)
//   - Counts: 0x03 + label -> be32
type BadgerGraph struct {
	db     *badger.DB
	schema *Schema
	opts   BadgerOptions
	log    *logrus.Entry

	mu     sync.RWMutex
	closed bool
}

// OpenBadger opens (or creates) a BadgerDB-backed graph over schema.
func OpenBadger(schema *Schema, opts BadgerOptions) (*BadgerGraph, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	var log logrus.FieldLogger = logrus.StandardLogger()
	if opts.Log != nil {
		log = opts.Log
	}
	return &BadgerGraph{
		db:     db,
		schema: schema,
		opts:   opts,
		log:    log.WithField("component", "BadgerGraph"),
	}, nil
}

// Schema returns the graph schema.
func (g *BadgerGraph) Schema() *Schema { return g.schema }

// Close closes the database. Open snapshots must be discarded first.
func (g *BadgerGraph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return g.db.Close()
}

// PutVertex stores a vertex with its properties in schema order.
func (g *BadgerGraph) PutVertex(label value.Label, vid value.VID, props []value.Value) error {
	if vid == value.NullVID {
		return fmt.Errorf("%w: null vid", ErrVertexNotFound)
	}
	defs := g.schema.VertexProperties(label)
	if int(label) >= g.schema.VertexLabelCount() {
		return fmt.Errorf("%w: vertex label %d", ErrUnknownLabel, label)
	}
	if len(props) != len(defs) {
		return evalerr.ContextMismatch("%s has %d properties, got %d", g.schema.VertexLabelName(label), len(defs), len(props))
	}
	rec := make([]storedValue, len(props))
	for i, p := range props {
		sv, err := encodeValue(p)
		if err != nil {
			return err
		}
		rec[i] = sv
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return ErrClosed
	}
	return g.db.Update(func(txn *badger.Txn) error {
		key := vertexKey(label, vid)
		_, err := txn.Get(key)
		switch {
		case err == nil:
		case errors.Is(err, badger.ErrKeyNotFound):
			if err := bumpCount(txn, label); err != nil {
				return err
			}
		default:
			return err
		}
		return txn.Set(key, data)
	})
}

// PutEdge stores an edge and its payload.
func (g *BadgerGraph) PutEdge(t value.LabelTriplet, src, dst value.VID, data value.Value) error {
	if _, ok := g.schema.EdgeProperties(t); !ok {
		return fmt.Errorf("%w: edge type %s", ErrUnknownLabel, g.schema.TripletName(t))
	}
	sv, err := encodeValue(data)
	if err != nil {
		return err
	}
	buf, err := encodeRecord([]storedValue{sv})
	if err != nil {
		return err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return ErrClosed
	}
	return g.db.Update(func(txn *badger.Txn) error {
		return txn.Set(edgeKey(t, src, dst), buf)
	})
}

// CopyFrom bulk-loads every vertex and edge of a MemoryGraph, preserving
// vids. Both graphs must share the same schema.
func (g *BadgerGraph) CopyFrom(src *MemoryGraph) error {
	if src.Schema() != g.schema {
		return errors.New("graph: CopyFrom requires the same schema")
	}
	for l := 0; l < g.schema.VertexLabelCount(); l++ {
		label := value.Label(l)
		n := src.VertexCount(label)
		for vid := value.VID(0); int(vid) < n; vid++ {
			props, err := src.VertexProperties(label, vid)
			if err != nil {
				return err
			}
			if err := g.PutVertex(label, vid, props); err != nil {
				return err
			}
		}
	}
	for _, t := range g.schema.Triplets() {
		for _, e := range src.Edges(t) {
			if err := g.PutEdge(t, e.Src, e.Dst, e.Data); err != nil {
				return err
			}
		}
	}
	g.log.WithField("labels", g.schema.VertexLabelCount()).Debug("copied graph into badger")
	return nil
}

// Snapshot opens a read-only view. Callers must call Discard when done.
func (g *BadgerGraph) Snapshot() (*BadgerSnapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, ErrClosed
	}
	s := &BadgerSnapshot{
		graph: g,
		txn:   g.db.NewTransaction(false),
		log:   g.log,
	}
	if g.opts.CacheSize > 0 {
		cache, err := lru.New[vertexCacheKey, []value.Value](g.opts.CacheSize)
		if err != nil {
			s.txn.Discard()
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// BadgerSnapshot is a consistent read view over a BadgerGraph.
type BadgerSnapshot struct {
	graph *BadgerGraph
	log   *logrus.Entry

	// badger read transactions are not safe for concurrent use
	mu  sync.Mutex
	txn *badger.Txn

	cache *lru.Cache[vertexCacheKey, []value.Value]
}

type vertexCacheKey struct {
	label value.Label
	vid   value.VID
}

// Discard releases the snapshot's read transaction.
func (s *BadgerSnapshot) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn != nil {
		s.txn.Discard()
		s.txn = nil
	}
}

// CacheLen returns the number of cached vertex records.
func (s *BadgerSnapshot) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

func (s *BadgerSnapshot) get(key []byte) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn == nil {
		return nil, false, ErrClosed
	}
	item, err := s.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	val, err := item.ValueCopy(nil)
	return val, true, err
}

func (s *BadgerSnapshot) vertexRecord(label value.Label, vid value.VID) ([]value.Value, bool, error) {
	ck := vertexCacheKey{label, vid}
	if s.cache != nil {
		if rec, ok := s.cache.Get(ck); ok {
			return rec, true, nil
		}
	}
	raw, ok, err := s.get(vertexKey(label, vid))
	if err != nil || !ok {
		return nil, ok, err
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		s.cache.Add(ck, rec)
	}
	return rec, true, nil
}

// Schema implements Reader.
func (s *BadgerSnapshot) Schema() *Schema { return s.graph.schema }

// VertexCount implements Reader.
func (s *BadgerSnapshot) VertexCount(label value.Label) int {
	raw, ok, err := s.get(countKey(label))
	if err != nil {
		s.log.WithError(err).Warn("reading vertex count")
		return 0
	}
	if !ok || len(raw) != 4 {
		return 0
	}
	return int(binary.BigEndian.Uint32(raw))
}

// VertexExists implements Reader.
func (s *BadgerSnapshot) VertexExists(label value.Label, vid value.VID) bool {
	if vid == value.NullVID {
		return false
	}
	_, ok, err := s.vertexRecord(label, vid)
	if err != nil {
		s.log.WithError(err).Warn("reading vertex")
	}
	return ok
}

// EdgeExists implements Reader.
func (s *BadgerSnapshot) EdgeExists(t value.LabelTriplet, src, dst value.VID) bool {
	_, ok, err := s.get(edgeKey(t, src, dst))
	if err != nil {
		s.log.WithError(err).Warn("reading edge")
	}
	return ok
}

// VertexProperty implements Reader.
func (s *BadgerSnapshot) VertexProperty(label value.Label, vid value.VID, key string) (value.Value, error) {
	schema := s.graph.schema
	idx, ok := schema.VertexPropertyIndex(label, key)
	if !ok {
		return value.Value{}, evalerr.PropertyNotFound(schema.VertexElementName(label, vid), key)
	}
	rec, ok, err := s.vertexRecord(label, vid)
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return value.Value{}, fmt.Errorf("%w: %s", ErrVertexNotFound, schema.VertexElementName(label, vid))
	}
	return rec[idx], nil
}

// EdgeProperty implements Reader.
func (s *BadgerSnapshot) EdgeProperty(t value.LabelTriplet, src, dst value.VID, key string) (value.Value, error) {
	schema := s.graph.schema
	props, ok := schema.EdgeProperties(t)
	if !ok {
		return value.Value{}, fmt.Errorf("%w: edge type %s", ErrUnknownLabel, schema.TripletName(t))
	}
	idx, ok := schema.EdgePropertyIndex(t, key)
	if !ok {
		return value.Value{}, evalerr.PropertyNotFound(schema.TripletName(t), key)
	}
	raw, found, err := s.get(edgeKey(t, src, dst))
	if err != nil {
		return value.Value{}, err
	}
	if !found {
		return value.Value{}, fmt.Errorf("%w: %s %d->%d", ErrEdgeNotFound, schema.TripletName(t), src, dst)
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return value.Value{}, err
	}
	return EdgeDataProperty(props, rec[0], idx)
}

// VertexPropertyColumn implements Reader.
func (s *BadgerSnapshot) VertexPropertyColumn(label value.Label, key string) (PropertyColumn, error) {
	idx, ok := s.graph.schema.VertexPropertyIndex(label, key)
	if !ok {
		return nil, evalerr.PropertyNotFound(s.graph.schema.VertexLabelName(label), key)
	}
	return ColumnFunc(func(vid value.VID) (value.Value, error) {
		if vid == value.NullVID {
			return value.Null(), nil
		}
		rec, ok, err := s.vertexRecord(label, vid)
		if err != nil {
			return value.Value{}, fmt.Errorf("reading %s: %w", s.graph.schema.VertexElementName(label, vid), err)
		}
		if !ok {
			return value.Null(), nil
		}
		return rec[idx], nil
	}), nil
}

var _ Reader = (*BadgerSnapshot)(nil)

func vertexKey(label value.Label, vid value.VID) []byte {
	key := make([]byte, 6)
	key[0] = prefixVertex
	key[1] = byte(label)
	binary.BigEndian.PutUint32(key[2:], uint32(vid))
	return key
}

func edgeKey(t value.LabelTriplet, src, dst value.VID) []byte {
	key := make([]byte, 12)
	key[0] = prefixEdge
	key[1] = byte(t.Src)
	key[2] = byte(t.Edge)
	key[3] = byte(t.Dst)
	binary.BigEndian.PutUint32(key[4:], uint32(src))
	binary.BigEndian.PutUint32(key[8:], uint32(dst))
	return key
}

func countKey(label value.Label) []byte {
	return []byte{prefixCount, byte(label)}
}

func bumpCount(txn *badger.Txn, label value.Label) error {
	key := countKey(label)
	var n uint32
	item, err := txn.Get(key)
	switch {
	case err == nil:
		if err := item.Value(func(val []byte) error {
			if len(val) == 4 {
				n = binary.BigEndian.Uint32(val)
			}
			return nil
		}); err != nil {
			return err
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return err
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, n+1)
	return txn.Set(key, buf)
}

// storedValue is the gob form of a property value.
type storedValue struct {
	Type uint8
	I    int64
	U    uint64
	F    float64
	S    string
	List []storedValue
}

func encodeValue(v value.Value) (storedValue, error) {
	sv := storedValue{Type: uint8(v.Type())}
	var err error
	switch v.Type() {
	case value.TypeNull:
	case value.TypeBool:
		var b bool
		b, err = v.AsBool()
		if b {
			sv.I = 1
		}
	case value.TypeInt32, value.TypeInt64:
		sv.I, err = v.AsInt64()
	case value.TypeUInt32, value.TypeUInt64:
		var u any = v.ToGo()
		switch n := u.(type) {
		case uint32:
			sv.U = uint64(n)
		case uint64:
			sv.U = n
		}
	case value.TypeDouble:
		sv.F, err = v.AsFloat64()
	case value.TypeString:
		sv.S, err = v.AsString()
	case value.TypeDate:
		t, _ := v.AsTime()
		sv.I = t.Unix() / 86400
	case value.TypeTimestamp:
		t, _ := v.AsTime()
		sv.I = t.UnixMilli()
	case value.TypeList:
		var items []value.Value
		items, err = v.AsList()
		sv.List = make([]storedValue, len(items))
		for i, item := range items {
			if sv.List[i], err = encodeValue(item); err != nil {
				return storedValue{}, err
			}
		}
	default:
		return storedValue{}, evalerr.TypeMismatch("cannot store %s property", v.Type())
	}
	return sv, err
}

func decodeValue(sv storedValue) (value.Value, error) {
	switch value.Type(sv.Type) {
	case value.TypeNull, value.TypeUnknown:
		return value.Null(), nil
	case value.TypeBool:
		return value.Bool(sv.I == 1), nil
	case value.TypeInt32:
		return value.Int32(int32(sv.I)), nil
	case value.TypeInt64:
		return value.Int64(sv.I), nil
	case value.TypeUInt32:
		return value.UInt32(uint32(sv.U)), nil
	case value.TypeUInt64:
		return value.UInt64(sv.U), nil
	case value.TypeDouble:
		return value.Double(sv.F), nil
	case value.TypeString:
		return value.String(sv.S), nil
	case value.TypeDate:
		return value.Date(int32(sv.I)), nil
	case value.TypeTimestamp:
		return value.Timestamp(sv.I), nil
	case value.TypeList:
		items := make([]value.Value, len(sv.List))
		for i, item := range sv.List {
			v, err := decodeValue(item)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.List(items), nil
	}
	return value.Value{}, fmt.Errorf("graph: corrupt stored value type %d", sv.Type)
}

func encodeRecord(rec []storedValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) ([]value.Value, error) {
	var rec []storedValue
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	out := make([]value.Value, len(rec))
	for i, sv := range rec {
		v, err := decodeValue(sv)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

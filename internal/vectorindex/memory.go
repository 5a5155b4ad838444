package vectorindex

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

const memorySnapshotMagic uint32 = 0x4B4F5458 // "KOTX"

// MemoryIndex is a brute-force in-memory index with optional snapshot
// persistence. Suitable for local deployments and tests; records are scanned
// linearly at query time.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	// namespace -> id -> record
	namespaces map[string]map[string]Record
	path       string
	logger     *zap.Logger
	closed     bool
}

// MemoryOption configures a MemoryIndex.
type MemoryOption func(*MemoryIndex)

// WithSnapshotPath enables Save/Load persistence at path.
func WithSnapshotPath(path string) MemoryOption {
	return func(m *MemoryIndex) { m.path = path }
}

// WithMemoryLogger sets the logger.
func WithMemoryLogger(logger *zap.Logger) MemoryOption {
	return func(m *MemoryIndex) { m.logger = logger }
}

// NewMemoryIndex creates an in-memory index of the given dimension.
func NewMemoryIndex(dimension int, metric Metric, opts ...MemoryOption) (*MemoryIndex, error) {
	if dimension <= 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("invalid dimension %d", dimension)}
	}
	if metric == "" {
		metric = MetricCosine
	}
	m := &MemoryIndex{
		dimension:  dimension,
		metric:     metric,
		namespaces: make(map[string]map[string]Record),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create loads a snapshot if one exists at the configured path. Creating an
// already-loaded index is a no-op; a snapshot with a different dimension is a
// configuration error.
func (m *MemoryIndex) Create(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return nil
	}
	if _, err := os.Stat(m.path); os.IsNotExist(err) {
		return nil
	}
	if len(m.namespaces) > 0 {
		return nil
	}
	if err := m.loadLocked(); err != nil {
		return err
	}
	m.logger.Info("loaded vector snapshot",
		zap.String("path", m.path),
		zap.Int("namespaces", len(m.namespaces)))
	return nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, records []Record, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return &BackendError{Op: "upsert", Err: fmt.Errorf("index closed")}
	}
	for _, r := range records {
		if len(r.Vector) != m.dimension {
			return &ConfigError{Msg: fmt.Sprintf("record %s has dimension %d, index expects %d",
				r.ID, len(r.Vector), m.dimension)}
		}
	}
	ns := m.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]Record, len(records))
		m.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = r
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, namespace string) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vector) != m.dimension {
		return nil, &ConfigError{Msg: fmt.Sprintf("query vector has dimension %d, index expects %d",
			len(vector), m.dimension)}
	}
	if topK <= 0 {
		return []Match{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	ns := m.namespaces[namespace]
	if len(ns) == 0 {
		return []Match{}, nil
	}

	matches := make([]Match, 0, len(ns))
	for _, r := range ns {
		var score float64
		switch m.metric {
		case MetricDotProduct:
			score = InnerProduct(vector, r.Vector)
		default:
			score = CosineSimilarity(vector, r.Vector)
		}
		matches = append(matches, Match{ID: r.ID, Score: score, Metadata: r.Metadata})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) Delete(ctx context.Context, ids []string, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaces[namespace]
	if ns == nil {
		return nil
	}
	for _, id := range ids {
		delete(ns, id)
	}
	if len(ns) == 0 {
		delete(m.namespaces, namespace)
	}
	return nil
}

func (m *MemoryIndex) DeleteAll(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

func (m *MemoryIndex) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{Dimension: m.dimension, Namespaces: make(map[string]int, len(m.namespaces))}
	for name, ns := range m.namespaces {
		st.Vectors += len(ns)
		st.Namespaces[name] = len(ns)
	}
	return st, nil
}

// Close writes a snapshot when a path is configured.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.path == "" {
		return nil
	}
	return m.saveLocked()
}

// Save writes the current contents to the configured snapshot path.
func (m *MemoryIndex) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveLocked()
}

func (m *MemoryIndex) saveLocked() error {
	if m.path == "" {
		return fmt.Errorf("no snapshot path configured")
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := m.writeSnapshot(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp, m.path)
}

func (m *MemoryIndex) writeSnapshot(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, memorySnapshotMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimension)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.namespaces))); err != nil {
		return err
	}
	for name, ns := range m.namespaces {
		if err := writeString(w, name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(ns))); err != nil {
			return err
		}
		for _, r := range ns {
			if err := writeString(w, r.ID); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, r.Vector); err != nil {
				return err
			}
			if err := writeString(w, r.Metadata.Source); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, int32(r.Metadata.ChunkIndex)); err != nil {
				return err
			}
			if err := writeString(w, r.Metadata.DocumentID); err != nil {
				return err
			}
			if err := writeString(w, r.Metadata.Text); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MemoryIndex) loadLocked() error {
	f, err := os.Open(m.path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return m.readSnapshot(f)
}

func (m *MemoryIndex) readSnapshot(r io.Reader) error {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if magic != memorySnapshotMagic {
		return fmt.Errorf("not a vector snapshot (magic %#x)", magic)
	}
	var dim uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimension: %w", err)
	}
	if int(dim) != m.dimension {
		return &ConfigError{Msg: fmt.Sprintf("snapshot dimension %d, index expects %d", dim, m.dimension)}
	}
	var nsCount uint32
	if err := binary.Read(r, binary.LittleEndian, &nsCount); err != nil {
		return fmt.Errorf("read namespace count: %w", err)
	}
	namespaces := make(map[string]map[string]Record, nsCount)
	for i := uint32(0); i < nsCount; i++ {
		name, err := readString(r)
		if err != nil {
			return fmt.Errorf("read namespace name: %w", err)
		}
		var recCount uint32
		if err := binary.Read(r, binary.LittleEndian, &recCount); err != nil {
			return fmt.Errorf("read record count: %w", err)
		}
		ns := make(map[string]Record, recCount)
		for j := uint32(0); j < recCount; j++ {
			var rec Record
			if rec.ID, err = readString(r); err != nil {
				return fmt.Errorf("read record id: %w", err)
			}
			rec.Vector = make([]float32, dim)
			if err := binary.Read(r, binary.LittleEndian, rec.Vector); err != nil {
				return fmt.Errorf("read vector: %w", err)
			}
			if rec.Metadata.Source, err = readString(r); err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			var idx int32
			if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
				return fmt.Errorf("read chunk index: %w", err)
			}
			rec.Metadata.ChunkIndex = int(idx)
			if rec.Metadata.DocumentID, err = readString(r); err != nil {
				return fmt.Errorf("read document id: %w", err)
			}
			if rec.Metadata.Text, err = readString(r); err != nil {
				return fmt.Errorf("read text: %w", err)
			}
			ns[rec.ID] = rec
		}
		namespaces[name] = ns
	}
	m.namespaces = namespaces
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

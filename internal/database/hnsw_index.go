package database

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-tagger/internal/facematch"
)

// ReferenceIndexMetadata stores metadata for validating cached reference indexes.
type ReferenceIndexMetadata struct {
	Labels     int       `json:"labels"`
	References int       `json:"references"`
	Dim        int       `json:"dim"`
	Checksum   string    `json:"checksum"`
	BuildTime  time.Time `json:"build_time"`
	Version    int       `json:"version"` // For future compatibility
}

const referenceIndexVersion = 1

// MetadataFor describes a collection the way a saved index does.
func MetadataFor(c facematch.Collection) ReferenceIndexMetadata {
	dim, _ := c.Dim()
	return ReferenceIndexMetadata{
		Labels:     len(c),
		References: c.EmbeddingCount(),
		Dim:        dim,
		Checksum:   checksum(c),
		Version:    referenceIndexVersion,
	}
}

// checksum fingerprints labels and embedding values.
func checksum(c facematch.Collection) string {
	h := fnv.New64a()
	var buf [4]byte
	for _, set := range c {
		h.Write([]byte(set.Label))
		h.Write([]byte{0})
		for _, emb := range set.Embeddings {
			for _, v := range emb {
				binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
				h.Write(buf[:])
			}
		}
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Matches reports whether the metadata was saved for this collection.
func (m ReferenceIndexMetadata) Matches(c facematch.Collection) bool {
	want := MetadataFor(c)
	return m.Version == want.Version && m.Labels == want.Labels &&
		m.References == want.References && m.Dim == want.Dim && m.Checksum == want.Checksum
}

// Neighbor is one reference embedding returned by a nearest-neighbor search.
type Neighbor struct {
	Label    string  `json:"label"`
	Position int     `json:"position"`
	Distance float64 `json:"distance"`
}

// ReferenceIndex wraps an HNSW graph over every reference embedding of a
// collection, using Euclidean distance like the matcher.
type ReferenceIndex struct {
	graph *hnsw.Graph[int64]
	refs  map[int64]StoredReference // Maps HNSW node ID to reference
	dim   int
	mu    sync.RWMutex
}

// NewReferenceIndex creates a new empty index.
func NewReferenceIndex() *ReferenceIndex {
	return &ReferenceIndex{
		refs: make(map[int64]StoredReference),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

// References flattens a collection into stored references with sequential IDs.
func References(c facematch.Collection) []StoredReference {
	refs := make([]StoredReference, 0, c.EmbeddingCount())
	var id int64
	for _, set := range c {
		for pos, emb := range set.Embeddings {
			id++
			refs = append(refs, StoredReference{
				ID:        id,
				Label:     set.Label,
				Position:  pos,
				Embedding: emb.Clone(),
			})
		}
	}
	return refs
}

// Build replaces the index contents with the embeddings of c.
func (h *ReferenceIndex) Build(c facematch.Collection) error {
	dim, err := c.Dim()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.refs = make(map[int64]StoredReference)
	h.dim = dim
	h.graph = nil

	refs := References(c)
	if len(refs) == 0 {
		return nil
	}

	g := newGraph()
	for _, ref := range refs {
		g.Add(hnsw.MakeNode(ref.ID, ref.Embedding))
		h.refs[ref.ID] = ref
	}
	h.graph = g
	return nil
}

// Search finds the k reference embeddings closest to the query, nearest first.
func (h *ReferenceIndex) Search(query facematch.Embedding, k int) ([]Neighbor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, errors.New("index not initialized")
	}
	if len(query) != h.dim {
		return nil, fmt.Errorf("%w: query has %d values, index has %d",
			facematch.ErrDimensionMismatch, len(query), h.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	nodes := h.graph.Search([]float32(query), k)

	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		ref, ok := h.refs[n.Key]
		if !ok {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			Label:    ref.Label,
			Position: ref.Position,
			Distance: facematch.EuclideanDistance(query, facematch.Embedding(n.Value)),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	return neighbors, nil
}

// Count returns the number of indexed references.
func (h *ReferenceIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.refs)
}

// IsEmpty returns true if the index has no graph data loaded.
func (h *ReferenceIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil
}

// Save persists the graph to path, metadata to path.meta and references to path.refs.
func (h *ReferenceIndex) Save(path string, metadata ReferenceIndexMetadata) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		// Remove existing files if index is empty (best-effort cleanup).
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		_ = os.Remove(path + ".refs")
		return nil
	}

	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	if err := h.graph.Export(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to export HNSW graph: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close HNSW index file: %w", err)
	}

	metadata.Version = referenceIndexVersion
	metaData, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", metaData, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	refs := make([]StoredReference, 0, len(h.refs))
	for _, ref := range h.refs {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(refs); err != nil {
		return fmt.Errorf("failed to encode references: %w", err)
	}
	if err := os.WriteFile(path+".refs", buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write references file: %w", err)
	}
	return nil
}

// LoadReferenceMetadata loads metadata from a separate .meta file.
func LoadReferenceMetadata(path string) (ReferenceIndexMetadata, error) {
	var metadata ReferenceIndexMetadata

	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata file: %w", err)
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return metadata, nil
}

// Load reads a graph and its references saved by Save.
func (h *ReferenceIndex) Load(path string) error {
	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	data, err := os.ReadFile(path + ".refs") //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to read references file: %w", err)
	}
	var refs []StoredReference
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&refs); err != nil {
		return fmt.Errorf("failed to decode references: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = saved.Graph
	h.refs = make(map[int64]StoredReference, len(refs))
	h.dim = 0
	for _, ref := range refs {
		h.refs[ref.ID] = ref
		h.dim = len(ref.Embedding)
	}
	return nil
}

// LoadOrBuild loads the index at path when its metadata matches c and
// rebuilds it otherwise. The rebuilt index is saved when path is set.
func (h *ReferenceIndex) LoadOrBuild(path string, c facematch.Collection) (loaded bool, err error) {
	if path != "" {
		if meta, err := LoadReferenceMetadata(path); err == nil && meta.Matches(c) {
			if err := h.Load(path); err == nil {
				return true, nil
			}
		}
	}

	if err := h.Build(c); err != nil {
		return false, err
	}
	if path == "" {
		return false, nil
	}

	meta := MetadataFor(c)
	meta.BuildTime = time.Now()
	return false, h.Save(path, meta)
}

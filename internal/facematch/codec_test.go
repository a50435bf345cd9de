package facematch

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestCodec_RoundTripIsExact(t *testing.T) {
	c := Collection{
		{Label: "alice", Embeddings: []Embedding{
			{0.1, -0.2, 0.30000001, 1e-7},
			{float32(math.Pi), -float32(math.E), math.MaxFloat32, math.SmallestNonzeroFloat32},
		}},
		{Label: "Jiří Novák", Embeddings: []Embedding{
			{0, 0, 0, 0},
		}},
	}

	data, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(got) != len(c) {
		t.Fatalf("got %d labels, want %d", len(got), len(c))
	}
	for i := range c {
		if got[i].Label != c[i].Label {
			t.Errorf("label %d = %q, want %q", i, got[i].Label, c[i].Label)
		}
		if len(got[i].Embeddings) != len(c[i].Embeddings) {
			t.Fatalf("label %q: got %d embeddings, want %d", c[i].Label, len(got[i].Embeddings), len(c[i].Embeddings))
		}
		for j, emb := range c[i].Embeddings {
			for k, v := range emb {
				if math.Float32bits(got[i].Embeddings[j][k]) != math.Float32bits(v) {
					t.Errorf("label %q embedding %d value %d = %v, want %v", c[i].Label, j, k, got[i].Embeddings[j][k], v)
				}
			}
		}
	}
}

func TestCodec_TransportShape(t *testing.T) {
	data, err := Marshal(Collection{{Label: "bob", Embeddings: []Embedding{{0.5, 1}}}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `[{"label":"bob","descriptors":[[0.5,1]]}]`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestCodec_EmptyCollection(t *testing.T) {
	data, err := Marshal(Collection{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Marshal() = %s, want []", data)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty collection, got %d labels", len(got))
	}
}

func TestUnmarshal_Corrupt(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{{{`},
		{"truncated", `[{"label":"a","descriptors":[[0.1,`},
		{"object instead of array", `{"label":"a","descriptors":[[1]]}`},
		{"null document", `null`},
		{"null value", `[{"label":"a","descriptors":[[0.1,null]]}]`},
		{"string value", `[{"label":"a","descriptors":[[0.1,"x"]]}]`},
		{"missing label", `[{"descriptors":[[0.1]]}]`},
		{"empty label", `[{"label":"","descriptors":[[0.1]]}]`},
		{"no descriptors", `[{"label":"a","descriptors":[]}]`},
		{"missing descriptors", `[{"label":"a"}]`},
		{"empty descriptor", `[{"label":"a","descriptors":[[]]}]`},
		{"mixed dimensions in a label", `[{"label":"a","descriptors":[[0.1,0.2],[0.1]]}]`},
		{"mixed dimensions across labels", `[{"label":"a","descriptors":[[0.1,0.2]]},{"label":"b","descriptors":[[0.1]]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.input))
			if !errors.Is(err, ErrCorruptTrainingData) {
				t.Errorf("Unmarshal() error = %v, want ErrCorruptTrainingData", err)
			}
		})
	}
}

func TestUnmarshal_DimensionMismatchIsVisible(t *testing.T) {
	_, err := Unmarshal([]byte(`[{"label":"a","descriptors":[[1,2]]},{"label":"b","descriptors":[[1]]}]`))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), `"b"`) {
		t.Errorf("expected offending label in message, got %v", err)
	}
}

func TestCollection_Find(t *testing.T) {
	c := Collection{
		{Label: "Jan Novák", Embeddings: []Embedding{{1}}},
		{Label: "alice", Embeddings: []Embedding{{2}}},
	}

	tests := []struct {
		query string
		want  string
		found bool
	}{
		{"jan-novak", "Jan Novák", true},
		{"JAN_NOVAK", "Jan Novák", true},
		{"Alice", "alice", true},
		{"bob", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := c.Find(tt.query)
			if ok != tt.found {
				t.Fatalf("Find(%q) found = %v, want %v", tt.query, ok, tt.found)
			}
			if got.Label != tt.want {
				t.Errorf("Find(%q) = %q, want %q", tt.query, got.Label, tt.want)
			}
		})
	}
}

func TestCollection_Counts(t *testing.T) {
	c := Collection{
		{Label: "a", Embeddings: []Embedding{{1, 2}, {3, 4}}},
		{Label: "b", Embeddings: []Embedding{{5, 6}}},
	}

	if c.EmbeddingCount() != 3 {
		t.Errorf("EmbeddingCount() = %d, want 3", c.EmbeddingCount())
	}
	dim, err := c.Dim()
	if err != nil || dim != 2 {
		t.Errorf("Dim() = %d, %v, want 2, nil", dim, err)
	}
	if labels := c.Labels(); len(labels) != 2 || labels[0] != "a" || labels[1] != "b" {
		t.Errorf("Labels() = %v", labels)
	}
}

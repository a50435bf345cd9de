package facematch

import (
	"encoding/json"
	"fmt"
)

// labeledRecord is the transport form of one label:
// {"label": "alice", "descriptors": [[0.1, ...], ...]}.
type labeledRecord struct {
	Label       string      `json:"label"`
	Descriptors [][]float32 `json:"descriptors"`
}

// decodedRecord mirrors labeledRecord with pointer entries so null values are detectable.
type decodedRecord struct {
	Label       string       `json:"label"`
	Descriptors [][]*float32 `json:"descriptors"`
}

// Marshal serializes a collection to the training data transport format.
// float32 values are written in their shortest exact decimal form.
func Marshal(c Collection) ([]byte, error) {
	records := make([]labeledRecord, len(c))
	for i := range c {
		descriptors := make([][]float32, len(c[i].Embeddings))
		for j, emb := range c[i].Embeddings {
			descriptors[j] = emb
		}
		records[i] = labeledRecord{Label: c[i].Label, Descriptors: descriptors}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal training data: %w", err)
	}
	return data, nil
}

// Unmarshal decodes the transport format back into a collection.
// Any structural problem is reported as ErrCorruptTrainingData.
func Unmarshal(data []byte) (Collection, error) {
	var records []decodedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptTrainingData, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: expected an array of labels", ErrCorruptTrainingData)
	}

	c := make(Collection, 0, len(records))
	for i, rec := range records {
		set := LabeledEmbeddings{
			Label:      rec.Label,
			Embeddings: make([]Embedding, 0, len(rec.Descriptors)),
		}
		for j, desc := range rec.Descriptors {
			emb := make(Embedding, len(desc))
			for k, v := range desc {
				if v == nil {
					return nil, fmt.Errorf("%w: record %d descriptor %d value %d is null",
						ErrCorruptTrainingData, i, j, k)
				}
				emb[k] = *v
			}
			set.Embeddings = append(set.Embeddings, emb)
		}
		c = append(c, set)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptTrainingData, err)
	}
	return c, nil
}

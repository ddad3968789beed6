package circuitio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/theapemachine/qsim"
	"gopkg.in/yaml.v3"
)

// ResultDoc is the serialized form of a qsim.Result.
type ResultDoc struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	Mode        string         `json:"mode" yaml:"mode"`
	Qubits      int            `json:"qubits" yaml:"qubits"`
	Clbits      int            `json:"clbits" yaml:"clbits"`
	Shots       int            `json:"shots,omitempty" yaml:"shots,omitempty"`
	Seed        uint64         `json:"seed" yaml:"seed"`
	FastPath    bool           `json:"fast_path,omitempty" yaml:"fast_path,omitempty"`
	DurationMS  float64        `json:"duration_ms" yaml:"duration_ms"`
	Counts      map[string]int `json:"counts,omitempty" yaml:"counts,omitempty"`
	Memory      []string       `json:"memory,omitempty" yaml:"memory,omitempty"`
	Statevector [][]float64    `json:"statevector,omitempty" yaml:"statevector,omitempty"`
	Unitary     [][][]float64  `json:"unitary,omitempty" yaml:"unitary,omitempty"`
}

// NewResultDoc flattens complex amplitudes into [re, im] pairs.
func NewResultDoc(res *qsim.Result) ResultDoc {
	doc := ResultDoc{
		ID:         res.ID,
		Name:       res.Name,
		Mode:       res.Mode.String(),
		Qubits:     res.NumQubits,
		Clbits:     res.NumClbits,
		Shots:      res.Shots,
		Seed:       res.Seed,
		FastPath:   res.FastPath,
		DurationMS: float64(res.Duration.Microseconds()) / 1000,
		Counts:     res.Counts,
		Memory:     res.Memory,
	}

	if res.Statevector != nil {
		doc.Statevector = make([][]float64, len(res.Statevector))
		for i, a := range res.Statevector {
			doc.Statevector[i] = []float64{real(a), imag(a)}
		}
	}

	if res.Unitary != nil {
		doc.Unitary = encodeMatrix(res.Unitary)
	}

	return doc
}

// WriteResult encodes res as "json" or "yaml".
func WriteResult(w io.Writer, res *qsim.Result, format string) error {
	doc := NewResultDoc(res)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}

	return fmt.Errorf("unknown result format %q", format)
}

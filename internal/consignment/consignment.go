package consignment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/illarion/revealstash/internal/crypto"
)

// Version is the consignment format version written by Encode
const Version = 1

var (
	ErrUnknownFormat      = errors.New("unknown consignment format")
	ErrUnsupportedVersion = errors.New("unsupported consignment version")
)

// Format selects the text encoding of a consignment file
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Consignment is a transfer package of nodes, each at whatever disclosure
// level the sender chose. Node ids are unique within a consignment.
type Consignment struct {
	Version int    `json:"version"`
	Nodes   []Node `json:"nodes"`
}

// New builds a consignment from nodes, merging repeated ids
func New(nodes ...Node) (*Consignment, error) {
	c := &Consignment{Version: Version}
	index := make(map[crypto.Digest]int, len(nodes))
	for _, n := range nodes {
		i, ok := index[n.ID]
		if !ok {
			index[n.ID] = len(c.Nodes)
			c.Nodes = append(c.Nodes, n)
			continue
		}
		merged, err := Merge(c.Nodes[i], n)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID.Short(), err)
		}
		c.Nodes[i] = merged
	}
	return c, nil
}

// Find returns the node with the given id
func (c *Consignment) Find(id crypto.Digest) (Node, bool) {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Conceal returns a copy of c with every state fully hidden
func Conceal(c *Consignment) *Consignment {
	concealed := &Consignment{Version: c.Version, Nodes: make([]Node, len(c.Nodes))}
	for i, n := range c.Nodes {
		concealed.Nodes[i] = n.Conceal()
	}
	return concealed
}

// Decode parses a consignment and validates every node id
func Decode(data []byte, format Format) (*Consignment, error) {
	switch format {
	case FormatJSON:
	case FormatYAML:
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	var raw Consignment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode consignment: %w", err)
	}
	if raw.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, raw.Version)
	}
	return New(raw.Nodes...)
}

// Encode writes c in the given format
func Encode(c *Consignment, format Format) ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode consignment: %w", err)
	}

	switch format {
	case FormatJSON:
		return append(data, '\n'), nil
	case FormatYAML:
		return jsonToYAML(data)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	doc, err := stringKeys(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func jsonToYAML(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(plainNumbers(doc)); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// stringKeys rewrites yaml mappings into the string-keyed maps JSON needs
func stringKeys(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			converted, err := stringKeys(item)
			if err != nil {
				return nil, err
			}
			t[k] = converted
		}
		return t, nil
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("failed to parse yaml: non-string key %v", k)
			}
			converted, err := stringKeys(item)
			if err != nil {
				return nil, err
			}
			m[key] = converted
		}
		return m, nil
	case []any:
		for i, item := range t {
			converted, err := stringKeys(item)
			if err != nil {
				return nil, err
			}
			t[i] = converted
		}
		return t, nil
	}
	return v, nil
}

// plainNumbers replaces json.Number with the narrowest Go number that holds it
func plainNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = plainNumbers(item)
		}
	case []any:
		for i, item := range t {
			t[i] = plainNumbers(item)
		}
	case json.Number:
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}

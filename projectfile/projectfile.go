// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package projectfile reads and writes citk project descriptors: YAML files with a "variables"
// mapping holding the repository URL and the known branches and tags of a project.
//
// The descriptor is kept as a YAML node tree, so keys this package doesn't know about, their order
// and their comments survive a round trip.
package projectfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/openbase/citk-version-updater/stringutil"
	"go.yaml.in/yaml/v4"
	"golang.org/x/text/transform"
)

// Keys used in the descriptor.
const (
	VariablesKey  = "variables"
	RepositoryKey = "repository"
	BranchesKey   = "branches"
	TagsKey       = "tags"
)

// ErrMissingRepository is returned when a descriptor has no repository URL.
var ErrMissingRepository = errors.New("project descriptor has no " + VariablesKey + "." + RepositoryKey + " entry")

// Descriptor is a parsed project descriptor.
type Descriptor struct {
	doc *yaml.Node
	// variables is the "variables" mapping node inside doc.
	variables *yaml.Node
}

// Read parses the descriptor at path.
func Read(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("unable to parse %v: %w", path, err)
	}
	return d, nil
}

// Parse parses a descriptor from r. A descriptor without a "variables" mapping is accepted, and the
// mapping is created when a list is set.
func Parse(r io.Reader) (*Descriptor, error) {
	// YAML parser is fragile with CRLF vs. LF. Normalize to LF before parsing.
	dec := yaml.NewDecoder(transform.NewReader(r, stringutil.CRLFToLF{}))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("project descriptor is empty")
		}
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("unexpected YAML document structure")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("project descriptor root is a %v, expected a mapping", kindStr(root))
	}
	d := &Descriptor{doc: &doc}
	if v := lookup(root, VariablesKey); v != nil {
		if v.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%q is a %v, expected a mapping", VariablesKey, kindStr(v))
		}
		d.variables = v
	}
	return d, nil
}

// Repository returns the repository URL, or ErrMissingRepository.
func (d *Descriptor) Repository() (string, error) {
	n := lookup(d.variables, RepositoryKey)
	if n == nil || n.Kind != yaml.ScalarNode || n.Value == "" {
		return "", ErrMissingRepository
	}
	return n.Value, nil
}

// Branches returns the branches currently listed in the descriptor.
func (d *Descriptor) Branches() []string {
	return d.list(BranchesKey)
}

// Tags returns the tags currently listed in the descriptor.
func (d *Descriptor) Tags() []string {
	return d.list(TagsKey)
}

// SetBranches replaces the branch list and returns the change in its length.
func (d *Descriptor) SetBranches(branches []string) int {
	return d.setList(BranchesKey, branches)
}

// SetTags replaces the tag list and returns the change in its length.
func (d *Descriptor) SetTags(tags []string) int {
	return d.setList(TagsKey, tags)
}

// Encode writes the descriptor as YAML to w.
func (d *Descriptor) Encode(w io.Writer) error {
	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	e.DefaultSeqIndent()
	if err := errors.Join(
		e.Encode(d.doc),
		e.Close(),
	); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

// Write encodes the descriptor and replaces the file at path with the result.
func (d *Descriptor) Write(path string) error {
	var b bytes.Buffer
	if err := d.Encode(&b); err != nil {
		return err
	}
	return stringutil.WriteFileAtomic(path, b.Bytes())
}

func (d *Descriptor) list(key string) []string {
	n := lookup(d.variables, key)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	values := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Kind == yaml.ScalarNode {
			values = append(values, c.Value)
		}
	}
	return values
}

func (d *Descriptor) setList(key string, values []string) int {
	old := len(d.list(key))

	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range values {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v})
	}

	if d.variables == nil {
		d.variables = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		root := d.doc.Content[0]
		root.Content = append(root.Content, scalar(VariablesKey), d.variables)
	}
	if i := index(d.variables, key); i >= 0 {
		prev := d.variables.Content[i+1]
		seq.HeadComment = prev.HeadComment
		seq.LineComment = prev.LineComment
		seq.FootComment = prev.FootComment
		d.variables.Content[i+1] = seq
	} else {
		d.variables.Content = append(d.variables.Content, scalar(key), seq)
	}
	return len(values) - old
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// index returns the index of the key node for key in mapping m, or -1.
func index(m *yaml.Node, key string) int {
	if m == nil {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

// lookup returns the value node for key in mapping m, or nil.
func lookup(m *yaml.Node, key string) *yaml.Node {
	if i := index(m, key); i >= 0 {
		return m.Content[i+1]
	}
	return nil
}

func kindStr(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "Document"
	case yaml.MappingNode:
		return "Mapping"
	case yaml.SequenceNode:
		return "Sequence"
	case yaml.ScalarNode:
		return "Scalar"
	case yaml.AliasNode:
		return "Alias"
	default:
		return fmt.Sprintf("UnknownKind(%d)", n.Kind)
	}
}

// Package document defines the structured document tree produced by the
// wikitext parser and consumed by every sink.
package document

import (
	jsoniter "github.com/json-iterator/go"
)

// Kind is one of the closed set of node types a document tree may contain.
type Kind string

const (
	KindRoot     Kind = "root"
	KindSection  Kind = "section"
	KindText     Kind = "text"
	KindTemplate Kind = "template"
	KindSee      Kind = "see"
	KindDo       Kind = "do"
	KindBuy      Kind = "buy"
	KindEat      Kind = "eat"
	KindDrink    Kind = "drink"
	KindSleep    Kind = "sleep"
	KindListing  Kind = "listing"
)

// ListingKinds is the closed set of listing-template node kinds, keyed by
// the lowercased template name that produces them.
var ListingKinds = map[string]Kind{
	"see":     KindSee,
	"do":      KindDo,
	"buy":     KindBuy,
	"eat":     KindEat,
	"drink":   KindDrink,
	"sleep":   KindSleep,
	"listing": KindListing,
}

// DocumentTemplates is the closed set of template names whose effect is
// metadata on the whole page rather than an in-body element, keyed by
// the lowercased template name.
var DocumentTemplates = map[string]bool{
	"pagebanner":  true,
	"mapframe":    true,
	"routebox":    true,
	"geo":         true,
	"ispartof":    true,
	"usablecity":  true,
	"guidecity":   true,
	"outlinecity": true,
}

// Properties holds a node's properties. Values are string,
// map[string]string, or int (a section's level); root and template nodes
// are the only kinds that use the nested-map form.
type Properties map[string]any

// Node is one node of the rooted ordered document tree described in
// spec.md §3. Children is never nil so that JSON serialization always
// emits "[]" rather than "null" for leaf nodes.
type Node struct {
	Type       Kind       `json:"type"`
	Properties Properties `json:"properties"`
	Children   []*Node    `json:"children"`
}

// NewNode returns a Node with initialized (non-nil) Properties and
// Children, ready to be appended to and serialized.
func NewNode(kind Kind) *Node {
	return &Node{
		Type:       kind,
		Properties: Properties{},
		Children:   []*Node{},
	}
}

// NewRoot returns a fresh, empty root node.
func NewRoot() *Node {
	return NewNode(KindRoot)
}

// canonicalJSON sorts map keys on encode, matching spec.md §3's
// "serialization may canonicalize by sorting keys."
var canonicalJSON = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// Marshal encodes a node tree as compact, canonical-key-order JSON.
func Marshal(n *Node) ([]byte, error) {
	return canonicalJSON.Marshal(n)
}

// Unmarshal decodes a node tree from JSON, for round-trip tests.
func Unmarshal(data []byte) (*Node, error) {
	var n Node
	if err := canonicalJSON.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	normalize(&n)
	return &n, nil
}

// normalize fills in empty (but non-nil) Properties/Children after
// decoding, so a round-tripped tree compares equal to the original.
func normalize(n *Node) {
	if n.Properties == nil {
		n.Properties = Properties{}
	}
	if n.Children == nil {
		n.Children = []*Node{}
	}
	for _, c := range n.Children {
		normalize(c)
	}
}

// Equal reports whether two trees are structurally identical: same type,
// same properties (including nested string maps), and same children in
// the same order.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type {
		return false
	}
	if !propertiesEqual(a.Properties, b.Properties) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func propertiesEqual(a, b Properties) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !valueEqual(av, bv) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		return numberEqual(float64(av), b)
	case float64:
		return numberEqual(av, b)
	case map[string]string:
		bv, ok := b.(map[string]string)
		if !ok {
			// Decoded JSON nested objects surface as map[string]any.
			bvAny, ok := b.(map[string]any)
			if !ok || len(bvAny) != len(av) {
				return false
			}
			for k, v := range av {
				s, ok := bvAny[k].(string)
				if !ok || s != v {
					return false
				}
			}
			return true
		}
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if bv[k] != v {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(bv) != len(av) {
			return false
		}
		for k, v := range av {
			if !valueEqual(v, bv[k]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func numberEqual(a float64, b any) bool {
	switch bv := b.(type) {
	case int:
		return a == float64(bv)
	case float64:
		return a == bv
	default:
		return false
	}
}

package scsb

import "github.com/nypl/scsbxml/internal/marc"

// MARCXMLNamespace is set on every collection element.
const MARCXMLNamespace = "http://www.loc.gov/MARC21/slim"

// Attr is a node attribute.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is an element of the export tree. A node carries either a scalar
// Value or Children. Attributes and children keep insertion order.
type Node struct {
	Name     string  `json:"name"`
	Attrs    []Attr  `json:"attrs,omitempty"`
	Value    string  `json:"value,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// NewNode creates a container node.
func NewNode(name string, children ...*Node) *Node {
	return &Node{Name: name, Children: children}
}

// Leaf creates a scalar node.
func Leaf(name, value string, attrs ...Attr) *Node {
	return &Node{Name: name, Value: value, Attrs: attrs}
}

// WithAttr appends an attribute and returns the node.
func (n *Node) WithAttr(name, value string) *Node {
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// Add appends children and returns the node.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child with the given name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find walks a path of first-matching child names. It returns nil when
// any step is missing.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, name := range path {
		if cur == nil {
			return nil
		}
		cur = cur.Child(name)
	}
	return cur
}

// FieldNode maps a MARC field onto a controlfield or datafield element.
func FieldNode(f marc.Field) *Node {
	if f.IsControl() {
		return Leaf("controlfield", f.Value, Attr{"tag", f.Tag})
	}
	n := NewNode("datafield").
		WithAttr("ind1", indicator(f.Ind1)).
		WithAttr("ind2", indicator(f.Ind2)).
		WithAttr("tag", f.Tag)
	for _, sf := range f.Subfields {
		n.Add(Leaf("subfield", sf.Value, Attr{"code", sf.Code}))
	}
	return n
}

func collection(records ...*Node) *Node {
	return NewNode("collection", records...).WithAttr("xmlns", MARCXMLNamespace)
}

func indicator(s string) string {
	if s == "" {
		return " "
	}
	return s
}

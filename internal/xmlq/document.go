// Package xmlq owns XML parsing and path queries over a parsed document.
//
// Ownership boundary:
// - parse errors are reported as XMLSyntaxError
// - compiled path expressions are cached per document
// - documents are read-only once parsed
package xmlq

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/danmuck/exireq/internal/fault"
	"github.com/rs/zerolog/log"
)

// Document is a parsed, query-only XML tree.
type Document struct {
	root  *xmlquery.Node
	exprs map[string]*xpath.Expr
}

// Parse builds a Document from raw XML. Malformed input and input without a
// root element fail with an XMLSyntaxError.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fault.Wrap(fault.KindXMLSyntax, "", "parse document", err)
	}
	if !hasElement(root) {
		return nil, fault.New(fault.KindXMLSyntax, "", "document has no root element")
	}
	log.Debug().Msgf("xmlq.Parse bytes=%d", len(data))
	return &Document{
		root:  root,
		exprs: make(map[string]*xpath.Expr),
	}, nil
}

func hasElement(n *xmlquery.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}

func (d *Document) compile(path string) (*xpath.Expr, error) {
	if d == nil || d.root == nil {
		return nil, fault.New(fault.KindSchema, path, "document released")
	}
	if expr, ok := d.exprs[path]; ok {
		return expr, nil
	}
	expr, err := xpath.Compile(path)
	if err != nil {
		return nil, fault.Wrap(fault.KindSchema, path, "invalid path", err)
	}
	d.exprs[path] = expr
	return expr, nil
}

// ContentAt returns the text content of the first node matching path.
func (d *Document) ContentAt(path string) (string, bool, error) {
	expr, err := d.compile(path)
	if err != nil {
		return "", false, err
	}
	n := xmlquery.QuerySelector(d.root, expr)
	if n == nil {
		return "", false, nil
	}
	return n.InnerText(), true, nil
}

// AttributeAt returns the attribute called name on the first node matching
// path.
func (d *Document) AttributeAt(path, name string) (string, bool, error) {
	expr, err := d.compile(path)
	if err != nil {
		return "", false, err
	}
	n := xmlquery.QuerySelector(d.root, expr)
	if n == nil {
		return "", false, nil
	}
	for _, attr := range n.Attr {
		if attr.Name.Local == name {
			return attr.Value, true, nil
		}
	}
	return "", false, nil
}

// CountAt evaluates count(path).
func (d *Document) CountAt(path string) (int, error) {
	expr, err := d.compile(fmt.Sprintf("count(%s)", path))
	if err != nil {
		return 0, err
	}
	v, ok := expr.Evaluate(xmlquery.CreateXPathNavigator(d.root)).(float64)
	if !ok {
		return 0, fault.New(fault.KindSchema, path, "count did not evaluate to a number")
	}
	return int(v), nil
}

// NodesetAt returns every element matching path in document order.
func (d *Document) NodesetAt(path string) ([]Node, error) {
	expr, err := d.compile(path)
	if err != nil {
		return nil, err
	}
	found := xmlquery.QuerySelectorAll(d.root, expr)
	nodes := make([]Node, 0, len(found))
	for _, n := range found {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		nodes = append(nodes, Node{n: n})
	}
	return nodes, nil
}

// Release drops the tree. Queries after Release fail.
func (d *Document) Release() {
	if d == nil {
		return
	}
	d.root = nil
	d.exprs = nil
}

// Node is a read-only view of one element.
type Node struct {
	n *xmlquery.Node
}

// Name is the local element name.
func (n Node) Name() string {
	if n.n == nil {
		return ""
	}
	return n.n.Data
}

// Content is the concatenated text of the element and its descendants.
func (n Node) Content() string {
	if n.n == nil {
		return ""
	}
	return n.n.InnerText()
}

// Children lists direct element children, skipping text and comments.
func (n Node) Children() []Node {
	if n.n == nil {
		return nil
	}
	var out []Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			out = append(out, Node{n: c})
		}
	}
	return out
}

// Child returns the first direct element child named name.
func (n Node) Child(name string) (Node, bool) {
	for _, c := range n.Children() {
		if c.Name() == name {
			return c, true
		}
	}
	return Node{}, false
}

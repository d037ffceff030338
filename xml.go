/*
   Copyright 2026 Joseph Cumines

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package behaviorforest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"sort"
	"strings"
)

// Reserved XML element names, never resolved through the registry.
const (
	elementBehaviorTree   = `BehaviorTree`
	elementBehaviorForest = `BehaviorForest`
	elementMiddleware     = `Middleware`
)

// acceptor is implemented by every node variant that can take children.
type acceptor interface{ accept(child Node) error }

// parseTreeDocument decodes a document whose outermost element is
// BehaviorTree, returning the root node and the tree name attribute.
func parseTreeDocument(r io.Reader, reg *Registry) (Node, string, error) {
	d := xml.NewDecoder(r)
	start, err := nextStart(d)
	if err != nil {
		return nil, ``, err
	}
	if start.Name.Local != elementBehaviorTree {
		return nil, ``, parseError(d, `outermost element must be `+elementBehaviorTree)
	}
	root, err := parseSingleChild(d, start, reg)
	if err != nil {
		return nil, ``, err
	}
	return root, attrValue(start, `name`), nil
}

// ParseTree builds a Tree from an XML document via reg (DefaultRegistry when
// nil), using the root element's name attribute as the tree name.
func ParseTree(r io.Reader, reg *Registry, opts ...TreeOption) (*Tree, error) {
	if reg == nil {
		reg = DefaultRegistry
	}
	root, name, err := parseTreeDocument(r, reg)
	if err != nil {
		return nil, err
	}
	return NewTreeWithRoot(name, root, append([]TreeOption{WithRegistry(reg)}, opts...)...)
}

// ParseForest builds a Forest from a document whose outermost element is
// BehaviorForest, containing BehaviorTree children (attributes: name, type,
// capabilities, dependencies as comma-separated lists) plus optional
// Middleware declarations (attributes: kind, name, and kind-specific
// config).
func ParseForest(r io.Reader, reg *Registry, opts ...ForestOption) (*Forest, error) {
	if reg == nil {
		reg = DefaultRegistry
	}
	d := xml.NewDecoder(r)
	start, err := nextStart(d)
	if err != nil {
		return nil, err
	}
	if start.Name.Local != elementBehaviorForest {
		return nil, parseError(d, `outermost element must be `+elementBehaviorForest)
	}
	forest := NewForest(attrValue(start, `name`), opts...)
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, wrapXMLError(d, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case elementBehaviorTree:
				if err := parseForestTree(d, t, reg, forest); err != nil {
					return nil, err
				}
			case elementMiddleware:
				if err := parseForestMiddleware(d, t, forest); err != nil {
					return nil, err
				}
			default:
				return nil, parseError(d, `unexpected element `+t.Name.Local+` in `+elementBehaviorForest)
			}
		case xml.EndElement:
			return forest, nil
		}
	}
}

func parseForestTree(d *xml.Decoder, start xml.StartElement, reg *Registry, forest *Forest) error {
	root, err := parseSingleChild(d, start, reg)
	if err != nil {
		return err
	}
	name := attrValue(start, `name`)
	tree, err := NewTreeWithRoot(name, root, WithRegistry(reg), WithLogger(forest.logger))
	if err != nil {
		return err
	}
	nodeType, err := ParseNodeType(attrValue(start, `type`))
	if err != nil {
		return err
	}
	return forest.AddNode(&ForestNode{
		Name:         name,
		Tree:         tree,
		Type:         nodeType,
		Capabilities: splitList(attrValue(start, `capabilities`)),
		Dependencies: splitList(attrValue(start, `dependencies`)),
	})
}

func parseForestMiddleware(d *xml.Decoder, start xml.StartElement, forest *Forest) error {
	cfg := attrConfig(start)
	m, err := NewMiddleware(cfg.Get(`kind`, ``), cfg.Name(), cfg)
	if err != nil {
		return err
	}
	if err := forest.AddMiddleware(m); err != nil {
		return err
	}
	return skipElement(d)
}

// parseSingleChild consumes the element body, requiring exactly one node
// child, built through the registry.
func parseSingleChild(d *xml.Decoder, start xml.StartElement, reg *Registry) (Node, error) {
	var root Node
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, wrapXMLError(d, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, invalidTree(`%s %q requires exactly one root node`, start.Name.Local, attrValue(start, `name`))
			}
			if root, err = parseNode(d, t, reg); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if root == nil {
				return nil, invalidTree(`%s %q requires exactly one root node`, start.Name.Local, attrValue(start, `name`))
			}
			return root, nil
		}
	}
}

// parseNode builds the node for one element via the registry, recursing into
// nested elements as children.
func parseNode(d *xml.Decoder, start xml.StartElement, reg *Registry) (Node, error) {
	switch start.Name.Local {
	case elementBehaviorTree, elementBehaviorForest, elementMiddleware:
		return nil, parseError(d, `reserved element `+start.Name.Local+` nested inside a tree`)
	}
	n, err := reg.Create(start.Name.Local, attrConfig(start))
	if err != nil {
		return nil, err
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, wrapXMLError(d, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseNode(d, t, reg)
			if err != nil {
				return nil, err
			}
			if a, ok := n.(acceptor); ok {
				if err := a.accept(child); err != nil {
					return nil, err
				}
			} else {
				return nil, invalidTree(`%s node %q cannot have children`, n.Kind(), n.Name())
			}
		case xml.EndElement:
			return n, nil
		}
	}
}

// MarshalTree encodes the tree back to the XML tree format, preserving node
// kinds, names, config, and child order.
func MarshalTree(t *Tree) ([]byte, error) {
	var b bytes.Buffer
	e := xml.NewEncoder(&b)
	e.Indent(``, `  `)
	start := xml.StartElement{Name: xml.Name{Local: elementBehaviorTree}}
	if t.Name() != `` {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: `name`}, Value: t.Name()})
	}
	if err := e.EncodeToken(start); err != nil {
		return nil, err
	}
	if root := t.Root(); root != nil {
		if err := marshalNode(e, root); err != nil {
			return nil, err
		}
	}
	if err := e.EncodeToken(start.End()); err != nil {
		return nil, err
	}
	if err := e.Flush(); err != nil {
		return nil, err
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func marshalNode(e *xml.Encoder, n Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Kind()}}
	cfg := n.Config()
	if name := cfg.Name(); name != `` {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: `name`}, Value: name})
	}
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		if k != `name` {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: cfg[k]})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := marshalNode(e, child); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// nextStart returns the first start element of the document.
func nextStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			return xml.StartElement{}, wrapXMLError(d, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

// skipElement consumes tokens until the current element's end tag.
func skipElement(d *xml.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return wrapXMLError(d, err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func attrValue(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ``
}

func attrConfig(start xml.StartElement) Config {
	cfg := make(Config, len(start.Attr))
	for _, a := range start.Attr {
		cfg[a.Name.Local] = a.Value
	}
	return cfg
}

func splitList(s string) []string {
	if s == `` {
		return nil
	}
	parts := strings.Split(s, `,`)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != `` {
			out = append(out, p)
		}
	}
	return out
}

func parseError(d *xml.Decoder, msg string) error {
	return &ParseError{Offset: d.InputOffset(), Msg: msg}
}

func wrapXMLError(d *xml.Decoder, err error) error {
	var syntax *xml.SyntaxError
	if errors.As(err, &syntax) {
		return &ParseError{Line: syntax.Line, Offset: d.InputOffset(), Msg: syntax.Msg}
	}
	if errors.Is(err, io.EOF) {
		return &ParseError{Offset: d.InputOffset(), Msg: `unexpected end of document`}
	}
	return &ParseError{Offset: d.InputOffset(), Msg: err.Error()}
}

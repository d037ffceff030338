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
	"fmt"
	"io"

	"github.com/xlab/treeprint"
)

type (
	// Printer models something providing behavior tree printing capabilities
	Printer interface {
		// Fprint writes a representation of the subtree rooted at node to output
		Fprint(output io.Writer, node Node) error
	}

	// TreePrinter renders a subtree like the tree command, one line per node
	// showing kind, name, and last status.
	TreePrinter struct {
		// Inspector produces the label for a node, DefaultPrinterInspector when nil
		Inspector func(node Node) string
	}
)

// DefaultPrinter is used to implement Sprint
var DefaultPrinter Printer = TreePrinter{}

// Sprint renders the subtree rooted at node using DefaultPrinter.
func Sprint(node Node) string {
	var b bytes.Buffer
	if err := DefaultPrinter.Fprint(&b, node); err != nil {
		return fmt.Sprintf(`behaviorforest.DefaultPrinter error: %s`, err)
	}
	return b.String()
}

// DefaultPrinterInspector labels a node as `Kind: name [status]`.
func DefaultPrinterInspector(node Node) string {
	if node == nil {
		return `<nil>`
	}
	label := node.Kind()
	if name := node.Name(); name != `` {
		label += `: ` + name
	}
	return fmt.Sprintf(`%s [%s]`, label, node.Status())
}

// Fprint implements Printer.Fprint
func (p TreePrinter) Fprint(output io.Writer, node Node) error {
	inspector := p.Inspector
	if inspector == nil {
		inspector = DefaultPrinterInspector
	}
	tree := treeprint.New()
	tree.SetValue(inspector(node))
	if node != nil {
		addPrinterChildren(tree, node, inspector)
	}
	_, err := output.Write([]byte(tree.String()))
	return err
}

func addPrinterChildren(tree treeprint.Tree, node Node, inspector func(Node) string) {
	for _, child := range node.Children() {
		branch := tree.AddBranch(inspector(child))
		if child != nil {
			addPrinterChildren(branch, child, inspector)
		}
	}
}

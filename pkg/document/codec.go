package document

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formpatch/pkg/tree"
)

// StructuralError reports a missing or malformed required collection or
// entity found while decoding.
type StructuralError struct {
	Path    string
	Message string
}

func (e *StructuralError) Error() string {
	if e.Path == "" {
		return "document: " + e.Message
	}
	return fmt.Sprintf("document: %s at %s", e.Message, e.Path)
}

func structural(path, format string, args ...any) error {
	return &StructuralError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Parse decodes raw bytes in the given format into a Document.
func Parse(data []byte, format tree.Format) (*Document, error) {
	root, err := tree.Decode(data, format)
	if err != nil {
		return nil, err
	}
	return Decode(root)
}

// Marshal encodes doc in the given format.
func Marshal(doc *Document, format tree.Format) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("document: document is nil")
	}
	return tree.Encode(Encode(doc), format)
}

// Decode builds the typed tree on top of root. The returned document keeps
// references into root; callers hand over ownership.
func Decode(root *tree.Object) (*Document, error) {
	if root == nil {
		return nil, structural("", "document is nil")
	}
	doc := &Document{props: root}

	steps, err := requireObjects(root, KeySteps, "")
	if err != nil {
		return nil, err
	}
	for si, stepProps := range steps {
		stepPath := StepPath(si)
		step := &Step{props: stepProps}

		blocks, err := requireObjects(stepProps, KeyBlocks, stepPath)
		if err != nil {
			return nil, err
		}
		for bi, blockProps := range blocks {
			blockPath := BlockPath(si, bi)
			block := &Block{props: blockProps}

			rows, err := requireObjects(blockProps, KeyRows, blockPath)
			if err != nil {
				return nil, err
			}
			for ri, rowProps := range rows {
				row := &Row{props: rowProps}
				fields, err := requireObjects(rowProps, KeyFields, RowPath(si, bi, ri))
				if err != nil {
					return nil, err
				}
				for _, fieldProps := range fields {
					row.Fields = append(row.Fields, &Field{props: fieldProps})
				}
				block.Rows = append(block.Rows, row)
			}
			step.Blocks = append(step.Blocks, block)
		}
		doc.Steps = append(doc.Steps, step)
	}
	return doc, nil
}

func requireObjects(owner *tree.Object, key, ownerPath string) ([]*tree.Object, error) {
	collectionPath := joinPath(ownerPath, key)
	raw, ok := owner.Get(key)
	if !ok {
		return nil, structural(ownerPathOrRoot(ownerPath), "missing required collection %q", key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, structural(collectionPath, "collection must be an array, got %s", tree.KindOf(raw))
	}
	out := make([]*tree.Object, 0, len(items))
	for idx, item := range items {
		obj, ok := item.(*tree.Object)
		if !ok || obj == nil {
			return nil, structural(fmt.Sprintf("%s[%d]", collectionPath, idx), "entry must be an object, got %s", tree.KindOf(item))
		}
		out = append(out, obj)
	}
	return out, nil
}

// Encode synchronises the typed collections back into their property objects
// and returns a deep copy of the document tree.
func Encode(doc *Document) *tree.Object {
	if doc == nil {
		return nil
	}
	steps := make([]any, 0, len(doc.Steps))
	for _, step := range doc.Steps {
		blocks := make([]any, 0, len(step.Blocks))
		for _, block := range step.Blocks {
			rows := make([]any, 0, len(block.Rows))
			for _, row := range block.Rows {
				fields := make([]any, 0, len(row.Fields))
				for _, field := range row.Fields {
					fields = append(fields, field.props)
				}
				row.props.Set(KeyFields, fields)
				rows = append(rows, row.props)
			}
			block.props.Set(KeyRows, rows)
			blocks = append(blocks, block.props)
		}
		step.props.Set(KeyBlocks, blocks)
		steps = append(steps, step.props)
	}
	doc.props.Set(KeySteps, steps)
	return doc.props.Clone()
}

// Clone returns an independent copy of doc.
func Clone(doc *Document) (*Document, error) {
	return Decode(Encode(doc))
}

// StepPath renders the location of a step.
func StepPath(step int) string {
	return fmt.Sprintf("steps[%d]", step)
}

// BlockPath renders the location of a block.
func BlockPath(step, block int) string {
	return fmt.Sprintf("steps[%d].blocks[%d]", step, block)
}

// RowPath renders the location of a row.
func RowPath(step, block, row int) string {
	return fmt.Sprintf("steps[%d].blocks[%d].rows[%d]", step, block, row)
}

// FieldPath renders the location of a field.
func FieldPath(step, block, row, field int) string {
	return fmt.Sprintf("steps[%d].blocks[%d].rows[%d].fields[%d]", step, block, row, field)
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func ownerPathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return path
}

package document

import "errors"

// ErrStopWalk can be returned by a visitor to end a walk early without
// reporting an error.
var ErrStopWalk = errors.New("document: stop walk")

// FieldContext describes where a visited field lives. Indexes refer to the
// positions captured when the walk reached the row, before any removal.
type FieldContext struct {
	Document   *Document
	Step       *Step
	StepIndex  int
	Block      *Block
	BlockIndex int
	Row        *Row
	RowIndex   int
	FieldIndex int

	field *Field
}

// Path returns the field location, e.g. steps[0].blocks[1].rows[0].fields[2].
func (c *FieldContext) Path() string {
	return FieldPath(c.StepIndex, c.BlockIndex, c.RowIndex, c.FieldIndex)
}

// StepPath returns the location of the enclosing step.
func (c *FieldContext) StepPath() string {
	return StepPath(c.StepIndex)
}

// Remove drops the visited field from its row. It is safe to call while the
// walk is in progress.
func (c *FieldContext) Remove() bool {
	return c.Row.RemoveField(c.field)
}

// FieldVisitor is invoked for every field in document order.
type FieldVisitor func(field *Field, ctx *FieldContext) error

// StepVisitor is invoked for every step in document order.
type StepVisitor func(step *Step, index int) error

// WalkFields visits every field of doc: steps, blocks, rows and fields in
// declared order. Visitors may mutate the field or remove it through the
// context; structure is otherwise left alone.
func WalkFields(doc *Document, visit FieldVisitor) error {
	if doc == nil || visit == nil {
		return nil
	}
	for si, step := range doc.Steps {
		for bi, block := range step.Blocks {
			for ri, row := range block.Rows {
				snapshot := append([]*Field(nil), row.Fields...)
				for fi, field := range snapshot {
					ctx := &FieldContext{
						Document:   doc,
						Step:       step,
						StepIndex:  si,
						Block:      block,
						BlockIndex: bi,
						Row:        row,
						RowIndex:   ri,
						FieldIndex: fi,
						field:      field,
					}
					if err := visit(field, ctx); err != nil {
						if errors.Is(err, ErrStopWalk) {
							return nil
						}
						return err
					}
				}
			}
		}
	}
	return nil
}

// WalkSteps visits every step of doc in order.
func WalkSteps(doc *Document, visit StepVisitor) error {
	if doc == nil || visit == nil {
		return nil
	}
	steps := append([]*Step(nil), doc.Steps...)
	for idx, step := range steps {
		if err := visit(step, idx); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Package document defines the typed form document tree
// (Document → Step → Block → Row → Field) used by the patch engine.
//
// Entities are typed views over their own ordered property object, so keys a
// rule never touches keep their position and literal value when the document
// is encoded again. Collections (steps, blocks, rows, fields) are held as typed
// slices and written back on Encode; removing a field from Row.Fields is
// therefore enough to drop it from the serialised output.
//
// Decode is strict about required collections and reports the offending
// location as a StructuralError path such as `steps[2].blocks[0].rows[1]`.
// Optional configuration arrays are left exactly as found; defaulting them is
// the job of the array-defaulting rule.
package document

// Package rules provides the patch rule contract and the built-in rule
// library. A rule mutates a document it exclusively owns and reports how many
// entities it changed together with non-fatal warnings. Every built-in rule
// is idempotent: applying it to its own output changes nothing.
//
// Rules declare ordering and exclusion constraints through labels so the
// engine can reject an inconsistent sequence before anything is mutated.
package rules

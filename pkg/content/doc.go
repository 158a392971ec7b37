// Package content inspects and normalises the markup payloads embedded in form
// fields and the document-level style payload.
//
// Widget detection is deliberately confined to Inspector: every rule that
// needs to know whether a step embeds an interactive widget asks the same
// predicate, so supporting a new embed format only touches the marker list.
package content

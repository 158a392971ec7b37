// Package engine applies ordered rule sequences to a form document. It checks
// declared ordering and exclusion constraints before touching the document,
// accumulates a per-rule report and reruns every rule once to detect rules
// that are not idempotent.
package engine

// Package internaldefs holds the metric names and bucket boundaries shared by
// the exporter packages.
//
// The Prometheus exporter takes its series names from [CounterDefs]. The OTel
// exporter groups the same IDs into attribute-keyed instruments and shares the
// bucket bounds and the audit-drop help text.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs

// Package report defines the patient encounter report record and the input
// shapes used to create and change it.
//
// This package imports nothing internal. Every other package works in terms of
// PatientReport, Draft and Patch.
//
// Key constraints:
//   - ID and Timestamp are assigned once by the report manager; Draft and Patch
//     have no such fields, so caller input can never set them
//   - Patch.Apply is the only merge function: a shallow overlay in which
//     ClinicalInfo is replaced wholesale, never merged field by field
//   - JSON tags use camelCase; the same encoding is used by every medium and
//     by the snapshot file
package report

// Package model turns raw field instances into canonical field descriptors
// and assembles them into the Model Descriptor persisted as a derived type.
//
// Normalization applies identifier casing to names, title casing to labels
// and merges the options returned by the extract package. Synthesis wraps the
// normalized fields with entity metadata. Neither step validates slugs or
// field types: unknown types simply contribute no options.
package model

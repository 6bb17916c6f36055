// Package jsliteral builds JavaScript object literals from data and prints
// them in a fixed prettier-like style: bounded line width, configurable
// quoting, trailing commas and bracket spacing.
//
// Output is deterministic. Map keys are sorted when values are converted;
// Object preserves the property order it was built with.
package jsliteral

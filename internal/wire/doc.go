// Package wire converts between text records and typed commands.
//
// Input is line oriented. The first non-blank line is the header
// "<period> <capacity>"; every further non-blank line is one command whose
// first token is a dialect keyword. Tokens are separated by runs of
// whitespace, names are NFC-normalised, and numeric fields must be
// non-negative base-10 integers.
//
// Output is one acknowledgement line per command, preceded by the lines of
// any dispatch that fired at that command's tick. The acknowledgement
// tokens are a compatibility contract and must not change.
package wire

// Package signature signs files with RSA-PSS over SHA-256 (MGF1-SHA256,
// maximum salt length) and checks such signatures. Signatures are raw bytes
// with no framing, normally stored next to the file with a .sig suffix.
package signature

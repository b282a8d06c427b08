// Package tools is the registry of kete's capabilities.
//
// Every user-facing tool registers itself here at init time with a name,
// a kind and the top-level command that drives it. `kete tools` lists the
// registry, and the cmd tests check that each registered command exists.
//
// Registration is static: there is no loading of code at runtime.
package tools

// Package container implements the Kete encrypted container format.
//
// A container is a self-describing binary header followed by AES-256-CBC
// ciphertext. The header says how the 32-byte session key is protected and
// carries the original filename, encrypted under that same key.
//
// # Header Layout
//
// All lengths are big-endian:
//
//	magic              4 bytes   8A DF 04 FA
//	version            1 byte    currently 1
//	key wrap type      1 byte    0x01 password, 0x02 key pair
//	key wrap payload   password: 16-byte salt
//	                   key pair: u16 length + RSA-OAEP(SHA-256) wrapped key
//	filename length    2 bytes
//	encrypted filename AES-256-CBC/PKCS#7 of the UTF-8 name
//	filename IV        16 bytes
//	content IV         16 bytes, always the last 16 bytes of the header
//
// In password mode the session key is PBKDF2-HMAC-SHA256 (480,000
// iterations) of the password and salt. In key pair mode it is random and
// wrapped for one recipient's RSA public key.
//
// # Chunked Output
//
// SplitEncrypt writes the ciphertext as <name>.enc.part001, part002, ...
// of a fixed size plus a manifest.json holding the base64 header and the
// SHA-256 of every part. Reassemble verifies all parts before decrypting
// any of them.
//
// # Limitations
//
// The content stream is not authenticated. A wrong key or password is
// detected through the filename and the final padding block; other
// tampering with a single-file container goes unnoticed. Chunk hashes only
// protect against damage to the parts, not against a rewritten manifest.
package container

// Package keyring stores the user's RSA key pairs and contacts' public keys.
//
// The keyring is a single file encrypted under a master password:
//
//	salt   16 bytes   PBKDF2-HMAC-SHA256 salt (390,000 iterations)
//	nonce  24 bytes   NaCl secretbox nonce
//	box    rest       secretbox of the JSON document
//
// The JSON document holds "my_key_pairs" ({name, public_key, private_key})
// and "contact_public_keys" ({name, public_key}). Key pairs and contacts
// share one namespace, so any name can be used as an encryption recipient.
//
// Private keys may carry their own passphrase on top of the master
// password. Generated protected keys use the OpenSSH format; unprotected
// ones are PKCS#1 PEM. Public keys are always stored as PKIX PEM.
//
// A Keyring remembers which private keys were unlocked during its lifetime.
// Resolver adapts it to container.KeyResolver for opening headers, and
// UnwrapSessionKey tries every key pair in turn for secure text.
package keyring

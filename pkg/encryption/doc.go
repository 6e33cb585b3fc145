// Package encryption provides password-based AES-256 CBC encryption with PKCS#7 padding.
// Keys are derived with PBKDF2-SHA256 and held in zeroizing secret buffers.
// Archive indexes are sealed with AES-SIV under an HKDF sub-key of the same key.
package encryption

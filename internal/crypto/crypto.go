// Package crypto implements the message transform used by every client: AES in
// the OpenSSL passphrase envelope that CryptoJS emits, so tokens produced by
// the original web client decrypt here and vice versa.
//
// The key is a single shared secret compiled into client configuration. This
// provides no confidentiality against anyone holding a client artifact; that
// is a documented property of the system, not an oversight.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

const saltedPrefix = "Salted__"

// Encrypt returns a self-describing ciphertext token:
// base64("Salted__" || 8-byte salt || AES-256-CBC ciphertext).
func Encrypt(plaintext, key string) (string, error) {
	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	aesKey, iv := deriveKeyIV([]byte(key), salt)
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(saltedPrefix)+len(salt)+len(padded))
	copy(out, saltedPrefix)
	copy(out[len(saltedPrefix):], salt)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(saltedPrefix)+len(salt):], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. It never fails the caller: a malformed token, a
// wrong key, or corrupted ciphertext yields "" so the read path can keep
// rendering whatever else it has.
func Decrypt(token, key string) string {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return ""
	}
	if len(raw) < len(saltedPrefix)+8 || string(raw[:len(saltedPrefix)]) != saltedPrefix {
		return ""
	}
	salt := raw[len(saltedPrefix) : len(saltedPrefix)+8]
	ct := raw[len(saltedPrefix)+8:]
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return ""
	}

	aesKey, iv := deriveKeyIV([]byte(key), salt)
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return ""
	}

	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	pt, ok := pkcs7Unpad(pt, aes.BlockSize)
	if !ok || !utf8.Valid(pt) {
		return ""
	}
	return string(pt)
}

// deriveKeyIV is OpenSSL's EVP_BytesToKey with MD5 and one iteration: 32 key
// bytes plus 16 IV bytes. Weak as a KDF, kept for token compatibility.
func deriveKeyIV(pass, salt []byte) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < 48 {
		h := md5.New()
		h.Write(prev)
		h.Write(pass)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:32], derived[32:48]
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}

package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// The version suffix leaves room for a future algorithm migration.
const (
	DomainNode = "atomtrack/node/v1"
	DomainLink = "atomtrack/link/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// NodeHash computes the content hash of a node from its type and attributes.
// Two nodes with equal content share a hash even though their UUIDs differ,
// so the hash identifies what was stored and the UUID identifies when.
func NodeHash(nodeType NodeType, attrs IRObject) (string, error) {
	if attrs == nil {
		attrs = IRObject{}
	}
	obj := IRObject{
		"type":       IRString(nodeType),
		"attributes": attrs,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("NodeHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainNode, canonical), nil
}

// LinkHash identifies a link by its endpoints, type and label.
// The store uses it as the idempotency key for link inserts.
func LinkHash(inputUUID, outputUUID string, linkType LinkType, label string) (string, error) {
	obj := IRObject{
		"input":  IRString(inputUUID),
		"output": IRString(outputUUID),
		"type":   IRString(linkType),
		"label":  IRString(label),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("LinkHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainLink, canonical), nil
}

// MustNodeHash is like NodeHash but panics on error.
// Use only in tests or when attributes are known to be valid.
func MustNodeHash(nodeType NodeType, attrs IRObject) string {
	h, err := NodeHash(nodeType, attrs)
	if err != nil {
		panic(err)
	}
	return h
}

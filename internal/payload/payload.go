// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package payload implements structural validation of request bodies and
// queries. Shape validation is the first pipeline stage: it runs before
// authentication because it is cheap and independent of the caller's
// identity. All violated rules found in one pass are reported together.
package payload

import (
	"bytes"
	"encoding/json"

	"github.com/sapcc/arcanum/internal/models"
)

// SecretInput is one secret object as submitted by a client, either alone or
// as part of an array or batch. Pointer fields distinguish absent properties
// from empty ones.
type SecretInput struct {
	ID   *string `json:"id"`
	Type *string `json:"type"`

	SecretKeyCiphertext *string `json:"secretKeyCiphertext"`
	SecretKeyIV         *string `json:"secretKeyIV"`
	SecretKeyTag        *string `json:"secretKeyTag"`
	// SecretValueCiphertext is kept raw: it must be present and must be a
	// string, but the empty string is allowed.
	SecretValueCiphertext json.RawMessage `json:"secretValueCiphertext"`
	SecretValueIV         *string         `json:"secretValueIV"`
	SecretValueTag        *string         `json:"secretValueTag"`
}

// SecretSubmission is the tagged-union shape for create/update payloads: a
// client may submit either a single secret object or a non-empty array of
// secret objects. The distinction is preserved so that responses can mirror
// the submitted shape.
type SecretSubmission struct {
	entries []SecretInput
	single  bool
	present bool
	invalid bool
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (s *SecretSubmission) UnmarshalJSON(buf []byte) error {
	s.present = true
	switch firstByte(buf) {
	case '{':
		var one SecretInput
		if err := json.Unmarshal(buf, &one); err != nil {
			s.invalid = true
			return nil
		}
		s.entries = []SecretInput{one}
		s.single = true
	case '[':
		var list []SecretInput
		if err := json.Unmarshal(buf, &list); err != nil {
			s.invalid = true
			return nil
		}
		s.entries = list
	default:
		s.invalid = true
	}
	return nil
}

// Entries returns the submitted secrets, normalized to a list.
func (s SecretSubmission) Entries() []SecretInput {
	return s.entries
}

// IsSingle returns whether the single-object shape was submitted.
func (s SecretSubmission) IsSingle() bool {
	return s.single
}

// collectShapeViolations reports the violations that concern the submission
// shape itself, regardless of the operation.
func (s SecretSubmission) collectShapeViolations(v *violations) (ok bool) {
	switch {
	case !s.present:
		v.add("secrets is a required property")
		return false
	case s.invalid:
		v.add("secrets must be an object or an array of objects")
		return false
	case !s.single && len(s.entries) == 0:
		v.add("secrets must not be an empty array")
		return false
	}
	return true
}

// StringOrStringList accepts either a single JSON string or an array of JSON
// strings, as used by the secretIds property of delete payloads.
type StringOrStringList struct {
	values  []string
	present bool
	invalid bool
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (l *StringOrStringList) UnmarshalJSON(buf []byte) error {
	l.present = true
	switch firstByte(buf) {
	case '"':
		var one string
		if err := json.Unmarshal(buf, &one); err != nil {
			l.invalid = true
			return nil
		}
		l.values = []string{one}
	case '[':
		var list []string
		if err := json.Unmarshal(buf, &list); err != nil {
			l.invalid = true
			return nil
		}
		l.values = list
	default:
		l.invalid = true
	}
	return nil
}

// Values returns the submitted strings, normalized to a list.
func (l StringOrStringList) Values() []string {
	return l.values
}

func firstByte(buf []byte) byte {
	trimmed := bytes.TrimLeft(buf, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// violations accumulates every violated rule found during one structural
// pass. The pipeline reports all of them at once, not just the first.
type violations struct {
	list []string
}

func (v *violations) add(msg string) {
	v.list = append(v.list, msg)
}

func isValidSecretType(t string) bool {
	return models.SecretType(t).IsValid()
}

// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package nativeid

import (
	"fmt"
	"strings"

	"github.com/segmentio/ksuid"
)

const prefix = "azure:v1:"

// NativeID is an encoded Azure resource identifier.
// Format: azure:v1:{ksuid}:{armID}
//
// ARM ids are reused when a resource is deleted and created again under the same
// name, which the demo does on every run. The KSUID keeps each pipeline handle
// unique across runs while the ARM id stays recoverable.
type NativeID string

// Encode wraps a raw ARM ID with a unique KSUID.
// Returns empty NativeID for empty input.
func Encode(armID string) NativeID {
	if armID == "" {
		return ""
	}
	return NativeID(fmt.Sprintf("%s%s:%s", prefix, ksuid.New().String(), armID))
}

// ReEncode keeps the KSUID of original when the ARM id it carries is unchanged,
// and encodes armID afresh otherwise.
func ReEncode(original, armID string) NativeID {
	if armID == "" {
		return ""
	}
	orig := NativeID(original)
	if orig.IsEncoded() && strings.EqualFold(orig.ArmID(), armID) {
		return orig
	}
	return Encode(armID)
}

// IsEncoded reports whether n carries the azure:v1 prefix.
func (n NativeID) IsEncoded() bool {
	return strings.HasPrefix(string(n), prefix) && len(strings.SplitN(string(n), ":", 4)) == 4
}

// ArmID extracts the raw Azure ARM ID.
// Returns the original string if not encoded (backwards compat).
func (n NativeID) ArmID() string {
	s := string(n)
	if strings.HasPrefix(s, prefix) {
		if parts := strings.SplitN(s, ":", 4); len(parts) == 4 {
			return parts[3]
		}
	}
	return s
}

// String returns the encoded NativeID string.
func (n NativeID) String() string {
	return string(n)
}

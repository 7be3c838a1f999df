package utils

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

const inviteCodeGroup = 4

var inviteEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateInviteCode returns a random single-use invitation code in the format XXXX-XXXX-XXXX-XXXX
func GenerateInviteCode() (string, error) {
	bytes := make([]byte, 10)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	raw := inviteEncoding.EncodeToString(bytes)
	groups := make([]string, 0, len(raw)/inviteCodeGroup)
	for i := 0; i < len(raw); i += inviteCodeGroup {
		groups = append(groups, raw[i:i+inviteCodeGroup])
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeInviteCode accepts codes typed by hand: surrounding space and lower case are ignored
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

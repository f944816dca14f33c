package server

import (
	"math/rand/v2"
	"strings"

	apperrors "cardtable-server/internal/errors"
)

const roomCodeLength = 4

// roomCodeLetters leaves out I and O, which read as 1 and 0.
const roomCodeLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"

// GenerateRoomCode picks a random code not marked in used.
func GenerateRoomCode(used map[string]bool) string {
	code := make([]byte, roomCodeLength)
	for {
		for i := range code {
			code[i] = roomCodeLetters[rand.IntN(len(roomCodeLetters))]
		}
		if !used[string(code)] {
			return string(code)
		}
	}
}

func ValidateRoomCode(code string) error {
	if len(code) != roomCodeLength {
		return apperrors.Newf(codeInvalidRoomCode, "room code must be exactly %d letters", roomCodeLength)
	}
	for _, ch := range code {
		if !strings.ContainsRune(roomCodeLetters, ch) {
			return apperrors.Newf(codeInvalidRoomCode, "room code contains invalid character %q", ch)
		}
	}
	return nil
}

func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

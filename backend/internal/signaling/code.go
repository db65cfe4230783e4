package signaling

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid"
)

const (
	// CodeAlphabet is the set of characters a room code is drawn from.
	CodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// CodeLength is the fixed length of a room code.
	CodeLength = 6
)

var codePattern = regexp.MustCompile(`^[a-z0-9]{6}$`)

// ValidCode reports whether code has the room code format.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// randomCode draws a code uniformly from the code space using crypto/rand.
func randomCode() string {
	code, err := gonanoid.Generate(CodeAlphabet, CodeLength)
	if err != nil {
		// crypto/rand failing leaves nothing sensible to do.
		panic(fmt.Sprintf("signaling: generate room code: %v", err))
	}
	return code
}

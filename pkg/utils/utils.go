package utils

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Map map[string]string

// GenerateConfirmationCode returns a random opaque secret used to prove
// control of an email address. It is deliberately not a signed token so it
// carries no login capability of its own.
func GenerateConfirmationCode() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ParseBody decodes the JSON request body into out. Unknown and read-only
// fields are ignored, matching the partial-update contract of the API.
// An empty body is treated as an empty object.
func ParseBody(c *fiber.Ctx, out interface{}) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// Contains checks if a string exists in a slice of strings.
func Contains(arr []string, str string) bool {
	for _, a := range arr {
		if a == str {
			return true
		}
	}
	return false
}

package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ValidateTwilioSignature rejects webhook requests whose X-Twilio-Signature
// does not match the HMAC-SHA1 of the request URL plus the sorted form
// parameters, keyed with the account auth token.
func ValidateTwilioSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Twilio signature",
			})
		}

		authToken := os.Getenv("TWILIO_AUTH_TOKEN")
		if authToken == "" {
			log.Println("❌ TWILIO_AUTH_TOKEN not set, cannot validate webhook signatures")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		params := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			params[string(key)] = string(value)
		})

		expected := computeSignature(authToken, requestURL(c), params)
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			log.Printf("❌ Rejected webhook with invalid Twilio signature from %s", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}

// requestURL reconstructs the URL Twilio signed. Behind a proxy the scheme
// and host seen here differ from the public ones, so PUBLIC_BASE_URL wins
// when set.
func requestURL(c *fiber.Ctx) string {
	if base := os.Getenv("PUBLIC_BASE_URL"); base != "" {
		return strings.TrimSuffix(base, "/") + c.Path()
	}
	return fmt.Sprintf("%s://%s%s", c.Protocol(), c.Hostname(), c.Path())
}

// computeSignature implements Twilio's request validation: the URL followed
// by each form parameter's key and value in key order, HMAC-SHA1 with the
// auth token, base64 encoded.
func computeSignature(authToken, url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
)

// Ticket identifiers combine a millisecond timestamp with a random component.
// Uniqueness is still enforced by the store; callers retry on collision.
func GenerateTicketID() string {
	return fmt.Sprintf("TICKET-%d-%03d", time.Now().UnixMilli(), rand.Intn(1000))
}

func deriveKey(secret string) []byte {
	hash := sha256.Sum256([]byte(secret))
	return hash[:]
}

func qrSecret() []byte {
	return deriveKey(os.Getenv("JWT_SECRET"))
}

// BuildQRPayload produces the string encoded into a ticket's QR code: the
// ticket id plus an HMAC so scanners can reject forged codes offline.
func BuildQRPayload(ticketID string) string {
	return fmt.Sprintf("ticket:%s;signature:%s", ticketID, signTicketID(ticketID))
}

// ParseQRPayload extracts and verifies the ticket id from a scanned payload.
func ParseQRPayload(payload string) (string, error) {
	parts := strings.Split(payload, ";")
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "ticket:") || !strings.HasPrefix(parts[1], "signature:") {
		return "", fmt.Errorf("invalid QR data format")
	}

	ticketID := strings.TrimPrefix(parts[0], "ticket:")
	signature := strings.TrimPrefix(parts[1], "signature:")
	if !hmac.Equal([]byte(signTicketID(ticketID)), []byte(signature)) {
		return "", fmt.Errorf("invalid QR signature")
	}
	return ticketID, nil
}

func signTicketID(ticketID string) string {
	h := hmac.New(sha256.New, qrSecret())
	h.Write([]byte(ticketID))
	return hex.EncodeToString(h.Sum(nil))
}

// EncodeTicketQR renders the signed payload as a PNG for email attachments.
func EncodeTicketQR(ticketID string) ([]byte, error) {
	return qrcode.Encode(BuildQRPayload(ticketID), qrcode.Medium, 256)
}

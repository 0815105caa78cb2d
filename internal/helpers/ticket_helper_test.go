package helpers

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTicketIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^TICKET-\d+-\d{3}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, pattern, GenerateTicketID())
	}
}

func TestQRPayloadRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	payload := BuildQRPayload("TICKET-1700000000000-042")
	ticketID, err := ParseQRPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "TICKET-1700000000000-042", ticketID)
}

func TestQRPayloadRejectsTampering(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	payload := BuildQRPayload("TICKET-1700000000000-042")

	// Swapped ticket id with the original signature.
	tampered := strings.Replace(payload, "TICKET-1700000000000-042", "TICKET-1700000000000-043", 1)
	_, err := ParseQRPayload(tampered)
	assert.Error(t, err)

	// Signature minted under a different secret.
	t.Setenv("JWT_SECRET", "other-secret")
	_, err = ParseQRPayload(payload)
	assert.Error(t, err)
}

func TestQRPayloadRejectsMalformedInput(t *testing.T) {
	for _, payload := range []string{
		"",
		"ticket:TICKET-1-001",
		"signature:abc;ticket:TICKET-1-001",
		"random garbage",
	} {
		_, err := ParseQRPayload(payload)
		assert.Error(t, err, payload)
	}
}

func TestEncodeTicketQRProducesPNG(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	png, err := EncodeTicketQR("TICKET-1700000000000-042")
	require.NoError(t, err)
	require.NotEmpty(t, png)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

// Package qrtoken produces and verifies the HMAC-signed access tokens baked
// into table QR codes, so only holders of a scanned code can order for a table.
package qrtoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"
)

// Codec signs and validates table tokens with a shared secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// NewCodecFromEnv reads QR_SECRET, falling back to a development default.
func NewCodecFromEnv() *Codec {
	secret := os.Getenv("QR_SECRET")
	if secret == "" {
		secret = "default-qr-secret-change-in-production"
	}
	return NewCodec(secret)
}

func (c *Codec) sign(restaurantID, tableID uint, ts int64) string {
	mac := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(mac, "%d:%d:%d", restaurantID, tableID, ts)
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateTableToken returns "<64-hex hmac>.<unix-ms>". The timestamp rides
// along in clear so expiry can optionally be enforced on validation.
func (c *Codec) GenerateTableToken(restaurantID, tableID uint) string {
	ts := c.now().UnixMilli()
	return c.sign(restaurantID, tableID, ts) + "." + strconv.FormatInt(ts, 10)
}

// ValidateTableToken recomputes the HMAC over the embedded timestamp and
// compares in constant time. Malformed tokens fail closed. expiry <= 0 means
// tokens never expire.
func (c *Codec) ValidateTableToken(token string, restaurantID, tableID uint, expiry time.Duration) bool {
	mac, tsPart, ok := strings.Cut(token, ".")
	if !ok || mac == "" || tsPart == "" {
		return false
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return false
	}

	if expiry > 0 {
		age := c.now().Sub(time.UnixMilli(ts))
		if age > expiry {
			return false
		}
	}

	provided, err := hex.DecodeString(mac)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(c.sign(restaurantID, tableID, ts))
	if err != nil {
		return false
	}
	return hmac.Equal(provided, expected)
}

// GenerateQRCodeURL builds the customer-facing menu URL carrying a fresh token.
func (c *Codec) GenerateQRCodeURL(baseURL string, restaurantID, tableID uint) string {
	token := c.GenerateTableToken(restaurantID, tableID)
	return fmt.Sprintf("%s/menu/%d?table=%d&token=%s", strings.TrimRight(baseURL, "/"), restaurantID, tableID, token)
}

// GenerateNumericCode draws 6-digit codes until exists reports a free one.
// These are the human-enterable fallback printed next to the QR image; they
// map 1:1 to a table and are exchanged server-side for a signed token.
func GenerateNumericCode(exists func(code string) (bool, error)) (string, error) {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(900000))
		if err != nil {
			return "", err
		}
		code := strconv.FormatInt(n.Int64()+100000, 10)
		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}

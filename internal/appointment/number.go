package appointment

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newAppointmentNumber formats APT-YYYYMMDD-XXXX, e.g. APT-20250807-A1B2.
func newAppointmentNumber(now time.Time) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return "APT-" + now.UTC().Format("20060102") + "-" + string(buf)
}

func newBookingReference() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

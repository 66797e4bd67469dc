// Package orderid formats and parses human-readable order codes.
//
// A code looks like 100125A0001B: the submission date as DDMMYY, a fixed
// "A", a four digit same-day sequence number and B for buy or S for sell.
package orderid

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
)

const (
	dateLayout = "020106"
	// MaxSequence is the largest sequence a four digit code can carry.
	MaxSequence = 9999
)

var codePattern = regexp.MustCompile(`^(\d{6})A(\d{4})([BS])$`)

// Code is a parsed order code.
type Code struct {
	Date     time.Time
	Sequence int
	Type     models.OrderType
}

// Format builds the code for the given day, sequence and order type.
func Format(day time.Time, sequence int, orderType models.OrderType) string {
	suffix := "S"
	if orderType == models.OrderTypeBuy {
		suffix = "B"
	}
	return fmt.Sprintf("%sA%04d%s", day.Format(dateLayout), sequence, suffix)
}

// Parse validates a code and splits it into its parts. The returned date is
// midnight in loc.
func Parse(code string, loc *time.Location) (Code, error) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return Code{}, fmt.Errorf("invalid order code %q", code)
	}
	if loc == nil {
		loc = time.Local
	}
	date, err := time.ParseInLocation(dateLayout, m[1], loc)
	if err != nil {
		return Code{}, fmt.Errorf("invalid order code date %q: %w", m[1], err)
	}
	seq, _ := strconv.Atoi(m[2])
	orderType := models.OrderTypeSell
	if m[3] == "B" {
		orderType = models.OrderTypeBuy
	}
	return Code{Date: date, Sequence: seq, Type: orderType}, nil
}

// Valid reports whether code has the order code shape.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}

// DayBounds returns local midnight of t's day and the following midnight.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// NextSequence picks the sequence for an insert attempt: one past today's
// order count, and never at or below a sequence that already collided.
func NextSequence(countToday int64, lastTried int) int {
	seq := int(countToday) + 1
	if seq <= lastTried {
		seq = lastTried + 1
	}
	return seq
}

package metadata

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	isoDuration   = regexp.MustCompile(`^P(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)$`)
	clockDuration = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})$`)
)

// ParseDuration reads ISO-8601 ("PT4M30S") and clock ("4:30", "1:02:03")
// durations into seconds. Unparseable input yields 0.
func ParseDuration(value string) int {
	value = strings.ToUpper(strings.TrimSpace(value))
	if m := isoDuration.FindStringSubmatch(value); m != nil {
		return atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3])
	}
	if m := clockDuration.FindStringSubmatch(value); m != nil {
		return atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3])
	}
	return 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

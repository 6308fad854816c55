package router

import (
	"math/rand"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var reqSeq uint64

// newReqID returns a short correlation ID for one dispatched command.
// Uniqueness only has to hold within recent log history, not globally.
func newReqID() string {
	seq := atomic.AddUint64(&reqSeq, 1)
	ts := strconv.FormatInt(time.Now().UnixNano(), 36)
	return ts + "-" + strconv.FormatUint(seq, 36) + randSuffix(2)
}

func randSuffix(n int) string {
	const alpha = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alpha[rand.Intn(len(alpha))]
	}
	return string(b)
}

// tokenizeCommandLine splits command text on whitespace with single and
// double quoting plus backslash escapes, so arguments like region names
// containing spaces survive:
//
//	/egg "呼和浩特 东部" 20250830
func tokenizeCommandLine(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		out     []string
		buf     strings.Builder
		quote   byte
		escaped bool
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, buf.String())
			buf.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			buf.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				buf.WriteByte(c)
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return out
}

// parseFlags separates positional arguments from flags.
//
// Recognized flag forms: --key=value, --key value, --flag,
// -k=value, -k value, and grouped short bools like -abc.
func parseFlags(args []string) (pos []string, flags map[string]string, bools map[string]bool) {
	flags = make(map[string]string)
	bools = make(map[string]bool)

	takesValue := func(i int) (string, bool) {
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			return args[i+1], true
		}
		return "", false
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case strings.HasPrefix(a, "--") && len(a) > 2:
			key := a[2:]
			if eq := strings.IndexByte(key, '='); eq >= 0 {
				flags[key[:eq]] = key[eq+1:]
			} else if v, ok := takesValue(i); ok {
				flags[key] = v
				i++
			} else {
				bools[key] = true
			}
		case strings.HasPrefix(a, "-") && len(a) > 1 && a != "-":
			key := a[1:]
			if eq := strings.IndexByte(key, '='); eq >= 0 {
				flags[key[:eq]] = key[eq+1:]
			} else if len(key) == 1 {
				if v, ok := takesValue(i); ok {
					flags[key] = v
					i++
				} else {
					bools[key] = true
				}
			} else {
				for j := 0; j < len(key); j++ {
					bools[string(key[j])] = true
				}
			}
		default:
			pos = append(pos, a)
		}
	}
	return pos, flags, bools
}

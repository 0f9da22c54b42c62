package builtin

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func is one registered placeholder function. Arguments arrive as the raw
// comma-separated strings from the expression.
type Func func(args []string) any

// Registry holds the functions callable from ${{...}} placeholder
// expressions in case data.
type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["uuid"] = funcUUID
	r.funcs["now"] = funcNow
	r.funcs["date"] = funcDate
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["timestampMs"] = funcTimestampMs
	r.funcs["random_int"] = funcRandomInt
	r.funcs["random_string"] = funcRandomString
	r.funcs["random_phone"] = funcRandomPhone
	r.funcs["md5"] = funcMD5
	r.funcs["base64"] = funcBase64
}

// Register adds or replaces a function. The environment layer uses this to
// expose host() and app_host() bound to the active configuration.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Call evaluates a function-call expression of the form name(arg, ...).
// It returns false when the name is unknown or the expression does not
// parse as a call.
func (r *Registry) Call(expr string) (any, bool) {
	open := strings.IndexByte(expr, '(')
	if open < 0 || !strings.HasSuffix(expr, ")") {
		return nil, false
	}
	name := strings.TrimSpace(expr[:open])
	fn, ok := r.funcs[name]
	if !ok {
		return nil, false
	}
	argsStr := expr[open+1 : len(expr)-1]
	var args []string
	if strings.TrimSpace(argsStr) != "" {
		args = parseArgs(argsStr)
	}
	return fn(args), true
}

// parseArgs splits a comma-separated argument list, honoring single and
// double quotes.
func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
		case inQuote && ch == quoteChar:
			inQuote = false
			quoteChar = 0
		case !inQuote && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}
	return args
}

func funcUUID(_ []string) any {
	return uuid.New().String()
}

func funcNow(_ []string) any {
	return time.Now().Format("2006-01-02 15:04:05")
}

func funcDate(args []string) any {
	format := "2006-01-02"
	if len(args) >= 1 {
		format = args[0]
	}
	return time.Now().Format(format)
}

func funcTimestamp(_ []string) any {
	return time.Now().Unix()
}

func funcTimestampMs(_ []string) any {
	return time.Now().UnixMilli()
}

func funcRandomInt(args []string) any {
	min, max := 0, 100
	if len(args) >= 2 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			min = v
		}
		if v, err := strconv.Atoi(args[1]); err == nil {
			max = v
		}
	}
	if max < min {
		min, max = max, min
	}
	return rand.Intn(max-min+1) + min
}

func funcRandomString(args []string) any {
	length := 16
	if len(args) >= 1 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			length = v
		}
	}
	return randomString(length, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
}

// funcRandomPhone generates a syntactically valid mainland mobile number,
// used to author registration-style cases without fixture collisions.
func funcRandomPhone(_ []string) any {
	prefixes := []string{"130", "132", "136", "138", "139", "151", "155", "158", "166", "177", "188", "199"}
	return fmt.Sprintf("%s%08d", prefixes[rand.Intn(len(prefixes))], rand.Intn(100000000))
}

func funcMD5(args []string) any {
	if len(args) < 1 {
		return ""
	}
	hash := md5.Sum([]byte(args[0]))
	return hex.EncodeToString(hash[:])
}

func funcBase64(args []string) any {
	if len(args) < 1 {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(args[0]))
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

package resource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Key derives a cache key from a logical name and arguments. Scalars are
// written as text; anything else is written as JSON, which orders map keys,
// so equal arguments always give equal keys.
func Key(name string, args ...any) string {
	var b strings.Builder
	b.WriteString(name)
	for _, arg := range args {
		b.WriteByte('|')
		b.WriteString(keyPart(arg))
	}
	return b.String()
}

func keyPart(arg any) string {
	switch v := arg.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		return v.String()
	}
	data, err := json.Marshal(arg)
	if err != nil {
		return fmt.Sprint(arg)
	}
	return string(data)
}

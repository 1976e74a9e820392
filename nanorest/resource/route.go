package resource

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	schemacheck "github.com/arthur-debert/nanorest/internal/validation"
)

// itemRoute appends id to a collection route. With flatten, only the last
// segment of the collection route is kept: "/users/1/projects" becomes
// "/projects/7".
func itemRoute(route string, flatten bool, id any) string {
	if flatten {
		if i := strings.LastIndex(route, "/"); i >= 0 {
			route = route[i:]
		}
	}
	return route + "/" + formatID(id)
}

// derefID follows pointers to the id value. A nil pointer is no id.
func derefID(id any) any {
	v := reflect.ValueOf(id)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// formatID renders an id the way it appears in a URL path
func formatID(id any) string {
	switch v := derefID(id).(type) {
	case nil:
		return ""
	case string:
		return url.PathEscape(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return url.PathEscape(fmt.Sprint(derefID(id)))
}

func isAbsoluteURL(route string) bool {
	return schemacheck.IsAbsoluteURL(route)
}

// hasValue reports whether an id value counts as present
func hasValue(v any) bool {
	v = derefID(v)
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

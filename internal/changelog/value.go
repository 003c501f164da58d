package changelog

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05-07:00"

// DisplayValue converts a field value to the text used inside change
// messages. The conversions match what historical rows contain: nil is
// "None" and booleans are "True"/"False".
func DisplayValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case bool:
		if val {
			return "True"
		}
		return "False"
	case time.Time:
		return val.Format(timeLayout)
	case *time.Time:
		if val == nil {
			return "None"
		}
		return val.Format(timeLayout)
	case fmt.Stringer:
		if isNilPointer(v) {
			return "None"
		}
		return val.String()
	case []string:
		return strings.Join(val, ", ")
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "None"
		}
		return DisplayValue(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// sameValue reports whether two form values should be considered equal.
// Times compare by instant so a location change alone is not a change.
func sameValue(a, b any) bool {
	ta, aok := asTime(a)
	tb, bok := asTime(b)
	if aok && bok {
		return ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}

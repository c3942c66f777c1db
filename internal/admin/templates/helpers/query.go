package helpers

import (
	"net/url"
	"strings"
)

// SetRawQuery returns rawQuery with key set to value.
func SetRawQuery(rawQuery, key, value string) string {
	values, _ := url.ParseQuery(rawQuery)
	if values == nil {
		values = url.Values{}
	}
	values.Set(key, value)
	return values.Encode()
}

// DelRawQuery returns rawQuery without key.
func DelRawQuery(rawQuery, key string) string {
	values, _ := url.ParseQuery(rawQuery)
	values.Del(key)
	return values.Encode()
}

// BuildURL joins the path of target with rawQuery, dropping any existing query.
func BuildURL(target, rawQuery string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		target = target[:i]
	}
	if rawQuery == "" {
		return target
	}
	return target + "?" + rawQuery
}

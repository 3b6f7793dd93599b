// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"reflect"
	"strings"
)

// sensitiveKeywords mark field names whose values never reach the logs.
var sensitiveKeywords = []string{
	"password",
	"secret",
	"token",
	"servicekey",
	"dsn",
}

// MaskSecrets turns a configuration value into a loggable map with
// sensitive fields replaced by "***". Empty secrets stay empty so an
// operator can tell "unset" from "set".
func MaskSecrets(data any) any {
	if data == nil {
		return nil
	}

	val := reflect.ValueOf(data)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		result := make(map[string]any, val.Len())
		iter := val.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			result[key] = maskField(key, iter.Value())
		}
		return result

	case reflect.Slice, reflect.Array:
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			result[i] = MaskSecrets(val.Index(i).Interface())
		}
		return result

	case reflect.Struct:
		result := make(map[string]any)
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			result[field.Name] = maskField(field.Name, val.Field(i))
		}
		return result

	default:
		return val.Interface()
	}
}

func maskField(name string, v reflect.Value) any {
	if !isSensitiveKey(name) {
		return MaskSecrets(v.Interface())
	}
	if v.Kind() == reflect.String && v.String() == "" {
		return ""
	}
	return "***"
}

func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}

package config

import (
	"reflect"
	"sync"
	"time"
)

// EnvPrefix namespaces environment overrides that have no explicit env tag.
const EnvPrefix = "MPDRIVER_"

type fieldInfo struct {
	env       string
	sensitive bool
}

var fieldIndex = sync.OnceValue(func() map[string]fieldInfo {
	index := make(map[string]fieldInfo)
	indexFields(reflect.TypeFor[Config](), "", index)
	return index
})

var durationType = reflect.TypeFor[time.Duration]()

// indexFields records every koanf-tagged leaf of t under its dotted path.
func indexFields(t reflect.Type, prefix string, index map[string]fieldInfo) {
	for i := range t.NumField() {
		field := t.Field(i)
		name := field.Tag.Get("koanf")
		if !field.IsExported() || name == "" || name == "-" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if field.Type.Kind() == reflect.Struct && field.Type != durationType {
			indexFields(field.Type, path, index)
			continue
		}
		info := fieldInfo{
			sensitive: field.Type == reflect.TypeFor[SensitiveString]() || field.Tag.Get("sensitive") == "true",
		}
		if env := field.Tag.Get("env"); env != "-" {
			info.env = env
		}
		index[path] = info
	}
}

// EnvBindings maps each declared env variable to its config path.
func EnvBindings() map[string]string {
	out := make(map[string]string)
	for path, info := range fieldIndex() {
		if info.env != "" {
			out[info.env] = path
		}
	}
	return out
}

// EnvVarFor returns the env variable bound to path, or "".
func EnvVarFor(path string) string {
	return fieldIndex()[path].env
}

// IsSensitivePath reports whether path holds a secret.
func IsSensitivePath(path string) bool {
	return fieldIndex()[path].sensitive
}

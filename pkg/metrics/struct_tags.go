package metrics

import (
	"fmt"
	"path"
	"reflect"
)

type metricAdder func(interface{}, string, string, map[string]string) interface{}

// supported struct tags, with the key they are reported under
var tagKeys = map[string]string{
	"metric":      "metric",
	"unit":        "unit",
	"group":       "group",
	"description": "description",
	"extraviews":  "views",
	"tags":        "groupings",
}

func equalType(a, b interface{}) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// scanStruct walks a struct and allocates all the measures it declares with struct tags.
//
// Fields that are not pointers to measures or structs (e.g. slices, maps) are ignored.
func scanStruct(parent string, adder metricAdder, m interface{}) {
	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("scanStruct requires a pointer to a struct, got: %T", m))
	}
	scanValue(parent, adder, rv.Elem())
}

func scanValue(parent string, adder metricAdder, v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		tags := fieldTags(field)
		group := path.Join(parent, tags["group"])

		switch {
		case tags["metric"] != "" && fv.Kind() == reflect.Ptr:
			if allocated := adder(reflect.New(fv.Type().Elem()).Interface(), tags["metric"], group, tags); allocated != nil {
				fv.Set(reflect.ValueOf(allocated))
			}
		case fv.Kind() == reflect.Struct:
			scanValue(group, adder, fv)
		case fv.Kind() == reflect.Ptr && fv.Type().Elem().Kind() == reflect.Struct:
			if fv.IsNil() {
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			scanValue(group, adder, fv.Elem())
		}
	}
}

func fieldTags(field reflect.StructField) map[string]string {
	tags := make(map[string]string, len(tagKeys))
	for tg, key := range tagKeys {
		if value, ok := field.Tag.Lookup(tg); ok {
			tags[key] = value
		}
	}
	return tags
}
